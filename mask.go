// Package strata provides an archetype-based Entity-Component-System storage
// engine with canonical component ordering, borrow-aware scheduling and
// optional world serialization.
package strata

import (
	"fmt"
	"math/bits"
)

// maskType is a bitmask over the registry's component universe. Bit i is set
// iff component i is present. It uniquely identifies an archetype.
type maskType [maskWords]uint64

const (
	bitsPerWord       = 64
	maskWords         = 4
	maxComponentTypes = maskWords * bitsPerWord
)

// has checks if the mask has a specific component ID.
func (self maskType) has(id ComponentID) bool {
	word := int(id) / bitsPerWord
	if word >= maskWords {
		return false
	}
	bit := uint(id) % bitsPerWord
	return (self[word] & (1 << bit)) != 0
}

// setMask adds a component ID to the mask.
func setMask(m maskType, id ComponentID) maskType {
	word := int(id) / bitsPerWord
	if word >= maskWords {
		panic(fmt.Sprintf("component ID %d exceeds maximum (%d)", id, maxComponentTypes))
	}
	bit := uint(id) % bitsPerWord
	nm := m
	nm[word] |= 1 << bit
	return nm
}

// unsetMask removes a component ID from the mask.
func unsetMask(m maskType, id ComponentID) maskType {
	word := int(id) / bitsPerWord
	if word >= maskWords {
		return m
	}
	bit := uint(id) % bitsPerWord
	nm := m
	nm[word] &^= 1 << bit
	return nm
}

// orMask performs a bitwise OR between two masks.
func orMask(m1, m2 maskType) maskType {
	var nm maskType
	for i := 0; i < maskWords; i++ {
		nm[i] = m1[i] | m2[i]
	}
	return nm
}

// andMask performs a bitwise AND between two masks.
func andMask(m1, m2 maskType) maskType {
	var nm maskType
	for i := 0; i < maskWords; i++ {
		nm[i] = m1[i] & m2[i]
	}
	return nm
}

// andNotMask performs a bitwise AND NOT (m1 &^ m2) between two masks.
func andNotMask(m1, m2 maskType) maskType {
	var nm maskType
	for i := 0; i < maskWords; i++ {
		nm[i] = m1[i] &^ m2[i]
	}
	return nm
}

// makeMask creates a mask from a slice of component IDs.
func makeMask(ids []ComponentID) maskType {
	var m maskType
	for _, id := range ids {
		m = setMask(m, id)
	}
	return m
}

// includesAll checks if a mask contains all the bits of another mask.
func includesAll(m, include maskType) bool {
	for i := 0; i < maskWords; i++ {
		if (m[i] & include[i]) != include[i] {
			return false
		}
	}
	return true
}

// intersects checks if a mask has any bits in common with another mask.
func intersects(m, other maskType) bool {
	for i := 0; i < maskWords; i++ {
		if (m[i] & other[i]) != 0 {
			return true
		}
	}
	return false
}

// isZero reports whether no bit is set.
func (self maskType) isZero() bool {
	return self[0] == 0 && self[1] == 0 && self[2] == 0 && self[3] == 0
}

// count returns the number of set bits.
func (self maskType) count() int {
	n := 0
	for i := 0; i < maskWords; i++ {
		n += bits.OnesCount64(self[i])
	}
	return n
}

// eachBit calls fn for every set bit in ascending (canonical) order.
func (self maskType) eachBit(fn func(id ComponentID)) {
	for w := 0; w < maskWords; w++ {
		word := self[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			fn(ComponentID(w*bitsPerWord + bit))
			word &= word - 1
		}
	}
}

// bitList returns the set bits in ascending order.
func (self maskType) bitList() []ComponentID {
	ids := make([]ComponentID, 0, self.count())
	self.eachBit(func(id ComponentID) {
		ids = append(ids, id)
	})
	return ids
}
