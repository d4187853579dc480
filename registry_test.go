package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Components ---
type Position struct{ X, Y float32 }
type Velocity struct{ VX, VY float32 }
type Health struct{ Current, Max int }
type Tag struct{}
type Unregistered struct{}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	RegisterComponent[Position](reg)
	RegisterComponent[Velocity](reg)
	RegisterComponent[Health](reg)
	RegisterComponent[Tag](reg)
	return reg
}

func TestRegisterComponentDeclarationOrder(t *testing.T) {
	reg := newTestRegistry()
	assert.Equal(t, ComponentID(0), ID[Position](reg))
	assert.Equal(t, ComponentID(1), ID[Velocity](reg))
	assert.Equal(t, ComponentID(2), ID[Health](reg))
	assert.Equal(t, ComponentID(3), ID[Tag](reg))
	assert.Equal(t, 4, reg.Len())

	// Re-registration returns the existing ID.
	assert.Equal(t, ComponentID(0), RegisterComponent[Position](reg))
	assert.Equal(t, 4, reg.Len())
}

func TestUnregisteredComponentRejected(t *testing.T) {
	reg := newTestRegistry()
	assert.Panics(t, func() { ID[Unregistered](reg) })

	_, ok := TryID[Unregistered](reg)
	assert.False(t, ok)
}

func TestSealedRegistryRejectsRegistration(t *testing.T) {
	reg := newTestRegistry()
	NewWorld(reg)
	assert.Panics(t, func() { RegisterComponent[Unregistered](reg) })
}

func TestNonSyncMark(t *testing.T) {
	reg := NewRegistry()
	id := RegisterComponent[Position](reg, AsNonSync())
	RegisterComponent[Velocity](reg)
	assert.True(t, reg.isNonSync(id))
	assert.False(t, reg.isNonSync(ID[Velocity](reg)))
}

func TestViewCanonicalization(t *testing.T) {
	reg := newTestRegistry()
	// User order: Health, Position, Velocity — registry order is the reverse
	// of the first two.
	v, err := NewView(reg,
		Read[Health](reg),
		Write[Position](reg),
		ReadOpt[Velocity](reg),
	)
	require.NoError(t, err)

	require.Len(t, v.canonical, 3)
	assert.Equal(t, ID[Position](reg), v.canonical[0].id)
	assert.Equal(t, ID[Velocity](reg), v.canonical[1].id)
	assert.Equal(t, ID[Health](reg), v.canonical[2].id)

	assert.Equal(t, makeMask([]ComponentID{ID[Health](reg), ID[Position](reg)}), v.required)
	assert.Equal(t, makeMask([]ComponentID{ID[Velocity](reg)}), v.optional)
	assert.Equal(t, makeMask([]ComponentID{ID[Position](reg)}), v.writes)
}

// Canonical round-trip: projecting the canonical list back through the index
// path restores the user's order element-wise.
func TestViewIndexPathRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	userOrder := []Access{
		Read[Tag](reg),
		Read[Position](reg),
		Read[Health](reg),
		Read[Velocity](reg),
	}
	v, err := NewView(reg, userOrder...)
	require.NoError(t, err)

	for ui, el := range userOrder {
		assert.Equal(t, el.id, v.canonical[v.path[ui]].id)
	}
}

func TestViewRejectsDuplicates(t *testing.T) {
	reg := newTestRegistry()
	_, err := NewView(reg, Read[Position](reg), Write[Position](reg))
	assert.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestViewRejectsUnknownID(t *testing.T) {
	reg := newTestRegistry()
	_, err := NewView(reg, AccessID(ComponentID(99), false, false))
	assert.ErrorIs(t, err, ErrNotRegistered)
}
