package strata

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// The serialization bridge walks world state in one of two orientations and
// hands byte-identical component payloads to a visitor. The binary codec
// below is the built-in consumer; external encoders implement the same
// visitor interfaces.

// ComponentSlice is one component's raw payload for one entity.
type ComponentSlice struct {
	ID    ComponentID
	Bytes []byte
}

// RowVisitor receives every live entity with its components in canonical
// order.
type RowVisitor interface {
	VisitEntity(e Entity, comps []ComponentSlice) error
}

// ColumnVisitor receives every non-empty archetype: its component IDs in
// canonical order, its entities, and one contiguous byte column per
// component.
type ColumnVisitor interface {
	VisitArchetype(ids []ComponentID, entities []Entity, cols [][]byte) error
}

// VisitRows walks the world entity by entity.
func (self *World) VisitRows(v RowVisitor) error {
	comps := make([]ComponentSlice, 0, 8)
	for _, a := range self.archetypes {
		for row, e := range a.entities {
			comps = comps[:0]
			for slot, id := range a.ids {
				comps = append(comps, ComponentSlice{ID: id, Bytes: a.cols[slot].rowBytes(row)})
			}
			if err := v.VisitEntity(e, comps); err != nil {
				return err
			}
		}
	}
	return nil
}

// VisitColumns walks the world archetype by archetype, skipping empty ones.
func (self *World) VisitColumns(v ColumnVisitor) error {
	for _, a := range self.archetypes {
		if a.len() == 0 {
			continue
		}
		cols := make([][]byte, len(a.cols))
		for i := range a.cols {
			cols[i] = a.cols[i].data
		}
		if err := v.VisitArchetype(a.ids, a.entities, cols); err != nil {
			return err
		}
	}
	return nil
}

// SerializeMode selects the orientation of the serialized stream.
type SerializeMode uint8

const (
	// RowMode emits a sequence of entities, each with its component list.
	RowMode SerializeMode = iota
	// ColumnMode emits a sequence of archetypes with whole columns.
	ColumnMode
)

const serializeVersion = 1

var serializeMagic = [4]byte{'S', 'T', 'R', 'W'}

// binaryWriter accumulates the payload for both modes.
type binaryWriter struct {
	buf bytes.Buffer
}

func (self *binaryWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	self.buf.Write(b[:])
}

func (self *binaryWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	self.buf.Write(b[:])
}

// mask writes the bitset little-endian bit-packed, lowest word first.
func (self *binaryWriter) mask(m maskType) {
	for i := 0; i < maskWords; i++ {
		self.u64(m[i])
	}
}

func (self *binaryWriter) VisitEntity(e Entity, comps []ComponentSlice) error {
	self.u32(e.ID)
	self.u32(e.Version)
	ids := make([]ComponentID, len(comps))
	for i, c := range comps {
		ids[i] = c.ID
	}
	self.mask(makeMask(ids))
	for _, c := range comps {
		self.buf.Write(c.Bytes)
	}
	return nil
}

func (self *binaryWriter) VisitArchetype(ids []ComponentID, entities []Entity, cols [][]byte) error {
	self.mask(makeMask(ids))
	self.u64(uint64(len(entities)))
	for _, e := range entities {
		self.u32(e.ID)
		self.u32(e.Version)
	}
	for _, col := range cols {
		self.buf.Write(col)
	}
	return nil
}

// Serialize writes the whole world to out in the given mode: a fixed header,
// an xxhash64 checksum, then the payload. Component payloads are
// byte-identical copies of column storage; format compatibility across
// library versions is not a goal.
func (self *World) Serialize(out io.Writer, mode SerializeMode) error {
	var w binaryWriter
	w.u64(uint64(self.size))
	var err error
	switch mode {
	case RowMode:
		err = self.VisitRows(&w)
	case ColumnMode:
		err = self.VisitColumns(&w)
	default:
		return errors.Wrapf(ErrCorrupt, "unknown mode %d", mode)
	}
	if err != nil {
		return err
	}
	payload := w.buf.Bytes()
	var header bytes.Buffer
	header.Write(serializeMagic[:])
	header.WriteByte(serializeVersion)
	header.WriteByte(byte(mode))
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(payload))
	header.Write(sum[:])
	if _, err := out.Write(header.Bytes()); err != nil {
		return errors.Wrap(err, "write header")
	}
	if _, err := out.Write(payload); err != nil {
		return errors.Wrap(err, "write payload")
	}
	self.logger.Debug("world serialized",
		zap.Int("entities", self.size),
		zap.Uint8("mode", uint8(mode)))
	return nil
}

// binaryReader parses the payload.
type binaryReader struct {
	data []byte
	off  int
}

func (self *binaryReader) need(n int) error {
	if self.off+n > len(self.data) {
		return errors.Wrap(ErrCorrupt, "unexpected end of stream")
	}
	return nil
}

func (self *binaryReader) u32() (uint32, error) {
	if err := self.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(self.data[self.off:])
	self.off += 4
	return v, nil
}

func (self *binaryReader) u64() (uint64, error) {
	if err := self.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(self.data[self.off:])
	self.off += 8
	return v, nil
}

func (self *binaryReader) mask() (maskType, error) {
	var m maskType
	for i := 0; i < maskWords; i++ {
		v, err := self.u64()
		if err != nil {
			return m, err
		}
		m[i] = v
	}
	return m, nil
}

func (self *binaryReader) bytes(n int) ([]byte, error) {
	if err := self.need(n); err != nil {
		return nil, err
	}
	b := self.data[self.off : self.off+n]
	self.off += n
	return b, nil
}

// Deserialize replaces the world's entities with the stream's contents.
// Archetypes already present with a matching mask are reused, never
// duplicated; the entity table is rebuilt to be consistent with the
// reconstructed archetypes.
func (self *World) Deserialize(in io.Reader) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read stream")
	}
	if len(raw) < 14 {
		return errors.Wrap(ErrCorrupt, "short header")
	}
	if !bytes.Equal(raw[:4], serializeMagic[:]) {
		return errors.Wrap(ErrCorrupt, "bad magic")
	}
	if raw[4] != serializeVersion {
		return errors.Wrapf(ErrCorrupt, "unsupported format version %d", raw[4])
	}
	mode := SerializeMode(raw[5])
	sum := binary.LittleEndian.Uint64(raw[6:14])
	payload := raw[14:]
	if xxhash.Sum64(payload) != sum {
		return errors.Wrap(ErrCorrupt, "checksum mismatch")
	}
	r := &binaryReader{data: payload}
	count, err := r.u64()
	if err != nil {
		return err
	}

	self.Clear()
	switch mode {
	case RowMode:
		for i := uint64(0); i < count; i++ {
			if err := self.readRow(r); err != nil {
				return err
			}
		}
	case ColumnMode:
		total := 0
		for total < int(count) {
			n, err := self.readArchetype(r)
			if err != nil {
				return err
			}
			total += n
		}
	default:
		return errors.Wrapf(ErrCorrupt, "unknown mode %d", mode)
	}
	if r.off != len(r.data) {
		return errors.Wrap(ErrCorrupt, "trailing bytes")
	}
	self.rebuildFreeList()
	self.logger.Debug("world deserialized", zap.Int("entities", self.size))
	return nil
}

// placeEntity installs a decoded entity into the archetype and entity table.
func (self *World) placeEntity(a *archetype, e Entity) (int, error) {
	if e.Version == 0 {
		return 0, errors.Wrap(ErrCorrupt, "zero entity version")
	}
	if int(e.ID) >= len(self.metas) {
		self.growEntityTable(int(e.ID) + 1)
	}
	meta := &self.metas[e.ID]
	if meta.version != 0 {
		return 0, errors.Wrapf(ErrCorrupt, "duplicate entity id %d", e.ID)
	}
	row := a.pushZeroRow(e)
	meta.archetypeIndex = a.index
	meta.index = row
	meta.version = e.Version
	self.size++
	if e.Version >= self.nextVer {
		self.nextVer = e.Version + 1
	}
	return row, nil
}

func (self *World) readRow(r *binaryReader) error {
	id, err := r.u32()
	if err != nil {
		return err
	}
	ver, err := r.u32()
	if err != nil {
		return err
	}
	mask, err := r.mask()
	if err != nil {
		return err
	}
	if err := self.checkMask(mask); err != nil {
		return err
	}
	a := self.getOrCreateArchetype(mask)
	row, err := self.placeEntity(a, Entity{ID: id, Version: ver})
	if err != nil {
		return err
	}
	for slot, cid := range a.ids {
		b, err := r.bytes(int(self.registry.sizeOf(cid)))
		if err != nil {
			return err
		}
		copy(a.cols[slot].rowBytes(row), b)
	}
	return nil
}

func (self *World) readArchetype(r *binaryReader) (int, error) {
	mask, err := r.mask()
	if err != nil {
		return 0, err
	}
	if err := self.checkMask(mask); err != nil {
		return 0, err
	}
	n64, err := r.u64()
	if err != nil {
		return 0, err
	}
	n := int(n64)
	if n == 0 {
		return 0, errors.Wrap(ErrCorrupt, "empty archetype record")
	}
	a := self.getOrCreateArchetype(mask)
	rows := make([]int, n)
	for i := 0; i < n; i++ {
		id, err := r.u32()
		if err != nil {
			return 0, err
		}
		ver, err := r.u32()
		if err != nil {
			return 0, err
		}
		row, err := self.placeEntity(a, Entity{ID: id, Version: ver})
		if err != nil {
			return 0, err
		}
		rows[i] = row
	}
	for slot, cid := range a.ids {
		size := int(self.registry.sizeOf(cid))
		b, err := r.bytes(n * size)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			copy(a.cols[slot].rowBytes(rows[i]), b[i*size:(i+1)*size])
		}
	}
	return n, nil
}

// checkMask rejects masks naming components outside the registry.
func (self *World) checkMask(mask maskType) error {
	var bad error
	mask.eachBit(func(id ComponentID) {
		if bad == nil && !self.registry.valid(id) {
			bad = errors.Wrapf(ErrCorrupt, "component id %d not in registry", id)
		}
	})
	return bad
}

// rebuildFreeList recomputes the recycled-ID stack after a bulk load.
func (self *World) rebuildFreeList() {
	self.freeIDs = self.freeIDs[:0]
	for i := len(self.metas) - 1; i >= 0; i-- {
		if self.metas[i].version == 0 {
			self.freeIDs = append(self.freeIDs, uint32(i))
		}
	}
}
