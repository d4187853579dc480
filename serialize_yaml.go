package strata

import (
	"io"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Human-readable serialization: row mode only, component values rendered by
// their field structure rather than raw bytes. Intended for debugging and
// fixtures; the binary codec is the compact path.

type yamlEntity struct {
	ID         uint32         `yaml:"id"`
	Version    uint32         `yaml:"version"`
	Components map[string]any `yaml:"components"`
}

type yamlWorld struct {
	Entities []yamlEntity `yaml:"entities"`
}

type yamlRowVisitor struct {
	reg *Registry
	doc yamlWorld
}

func (self *yamlRowVisitor) VisitEntity(e Entity, comps []ComponentSlice) error {
	ye := yamlEntity{
		ID:         e.ID,
		Version:    e.Version,
		Components: make(map[string]any, len(comps)),
	}
	for _, c := range comps {
		typ := self.reg.typeOf(c.ID)
		var val reflect.Value
		if len(c.Bytes) == 0 {
			val = reflect.New(typ).Elem()
		} else {
			val = reflect.NewAt(typ, unsafe.Pointer(&c.Bytes[0])).Elem()
		}
		ye.Components[typ.String()] = val.Interface()
	}
	self.doc.Entities = append(self.doc.Entities, ye)
	return nil
}

// SerializeYAML writes the world's entities as a human-readable YAML
// document in row orientation.
func (self *World) SerializeYAML(out io.Writer) error {
	v := &yamlRowVisitor{reg: self.registry}
	if err := self.VisitRows(v); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return errors.Wrap(enc.Encode(&v.doc), "encode yaml world")
}

// DeserializeYAML replaces the world's entities with the document's
// contents. Component names must match types in the registry; archetypes
// with matching masks are reused.
func (self *World) DeserializeYAML(in io.Reader) error {
	var doc yamlWorld
	dec := yaml.NewDecoder(in)
	if err := dec.Decode(&doc); err != nil {
		return errors.Wrap(ErrCorrupt, err.Error())
	}
	byName := make(map[string]ComponentID, self.registry.Len())
	for id := ComponentID(0); int(id) < self.registry.Len(); id++ {
		byName[self.registry.typeOf(id).String()] = id
	}
	self.Clear()
	for _, ye := range doc.Entities {
		ids := make([]ComponentID, 0, len(ye.Components))
		for name := range ye.Components {
			id, ok := byName[name]
			if !ok {
				return errors.Wrapf(ErrNotRegistered, "component %q", name)
			}
			ids = append(ids, id)
		}
		a := self.getOrCreateArchetype(makeMask(ids))
		row, err := self.placeEntity(a, Entity{ID: ye.ID, Version: ye.Version})
		if err != nil {
			return err
		}
		for name, raw := range ye.Components {
			id := byName[name]
			typ := self.registry.typeOf(id)
			val := reflect.New(typ)
			// Round-trip through yaml to coerce the decoded map into the
			// concrete component type.
			b, err := yaml.Marshal(raw)
			if err != nil {
				return errors.Wrapf(err, "component %q", name)
			}
			if err := yaml.Unmarshal(b, val.Interface()); err != nil {
				return errors.Wrapf(ErrCorrupt, "component %q: %v", name, err)
			}
			size := self.registry.sizeOf(id)
			if size > 0 {
				memCopy(a.ptrAt(id, row), val.UnsafePointer(), size)
			}
		}
	}
	self.rebuildFreeList()
	return nil
}
