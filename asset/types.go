// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package asset

// Type is an asset type's behavior object: it knows its own type-tag
// name (e.g. "Ion.Mesh"), how to parse its type-specific descriptor
// subtree into custom data, and how to manufacture default custom data
// for a brand new asset of this type. Registered once at init time,
// never removed (spec §3 "Asset type").
type Type interface {
	Name() string
	Parse(c *Cursor) (customData interface{}, err error)
	DefaultCustomData() interface{}
}

// typeRegistry is the process-wide map from type-tag to Type, embedded
// in Registry so RegisterType is one of its public operations as spec
// §4.4 describes, while remaining a conceptually distinct piece (spec §2
// lists it as its own component).
type typeRegistry struct {
	byName map[string]Type
}

func newTypeRegistry() typeRegistry {
	return typeRegistry{byName: make(map[string]Type)}
}

func (r *typeRegistry) register(t Type) error {
	if _, exists := r.byName[t.Name()]; exists {
		return newErr(DuplicateRegistration, "asset type %q already registered", t.Name())
	}
	r.byName[t.Name()] = t
	return nil
}

func (r *typeRegistry) lookup(name string) (Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}
