// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package asset

// Info holds the descriptor's Name and Resource sections (spec §3, §6.1).
type Info struct {
	Name          string
	ResourceUsage []string // child element names copied verbatim from Resource/*.
}

// Definition is the in-memory record for one registered asset. It is
// created only by Registry.Resolve/RegisterExternal and destroyed only
// by Registry.Unregister — spec §3's "no other path removes it".
type Definition struct {
	GUID           GUID
	VirtualPath    string
	DefinitionPath string // filesystem path of the .iasset descriptor.
	ImportPath     string // absolute path of the payload, if any.
	ImportExternal bool
	Type           Type
	Info           Info
	CustomData     interface{}
}

// handleState distinguishes the three states a Handle can be in.
type handleState int

const (
	handleInvalid handleState = iota // zero value: uninitialized.
	handleNull                       // explicit "no asset".
	handleBound                      // points at a live Definition.
)

// Handle is a stable, copyable, comparable reference to a registered
// asset Definition. Handles never own the Definition they point to —
// ownership lives exclusively in the Registry.
type Handle struct {
	state handleState
	def   *Definition
}

// NullHandle is the explicit "no asset" handle.
var NullHandle = Handle{state: handleNull}

// IsNull reports whether h is the explicit "no asset" handle.
func (h Handle) IsNull() bool { return h.state == handleNull }

// IsInvalid reports whether h is an uninitialized (zero-value) handle.
func (h Handle) IsInvalid() bool { return h.state == handleInvalid }

// IsBound reports whether h currently points at a live Definition.
func (h Handle) IsBound() bool { return h.state == handleBound }

// Resolve returns the Definition h points to, and whether h IsBound.
func (h Handle) Resolve() (*Definition, bool) {
	if h.state != handleBound {
		return nil, false
	}
	return h.def, true
}

func boundHandle(def *Definition) Handle {
	return Handle{state: handleBound, def: def}
}
