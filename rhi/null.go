// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package rhi

import "sync/atomic"

// nullObject is the GPUObject returned by Null. destroyed is set once
// Destroy*/ is called, so a reuse-after-destroy bug surfaces as
// Valid() == false instead of silently succeeding.
type nullObject struct {
	id        uint64
	destroyed int32
}

func (o *nullObject) Valid() bool { return atomic.LoadInt32(&o.destroyed) == 0 }

// Null is a deterministic, in-memory Device that records what was
// asked of it instead of talking to any real graphics API. It exists so
// this module's tests can exercise Create/Update/Destroy
// without a windowing system or GPU driver, matching how the teacher's
// render package separates Renderer (the real backend) from data that
// doesn't care which one is behind it.
type Null struct {
	nextID uint64

	MeshesCreated     []MeshLayout
	MeshesUpdated     []MeshLayout
	MeshesDestroyed   int
	TexturesCreated   []TextureLayout
	TexturesUpdated   []TextureLayout
	TexturesDestroyed int
}

// NewNull constructs a ready-to-use Null device.
func NewNull() *Null { return &Null{} }

func (n *Null) newObject() *nullObject {
	n.nextID++
	return &nullObject{id: n.nextID}
}

func (n *Null) CreateMesh(layout MeshLayout) (GPUObject, error) {
	n.MeshesCreated = append(n.MeshesCreated, layout)
	return n.newObject(), nil
}

func (n *Null) UpdateMeshSubresource(obj GPUObject, layout MeshLayout) error {
	n.MeshesUpdated = append(n.MeshesUpdated, layout)
	return nil
}

func (n *Null) DestroyMesh(obj GPUObject) error {
	if o, ok := obj.(*nullObject); ok {
		atomic.StoreInt32(&o.destroyed, 1)
	}
	n.MeshesDestroyed++
	return nil
}

func (n *Null) CreateTexture(layout TextureLayout) (GPUObject, error) {
	n.TexturesCreated = append(n.TexturesCreated, layout)
	return n.newObject(), nil
}

func (n *Null) UpdateTextureSubresource(obj GPUObject, layout TextureLayout) error {
	n.TexturesUpdated = append(n.TexturesUpdated, layout)
	return nil
}

func (n *Null) DestroyTexture(obj GPUObject) error {
	if o, ok := obj.(*nullObject); ok {
		atomic.StoreInt32(&o.destroyed, 1)
	}
	n.TexturesDestroyed++
	return nil
}
