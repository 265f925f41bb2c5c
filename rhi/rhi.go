// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package rhi defines the thin, opaque façade the asset/resource
// subsystem uses to push decoded mesh and texture bytes onto a
// rendering backend. The rendering backend itself — GL/Vulkan/D3D
// object creation, shader compilation, the actual draw loop — is out
// of scope (spec §1 "treated as an opaque GPU-object factory"); this
// package only defines the seam MeshResource/TextureResource call
// through, plus a deterministic in-memory implementation for tests.
package rhi

// GPUObject is the handle a Device returns for a created mesh or
// texture. It is opaque to callers: the only thing done with it besides
// holding onto it is handing it back to Device.Update/Device.Destroy.
type GPUObject interface {
	// Valid reports whether the backend still considers this object
	// live. A Device implementation may use this to fail fast on reuse
	// after Destroy.
	Valid() bool
}

// MeshLayout describes a mesh's vertex/index buffers well enough for a
// backend to create matching GPU buffers, without the rhi package
// needing to know the backend's own layout type.
type MeshLayout struct {
	VertexStride int    // bytes per vertex.
	VertexCount  int
	IndexCount   int
	Vertices     []byte // VertexStride * VertexCount bytes.
	Indices      []byte // 2*IndexCount bytes (uint16 indices).
}

// TextureLayout describes a decoded texture's dimensions and pixel
// format well enough for a backend to create a matching GPU image.
type TextureLayout struct {
	Width, Height int
	Format        PixelFormat
	Pixels        []byte
}

// PixelFormat enumerates the decoded pixel layouts the texture resource
// produces (spec §4.6 "decoded once, in a backend-neutral format").
type PixelFormat int

const (
	RGBA8 PixelFormat = iota
	RGB8
	Grey8
)

// Device is the opaque GPU-object factory: create, bind (i.e. upload),
// and update_subresource, matching spec §1's three verbs. A real
// backend (OpenGL, Vulkan, ...) implements this outside the module;
// Null below is the deterministic stand-in used by tests.
type Device interface {
	CreateMesh(layout MeshLayout) (GPUObject, error)
	UpdateMeshSubresource(obj GPUObject, layout MeshLayout) error
	DestroyMesh(obj GPUObject) error

	CreateTexture(layout TextureLayout) (GPUObject, error)
	UpdateTextureSubresource(obj GPUObject, layout TextureLayout) error
	DestroyTexture(obj GPUObject) error
}
