// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package rhi

import "testing"

func TestNullCreateMeshRecordsLayout(t *testing.T) {
	n := NewNull()
	layout := MeshLayout{VertexStride: 12, VertexCount: 3, IndexCount: 3}
	obj, err := n.CreateMesh(layout)
	if err != nil {
		t.Fatalf("CreateMesh: %v", err)
	}
	if !obj.Valid() {
		t.Fatal("freshly created object should be valid")
	}
	if len(n.MeshesCreated) != 1 || n.MeshesCreated[0].VertexCount != 3 {
		t.Fatalf("expected layout to be recorded, got %+v", n.MeshesCreated)
	}
}

func TestNullDestroyMeshInvalidatesObject(t *testing.T) {
	n := NewNull()
	obj, _ := n.CreateMesh(MeshLayout{})
	if err := n.DestroyMesh(obj); err != nil {
		t.Fatalf("DestroyMesh: %v", err)
	}
	if obj.Valid() {
		t.Fatal("object should be invalid after destroy")
	}
	if n.MeshesDestroyed != 1 {
		t.Fatalf("expected 1 destroyed mesh, got %d", n.MeshesDestroyed)
	}
}

func TestNullUpdateTextureSubresourceRecordsLayout(t *testing.T) {
	n := NewNull()
	obj, _ := n.CreateTexture(TextureLayout{Width: 4, Height: 4, Format: RGBA8})
	updated := TextureLayout{Width: 4, Height: 4, Format: RGBA8, Pixels: []byte{1, 2, 3, 4}}
	if err := n.UpdateTextureSubresource(obj, updated); err != nil {
		t.Fatalf("UpdateTextureSubresource: %v", err)
	}
	if len(n.TexturesUpdated) != 1 || len(n.TexturesUpdated[0].Pixels) != 4 {
		t.Fatalf("expected update to be recorded, got %+v", n.TexturesUpdated)
	}
}
