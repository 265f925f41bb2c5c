// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/rhi"
)

type noopMeshType struct{}

func (noopMeshType) Name() string { return "Ion.Mesh" }
func (noopMeshType) Parse(c *asset.Cursor) (interface{}, error) { return nil, nil }
func (noopMeshType) DefaultCustomData() interface{}             { return nil }

func writeDescriptor(t *testing.T, dir, name, guid string) string {
	t.Helper()
	path := filepath.Join(dir, name+asset.DescriptorExt)
	body := "IonAsset:\n  Info:\n    type: Ion.Mesh\n    guid: " + guid + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

// TestMeshImportOrderingMatchesS5 reproduces spec scenario S5: before
// DispatchMessages runs, Take returns false and onReady has not fired;
// after one worker completes and DispatchMessages runs once, onReady
// has fired exactly once with non-nil render data.
func TestMeshImportOrderingMatchesS5(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "cube", "54a6f55c-feaf-4aa9-87cd-cc9b487c31ef")

	device := rhi.NewNull()
	svc, err := Init(device, WorkerCount(1), MeshPoolSize(1<<20), TexturePoolSize(1<<20))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer svc.Shutdown()

	if err := svc.Registry.RegisterType(noopMeshType{}); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if err := svc.Registry.RegisterVirtualRoot("[Engine]", dir); err != nil {
		t.Fatalf("RegisterVirtualRoot: %v", err)
	}
	h, err := svc.Registry.Resolve("[Engine]/cube")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	def, _ := h.Resolve()

	decode := MeshDecoder(func(raw []byte) (rhi.MeshLayout, error) {
		return rhi.MeshLayout{VertexStride: 12, VertexCount: 3, IndexCount: 3}, nil
	})
	ref := QueryMesh(svc.Resources, svc.Queue, svc.Device, decode, h)
	defer ref.Release()
	res, _ := ref.Get()
	mesh := res.(*MeshResource)

	called := make(chan *MeshRenderData, 1)
	if mesh.Take(def, func(data *MeshRenderData) { called <- data }) {
		t.Fatal("Take should not complete synchronously on first call")
	}
	select {
	case <-called:
		t.Fatal("onReady must not fire before DispatchMessages runs")
	case <-time.After(20 * time.Millisecond):
	}

	// Give the worker a chance to finish decoding and post its message.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		svc.Queue.DispatchMessages()
		select {
		case data := <-called:
			if data == nil {
				t.Fatal("expected non-nil render data")
			}
			svc.Queue.DispatchMessages()
			select {
			case <-called:
				t.Fatal("onReady fired more than once")
			default:
			}
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("onReady was never called")
}

// TestMeshReleaseFreesPoolAllocationAndDestroysGPUObject exercises the
// staging/teardown path the resource manager drives end to end: the
// decoded mesh lands in the mesh pool before the GPU object is built
// (spec §4.1), and releasing the last strong ref frees that pool
// allocation and destroys the GPU object (spec §4.5, §4.6).
func TestMeshReleaseFreesPoolAllocationAndDestroysGPUObject(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "cube", "54a6f55c-feaf-4aa9-87cd-cc9b487c31ef")

	device := rhi.NewNull()
	svc, err := Init(device, WorkerCount(1), MeshPoolSize(1<<20), TexturePoolSize(1<<20))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer svc.Shutdown()

	if err := svc.Registry.RegisterType(noopMeshType{}); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if err := svc.Registry.RegisterVirtualRoot("[Engine]", dir); err != nil {
		t.Fatalf("RegisterVirtualRoot: %v", err)
	}
	h, err := svc.Registry.Resolve("[Engine]/cube")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	def, _ := h.Resolve()

	decode := MeshDecoder(func(raw []byte) (rhi.MeshLayout, error) {
		return rhi.MeshLayout{
			VertexStride: 12,
			VertexCount:  3,
			IndexCount:   3,
			Vertices:     make([]byte, 36),
			Indices:      make([]byte, 6),
		}, nil
	})
	ref := QueryMesh(svc.Resources, svc.Queue, svc.Device, decode, h)
	res, _ := ref.Get()
	mesh := res.(*MeshResource)

	before := svc.Resources.MeshPool().UsedBytes()

	called := make(chan *MeshRenderData, 1)
	mesh.Take(def, func(data *MeshRenderData) { called <- data })

	deadline := time.Now().Add(time.Second)
	var data *MeshRenderData
	for time.Now().Before(deadline) {
		svc.Queue.DispatchMessages()
		select {
		case data = <-called:
		default:
			time.Sleep(time.Millisecond)
			continue
		}
		break
	}
	if data == nil {
		t.Fatal("onReady was never called")
	}
	if svc.Resources.MeshPool().UsedBytes() <= before {
		t.Fatal("expected the decoded mesh bytes to have been staged into the mesh pool")
	}

	obj := data.obj
	ref.Release()

	if device.MeshesDestroyed == 0 {
		t.Fatal("expected DestroyMesh to run once the strong ref was released")
	}
	if obj.Valid() {
		t.Fatal("expected the GPU object to be invalidated by DestroyMesh")
	}
	if svc.Resources.MeshPool().UsedBytes() != before {
		t.Fatal("expected the mesh pool allocation to be freed once the strong ref was released")
	}
}

// TestMaterialInstanceBindTexturesMatchesS6 reproduces spec scenario
// S6: after one worker round and one message dispatch, BindTextures
// binds a non-nil texture at the declared parameter's slot.
func TestMaterialInstanceBindTexturesMatchesS6(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "albedo.png")
	// A minimal 1x1 PNG (black pixel) so image/png.Decode succeeds.
	onePixelPNG := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xde, 0x00, 0x00, 0x00, 0x0c, 0x49, 0x44, 0x41,
		0x54, 0x08, 0xd7, 0x63, 0x60, 0x60, 0x60, 0x00,
		0x00, 0x00, 0x04, 0x00, 0x01, 0xa3, 0x4a, 0x7a,
		0x7c, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
		0x44, 0xae, 0x42, 0x60, 0x82,
	}
	if err := os.WriteFile(imgPath, onePixelPNG, 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	writeDescriptor(t, dir, "albedo", "11111111-1111-1111-1111-111111111111")

	device := rhi.NewNull()
	svc, err := Init(device, WorkerCount(1), MeshPoolSize(1<<20), TexturePoolSize(1<<20))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer svc.Shutdown()

	if err := svc.Registry.RegisterType(noopMeshType{}); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if err := svc.Registry.RegisterVirtualRoot("[Engine]", dir); err != nil {
		t.Fatalf("RegisterVirtualRoot: %v", err)
	}
	h, err := svc.Registry.Resolve("[Engine]/albedo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	def, _ := h.Resolve()
	def.ImportExternal = true
	def.ImportPath = imgPath

	mat := NewMaterial("// shader source")
	slot, err := mat.AddTextureParameter("Albedo", def.GUID)
	if err != nil {
		t.Fatalf("AddTextureParameter: %v", err)
	}

	mi := NewMaterialInstance(mat, svc)
	defer mi.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		svc.Queue.DispatchMessages()
		bound := mi.BindTextures()
		if bound[slot] != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected a non-nil texture bound at the parameter's slot")
}
