// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/image/bmp"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/pool"
	"github.com/galvanized-logic/ion/resource"
	"github.com/galvanized-logic/ion/rhi"
	"github.com/galvanized-logic/ion/task"
)

// TextureResourceKind is the dynamic resource-type tag for texture
// resources.
const TextureResourceKind resource.Kind = "texture"

// FilterMode names a sampler filter. QueryTexture records it on the
// TextureResource it constructs; stage does not pass it to the Device,
// so the built render data carries no filter setting.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// TextureRenderData is the GPU-side half of a TextureResource: a weak
// reference to an RHITexture built from bytes staged in the texture
// pool, promotable to a strong snapshot for bind (spec §4.6). It
// implements resource.Relocatable so the manager can rewrite ptr across
// a pool grow/defragment (spec §9 "pool pointer hazards").
type TextureRenderData struct {
	strong int32
	obj    rhi.GPUObject
	ptr    atomic.Uint64 // current pool.Ptr backing the staged pixel bytes.
}

// Snapshot promotes the weak render data to a strong reference for the
// duration of a bind call.
func (d *TextureRenderData) Snapshot() (rhi.GPUObject, bool) {
	if d == nil || d.obj == nil {
		return nil, false
	}
	atomic.AddInt32(&d.strong, 1)
	return d.obj, true
}

// Release drops a Snapshot obtained from Snapshot.
func (d *TextureRenderData) Release() {
	if d != nil {
		atomic.AddInt32(&d.strong, -1)
	}
}

// Relocate implements resource.Relocatable.
func (d *TextureRenderData) Relocate(old, new pool.Ptr) {
	d.ptr.CompareAndSwap(uint64(old), uint64(new))
}

// TextureResource orchestrates "query -> (cache hit / import / build
// GPU object) -> ready" for one Ion.Image asset (spec §4.6).
type TextureResource struct {
	handle asset.Handle
	mgr    *resource.Manager
	queue  *task.Queue
	device rhi.Device
	filter FilterMode

	mu       sync.Mutex
	building bool
	data     *TextureRenderData
	waiters  []func(*TextureRenderData)
}

func (t *TextureResource) AssetHandle() asset.Handle { return t.handle }
func (t *TextureResource) Kind() resource.Kind       { return TextureResourceKind }

// QueryTexture implements spec §4.6 steps 1-2 for texture assets.
func QueryTexture(mgr *resource.Manager, queue *task.Queue, device rhi.Device, filter FilterMode, h asset.Handle) resource.StrongRef {
	if ref, ok := mgr.FindAssociatedResource(h, TextureResourceKind); ok {
		return ref
	}
	tr := &TextureResource{handle: h, mgr: mgr, queue: queue, device: device, filter: filter}
	return mgr.Register(tr)
}

// Take starts importing the texture payload the first time it is
// called for this resource, mirroring MeshResource.Take's cache-hit /
// coalesce-in-flight / import semantics.
func (t *TextureResource) Take(def *asset.Definition, onReady func(*TextureRenderData)) bool {
	t.mu.Lock()
	if t.data != nil {
		data := t.data
		t.mu.Unlock()
		onReady(data)
		return true
	}
	t.waiters = append(t.waiters, onReady)
	if t.building {
		t.mu.Unlock()
		return false
	}
	t.building = true
	t.mu.Unlock()

	path := def.DefinitionPath
	if def.ImportExternal {
		path = def.ImportPath
	}
	t.queue.Schedule(task.WorkFunc(func(sink task.MessageSink) {
		raw, err := os.ReadFile(path)
		if err != nil {
			sink.PushMessage(task.MessageFunc(func() { t.finish(nil) }))
			return
		}
		layout, err := decodeTexturePixels(raw)
		if err != nil {
			sink.PushMessage(task.MessageFunc(func() { t.finish(nil) }))
			return
		}
		sink.PushMessage(task.MessageFunc(func() {
			data, err := t.stage(layout)
			if err != nil {
				t.finish(nil)
				return
			}
			t.finish(data)
		}))
	}))
	return false
}

// stage writes the decoded pixel bytes into the manager's texture pool
// (spec §4.1) before building the GPU object from the pool-staged
// copy, and registers the render data as a Relocatable so a later
// grow/defragment can rewrite its ptr. Runs on the main thread, from a
// dispatched Message.
func (t *TextureResource) stage(layout rhi.TextureLayout) (*TextureRenderData, error) {
	raw := layout.Pixels

	ptr, err := t.mgr.AllocTexture(uint64(len(raw)))
	if err != nil {
		return nil, err
	}
	if err := t.mgr.TexturePool().Write(ptr, raw); err != nil {
		t.mgr.FreeTexture(ptr)
		return nil, err
	}
	staged, err := t.mgr.TexturePool().Read(ptr, uint64(len(raw)))
	if err != nil {
		t.mgr.FreeTexture(ptr)
		return nil, err
	}
	built := layout
	built.Pixels = staged

	obj, err := t.device.CreateTexture(built)
	if err != nil {
		t.mgr.FreeTexture(ptr)
		return nil, err
	}

	data := &TextureRenderData{obj: obj}
	data.ptr.Store(uint64(ptr))
	t.mgr.RegisterTextureRelocatable(ptr, data)
	return data, nil
}

func (t *TextureResource) finish(data *TextureRenderData) {
	t.mu.Lock()
	t.data = data
	t.building = false
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()
	for _, w := range waiters {
		w(data)
	}
}

// Destroy releases the resource's pool allocation and destroys its GPU
// object. Called by the resource manager once the strong count reaches
// zero (spec §4.5, §4.6).
func (t *TextureResource) Destroy() {
	t.mu.Lock()
	data := t.data
	t.data = nil
	t.mu.Unlock()
	if data == nil {
		return
	}
	if ptr := pool.Ptr(data.ptr.Load()); ptr != 0 {
		t.mgr.FreeTexture(ptr)
	}
	if data.obj != nil {
		t.device.DestroyTexture(data.obj)
	}
}

// decodeTexturePixels decodes an image payload into a backend-neutral,
// premultiplied-free RGBA8 layout. BMP and PNG cover the formats the
// pack's decode libraries support (spec §3 domain stack); other
// payload types would register additional asset.Type decoders rather
// than extend this switch.
func decodeTexturePixels(raw []byte) (rhi.TextureLayout, error) {
	var img image.Image
	var err error
	if bytes.HasPrefix(raw, []byte("BM")) {
		img, err = bmp.Decode(bytes.NewReader(raw))
	} else {
		img, err = png.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return rhi.TextureLayout{}, err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 0, w*h*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a != 0 && a != 0xffff {
				// RGBA() returns alpha-premultiplied values; undo that.
				r, g, b = r*0xffff/a, g*0xffff/a, b*0xffff/a
			}
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return rhi.TextureLayout{Width: w, Height: h, Format: rhi.RGBA8, Pixels: pixels}, nil
}
