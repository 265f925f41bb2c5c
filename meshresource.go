// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/pool"
	"github.com/galvanized-logic/ion/resource"
	"github.com/galvanized-logic/ion/rhi"
	"github.com/galvanized-logic/ion/task"
)

// MeshResourceKind is the dynamic resource-type tag for mesh resources
// (spec §9 "at most one resource per (asset, dynamic resource type)").
const MeshResourceKind resource.Kind = "mesh"

// MeshDecoder turns a mesh payload's raw bytes into a backend-neutral
// vertex/index layout. It is supplied by whatever asset.Type is
// registered for "Ion.Mesh" — decode is the one step the asset type,
// not the resource, owns (spec §9 "AssetDefinition::import generics").
type MeshDecoder func(raw []byte) (rhi.MeshLayout, error)

// MeshRenderData is the GPU-side half of a MeshResource (spec §4.6):
// an RHIVertexBuffer+RHIIndexBuffer pair built from bytes staged in the
// mesh pool, held weakly so the GPU object can be released while the
// resource survives as metadata, and promotable to a strong Snapshot
// for the duration of a bind. It implements resource.Relocatable so the
// manager can rewrite ptr in place across a pool grow/defragment (spec
// §9 "pool pointer hazards") without the holder ever observing a raw
// pool.Ptr across that point.
type MeshRenderData struct {
	strong int32
	obj    rhi.GPUObject
	ptr    atomic.Uint64 // current pool.Ptr backing the staged vertex/index bytes.
}

// Snapshot promotes the weak render data to a strong reference for the
// duration of a bind call. Ok is false for nil/never-built data.
func (d *MeshRenderData) Snapshot() (rhi.GPUObject, bool) {
	if d == nil || d.obj == nil {
		return nil, false
	}
	atomic.AddInt32(&d.strong, 1)
	return d.obj, true
}

// Release drops a Snapshot obtained from Snapshot.
func (d *MeshRenderData) Release() {
	if d != nil {
		atomic.AddInt32(&d.strong, -1)
	}
}

// Relocate implements resource.Relocatable.
func (d *MeshRenderData) Relocate(old, new pool.Ptr) {
	d.ptr.CompareAndSwap(uint64(old), uint64(new))
}

// MeshResource orchestrates "query -> (cache hit / import / build GPU
// object) -> ready" for one Ion.Mesh asset (spec §4.6).
type MeshResource struct {
	handle  asset.Handle
	mgr     *resource.Manager
	queue   *task.Queue
	device  rhi.Device
	decoder MeshDecoder

	mu       sync.Mutex
	building bool
	data     *MeshRenderData
	waiters  []func(*MeshRenderData)
}

func (m *MeshResource) AssetHandle() asset.Handle { return m.handle }
func (m *MeshResource) Kind() resource.Kind       { return MeshResourceKind }

// QueryMesh implements spec §4.6 steps 1-2: return the existing mesh
// resource registered against h, or construct and register a new one.
// Main-thread-only, per spec §5 "Resource::query is main-thread-only".
func QueryMesh(mgr *resource.Manager, queue *task.Queue, device rhi.Device, decoder MeshDecoder, h asset.Handle) resource.StrongRef {
	if ref, ok := mgr.FindAssociatedResource(h, MeshResourceKind); ok {
		return ref
	}
	mr := &MeshResource{handle: h, mgr: mgr, queue: queue, device: device, decoder: decoder}
	return mgr.Register(mr)
}

// Take starts importing the mesh payload the first time it is called
// for this resource. It returns true, invoking onReady synchronously,
// iff render data is already available (spec §4.6 step 4). Otherwise it
// returns false and onReady fires later, from a DispatchMessages call,
// once the worker-side import completes (S5).
func (m *MeshResource) Take(def *asset.Definition, onReady func(*MeshRenderData)) bool {
	m.mu.Lock()
	if m.data != nil {
		data := m.data
		m.mu.Unlock()
		onReady(data)
		return true
	}
	m.waiters = append(m.waiters, onReady)
	if m.building {
		m.mu.Unlock()
		return false
	}
	m.building = true
	m.mu.Unlock()

	path := def.DefinitionPath
	if def.ImportExternal {
		path = def.ImportPath
	}
	m.queue.Schedule(task.WorkFunc(func(sink task.MessageSink) {
		raw, err := os.ReadFile(path)
		if err != nil {
			sink.PushMessage(task.MessageFunc(func() { m.finish(nil) }))
			return
		}
		layout, err := m.decoder(raw)
		if err != nil {
			sink.PushMessage(task.MessageFunc(func() { m.finish(nil) }))
			return
		}
		sink.PushMessage(task.MessageFunc(func() {
			data, err := m.stage(layout)
			if err != nil {
				m.finish(nil)
				return
			}
			m.finish(data)
		}))
	}))
	return false
}

// stage writes the decoded vertex/index bytes into the manager's mesh
// pool (spec §4.1 "decoded payload bytes are staged here before being
// handed to the rendering backend"), builds the GPU object from the
// pool-staged copy, and registers the resulting render data as a
// Relocatable so a later grow/defragment can rewrite its ptr. Runs on
// the main thread, from a dispatched Message.
func (m *MeshResource) stage(layout rhi.MeshLayout) (*MeshRenderData, error) {
	vlen, ilen := len(layout.Vertices), len(layout.Indices)
	raw := make([]byte, vlen+ilen)
	copy(raw, layout.Vertices)
	copy(raw[vlen:], layout.Indices)

	ptr, err := m.mgr.AllocMesh(uint64(len(raw)))
	if err != nil {
		return nil, err
	}
	if err := m.mgr.MeshPool().Write(ptr, raw); err != nil {
		m.mgr.FreeMesh(ptr)
		return nil, err
	}
	staged, err := m.mgr.MeshPool().Read(ptr, uint64(len(raw)))
	if err != nil {
		m.mgr.FreeMesh(ptr)
		return nil, err
	}
	built := layout
	built.Vertices = staged[:vlen]
	built.Indices = staged[vlen:]

	obj, err := m.device.CreateMesh(built)
	if err != nil {
		m.mgr.FreeMesh(ptr)
		return nil, err
	}

	data := &MeshRenderData{obj: obj}
	data.ptr.Store(uint64(ptr))
	m.mgr.RegisterMeshRelocatable(ptr, data)
	return data, nil
}

// finish runs on the main thread (from DispatchMessages), stores the
// built render data (or nil on failure — no negative cache, spec §7),
// and notifies every waiter queued since building started.
func (m *MeshResource) finish(data *MeshRenderData) {
	m.mu.Lock()
	m.data = data
	m.building = false
	waiters := m.waiters
	m.waiters = nil
	m.mu.Unlock()
	for _, w := range waiters {
		w(data)
	}
}

// Destroy releases the resource's pool allocation and destroys its GPU
// object. Called by the resource manager once the strong count reaches
// zero (spec §4.5, §4.6 "GPU data held weakly so GPU-side can be
// released").
func (m *MeshResource) Destroy() {
	m.mu.Lock()
	data := m.data
	m.data = nil
	m.mu.Unlock()
	if data == nil {
		return
	}
	if ptr := pool.Ptr(data.ptr.Load()); ptr != 0 {
		m.mgr.FreeMesh(ptr)
	}
	if data.obj != nil {
		m.device.DestroyMesh(data.obj)
	}
}
