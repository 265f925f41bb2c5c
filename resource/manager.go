// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package resource implements the resource manager: the map from asset
// handle to zero or more typed resources, the strong/weak reference
// counting that decides when a resource is collected, and the two
// memory pools (mesh, texture) it owns exclusively on the domain
// model's behalf (spec §4.5, §4.1, §9).
package resource

import (
	"sync"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/pool"
)

// Kind discriminates the dynamic resource type backing a Resource —
// e.g. "mesh", "texture" — so the manager can enforce "at most one
// resource per (asset, dynamic resource type)" (spec §9).
type Kind string

// Resource is implemented by every cached, ref-counted resource
// (MeshResource, TextureResource, ...). Implementations are expected to
// be backed by a pointer type: the manager uses the Resource interface
// value itself as a map key, which compares by the underlying pointer.
type Resource interface {
	AssetHandle() asset.Handle
	Kind() Kind

	// Destroy releases whatever the resource owns — its pool allocation
	// and its GPU object — once the strong count reaches zero (spec
	// §4.5 "reaching zero triggers unregister and then resource
	// destruction, which in turn releases the pool allocation it
	// owns"). Called by the manager outside any of its own locks.
	Destroy()
}

// controlBlock holds the strong and weak counts of one registered
// resource. The counts live only here, in the manager, not on the
// concrete resource; a block is created on Register and discarded when
// the strong count reaches zero.
type controlBlock struct {
	strong int
	weak   int
}

// Manager implements the resource manager (spec §4.5): a primary table
// keyed by resource pointer, a secondary asset -> resources index, and
// the two memory pools it owns exclusively.
type Manager struct {
	mu sync.Mutex

	blocks  map[Resource]*controlBlock
	byAsset map[asset.Handle]map[Kind]Resource

	meshPool *pool.Pool
	texPool  *pool.Pool

	alignment uint64

	relocMu sync.Mutex
	reloc   map[poolName]map[pool.Ptr]Relocatable
}

type poolName int

const (
	meshPoolName poolName = iota
	texPoolName
)

// Relocatable is implemented by render-data holders that cache a raw
// pool.Ptr outside the pool (spec §9 "pool pointer hazards"): the
// manager is the single table that can rewrite every observer when a
// pool grows or defragments, so no client ever dereferences a pool.Ptr
// across a relocation point on its own.
type Relocatable interface {
	Relocate(old, new pool.Ptr)
}

// New constructs a Manager owning two pools sized and aligned per spec
// §6.4's configuration defaults.
func New(meshPoolSize, texturePoolSize, alignment uint64) (*Manager, error) {
	meshPool, err := pool.New(meshPoolSize, alignment)
	if err != nil {
		return nil, err
	}
	texPool, err := pool.New(texturePoolSize, alignment)
	if err != nil {
		return nil, err
	}
	return &Manager{
		blocks:    make(map[Resource]*controlBlock),
		byAsset:   make(map[asset.Handle]map[Kind]Resource),
		meshPool:  meshPool,
		texPool:   texPool,
		alignment: alignment,
		reloc: map[poolName]map[pool.Ptr]Relocatable{
			meshPoolName: make(map[pool.Ptr]Relocatable),
			texPoolName:  make(map[pool.Ptr]Relocatable),
		},
	}, nil
}

// Register inserts a newly constructed resource into the primary and
// asset-index tables and returns its first strong reference. Called by
// QueryMesh/QueryTexture once a cache miss forces construction (spec §4.5).
func (m *Manager) Register(r Resource) StrongRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[r] = &controlBlock{strong: 1}
	h := r.AssetHandle()
	if m.byAsset[h] == nil {
		m.byAsset[h] = make(map[Kind]Resource)
	}
	m.byAsset[h][r.Kind()] = r
	return StrongRef{res: r, mgr: m}
}

// FindAssociatedResource locates an existing resource of kind k
// registered against asset handle h, if any.
func (m *Manager) FindAssociatedResource(h asset.Handle, k Kind) (StrongRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind, ok := m.byAsset[h]
	if !ok {
		return StrongRef{}, false
	}
	r, ok := byKind[k]
	if !ok {
		return StrongRef{}, false
	}
	cb, ok := m.blocks[r]
	if !ok || cb.strong == 0 {
		return StrongRef{}, false
	}
	cb.strong++
	return StrongRef{res: r, mgr: m}, true
}

// ResourcesOfType scans all live resources, returning every one whose
// Kind equals k.
func (m *Manager) ResourcesOfType(k Kind) []StrongRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StrongRef
	for r, cb := range m.blocks {
		if r.Kind() == k && cb.strong > 0 {
			cb.strong++
			out = append(out, StrongRef{res: r, mgr: m})
		}
	}
	return out
}

// retain increments r's strong count; used by StrongRef.Clone.
func (m *Manager) retain(r Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.blocks[r]; ok {
		cb.strong++
	}
}

// release decrements r's strong count, unregistering it from both
// tables the instant the count reaches zero (spec §4.5 "the resource
// manager is the single place that can observe the strong count
// dropping to zero") and then calling Destroy, outside the lock, so a
// resource's own teardown (freeing its pool allocation, destroying its
// GPU object) never runs while the manager's mutex is held.
func (m *Manager) release(r Resource) {
	m.mu.Lock()
	cb, ok := m.blocks[r]
	if !ok {
		m.mu.Unlock()
		return
	}
	cb.strong--
	if cb.strong > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.blocks, r)
	h := r.AssetHandle()
	if byKind, ok := m.byAsset[h]; ok {
		delete(byKind, r.Kind())
		if len(byKind) == 0 {
			delete(m.byAsset, h)
		}
	}
	m.mu.Unlock()
	r.Destroy()
}

// retainWeak/upgrade implement WeakRef. A weak ref never extends
// lifetime; upgrading fails once the strong count has reached zero.
func (m *Manager) retainWeak(r Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.blocks[r]; ok {
		cb.weak++
	}
}

func (m *Manager) upgrade(r Resource) (StrongRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.blocks[r]
	if !ok || cb.strong == 0 {
		return StrongRef{}, false
	}
	cb.strong++
	return StrongRef{res: r, mgr: m}, true
}

// MeshPool and TexturePool expose the two pools the manager owns
// exclusively, for the mesh/texture resources to stage decoded bytes
// into before handing them to the rendering backend.
func (m *Manager) MeshPool() *pool.Pool    { return m.meshPool }
func (m *Manager) TexturePool() *pool.Pool { return m.texPool }

// RegisterMeshRelocatable/RegisterTextureRelocatable add ptr to the
// manager's single relocation table for its pool, so the grow and
// defragment passes run by AllocMesh/AllocTexture can rewrite it.
func (m *Manager) RegisterMeshRelocatable(ptr pool.Ptr, r Relocatable) {
	m.relocMu.Lock()
	defer m.relocMu.Unlock()
	m.reloc[meshPoolName][ptr] = r
}

func (m *Manager) RegisterTextureRelocatable(ptr pool.Ptr, r Relocatable) {
	m.relocMu.Lock()
	defer m.relocMu.Unlock()
	m.reloc[texPoolName][ptr] = r
}

// UnregisterMeshRelocatable/UnregisterTextureRelocatable remove a ptr
// that has been freed from the relocation table.
func (m *Manager) UnregisterMeshRelocatable(ptr pool.Ptr) {
	m.relocMu.Lock()
	defer m.relocMu.Unlock()
	delete(m.reloc[meshPoolName], ptr)
}

func (m *Manager) UnregisterTextureRelocatable(ptr pool.Ptr) {
	m.relocMu.Lock()
	defer m.relocMu.Unlock()
	delete(m.reloc[texPoolName], ptr)
}

func (m *Manager) relocate(name poolName, old, new pool.Ptr) {
	m.relocMu.Lock()
	defer m.relocMu.Unlock()
	r, ok := m.reloc[name][old]
	if !ok {
		return
	}
	delete(m.reloc[name], old)
	m.reloc[name][new] = r
	r.Relocate(old, new)
}

// growBytes implements spec §4.1's growth heuristic: double the pool,
// or round up to a 64 KiB multiple of 4x the failed allocation when a
// single allocation exceeds the pool's current size outright.
func growBytes(currentSize, failedSize uint64, allocGreaterThanPool bool) uint64 {
	if allocGreaterThanPool {
		const sixtyFourKiB = 64 * 1024
		need := 4 * failedSize
		return (need + sixtyFourKiB - 1) / sixtyFourKiB * sixtyFourKiB
	}
	return currentSize * 2
}

// AllocMesh allocates size bytes from the mesh pool, growing (doubling,
// or per the oversize heuristic) and/or defragmenting as needed and
// retrying, per spec §4.1's documented remediation.
func (m *Manager) AllocMesh(size uint64) (pool.Ptr, error) {
	return m.alloc(m.meshPool, meshPoolName, size)
}

// AllocTexture is AllocMesh for the texture pool.
func (m *Manager) AllocTexture(size uint64) (pool.Ptr, error) {
	return m.alloc(m.texPool, texPoolName, size)
}

func (m *Manager) alloc(p *pool.Pool, name poolName, size uint64) (pool.Ptr, error) {
	ptr, err := p.Alloc(size)
	if err == nil {
		return ptr, nil
	}
	ae, ok := err.(*pool.AllocError)
	if !ok {
		return 0, err
	}
	relocate := func(old, new pool.Ptr) { m.relocate(name, old, new) }

	if ae.Details.Fragmented {
		if derr := p.Defragment(relocate); derr != nil {
			return 0, derr
		}
		return p.Alloc(size)
	}

	// pool_out_of_memory or alloc_size_greater_than_pool_size: grow.
	newSize := growBytes(p.Size(), size, ae.Details.AllocGreaterThanPool)
	if rerr := p.Realloc(newSize, relocate); rerr != nil {
		return 0, rerr
	}
	return p.Alloc(size)
}

// FreeMesh/FreeTexture release a pool allocation and drop it from the
// relocation table.
func (m *Manager) FreeMesh(ptr pool.Ptr) error {
	m.UnregisterMeshRelocatable(ptr)
	return m.meshPool.Free(ptr)
}

func (m *Manager) FreeTexture(ptr pool.Ptr) error {
	m.UnregisterTextureRelocatable(ptr)
	return m.texPool.Free(ptr)
}

// StrongRef is a non-intrusive strong reference to a Resource — the
// manager is the only party that can observe the count reaching zero,
// so every StrongRef must be Released exactly once.
type StrongRef struct {
	res Resource
	mgr *Manager
}

// Get returns the underlying Resource. Ok is false for a zero-value ref.
func (s StrongRef) Get() (Resource, bool) { return s.res, s.res != nil }

// IsZero reports whether s is the unset zero value rather than a
// reference obtained from Register/FindAssociatedResource/Clone.
func (s StrongRef) IsZero() bool { return s.res == nil }

// Clone returns a second independent strong reference, incrementing the
// strong count.
func (s StrongRef) Clone() StrongRef {
	s.mgr.retain(s.res)
	return StrongRef{res: s.res, mgr: s.mgr}
}

// Weak returns a WeakRef to the same resource.
func (s StrongRef) Weak() WeakRef {
	s.mgr.retainWeak(s.res)
	return WeakRef{res: s.res, mgr: s.mgr}
}

// Release drops this strong reference. The underlying resource is
// unregistered, and may be destroyed, the instant the strong count
// reaches zero.
func (s StrongRef) Release() {
	if s.res == nil {
		return
	}
	s.mgr.release(s.res)
}

// WeakRef never extends a Resource's lifetime.
type WeakRef struct {
	res Resource
	mgr *Manager
}

// Upgrade returns a new StrongRef if the resource is still alive.
func (w WeakRef) Upgrade() (StrongRef, bool) {
	if w.res == nil {
		return StrongRef{}, false
	}
	return w.mgr.upgrade(w.res)
}
