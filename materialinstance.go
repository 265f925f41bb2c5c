// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"sync"
	"sync/atomic"

	"github.com/galvanized-logic/ion/resource"
	"github.com/galvanized-logic/ion/rhi"
)

// paramValue is the per-instance state for one Material.Parameter:
// either a scalar/vector value, or — for Texture2D — the strong ref
// keeping the resolved TextureResource alive plus the render-data
// snapshot BindTextures reads. textureSnapshot is an atomic pointer
// rather than a plain field specifically so BindTextures can read it
// without taking MaterialInstance's mutex (spec §4.7 "BindTextures is
// synchronous and lock-free against import completion").
type paramValue struct {
	scalar float32
	vector [4]float32

	textureRef      resource.StrongRef
	textureSnapshot atomic.Pointer[TextureRenderData]
}

// MaterialInstance holds a strong reference to a base Material and one
// parameter-instance per base parameter (spec §3, §4.7).
type MaterialInstance struct {
	material *Material
	svc      *Services

	mu     sync.Mutex
	values map[string]*paramValue
}

// NewMaterialInstance constructs an instance of mat, seeding every
// parameter with its declared default. For each Texture2D parameter it
// asynchronously resolves DefaultAssetGUID to a TextureResource and
// begins its import (spec §4.7 "instance... asynchronously resolves
// the target TextureResource"); BindTextures observes the result once
// it lands.
func NewMaterialInstance(mat *Material, svc *Services) *MaterialInstance {
	mi := &MaterialInstance{material: mat, svc: svc, values: make(map[string]*paramValue)}
	for _, p := range mat.Parameters() {
		v := &paramValue{scalar: p.Default[0], vector: p.Default}
		mi.values[p.Name] = v
		if p.Kind == ParamTexture2D {
			mi.resolveTextureParam(p)
		}
	}
	return mi
}

func (mi *MaterialInstance) resolveTextureParam(p Parameter) {
	h, ok := mi.svc.Registry.FindByGUID(p.DefaultAssetGUID)
	if !ok {
		return
	}
	def, ok := h.Resolve()
	if !ok {
		return
	}
	ref := QueryTexture(mi.svc.Resources, mi.svc.Queue, mi.svc.Device, FilterLinear, h)
	res, _ := ref.Get()
	texRes, ok := res.(*TextureResource)
	if !ok {
		ref.Release()
		return
	}

	mi.mu.Lock()
	mi.values[p.Name].textureRef = ref
	mi.mu.Unlock()

	texRes.Take(def, func(data *TextureRenderData) {
		// mi.values is only ever read here, never mutated in shape after
		// NewMaterialInstance returns, so no lock is needed to read it;
		// the pointer store itself is atomic.
		if v, ok := mi.values[p.Name]; ok {
			v.textureSnapshot.Store(data)
		}
	})
}

// SetScalar overrides a scalar parameter's instance value.
func (mi *MaterialInstance) SetScalar(name string, v float32) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if pv, ok := mi.values[name]; ok {
		pv.scalar = v
	}
}

// SetVector overrides a vector parameter's instance value.
func (mi *MaterialInstance) SetVector(name string, v [4]float32) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if pv, ok := mi.values[name]; ok {
		pv.vector = v
	}
}

// BindTextures returns a 16-slot array of GPU texture objects, indexed
// by each Texture2D parameter's assigned slot. It is synchronous and
// lock-free against import completion (spec §4.7): slots whose texture
// has not finished importing are simply left nil.
func (mi *MaterialInstance) BindTextures() [maxTextureSlots]rhi.GPUObject {
	var bound [maxTextureSlots]rhi.GPUObject
	for _, p := range mi.material.Parameters() {
		if p.Kind != ParamTexture2D {
			continue
		}
		v, ok := mi.values[p.Name]
		if !ok {
			continue
		}
		data := v.textureSnapshot.Load()
		if data == nil {
			continue
		}
		if obj, ok := data.Snapshot(); ok {
			bound[p.Slot] = obj
		}
	}
	return bound
}

// Close releases every texture parameter's strong reference. Callers
// must call Close exactly once when the instance is no longer needed.
func (mi *MaterialInstance) Close() {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	for _, v := range mi.values {
		if !v.textureRef.IsZero() {
			v.textureRef.Release()
		}
	}
}
