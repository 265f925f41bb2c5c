// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/task"
)

// maxTextureSlots is spec §4.7's "max 16 distinct textures".
const maxTextureSlots = 16

// ParamKind distinguishes the three parameter kinds a Material
// declares (spec §4.7).
type ParamKind int

const (
	ParamScalar ParamKind = iota
	ParamVector
	ParamTexture2D
)

// Parameter is one declared entry in a Material's parameter schema.
// Scalar uses Default[0]/Min[0]/Max[0]; Vector uses all four
// components; Texture2D uses only DefaultAssetGUID and Slot.
type Parameter struct {
	Name              string
	Kind              ParamKind
	Default, Min, Max [4]float32
	DefaultAssetGUID  asset.GUID
	Slot              int
}

// ShaderUsage enumerates the shader permutations a Material compiles
// (spec §4.7).
type ShaderUsage int

const (
	UsageStaticMesh ShaderUsage = iota
	UsageSkeletalMesh
	UsagePostProcess
)

// shaderPermutation is one entry in the material's permutation table: a
// compiled flag flipped on the main thread once the compile work
// posted by CompileUsage completes.
type shaderPermutation struct {
	compiled int32 // atomic bool; 0 = not compiled, 1 = compiled.
}

// Material holds a shader-code blob, its permutation table, an ordered
// parameter list, the uniform-buffer layout derived from it, and the
// 32-bit texture-slot usage mask (spec §3, §4.7).
type Material struct {
	mu sync.Mutex

	code            string
	permutations    map[ShaderUsage]*shaderPermutation
	params          []Parameter
	textureSlotMask uint32
	uniformOrder    []int // indices into params: vectors first, then scalars.
}

// NewMaterial constructs an empty Material around a shader-code blob.
// The blob's contents are opaque to this package — shader compilation
// is the rendering backend's concern (spec §1 non-goal).
func NewMaterial(code string) *Material {
	return &Material{code: code, permutations: make(map[ShaderUsage]*shaderPermutation)}
}

// AddScalarParameter appends a scalar(f32, min, max) parameter.
func (m *Material) AddScalarParameter(name string, def, min, max float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, Parameter{
		Name: name, Kind: ParamScalar,
		Default: [4]float32{def}, Min: [4]float32{min}, Max: [4]float32{max},
	})
	m.rebuildUniformOrderLocked()
}

// AddVectorParameter appends a vector(vec4, min, max) parameter.
func (m *Material) AddVectorParameter(name string, def, min, max [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, Parameter{Name: name, Kind: ParamVector, Default: def, Min: min, Max: max})
	m.rebuildUniformOrderLocked()
}

// AddTextureParameter appends a texture2D(slot, default_asset)
// parameter, assigning it the lowest bit cleared in the 32-bit texture
// slot mask (spec §4.7). It fails once 16 distinct textures are in
// use.
func (m *Material) AddTextureParameter(name string, defaultAsset asset.GUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for slot := 0; slot < maxTextureSlots; slot++ {
		if m.textureSlotMask&(1<<uint(slot)) != 0 {
			continue
		}
		m.textureSlotMask |= 1 << uint(slot)
		m.params = append(m.params, Parameter{Name: name, Kind: ParamTexture2D, DefaultAssetGUID: defaultAsset, Slot: slot})
		m.rebuildUniformOrderLocked()
		return slot, nil
	}
	return 0, fmt.Errorf("ion: material already uses the maximum of %d texture slots", maxTextureSlots)
}

// rebuildUniformOrderLocked recomputes the uniform-buffer layout: all
// vector parameters first in insertion order, then all scalar
// parameters in insertion order (spec §4.7 "this ordering is the
// contract the shader code relies on"). Texture2D parameters never
// occupy a uniform-buffer slot.
func (m *Material) rebuildUniformOrderLocked() {
	order := make([]int, 0, len(m.params))
	for i, p := range m.params {
		if p.Kind == ParamVector {
			order = append(order, i)
		}
	}
	for i, p := range m.params {
		if p.Kind == ParamScalar {
			order = append(order, i)
		}
	}
	m.uniformOrder = order
}

// UniformOrder returns the parameter indices in uniform-buffer layout
// order.
func (m *Material) UniformOrder() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.uniformOrder))
	copy(out, m.uniformOrder)
	return out
}

// Parameters returns a copy of the declared parameter list.
func (m *Material) Parameters() []Parameter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Parameter, len(m.params))
	copy(out, m.params)
	return out
}

// CompileUsage schedules a compile for the given shader usage. On
// completion (simulated here — real compilation is the rendering
// backend's concern) a message flips the usage's compiled flag on the
// main thread (spec §4.7). The material is not bindable for usage
// until IsCompiled(usage) is true.
func (m *Material) CompileUsage(queue *task.Queue, usage ShaderUsage) {
	perm := &shaderPermutation{}
	m.mu.Lock()
	m.permutations[usage] = perm
	m.mu.Unlock()

	queue.Schedule(task.WorkFunc(func(sink task.MessageSink) {
		sink.PushMessage(task.MessageFunc(func() {
			atomic.StoreInt32(&perm.compiled, 1)
		}))
	}))
}

// IsCompiled reports whether usage's compiled flag has been set by a
// prior CompileUsage's completion message.
func (m *Material) IsCompiled(usage ShaderUsage) bool {
	m.mu.Lock()
	perm := m.permutations[usage]
	m.mu.Unlock()
	if perm == nil {
		return false
	}
	return atomic.LoadInt32(&perm.compiled) == 1
}
