// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package asset

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DescriptorExt is the file extension for asset descriptors (spec §6.1).
const DescriptorExt = ".iasset"

// Registry is the process-wide map from canonical virtual path (and
// GUID) to Definition, plus the virtual-root -> filesystem bindings and
// the asset type registry (spec §4.4). Mutations take mu's write lock
// and lookups its read lock, so a lookup waits for any in-progress
// mutation and never observes a half-written map.
type Registry struct {
	mu sync.RWMutex

	types typeRegistry
	roots map[string]string // "[Root]" -> filesystem directory.

	byPath map[string]*Definition
	byGUID map[GUID]*Definition
	alive  map[*Definition]bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		types:  newTypeRegistry(),
		roots:  make(map[string]string),
		byPath: make(map[string]*Definition),
		byGUID: make(map[GUID]*Definition),
		alive:  make(map[*Definition]bool),
	}
}

// RegisterType registers an asset type at init time. Duplicate names
// are rejected.
func (r *Registry) RegisterType(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.types.register(t)
}

// RegisterVirtualRoot binds a bracketed root token to a filesystem
// directory. Non-bracketed names and duplicate roots are rejected.
func (r *Registry) RegisterVirtualRoot(root, fsPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !rootPattern.MatchString(root) || rootPattern.FindString(root) != root {
		return newErr(ParserFail, "virtual root %q is not a bracketed token", root)
	}
	if _, exists := r.roots[root]; exists {
		return newErr(DuplicateRegistration, "virtual root %q already registered", root)
	}
	r.roots[root] = fsPath
	return nil
}

// RegisterEngineAssets walks every registered virtual root recursively,
// collecting files with DescriptorExt, deriving each one's virtual path
// from its location relative to the root, and resolving it.
func (r *Registry) RegisterEngineAssets() error {
	r.mu.RLock()
	roots := make(map[string]string, len(r.roots))
	for root, dir := range r.roots {
		roots[root] = dir
	}
	r.mu.RUnlock()

	for root, dir := range roots {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return newErr(FileNotFoundError, "walking %s: %s", path, err)
				}
				return newErr(IOError, "walking %s: %s", path, err)
			}
			if d.IsDir() || filepath.Ext(path) != DescriptorExt {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return newErr(IOError, "relative path of %s: %s", path, err)
			}
			rel = strings.TrimSuffix(rel, DescriptorExt)
			vp := root + "/" + filepath.ToSlash(rel)
			_, resolveErr := r.Resolve(vp)
			return resolveErr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Find looks up an already-resolved virtual path without touching disk.
func (r *Registry) Find(vp string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byPath[vp]
	if !ok {
		return Handle{}, false
	}
	return boundHandle(def), true
}

// Resolve returns the handle for vp, reading and parsing its descriptor
// the first time it is seen. A second call with the same vp returns the
// same handle without a second registration (S3, invariant 7).
func (r *Registry) Resolve(vp string) (Handle, error) {
	if h, ok := r.Find(vp); ok {
		return h, nil
	}
	if !IsValidVirtualPath(vp) {
		return Handle{}, newErr(ParserFail, "invalid virtual path %q", vp)
	}

	r.mu.RLock()
	root := RootOf(vp)
	dir, ok := r.roots[root]
	r.mu.RUnlock()
	if !ok {
		return Handle{}, newErr(FileNotFoundError, "virtual root %q is not registered", root)
	}
	fsPath := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(RestOf(vp), "/"))) + DescriptorExt

	def, err := r.loadDefinition(fsPath, vp)
	if err != nil {
		return Handle{}, err
	}
	return r.emplace(def)
}

// RegisterExternal resolves a descriptor at an arbitrary filesystem
// path under a caller-chosen virtual path (used for assets outside any
// registered virtual root's directory tree).
func (r *Registry) RegisterExternal(fsPath, vp string) (Handle, error) {
	if h, ok := r.Find(vp); ok {
		return h, nil
	}
	def, err := r.loadDefinition(fsPath, vp)
	if err != nil {
		return Handle{}, err
	}
	return r.emplace(def)
}

// emplace inserts a freshly parsed Definition under lock, re-checking
// for a race with a concurrent Resolve of the same path.
func (r *Registry) emplace(def *Definition) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byPath[def.VirtualPath]; ok {
		return boundHandle(existing), nil
	}
	r.byPath[def.VirtualPath] = def
	r.byGUID[def.GUID] = def
	r.alive[def] = true
	return boundHandle(def), nil
}

// loadDefinition reads and parses the descriptor at fsPath, producing a
// Definition bound to vp. It does not mutate the registry.
func (r *Registry) loadDefinition(fsPath, vp string) (*Definition, error) {
	raw, err := os.ReadFile(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newErr(FileNotFoundError, "descriptor %s not found", fsPath)
		}
		return nil, newErr(IOError, "reading descriptor %s: %s", fsPath, err)
	}

	c, err := NewCursor(raw)
	if err != nil {
		return nil, err
	}
	if err := c.BeginAsset(); err != nil {
		return nil, err
	}

	var typeName, guidStr string
	if err := c.ParseAttributes("Info", map[string]AttrCallback{
		"type": func(_ *Cursor, v string) { typeName = v },
		"guid": func(_ *Cursor, v string) { guidStr = v },
	}); err != nil {
		return nil, err
	}

	guid, err := ParseGUID(guidStr)
	if err != nil {
		return nil, err
	}
	if !guid.IsApplicable() {
		return nil, newErr(ParserFail, "descriptor %s has a zero or invalid guid", fsPath)
	}

	r.mu.RLock()
	assetType, ok := r.types.lookup(typeName)
	r.mu.RUnlock()
	if !ok {
		return nil, newErr(ParserFail, "unregistered asset type %q", typeName)
	}

	def := &Definition{
		GUID:           guid,
		VirtualPath:    vp,
		DefinitionPath: fsPath,
		Type:           assetType,
		Info:           Info{Name: strings.TrimSuffix(filepath.Base(fsPath), DescriptorExt)},
	}

	c.TryParseNodeValue("Name", func(_ *Cursor, v string) { def.Info.Name = v })

	if c.TryEnterNode("ImportExternal") {
		c.ExitNode()
		var importPath string
		if err := c.ParseAttributes("ImportExternal", map[string]AttrCallback{
			"path": func(_ *Cursor, v string) { importPath = v },
		}); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(importPath) {
			importPath = filepath.Join(filepath.Dir(fsPath), importPath)
		}
		info, statErr := os.Stat(importPath)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil, newErr(FileNotFoundError, "import path %s is not a regular file", importPath)
		}
		def.ImportExternal = true
		def.ImportPath = importPath
	}

	if c.TryEnterNode("Resource") {
		def.Info.ResourceUsage = append(def.Info.ResourceUsage, c.ChildNames()...)
		c.ExitNode()
	}

	customData, err := assetType.Parse(c)
	if err != nil {
		return nil, err
	}
	def.CustomData = customData

	if res := c.Finalize(); !res.OK {
		return nil, newErr(ParserFail, "descriptor %s failed to parse", fsPath)
	}
	return def, nil
}

// FindByGUID looks up an already-resolved asset by its stable identity,
// used by material instances to resolve a Texture2D parameter's default
// asset without needing its virtual path.
func (r *Registry) FindByGUID(g GUID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byGUID[g]
	if !ok {
		return Handle{}, false
	}
	return boundHandle(def), true
}

// IsRegisteredPath reports whether vp currently names a live Definition.
func (r *Registry) IsRegisteredPath(vp string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPath[vp]
	return ok
}

// IsRegisteredHandle reports whether h's Definition is still alive —
// i.e. has not been Unregistered since h was obtained.
func (r *Registry) IsRegisteredHandle(h Handle) bool {
	def, ok := h.Resolve()
	if !ok {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alive[def]
}

// AllAssets returns a handle for every currently registered Definition.
func (r *Registry) AllAssets() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.byPath))
	for _, def := range r.byPath {
		out = append(out, boundHandle(def))
	}
	return out
}

// AllAssetsOfType returns a handle for every registered Definition whose
// Type is t.
func (r *Registry) AllAssetsOfType(t Type) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for _, def := range r.byPath {
		if def.Type == t {
			out = append(out, boundHandle(def))
		}
	}
	return out
}

// Unregister is the only path by which a Definition is removed.
func (r *Registry) Unregister(h Handle) error {
	def, ok := h.Resolve()
	if !ok {
		return newErr(ParserFail, "cannot unregister an unbound handle")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.alive[def] {
		return newErr(ParserFail, "asset %s is not registered", def.VirtualPath)
	}
	delete(r.byPath, def.VirtualPath)
	delete(r.byGUID, def.GUID)
	delete(r.alive, def)
	return nil
}
