// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

package ion

import "runtime"

// config.go reduces the Init API footprint using functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis

// Config holds the attributes recognized by Init (spec §6.4).
type Config struct {
	meshPoolSize    uint64
	texturePoolSize uint64
	poolAlignment   uint64
	workerCount     int
}

// configDefaults matches spec §6.4's documented defaults.
var configDefaults = Config{
	meshPoolSize:    128 * 1024 * 1024,
	texturePoolSize: 512 * 1024 * 1024,
	poolAlignment:   64,
	workerCount:     0, // resolved against hardware concurrency at Init time.
}

func (c Config) resolvedWorkerCount() int {
	if c.workerCount > 0 {
		return c.workerCount
	}
	if n := runtime.NumCPU(); n > 4 {
		return n
	}
	return 4
}

// Attr defines optional attributes used to configure the asset and
// resource subsystem.
//
//	svc, err := ion.Init(rhi.NewNull(),
//	    ion.MeshPoolSize(64<<20),
//	    ion.TexturePoolSize(256<<20),
//	    ion.WorkerCount(8),
//	)
type Attr func(*Config) // type for attribute overrides

// MeshPoolSize sets the initial size, in bytes, of the mesh memory pool.
func MeshPoolSize(bytes uint64) Attr {
	return func(c *Config) { c.meshPoolSize = bytes }
}

// TexturePoolSize sets the initial size, in bytes, of the texture
// memory pool.
func TexturePoolSize(bytes uint64) Attr {
	return func(c *Config) { c.texturePoolSize = bytes }
}

// PoolAlignment sets the alignment, in bytes, used for every pool
// allocation. Must be a power of two.
func PoolAlignment(bytes uint64) Attr {
	return func(c *Config) { c.poolAlignment = bytes }
}

// WorkerCount sets the size of the task queue's worker set. The default
// is max(4, hardware concurrency).
func WorkerCount(n int) Attr {
	return func(c *Config) { c.workerCount = n }
}
