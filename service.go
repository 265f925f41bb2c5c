// SPDX-FileCopyrightText : © 2026 Galvanized Logic Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package ion wires the asset registry, resource manager, and task
// queue into the process-wide services described by spec §9: "Model
// them as explicitly-initialized services with init()/shutdown() in
// that order, accessed through a narrow façade — not as ambient
// globals." It also hosts the two concrete resources (MeshResource,
// TextureResource) and the material system that consumes them end to
// end.
package ion

import (
	"fmt"

	"github.com/galvanized-logic/ion/asset"
	"github.com/galvanized-logic/ion/resource"
	"github.com/galvanized-logic/ion/rhi"
	"github.com/galvanized-logic/ion/task"
)

// Services bundles the subsystem's singletons (spec §5 "Shared-resource
// policy"). Callers reach the registry, resource manager, and task
// queue only through this struct; there are no package-level globals.
type Services struct {
	Registry  *asset.Registry
	Resources *resource.Manager
	Queue     *task.Queue
	Device    rhi.Device
}

// Init constructs the registry, resource manager (which owns the mesh
// and texture pools), and task queue, in that order, applying any Attr
// overrides to the defaults. device is the caller-supplied RHI
// implementation; pass rhi.NewNull() in tests.
func Init(device rhi.Device, attrs ...Attr) (*Services, error) {
	cfg := configDefaults
	for _, a := range attrs {
		a(&cfg)
	}

	reg := asset.NewRegistry()
	mgr, err := resource.New(cfg.meshPoolSize, cfg.texturePoolSize, cfg.poolAlignment)
	if err != nil {
		return nil, fmt.Errorf("ion: init resource manager: %w", err)
	}

	return &Services{
		Registry:  reg,
		Resources: mgr,
		Queue:     task.New(cfg.resolvedWorkerCount()),
		Device:    device,
	}, nil
}

// Shutdown stops the task queue's workers, joining them, and releases
// the services. Registry and resource-manager state is not otherwise
// torn down: per spec, the subsystem has no hot-reload or reset
// semantics beyond process exit.
func (s *Services) Shutdown() {
	s.Queue.Shutdown()
}
