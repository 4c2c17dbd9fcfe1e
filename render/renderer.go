package render

import (
	"fmt"
	"sync"

	"github.com/gopsd/psd/geometry"
	"github.com/gopsd/psd/imageio"
)

// Renderer is the pluggable backend resampling warped sources. The
// compositor and the warp engine depend only on this interface; the CPU
// backend ships with the package, GPU backends register themselves from
// their own packages.
type Renderer interface {
	// Name returns the backend identifier (e.g. "cpu").
	Name() string

	// Init prepares backend resources. Called once on first use.
	Init() error

	// Close releases backend resources.
	Close()

	// RenderQuadMesh resamples src through the warp mesh into dst. The
	// destination rectangle spans the mesh bounding box; pixels outside
	// the mesh stay untouched (transparent).
	RenderQuadMesh(dst, src *imageio.Image, mesh *geometry.QuadMesh, filter Filter) error
}

// RendererFactory creates a backend instance.
type RendererFactory func() Renderer

var (
	registryMu sync.RWMutex
	renderers  = make(map[string]RendererFactory)
	// Priority order for backend selection; first available wins. GPU
	// backends register ahead of the CPU fallback.
	rendererPriority = []string{"gpu", "cpu"}
)

// RegisterRenderer registers a backend factory under a name. Typically
// called from init functions of backend packages; registering an
// existing name replaces it.
func RegisterRenderer(name string, factory RendererFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	renderers[name] = factory
}

// Renderers returns the registered backend names.
func Renderers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	return names
}

// GetRenderer instantiates a backend by name.
func GetRenderer(name string) (Renderer, error) {
	registryMu.RLock()
	factory, ok := renderers[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("render: backend %q not registered", name)
	}
	return factory(), nil
}

// DefaultRenderer returns the highest-priority registered backend.
func DefaultRenderer() Renderer {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, name := range rendererPriority {
		if factory, ok := renderers[name]; ok {
			return factory()
		}
	}
	for _, factory := range renderers {
		return factory()
	}
	return nil
}
