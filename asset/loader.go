package asset

import "io"

// Loader turns raw asset bytes into a typed in-memory asset value. A
// loader is selected either by the name the meta sidecar declares or, as a
// fallback, by asset type plus file extension.
type Loader interface {
	// Name is the loader-type-name the meta sidecar's Asset.Name field
	// matches against.
	Name() string
	// Extensions lists the file extensions (without the leading dot) this
	// loader claims for extension-based fallback selection.
	Extensions() []string
	// Load runs the loader against r, using ctx to declare dependencies and
	// publish labeled sub-assets, and settings as the raw inner XML of the
	// meta sidecar's LoaderSettings element (nil if there was none).
	Load(ctx *LoadContext, r io.Reader, settings []byte) (any, error)
}

// LoadContext is threaded through one Loader.Load call so the loader can
// declare dependencies on other assets and publish labeled sub-assets
// without the server exposing its internals.
type LoadContext struct {
	path         Path
	dependencies []ID
	subAssets    map[string]any
	loadDep      func(path string) (ID, error)
}

func newLoadContext(path Path, loadDep func(path string) (ID, error)) *LoadContext {
	return &LoadContext{path: path, subAssets: make(map[string]any), loadDep: loadDep}
}

// Path returns the asset path being loaded.
func (c *LoadContext) Path() Path { return c.path }

// LoadDependency requests that depPath be loaded (starting the load if
// needed) and records it as a dependency of the asset currently loading.
func (c *LoadContext) LoadDependency(depPath string) (ID, error) {
	id, err := c.loadDep(depPath)
	if err != nil {
		return ID{}, err
	}
	c.dependencies = append(c.dependencies, id)
	return id, nil
}

// AddLabeledSubAsset publishes value as a sub-asset reachable via
// path#label.
func (c *LoadContext) AddLabeledSubAsset(label string, value any) {
	c.subAssets[label] = value
}

// Dependencies returns every dependency ID this load declared so far.
func (c *LoadContext) Dependencies() []ID { return append([]ID(nil), c.dependencies...) }
