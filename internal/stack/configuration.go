package stack

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eugenenazirov/strata/internal/handler"
	"github.com/eugenenazirov/strata/internal/overlay"
)

// RootOverlay is the name of the overlays created for search roots.
const RootOverlay = "root"

// Configuration holds the overlay stack and the resolution policy.
type Configuration struct {
	// AlwaysReload asks caching layers to resolve keys on every access.
	AlwaysReload bool
	// Preload makes finders resolve every known key when they are created,
	// surfacing broken sources at startup.
	Preload bool
	// Freeze makes resolved values immutable.
	Freeze bool

	roots    []string
	overlays []overlay.Overlay
	handlers *handler.Registry
	fsys     overlay.FileSystem
	absPaths bool
}

// Option configures a Configuration at construction.
type Option func(*Configuration)

// WithHandlers replaces the default handler registry.
func WithHandlers(r *handler.Registry) Option {
	return func(c *Configuration) {
		c.handlers = r
	}
}

// WithFileSystem replaces the host file system. Paths given to a non-host
// file system are used as-is instead of being made absolute.
func WithFileSystem(fsys overlay.FileSystem) Option {
	return func(c *Configuration) {
		c.fsys = fsys
		_, c.absPaths = fsys.(overlay.OSFileSystem)
	}
}

// WithRoot sets the initial search root instead of the working directory.
func WithRoot(path string) Option {
	return func(c *Configuration) {
		c.roots = []string{path}
	}
}

// New returns a Configuration searching the current working directory with
// the default handlers.
func New(opts ...Option) *Configuration {
	c := &Configuration{
		handlers: handler.NewDefaultRegistry(),
		fsys:     overlay.OSFileSystem{},
		absPaths: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.roots) == 0 {
		c.roots = []string{"."}
	}
	c.SetRoot(c.roots[0])
	return c
}

// Roots returns the search roots, most recently added first.
func (c *Configuration) Roots() []string {
	out := make([]string, len(c.roots))
	copy(out, c.roots)
	return out
}

// Overlays returns the stack in application order.
func (c *Configuration) Overlays() []overlay.Overlay {
	out := make([]overlay.Overlay, len(c.overlays))
	copy(out, c.overlays)
	return out
}

// Handlers returns the registry used by the file overlays of this stack.
func (c *Configuration) Handlers() *handler.Registry {
	return c.handlers
}

// RegisterHandler adds a parser for the given extensions.
func (c *Configuration) RegisterHandler(parse handler.ParseFunc, extensions ...string) error {
	return c.handlers.Register(parse, extensions...)
}

// SetRoot discards every root and overlay and starts over with a single
// root overlay at path. Use AddRoot to keep previously defined overlays.
func (c *Configuration) SetRoot(path string) {
	root := c.expand(path)
	c.roots = []string{root}
	c.overlays = []overlay.Overlay{c.fileOverlay(RootOverlay, []string{root})}
}

// AddRoot prepends path to the roots and prepends a root overlay for it.
// Files under the newest root therefore have the lowest precedence of all;
// the existing root overlay is kept, so the stack holds two overlays named
// "root".
func (c *Configuration) AddRoot(path string) {
	root := c.expand(path)
	c.roots = append([]string{root}, c.roots...)
	c.overlays = append([]overlay.Overlay{c.fileOverlay(RootOverlay, []string{root})}, c.overlays...)
}

// DefineOverlay appends a file overlay searching <root>/<segment> for every
// root. An empty segment searches the roots themselves.
func (c *Configuration) DefineOverlay(name string, seg Segment) overlay.Overlay {
	o := c.fileOverlay(name, c.locationsFor(seg.Resolve()))
	c.overlays = append(c.overlays, o)
	return o
}

// DefineCombinedOverlay appends a file overlay whose segment joins the
// segments of already-defined file overlays with "_". For example
// environment=production and region=us-east give <root>/production_us-east,
// under the name "environment_region".
func (c *Configuration) DefineCombinedOverlay(names ...string) (overlay.Overlay, error) {
	return c.DefineNamedCombinedOverlay(strings.Join(names, "_"), names...)
}

// DefineNamedCombinedOverlay is DefineCombinedOverlay with an explicit name,
// so later combinations can refer to the result by that name.
func (c *Configuration) DefineNamedCombinedOverlay(name string, names ...string) (overlay.Overlay, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no overlay names given", ErrUnknownOverlay)
	}

	segments := make([]string, 0, len(names))
	for _, n := range names {
		seg, err := c.segmentOf(n)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	o := c.fileOverlay(name, c.locationsFor(strings.Join(segments, "_")))
	c.overlays = append(c.overlays, o)
	return o, nil
}

// DefineSecretOverlay appends an overlay reading secrets below the path
// given by seg. Secret overlays ignore the search roots.
func (c *Configuration) DefineSecretOverlay(name string, store overlay.SecretStore, seg Segment) overlay.Overlay {
	o := overlay.NewSecret(name, store, seg.Resolve())
	c.overlays = append(c.overlays, o)
	return o
}

// segmentOf recovers the directory segment of the first overlay called name.
// All locations of a file overlay share the segment, one per root.
func (c *Configuration) segmentOf(name string) (string, error) {
	for _, o := range c.overlays {
		if o.Name() != name {
			continue
		}
		if _, ok := o.(*overlay.File); !ok {
			return "", fmt.Errorf("%w: %q is not a file overlay", ErrAmbiguousOverlay, name)
		}
		locations := o.Locations()
		if len(locations) == 0 {
			return "", fmt.Errorf("%w: %q has no locations", ErrAmbiguousOverlay, name)
		}
		return filepath.Base(locations[0]), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOverlay, name)
}

func (c *Configuration) locationsFor(segment string) []string {
	locations := make([]string, 0, len(c.roots))
	for _, root := range c.roots {
		if segment == "" {
			locations = append(locations, root)
			continue
		}
		locations = append(locations, c.join(root, segment))
	}
	return locations
}

func (c *Configuration) fileOverlay(name string, locations []string) *overlay.File {
	return overlay.NewFile(name, locations, c.fsys, c.handlers)
}

func (c *Configuration) expand(path string) string {
	if !c.absPaths {
		return filepath.ToSlash(filepath.Clean(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (c *Configuration) join(root, segment string) string {
	if !c.absPaths {
		return filepath.ToSlash(filepath.Join(root, segment))
	}
	return filepath.Join(root, segment)
}
