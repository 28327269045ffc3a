package gcode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry indexes independent links by name, e.g. a printer and a CNC
// controller attached to the same host.
//
// The registry only tracks links; each Link keeps its own lock and port, so
// commands on different links proceed concurrently.
type Registry struct {
	links *xsync.MapOf[string, *Link]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{links: xsync.NewMapOf[string, *Link]()}
}

// Add registers link under its Name.
func (r *Registry) Add(link *Link) error {
	if link == nil {
		return errors.New("gcode: link is nil")
	}

	if _, loaded := r.links.LoadOrStore(link.Name(), link); loaded {
		return fmt.Errorf("%w: %q", ErrLinkExists, link.Name())
	}

	return nil
}

// Get returns the link registered under name.
func (r *Registry) Get(name string) (*Link, error) {
	link, ok := r.links.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLinkNotFound, name)
	}

	return link, nil
}

// Remove unregisters and returns the link registered under name without
// closing it.
func (r *Registry) Remove(name string) (*Link, error) {
	link, ok := r.links.LoadAndDelete(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLinkNotFound, name)
	}

	return link, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.links.Size())
	r.links.Range(func(name string, _ *Link) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)

	return names
}

// Len returns the number of registered links.
func (r *Registry) Len() int {
	return r.links.Size()
}

// CloseAll closes and unregisters every link, joining their close errors.
func (r *Registry) CloseAll() error {
	var errs error

	for _, name := range r.Names() {
		link, ok := r.links.LoadAndDelete(name)
		if !ok {
			continue
		}

		if err := link.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}

	return errs
}
