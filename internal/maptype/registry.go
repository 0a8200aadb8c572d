// Package maptype holds the catalog of selectable map outlines.
//
// Each outline is described by a [Descriptor]: which GeoJSON resource to load,
// which feature property joins a dataset key to a region, and which property
// carries the human-readable region name. The catalog is compiled in and
// passed around explicitly as a [Registry]; nothing looks it up globally.
package maptype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownMapType is returned when an ID is not present in the registry.
var ErrUnknownMapType = errors.New("unknown map type")

// Descriptor describes one supported map outline.
type Descriptor struct {
	ID             string `json:"id"`             // "hc-world"
	Label          string `json:"label"`          // "World (by Highcharts)"
	ResourceID     string `json:"resourceId"`     // Library that provides the GeoJSON features
	JoinKey        string `json:"joinKey"`        // Feature property matched against dataset keys
	NameField      string `json:"nameField"`      // Feature property used for labels and tooltips
	ExampleDataset string `json:"exampleDataset"` // File name of the downloadable example CSV
}

// Option is an (ID, Label) pair suitable for a select list.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Registry is a set of descriptors keyed by ID.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Descriptor
}

// NewRegistry creates a registry holding the given descriptors.
// Panics on duplicate or empty IDs, like Register.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{types: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		r.Register(d)
	}
	return r
}

// Register adds a descriptor to the registry.
// Panics if the ID is empty or already registered.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		panic("map type registered without an id")
	}
	if _, exists := r.types[d.ID]; exists {
		panic(fmt.Sprintf("map type already registered: %s", d.ID))
	}
	r.types[d.ID] = d
}

// Get returns a descriptor by ID.
// Returns false if not found.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.types[id]
	return d, ok
}

// Lookup returns a descriptor by ID or an error wrapping ErrUnknownMapType.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.Get(id)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownMapType, id)
	}
	return d, nil
}

// All returns every descriptor sorted by ID.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Descriptor, 0, len(r.types))
	for _, d := range r.types {
		result = append(result, d)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Options returns (ID, Label) pairs sorted by ID.
func (r *Registry) Options() []Option {
	all := r.All()
	opts := make([]Option, len(all))
	for i, d := range all {
		opts[i] = Option{ID: d.ID, Label: d.Label}
	}
	return opts
}

// ByExampleDataset finds the descriptor whose example file has the given name.
func (r *Registry) ByExampleDataset(fileName string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.types {
		if d.ExampleDataset != "" && d.ExampleDataset == fileName {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Len returns the number of registered map types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
