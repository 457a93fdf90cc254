// Package gravity models the orbital-gravity collaborator as a registry of
// point-mass wells addressed by stable ID. The sync and validation cores
// consume only the Provider interface and never hold references to world
// objects.
package gravity

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Provider answers force queries for a body of the given mass at a location.
type Provider interface {
	ForceAt(pos mgl64.Vec3, mass float64) mgl64.Vec3
}

// ProviderFunc adapts functions into the Provider interface.
type ProviderFunc func(pos mgl64.Vec3, mass float64) mgl64.Vec3

func (f ProviderFunc) ForceAt(pos mgl64.Vec3, mass float64) mgl64.Vec3 {
	if f == nil {
		return mgl64.Vec3{}
	}
	return f(pos, mass)
}

// Source is a single point-mass gravity well.
type Source struct {
	ID       string
	Position mgl64.Vec3
	Mass     float64
}

const (
	// gravitational constant scaled for game units.
	gravitationalConstant = 6.674e-11
	// softeningRadius keeps the inverse-square force finite near a well
	// center.
	softeningRadius = 1.0
)

// Registry aggregates the force of every registered well. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Upsert registers or replaces a gravity well.
func (r *Registry) Upsert(src Source) {
	if r == nil || src.ID == "" {
		return
	}
	r.mu.Lock()
	r.sources[src.ID] = src
	r.mu.Unlock()
}

// Remove drops a gravity well. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.sources, id)
	r.mu.Unlock()
}

// Source looks up a well by ID.
func (r *Registry) Source(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	return src, ok
}

// ForceAt sums the inverse-square attraction of every well acting on a body
// of the given mass at pos. An empty registry reports zero force.
func (r *Registry) ForceAt(pos mgl64.Vec3, mass float64) mgl64.Vec3 {
	if r == nil {
		return mgl64.Vec3{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total mgl64.Vec3
	for _, src := range r.sources {
		delta := src.Position.Sub(pos)
		distSq := delta.LenSqr() + softeningRadius*softeningRadius
		magnitude := gravitationalConstant * src.Mass * mass / distSq
		total = total.Add(delta.Mul(magnitude / math.Sqrt(distSq)))
	}
	return total
}

var _ Provider = (*Registry)(nil)
