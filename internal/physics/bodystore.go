package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyStore keeps a kinematic body per connected entity so the manager can
// resolve transforms without a rendering or physics backend. Bodies are
// spawned when a session subscribes and removed when it drops.
type BodyStore struct {
	mu     sync.Mutex
	bodies map[EntityID]*storedBody
}

// NewBodyStore constructs an empty store.
func NewBodyStore() *BodyStore {
	return &BodyStore{bodies: make(map[EntityID]*storedBody)}
}

// Spawn registers a body for the entity. Spawning an existing entity keeps
// the current body.
func (s *BodyStore) Spawn(id EntityID) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bodies[id]; !ok {
		s.bodies[id] = &storedBody{}
	}
}

// Remove drops the entity's body.
func (s *BodyStore) Remove(id EntityID) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bodies, id)
}

// Resolve implements Resolver.
func (s *BodyStore) Resolve(id EntityID) (Body, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.bodies[id]
	if !ok {
		return nil, false
	}
	return body, true
}

var _ Resolver = (*BodyStore)(nil)

// storedBody is a plain transform holder. Forces are resolved upstream by
// the reporting client, so ApplyForce is a no-op.
type storedBody struct {
	mu     sync.Mutex
	pos    mgl64.Vec3
	orient mgl64.Vec3
	linVel mgl64.Vec3
	angVel mgl64.Vec3
}

func (b *storedBody) Position() mgl64.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pos
}

func (b *storedBody) SetPosition(pos mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = pos
}

func (b *storedBody) Orientation() mgl64.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.orient
}

func (b *storedBody) SetOrientation(orient mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orient = orient
}

func (b *storedBody) LinearVelocity() mgl64.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linVel
}

func (b *storedBody) SetLinearVelocity(vel mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linVel = vel
}

func (b *storedBody) AngularVelocity() mgl64.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.angVel
}

func (b *storedBody) SetAngularVelocity(vel mgl64.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.angVel = vel
}

func (b *storedBody) ApplyForce(mgl64.Vec3) {}

var _ Body = (*storedBody)(nil)
