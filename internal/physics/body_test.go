package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// fakeBody is an in-memory transform used to observe what the algorithms
// write back onto the visible entity.
type fakeBody struct {
	pos    mgl64.Vec3
	orient mgl64.Vec3
	vel    mgl64.Vec3
	angVel mgl64.Vec3
	forces []mgl64.Vec3
}

func (b *fakeBody) Position() mgl64.Vec3               { return b.pos }
func (b *fakeBody) SetPosition(v mgl64.Vec3)           { b.pos = v }
func (b *fakeBody) Orientation() mgl64.Vec3            { return b.orient }
func (b *fakeBody) SetOrientation(v mgl64.Vec3)        { b.orient = v }
func (b *fakeBody) LinearVelocity() mgl64.Vec3         { return b.vel }
func (b *fakeBody) SetLinearVelocity(v mgl64.Vec3)     { b.vel = v }
func (b *fakeBody) AngularVelocity() mgl64.Vec3        { return b.angVel }
func (b *fakeBody) SetAngularVelocity(v mgl64.Vec3)    { b.angVel = v }
func (b *fakeBody) ApplyForce(force mgl64.Vec3)        { b.forces = append(b.forces, force) }

type fakeMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
	gauges   map[string]uint64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		counters: make(map[string]uint64),
		gauges:   make(map[string]uint64),
	}
}

func (m *fakeMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

func (m *fakeMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
}

func (m *fakeMetrics) counter(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func fixedClock(seconds float64) SessionClockFunc {
	return SessionClockFunc(func() float64 { return seconds })
}
