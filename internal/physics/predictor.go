package physics

import "github.com/go-gl/mathgl/mgl64"

// Predictor advances a locally owned entity each frame before the
// authoritative confirmation arrives.
type Predictor struct {
	registry *Registry
	clock    SessionClock
}

// SessionClock reports the monotonic session time in seconds.
type SessionClock interface {
	SessionSeconds() float64
}

// SessionClockFunc adapts functions into the SessionClock interface.
type SessionClockFunc func() float64

func (f SessionClockFunc) SessionSeconds() float64 {
	if f == nil {
		return 0
	}
	return f()
}

func NewPredictor(registry *Registry, clock SessionClock) *Predictor {
	return &Predictor{registry: registry, clock: clock}
}

// PredictMovement integrates the entity's state forward by dt and records the
// result as the new current state. Entities without prediction enabled are
// left alone.
func (p *Predictor) PredictMovement(id EntityID, body Body, dt float64) (State, bool) {
	if p == nil || p.registry == nil || dt <= 0 {
		return State{}, false
	}
	if !p.registry.Registered(id) || !p.registry.PredictionEnabled(id) {
		return State{}, false
	}

	current, ok := p.registry.State(id)
	if !ok {
		current = CaptureState(body)
	}

	next := integrate(current, dt)
	next.Timestamp = p.now()
	next.Sequence = current.Sequence + 1
	next.Simulating = true

	p.registry.ApplyState(id, body, next)
	return next, true
}

func (p *Predictor) now() float64 {
	if p.clock == nil {
		return 0
	}
	return p.clock.SessionSeconds()
}

// integrate advances position and orientation by one explicit Euler step.
// The angular axis mapping is deliberate: the Y component drives pitch, Z
// drives yaw and X drives roll, matching the authoritative simulation.
func integrate(state State, dt float64) State {
	next := state
	next.Position = state.Position.Add(state.LinearVelocity.Mul(dt))
	next.Orientation = mgl64.Vec3{
		state.Orientation.X() + state.AngularVelocity.Y()*dt,
		state.Orientation.Y() + state.AngularVelocity.Z()*dt,
		state.Orientation.Z() + state.AngularVelocity.X()*dt,
	}
	return next
}
