package physics

// Session captures an in-flight blend from a snapshot of the entity's state
// toward a newly received authoritative target.
type Session struct {
	Start    State
	Target   State
	Elapsed  float64
	Duration float64
	Active   bool
}

// Interpolator produces visually smooth motion for remote proxies by blending
// toward known targets. It moves only the visible transform; the registry's
// current state and history are untouched.
type Interpolator struct {
	registry *Registry
}

func NewInterpolator(registry *Registry) *Interpolator {
	return &Interpolator{registry: registry}
}

// Start snapshots the entity's current state and opens a session toward
// target over duration seconds.
func (i *Interpolator) Start(id EntityID, body Body, target State, duration float64) {
	if i == nil || i.registry == nil || duration <= 0 {
		return
	}
	if !i.registry.Registered(id) {
		return
	}
	start, ok := i.registry.State(id)
	if !ok {
		start = CaptureState(body)
	}
	i.registry.setSession(id, &Session{
		Start:    start,
		Target:   target,
		Duration: duration,
		Active:   true,
	})
}

// Update advances the entity's session by dt and applies the blended
// transform. The session deactivates once the target is reached.
func (i *Interpolator) Update(id EntityID, body Body, dt float64) bool {
	if i == nil || i.registry == nil {
		return false
	}
	session := i.registry.session(id)
	if session == nil || !session.Active {
		return false
	}

	session.Elapsed += dt
	alpha := 0.0
	if session.Duration > 0 {
		alpha = session.Elapsed / session.Duration
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha >= 1 {
		alpha = 1
		session.Active = false
	}

	pushTransform(body, BlendStates(session.Start, session.Target, alpha))
	return true
}

// Active reports whether the entity has a running interpolation session.
func (i *Interpolator) Active(id EntityID) bool {
	if i == nil || i.registry == nil {
		return false
	}
	session := i.registry.session(id)
	return session != nil && session.Active
}

// Stop cancels any running session without moving the body.
func (i *Interpolator) Stop(id EntityID) {
	if i == nil || i.registry == nil {
		return
	}
	if session := i.registry.session(id); session != nil {
		session.Active = false
	}
}

// BlendStates linearly interpolates every kinematic component between a and
// b. Alpha 0 reproduces a exactly, alpha 1 reproduces b.
func BlendStates(a, b State, alpha float64) State {
	return State{
		Position:        lerpVec(a.Position, b.Position, alpha),
		Orientation:     lerpVec(a.Orientation, b.Orientation, alpha),
		LinearVelocity:  lerpVec(a.LinearVelocity, b.LinearVelocity, alpha),
		AngularVelocity: lerpVec(a.AngularVelocity, b.AngularVelocity, alpha),
		Timestamp:       lerp(a.Timestamp, b.Timestamp, alpha),
		Sequence:        b.Sequence,
		Simulating:      b.Simulating,
	}
}
