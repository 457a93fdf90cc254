// Package physics keeps each participant's view of moving entities consistent
// with the server-authoritative truth: client-side prediction, server
// reconciliation, interpolation and extrapolation of remote proxies, and
// historical-state lag compensation.
package physics

import "github.com/go-gl/mathgl/mgl64"

// EntityID names a synchronized entity. IDs are stable for the lifetime of a
// session; the package never holds references to world objects.
type EntityID string

// Mode selects which algorithm drives an entity's updates.
type Mode int

const (
	// ModeAuthority marks the server-owned ground truth.
	ModeAuthority Mode = iota
	// ModeAutonomous marks a locally owned entity advanced by prediction.
	ModeAutonomous
	// ModeSimulated marks a remote proxy driven by interpolation or
	// extrapolation.
	ModeSimulated
)

func (m Mode) String() string {
	switch m {
	case ModeAuthority:
		return "authority"
	case ModeAutonomous:
		return "autonomous"
	case ModeSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of an entity's motion. Orientation packs
// pitch, yaw and roll into X, Y, Z.
type State struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Vec3
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Timestamp       float64
	Sequence        uint64
	Simulating      bool
}

// Body is the accessor capability over a world entity's transform. The
// registry stores states keyed by EntityID; callers resolve IDs to bodies
// through a Resolver when a visible transform must move.
type Body interface {
	Position() mgl64.Vec3
	SetPosition(mgl64.Vec3)
	Orientation() mgl64.Vec3
	SetOrientation(mgl64.Vec3)
	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(mgl64.Vec3)
	ApplyForce(mgl64.Vec3)
}

// Resolver maps entity IDs to their bodies. Lookups on departed entities
// return false.
type Resolver interface {
	Resolve(EntityID) (Body, bool)
}

// ResolverFunc adapts functions into the Resolver interface.
type ResolverFunc func(EntityID) (Body, bool)

func (f ResolverFunc) Resolve(id EntityID) (Body, bool) {
	if f == nil {
		return nil, false
	}
	return f(id)
}

// CaptureState snapshots a body's transform without stamping time or
// sequence.
func CaptureState(body Body) State {
	if body == nil {
		return State{}
	}
	return State{
		Position:        body.Position(),
		Orientation:     body.Orientation(),
		LinearVelocity:  body.LinearVelocity(),
		AngularVelocity: body.AngularVelocity(),
		Simulating:      true,
	}
}

// pushTransform writes a state's kinematic fields onto the visible body.
func pushTransform(body Body, state State) {
	if body == nil {
		return
	}
	body.SetPosition(state.Position)
	body.SetOrientation(state.Orientation)
	body.SetLinearVelocity(state.LinearVelocity)
	body.SetAngularVelocity(state.AngularVelocity)
}

func lerp(a, b, alpha float64) float64 {
	return a + (b-a)*alpha
}

func lerpVec(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return mgl64.Vec3{
		lerp(a.X(), b.X(), alpha),
		lerp(a.Y(), b.Y(), alpha),
		lerp(a.Z(), b.Z(), alpha),
	}
}
