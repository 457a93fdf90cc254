package physics

import "github.com/go-gl/mathgl/mgl64"

// Extrapolator projects the last known state forward when no newer update has
// arrived. Projection time is clamped so a proxy never runs far ahead of the
// last confirmed sample.
type Extrapolator struct {
	maxExtrapolation float64
}

// DefaultMaxExtrapolation bounds forward projection in seconds.
const DefaultMaxExtrapolation = 0.2

func NewExtrapolator(maxExtrapolation float64) *Extrapolator {
	if maxExtrapolation <= 0 {
		maxExtrapolation = DefaultMaxExtrapolation
	}
	return &Extrapolator{maxExtrapolation: maxExtrapolation}
}

// Extrapolate returns the state projected futureTime seconds ahead of the
// provided sample. Pure: neither the registry nor any body is touched.
func (e *Extrapolator) Extrapolate(state State, futureTime float64) State {
	limit := DefaultMaxExtrapolation
	if e != nil {
		limit = e.maxExtrapolation
	}
	if futureTime < 0 {
		futureTime = 0
	}
	if futureTime > limit {
		futureTime = limit
	}

	projected := state
	projected.Position = state.Position.Add(state.LinearVelocity.Mul(futureTime))
	projected.Orientation = mgl64.Vec3{
		state.Orientation.X() + state.AngularVelocity.Y()*futureTime,
		state.Orientation.Y() + state.AngularVelocity.Z()*futureTime,
		state.Orientation.Z() + state.AngularVelocity.X()*futureTime,
	}
	projected.Timestamp = state.Timestamp + futureTime
	return projected
}
