package consensus

import "github.com/go-gl/mathgl/mgl64"

// PredictPosition projects where the player should be dt seconds after the
// last accepted report, under constant-acceleration kinematics from gravity
// plus the reported thrust. Pure: no state is touched.
func (v *Validator) PredictPosition(playerID string, dt float64) (mgl64.Vec3, bool) {
	if v == nil || dt < 0 {
		return mgl64.Vec3{}, false
	}
	last, ok := v.LastReport(playerID)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return v.projectFrom(last, dt, v.snapshotConfig()), true
}

// projectFrom integrates p' = p + v·dt + ½·a·dt² with a = gravity + thrust.
// The caller supplies the config snapshot so one operation reads one view of
// the tunables.
func (v *Validator) projectFrom(report PositionReport, dt float64, cfg Config) mgl64.Vec3 {
	accel := v.accelerationAt(report.Position, cfg).Add(report.Thrust.Mul(1 / cfg.effectiveMass()))
	return report.Position.
		Add(report.Velocity.Mul(dt)).
		Add(accel.Mul(0.5 * dt * dt))
}

// PredictVelocity projects the velocity dt seconds after the last report.
func (v *Validator) PredictVelocity(playerID string, dt float64) (mgl64.Vec3, bool) {
	if v == nil || dt < 0 {
		return mgl64.Vec3{}, false
	}
	last, ok := v.LastReport(playerID)
	if !ok {
		return mgl64.Vec3{}, false
	}
	cfg := v.snapshotConfig()
	accel := v.accelerationAt(last.Position, cfg).Add(last.Thrust.Mul(1 / cfg.effectiveMass()))
	return last.Velocity.Add(accel.Mul(dt)), true
}

// accelerationAt queries the gravity collaborator and converts force to
// acceleration.
func (v *Validator) accelerationAt(pos mgl64.Vec3, cfg Config) mgl64.Vec3 {
	if v.gravity == nil {
		return mgl64.Vec3{}
	}
	return v.gravity.ForceAt(pos, cfg.PlayerMass).Mul(1 / cfg.effectiveMass())
}
