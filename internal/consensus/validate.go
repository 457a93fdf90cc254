package consensus

import "github.com/go-gl/mathgl/mgl64"

// minThrustInterval floors the elapsed time used by the thrust back-solve so
// a = 2·Δs/t² stays finite.
const minThrustInterval = 1e-3

// fallbackThrustInterval is used when only one report exists and no elapsed
// time can be derived.
const fallbackThrustInterval = 0.05

// ValidatePosition checks a reported position against the predicted
// trajectory. Reports that do not advance time fail closed.
func (v *Validator) ValidatePosition(playerID string, reported mgl64.Vec3, timestamp float64) bool {
	if v == nil {
		return false
	}
	last, ok := v.LastReport(playerID)
	if !ok {
		return false
	}
	dt := timestamp - last.Timestamp
	if dt <= 0 {
		return false
	}

	cfg := v.snapshotConfig()
	expected := v.projectFrom(last, dt, cfg)
	distance := reported.Sub(expected).Len()
	tolerance := cfg.BasePositionTolerance +
		cfg.TimeDecayRate*dt +
		cfg.MaxSpeed*v.playerLatency(playerID, cfg.DefaultLatency)
	return distance <= tolerance
}

// ValidateThrust back-solves the acceleration implied by the reported
// position's deviation from a gravity-only trajectory and compares the
// implied thrust against the reported one. The elapsed time is the true
// interval between the two latest reports, floored at one millisecond;
// with a single report the nominal reporting interval is assumed.
func (v *Validator) ValidateThrust(playerID string, reportedThrust, reportedPosition mgl64.Vec3) bool {
	if v == nil {
		return false
	}

	v.mu.Lock()
	cfg := v.cfg
	ring := v.histories[playerID]
	if ring.len() == 0 {
		v.mu.Unlock()
		return false
	}
	last, _ := ring.last()
	elapsed := fallbackThrustInterval
	if ring.len() >= 2 {
		previous := ring.at(ring.len() - 2)
		elapsed = last.Timestamp - previous.Timestamp
	}
	v.mu.Unlock()

	if elapsed < minThrustInterval {
		elapsed = minThrustInterval
	}

	// Position gravity alone would reach from the last sample.
	gravityOnly := last.Position.
		Add(last.Velocity.Mul(elapsed)).
		Add(v.accelerationAt(last.Position, cfg).Mul(0.5 * elapsed * elapsed))

	deviation := reportedPosition.Sub(gravityOnly)
	impliedAccel := deviation.Mul(2 / (elapsed * elapsed))
	impliedThrust := impliedAccel.Mul(cfg.effectiveMass())

	tolerance := cfg.BaseThrustTolerance + cfg.MaxThrustForce*cfg.ThrustTolerancePercentage
	return impliedThrust.Sub(reportedThrust).Len() <= tolerance
}

// ValidateDistanceOverTime sums the distance traveled across the report
// history within the trailing window and checks it against the physically
// possible envelope. The lower bound is a conservative zero, so slower-than-
// possible motion is never flagged; only the upper bound has detection power.
func (v *Validator) ValidateDistanceOverTime(playerID string, window float64) bool {
	if v == nil || window <= 0 {
		return false
	}
	reports := v.Reports(playerID)
	if len(reports) < 2 {
		// Not enough samples to measure motion; nothing to flag.
		return true
	}

	latest := reports[len(reports)-1]
	cutoff := latest.Timestamp - window

	traveled := 0.0
	var first *PositionReport
	for i := 0; i < len(reports); i++ {
		if reports[i].Timestamp < cutoff {
			continue
		}
		if first == nil {
			first = &reports[i]
			continue
		}
		traveled += reports[i].Position.Sub(reports[i-1].Position).Len()
	}
	if first == nil || first.Timestamp >= latest.Timestamp {
		return true
	}

	cfg := v.snapshotConfig()
	elapsed := latest.Timestamp - first.Timestamp
	maxAccel := cfg.MaxThrustForce / cfg.effectiveMass()
	currentSpeed := first.Velocity.Len()
	maxPossible := currentSpeed*elapsed + 0.5*maxAccel*elapsed*elapsed
	minPossible := v.minPossibleDistance()

	return traveled >= minPossible*0.9 && traveled <= maxPossible*1.1
}

// minPossibleDistance is the lower bound of plausible travel. A real minimum
// would require integrating gravity along the unknown path, so it stays at
// zero and the lower-bound check is effectively disabled.
func (v *Validator) minPossibleDistance() float64 {
	return 0
}
