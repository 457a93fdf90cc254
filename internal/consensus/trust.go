package consensus

import (
	"context"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	logvalidation "github.com/GhostDragonAlpha/Alexander-sub009/logging/validation"
)

// TrustState is a player's accumulated anti-cheat standing.
type TrustState int

const (
	Trusted TrustState = iota
	Suspect
	Flagged
	Kicked
)

func (s TrustState) String() string {
	switch s {
	case Trusted:
		return "trusted"
	case Suspect:
		return "suspect"
	case Flagged:
		return "flagged"
	case Kicked:
		return "kicked"
	default:
		return "unknown"
	}
}

type trustRecord struct {
	state        TrustState
	failures     int
	firstFailure float64
}

// UpdateValidationState feeds one validation outcome into the player's trust
// state machine. Kicked is terminal until an explicit reset.
func (v *Validator) UpdateValidationState(playerID string, passed bool) TrustState {
	if v == nil {
		return Trusted
	}
	now := v.clock.SessionSeconds()

	v.mu.Lock()
	record := v.trust[playerID]
	if record == nil {
		v.mu.Unlock()
		return Trusted
	}
	if record.state == Kicked {
		v.mu.Unlock()
		return Kicked
	}

	previous := record.state
	v.expireLocked(record, now)

	if passed {
		if record.state == Suspect {
			record.failures = 0
			record.firstFailure = 0
			record.state = Trusted
		}
	} else {
		if record.failures == 0 {
			record.firstFailure = now
		}
		record.failures++
		switch {
		case record.failures >= v.cfg.KickThreshold:
			record.state = Kicked
		case record.failures >= v.cfg.FlagThreshold:
			record.state = Flagged
		default:
			record.state = Suspect
		}
	}
	current := record.state
	failures := record.failures
	v.mu.Unlock()

	if current != previous {
		v.publishTrustChange(playerID, previous, current, failures)
	}
	return current
}

// expireLocked applies the forgiveness window: a failure streak whose first
// failure is older than the kick window with no escalation resets, and a
// Suspect player reverts to Trusted.
func (v *Validator) expireLocked(record *trustRecord, now float64) {
	if record.failures == 0 || record.state == Kicked {
		return
	}
	if now-record.firstFailure <= v.cfg.KickTimeWindow {
		return
	}
	record.failures = 0
	record.firstFailure = 0
	if record.state == Suspect {
		record.state = Trusted
	}
}

// ExpireStaleFailures sweeps every tracked player through the forgiveness
// window. Called from periodic housekeeping.
func (v *Validator) ExpireStaleFailures() {
	if v == nil {
		return
	}
	now := v.clock.SessionSeconds()

	type change struct {
		playerID string
		previous TrustState
		current  TrustState
		failures int
	}
	var changes []change

	v.mu.Lock()
	for playerID, record := range v.trust {
		previous := record.state
		v.expireLocked(record, now)
		if record.state != previous {
			changes = append(changes, change{playerID, previous, record.state, record.failures})
		}
	}
	v.mu.Unlock()

	for _, c := range changes {
		v.publishTrustChange(c.playerID, c.previous, c.current, c.failures)
	}
}

// GetValidationState returns the player's trust state; unknown players read
// as Trusted.
func (v *Validator) GetValidationState(playerID string) TrustState {
	if v == nil {
		return Trusted
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	record := v.trust[playerID]
	if record == nil {
		return Trusted
	}
	return record.state
}

// ShouldKickPlayer reports whether the trust machine has condemned the
// player. Enforcement is the session manager's job.
func (v *Validator) ShouldKickPlayer(playerID string) bool {
	return v.GetValidationState(playerID) == Kicked
}

// ResetValidationState restores the player to Trusted with a clean failure
// record. This is the only way out of Kicked.
func (v *Validator) ResetValidationState(playerID string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	record := v.trust[playerID]
	if record == nil {
		v.mu.Unlock()
		return
	}
	previous := record.state
	record.state = Trusted
	record.failures = 0
	record.firstFailure = 0
	v.mu.Unlock()

	if previous != Trusted {
		v.publishTrustChange(playerID, previous, Trusted, 0)
	}
}

// TrustSnapshot copies the trust table for diagnostics.
func (v *Validator) TrustSnapshot() map[string]TrustState {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]TrustState, len(v.trust))
	for playerID, record := range v.trust {
		out[playerID] = record.state
	}
	return out
}

func (v *Validator) publishTrustChange(playerID string, previous, current TrustState, failures int) {
	escalation := current > previous
	logvalidation.TrustChanged(context.Background(), v.publisher, v.currentTick(),
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		logvalidation.TrustPayload{
			Previous: previous.String(),
			Current:  current.String(),
			Failures: failures,
		}, escalation)
	if v.onTrustChange != nil {
		v.onTrustChange(playerID, previous, current, failures)
	}
}
