package sim

import (
	"sync/atomic"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
)

// EngineCore is the minimal surface the loop drives each tick.
type EngineCore interface {
	Deps() Deps
	Apply([]Command) error
	Step(dt float64)
}

const (
	metricReportsAccepted = "sim_reports_accepted_total"
	metricReportsRejected = "sim_reports_rejected_total"
	metricVotesApplied    = "sim_votes_applied_total"
)

// EngineHooks lets the transport observe validation outcomes.
type EngineHooks struct {
	// OnVote receives the local validator's verdict on an accepted report
	// so it can be forwarded to peer validators.
	OnVote func(consensus.ValidationVote)
	// OnConsensus fires when a vote bucket reaches consensus. The bucket is
	// pruned before the hook runs.
	OnConsensus func(consensus.ConsensusResult)
	// OnCorrection fires when an accepted report fails the position check,
	// carrying the state the client should rewind to.
	OnCorrection func(playerID string, expected physics.State, positionError float64)
}

// Engine routes staged commands into the physics manager and the consensus
// validator and advances the per-frame synchronization paths.
type Engine struct {
	deps        Deps
	manager     *physics.Manager
	validator   *consensus.Validator
	validatorID string
	hooks       EngineHooks

	tick atomic.Uint64
}

// NewEngine wires the physics and validation cores behind the loop surface.
func NewEngine(deps Deps, manager *physics.Manager, validator *consensus.Validator, validatorID string, hooks EngineHooks) *Engine {
	return &Engine{
		deps:        deps,
		manager:     manager,
		validator:   validator,
		validatorID: validatorID,
		hooks:       hooks,
	}
}

// Deps returns the injected infrastructure dependencies.
func (e *Engine) Deps() Deps {
	if e == nil {
		return Deps{}
	}
	return e.deps
}

// Tick reports the number of completed steps.
func (e *Engine) Tick() uint64 {
	if e == nil {
		return 0
	}
	return e.tick.Load()
}

// Manager exposes the physics manager.
func (e *Engine) Manager() *physics.Manager {
	if e == nil {
		return nil
	}
	return e.manager
}

// Validator exposes the consensus validator.
func (e *Engine) Validator() *consensus.Validator {
	if e == nil {
		return nil
	}
	return e.validator
}

// Apply routes every staged command. Commands never fail the batch; bad
// samples are rejected individually and accounted for.
func (e *Engine) Apply(commands []Command) error {
	if e == nil {
		return nil
	}
	for _, cmd := range commands {
		switch cmd.Type {
		case CommandServerState:
			if cmd.ServerState != nil && e.manager != nil {
				e.manager.ReconcileWithServer(cmd.ServerState.EntityID, cmd.ServerState.State)
			}
		case CommandInput:
			if cmd.Input != nil && e.manager != nil {
				e.manager.StoreInputState(cmd.Input.EntityID, cmd.Input.Data, cmd.Input.Timestamp)
			}
		case CommandReport:
			if cmd.Report != nil {
				e.applyReport(*cmd.Report)
			}
		case CommandVote:
			if cmd.Vote != nil && e.validator != nil {
				if e.validator.SubmitValidationVote(*cmd.Vote) {
					e.addMetric(metricVotesApplied, 1)
					e.settleConsensus(cmd.Vote.TargetPlayerID, cmd.Vote.Sequence)
				}
			}
		case CommandHeartbeat:
			// Connectivity metadata is tracked by the transport; nothing to
			// apply here.
		}
	}
	return nil
}

// applyReport validates an inbound report against the stored history, feeds
// the trust machine and casts the local validator's vote. The position check
// runs before the report is appended so the prediction baseline is the
// previous sample; the thrust check runs after, over the last two samples.
// Reports that pass become the entity's authoritative state.
func (e *Engine) applyReport(report consensus.PositionReport) {
	if e.validator == nil {
		return
	}
	last, hadHistory := e.validator.LastReport(report.PlayerID)

	positionErr := 0.0
	positionValid := true
	var expected physics.State
	havePrediction := false
	if hadHistory {
		positionValid = e.validator.ValidatePosition(report.PlayerID, report.Position, report.Timestamp)
		dt := report.Timestamp - last.Timestamp
		if pos, ok := e.validator.PredictPosition(report.PlayerID, dt); ok && dt > 0 {
			positionErr = report.Position.Sub(pos).Len()
			expected = physics.State{
				Position:  pos,
				Timestamp: report.Timestamp,
				Sequence:  report.Sequence,
			}
			if vel, ok := e.validator.PredictVelocity(report.PlayerID, dt); ok {
				expected.LinearVelocity = vel
			}
			havePrediction = true
		}
	}

	if !e.validator.AddPositionReport(report) {
		e.addMetric(metricReportsRejected, 1)
		return
	}
	e.addMetric(metricReportsAccepted, 1)

	// The first accepted report only seeds the history; there is no prior
	// sample to judge it against.
	if !hadHistory {
		e.adoptReport(report)
		return
	}

	passed := positionValid && e.validator.ValidateThrust(report.PlayerID, report.Thrust, report.Position)
	e.validator.UpdateValidationState(report.PlayerID, passed)

	if passed {
		e.adoptReport(report)
	} else if !positionValid && havePrediction && e.hooks.OnCorrection != nil {
		e.hooks.OnCorrection(report.PlayerID, expected, positionErr)
	}

	vote := consensus.ValidationVote{
		ValidatorID:    e.validatorID,
		TargetPlayerID: report.PlayerID,
		Sequence:       report.Sequence,
		IsValid:        passed,
		PositionError:  positionErr,
	}
	e.validator.SubmitValidationVote(vote)
	if e.hooks.OnVote != nil {
		e.hooks.OnVote(vote)
	}
	e.settleConsensus(report.PlayerID, report.Sequence)
}

// adoptReport folds an accepted report into the authoritative body state so
// the next server update samples and broadcasts it.
func (e *Engine) adoptReport(report consensus.PositionReport) {
	if e.manager == nil {
		return
	}
	e.manager.ApplyState(physics.EntityID(report.PlayerID), physics.State{
		Position:       report.Position,
		LinearVelocity: report.Velocity,
		Timestamp:      report.Timestamp,
		Sequence:       report.Sequence,
		Simulating:     true,
	})
}

// settleConsensus tallies the bucket and, once consensus is reached, prunes
// it and notifies the transport. Buckets that never reach consensus are
// dropped when the player's later sequences settle or the player leaves.
func (e *Engine) settleConsensus(playerID string, sequence uint64) {
	result := e.validator.CalculateConsensus(playerID, sequence)
	if !result.ConsensusReached {
		return
	}
	e.validator.PruneVotes(playerID, sequence)
	if e.hooks.OnConsensus != nil {
		e.hooks.OnConsensus(result)
	}
}

// Step advances the physics paths by dt.
func (e *Engine) Step(dt float64) {
	if e == nil {
		return
	}
	if e.manager != nil {
		e.manager.UpdatePhysics(dt)
	}
	e.tick.Add(1)
}

func (e *Engine) addMetric(key string, delta uint64) {
	if e.deps.Metrics == nil {
		return
	}
	e.deps.Metrics.Add(key, delta)
}

var _ EngineCore = (*Engine)(nil)
