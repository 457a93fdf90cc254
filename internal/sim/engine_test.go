package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
)

func newTestValidator() *consensus.Validator {
	return consensus.NewValidator(consensus.DefaultConfig(), consensus.Deps{
		Latency: consensus.LatencyProviderFunc(func(string) (float64, bool) { return 0, true }),
		Clock:   consensus.ClockFunc(func() float64 { return 0 }),
	})
}

func newTestEngine(t *testing.T) (*Engine, *consensus.Validator, *[]consensus.ValidationVote, *recordingMetrics) {
	t.Helper()
	validator := newTestValidator()
	votes := &[]consensus.ValidationVote{}
	metrics := newRecordingMetrics()
	engine := NewEngine(Deps{Metrics: metrics}, nil, validator, "validator-1", EngineHooks{
		OnVote: func(v consensus.ValidationVote) {
			*votes = append(*votes, v)
		},
	})
	return engine, validator, votes, metrics
}

func newTestManager(bodies *physics.BodyStore) *physics.Manager {
	cfg := physics.DefaultManagerConfig()
	cfg.Role = physics.RoleServer
	return physics.NewManager(cfg, physics.ManagerDeps{
		Resolver: bodies,
		Clock:    physics.SessionClockFunc(func() float64 { return 0 }),
	})
}

func TestEngineStepIncrementsTick(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	if engine.Tick() != 0 {
		t.Fatalf("expected a fresh engine at tick 0")
	}
	engine.Step(0.05)
	engine.Step(0.05)
	if engine.Tick() != 2 {
		t.Fatalf("expected tick 2, got %d", engine.Tick())
	}
}

func TestEngineApplyReportSeedsHistory(t *testing.T) {
	engine, validator, votes, metrics := newTestEngine(t)
	validator.RegisterPlayer("p1")

	err := engine.Apply([]Command{{
		ActorID: "p1",
		Type:    CommandReport,
		Report:  &consensus.PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 1.0},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*votes) != 0 {
		t.Fatalf("expected no vote on the seeding report, got %v", *votes)
	}
	if metrics.counter(metricReportsAccepted) != 1 {
		t.Fatalf("expected the seeding report to count as accepted")
	}
	if validator.GetValidationState("p1") != consensus.Trusted {
		t.Fatalf("expected the seeding report to leave trust untouched")
	}
}

func TestEngineApplyReportVotesOnOutcome(t *testing.T) {
	engine, validator, votes, _ := newTestEngine(t)
	validator.RegisterPlayer("p1")

	reports := []consensus.PositionReport{
		{PlayerID: "p1", Sequence: 1, Timestamp: 1.0},
		{PlayerID: "p1", Sequence: 2, Timestamp: 1.05},
		{PlayerID: "p1", Position: mgl64.Vec3{5000, 0, 0}, Sequence: 3, Timestamp: 1.1},
	}
	for i := range reports {
		engine.Apply([]Command{{ActorID: "p1", Type: CommandReport, Report: &reports[i]}})
	}

	if len(*votes) != 2 {
		t.Fatalf("expected votes for the two judged reports, got %d", len(*votes))
	}
	if !(*votes)[0].IsValid {
		t.Fatalf("expected the stationary report to pass")
	}
	if (*votes)[1].IsValid {
		t.Fatalf("expected the teleport to fail")
	}
	if (*votes)[1].ValidatorID != "validator-1" || (*votes)[1].Sequence != 3 {
		t.Fatalf("unexpected vote identity: %+v", (*votes)[1])
	}
	if validator.GetValidationState("p1") != consensus.Suspect {
		t.Fatalf("expected the failed report to mark the player suspect")
	}
}

func TestEngineAdoptsAcceptedReports(t *testing.T) {
	bodies := physics.NewBodyStore()
	bodies.Spawn("p1")
	manager := newTestManager(bodies)
	manager.RegisterEntity("p1", physics.ModeAuthority)
	validator := newTestValidator()
	validator.RegisterPlayer("p1")
	engine := NewEngine(Deps{}, manager, validator, "validator-1", EngineHooks{})

	reports := []consensus.PositionReport{
		{PlayerID: "p1", Position: mgl64.Vec3{10, 0, 0}, Sequence: 1, Timestamp: 1.0},
		{PlayerID: "p1", Position: mgl64.Vec3{10.1, 0, 0}, Velocity: mgl64.Vec3{2, 0, 0}, Sequence: 2, Timestamp: 1.05},
	}
	for i := range reports {
		engine.Apply([]Command{{ActorID: "p1", Type: CommandReport, Report: &reports[i]}})
	}

	state, ok := manager.GetState("p1")
	if !ok {
		t.Fatalf("expected the accepted report to register a state")
	}
	if state.Position != (mgl64.Vec3{10.1, 0, 0}) || state.Sequence != 2 {
		t.Fatalf("expected the latest accepted report as state, got %+v", state)
	}
	body, ok := bodies.Resolve("p1")
	if !ok {
		t.Fatalf("expected a body for the connected player")
	}
	if body.Position() != (mgl64.Vec3{10.1, 0, 0}) {
		t.Fatalf("expected the transform pushed onto the body, got %v", body.Position())
	}
	if body.LinearVelocity() != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("expected the velocity pushed onto the body, got %v", body.LinearVelocity())
	}
}

func TestEngineCorrectionOnFailedPosition(t *testing.T) {
	validator := newTestValidator()
	validator.RegisterPlayer("p1")
	var corrected []string
	var lastExpected physics.State
	var lastError float64
	engine := NewEngine(Deps{}, nil, validator, "validator-1", EngineHooks{
		OnCorrection: func(playerID string, expected physics.State, positionError float64) {
			corrected = append(corrected, playerID)
			lastExpected = expected
			lastError = positionError
		},
	})

	reports := []consensus.PositionReport{
		{PlayerID: "p1", Sequence: 1, Timestamp: 1.0},
		{PlayerID: "p1", Sequence: 2, Timestamp: 1.05},
		{PlayerID: "p1", Position: mgl64.Vec3{5000, 0, 0}, Sequence: 3, Timestamp: 1.1},
	}
	for i := range reports {
		engine.Apply([]Command{{ActorID: "p1", Type: CommandReport, Report: &reports[i]}})
	}

	if len(corrected) != 1 || corrected[0] != "p1" {
		t.Fatalf("expected one correction for p1, got %v", corrected)
	}
	if lastError < 4000 {
		t.Fatalf("expected the correction to carry the teleport distance, got %v", lastError)
	}
	if lastExpected.Sequence != 3 || lastExpected.Timestamp != 1.1 {
		t.Fatalf("expected the correction stamped with the offending report, got %+v", lastExpected)
	}
	if lastExpected.Position.Len() > 1 {
		t.Fatalf("expected the rewind target near the prior sample, got %v", lastExpected.Position)
	}
}

func TestEngineSettlesConsensusFromRemoteVotes(t *testing.T) {
	engine, validator, _, metrics := newTestEngine(t)
	validator.RegisterPlayer("p1")

	var results []consensus.ConsensusResult
	engine.hooks.OnConsensus = func(result consensus.ConsensusResult) {
		results = append(results, result)
	}

	voters := []string{"peer-a", "peer-b", "peer-c"}
	for _, voter := range voters {
		engine.Apply([]Command{{
			ActorID: voter,
			Type:    CommandVote,
			Vote: &consensus.ValidationVote{
				ValidatorID:    voter,
				TargetPlayerID: "p1",
				Sequence:       4,
				IsValid:        true,
			},
		}})
	}

	if metrics.counter(metricVotesApplied) != 3 {
		t.Fatalf("expected three applied votes, got %d", metrics.counter(metricVotesApplied))
	}
	if len(results) != 1 {
		t.Fatalf("expected consensus announced exactly once, got %d", len(results))
	}
	if results[0].PlayerID != "p1" || results[0].Sequence != 4 || results[0].ValidVotes != 3 {
		t.Fatalf("unexpected consensus result: %+v", results[0])
	}
	after := validator.CalculateConsensus("p1", 4)
	if after.ValidVotes != 0 || after.InvalidVotes != 0 {
		t.Fatalf("expected the settled bucket pruned, got %+v", after)
	}
}

func TestEngineApplyVoteBelowMinimumHoldsConsensus(t *testing.T) {
	engine, validator, _, metrics := newTestEngine(t)
	validator.RegisterPlayer("p1")

	var results []consensus.ConsensusResult
	engine.hooks.OnConsensus = func(result consensus.ConsensusResult) {
		results = append(results, result)
	}

	engine.Apply([]Command{{
		ActorID: "peer",
		Type:    CommandVote,
		Vote: &consensus.ValidationVote{
			ValidatorID:    "peer",
			TargetPlayerID: "p1",
			Sequence:       4,
			IsValid:        true,
		},
	}})

	if metrics.counter(metricVotesApplied) != 1 {
		t.Fatalf("expected one applied vote, got %d", metrics.counter(metricVotesApplied))
	}
	if len(results) != 0 {
		t.Fatalf("expected no consensus below the vote minimum, got %v", results)
	}
	result := validator.CalculateConsensus("p1", 4)
	if result.ValidVotes != 1 {
		t.Fatalf("expected the vote retained in the bucket, got %+v", result)
	}
}

func TestEngineApplyRejectsStaleReports(t *testing.T) {
	engine, validator, _, metrics := newTestEngine(t)
	validator.RegisterPlayer("p1")

	fresh := consensus.PositionReport{PlayerID: "p1", Sequence: 2, Timestamp: 1.0}
	stale := consensus.PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 0.5}
	engine.Apply([]Command{{ActorID: "p1", Type: CommandReport, Report: &fresh}})
	engine.Apply([]Command{{ActorID: "p1", Type: CommandReport, Report: &stale}})

	if metrics.counter(metricReportsRejected) != 1 {
		t.Fatalf("expected one rejected report, got %d", metrics.counter(metricReportsRejected))
	}
	if metrics.counter(metricReportsAccepted) != 1 {
		t.Fatalf("expected one accepted report, got %d", metrics.counter(metricReportsAccepted))
	}
}

func TestEngineNilReceivers(t *testing.T) {
	var engine *Engine
	if err := engine.Apply([]Command{{Type: CommandInput}}); err != nil {
		t.Fatalf("expected nil engines to ignore commands, got %v", err)
	}
	engine.Step(0.05)
	if engine.Tick() != 0 {
		t.Fatalf("expected tick 0 on a nil engine")
	}
}
