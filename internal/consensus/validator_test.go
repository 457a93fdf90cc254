package consensus

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// testClock is a mutable session clock shared between test and validator.
type testClock struct {
	now float64
}

func (c *testClock) SessionSeconds() float64 { return c.now }

type countingMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counters: make(map[string]uint64)}
}

func (m *countingMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

func (m *countingMetrics) counter(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// zeroLatency pins per-player latency at zero so tolerance math is exact.
func zeroLatency() LatencyProvider {
	return LatencyProviderFunc(func(string) (float64, bool) { return 0, true })
}

func newTestValidator(clock Clock) *Validator {
	return NewValidator(DefaultConfig(), Deps{
		Latency: zeroLatency(),
		Clock:   clock,
	})
}

func TestRegisterPlayerIsIdempotent(t *testing.T) {
	validator := newTestValidator(&testClock{})
	validator.RegisterPlayer("p1")
	if !validator.AddPositionReport(PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 1}) {
		t.Fatalf("expected the report to be accepted")
	}

	validator.RegisterPlayer("p1")
	if _, ok := validator.LastReport("p1"); !ok {
		t.Fatalf("expected the history to survive re-registration")
	}
}

func TestUnregisterPlayerClearsAllTables(t *testing.T) {
	validator := newTestValidator(&testClock{})
	validator.RegisterPlayer("p1")
	validator.AddPositionReport(PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 1})
	validator.SubmitValidationVote(ValidationVote{ValidatorID: "v1", TargetPlayerID: "p1", Sequence: 1, IsValid: false})
	validator.UpdateValidationState("p1", false)

	validator.UnregisterPlayer("p1")

	if validator.Registered("p1") {
		t.Fatalf("expected the player to be gone")
	}
	if _, ok := validator.LastReport("p1"); ok {
		t.Fatalf("expected no reports after unregister")
	}
	result := validator.CalculateConsensus("p1", 1)
	if result.ValidVotes+result.InvalidVotes != 0 {
		t.Fatalf("expected no votes after unregister, got %+v", result)
	}
	if validator.GetValidationState("p1") != Trusted {
		t.Fatalf("expected the default trust state after unregister")
	}
}

func TestUpdateConfigSwapsTunables(t *testing.T) {
	validator := newTestValidator(&testClock{})
	validator.RegisterPlayer("p1")
	validator.AddPositionReport(PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 1})

	// Base tolerance 1.0 + decay 0.5 over dt=1 admits a 1.5 unit error.
	if !validator.ValidatePosition("p1", mgl64.Vec3{1.4, 0, 0}, 2.0) {
		t.Fatalf("expected the report within the default tolerance")
	}

	tightened := DefaultConfig()
	tightened.BasePositionTolerance = 0.1
	tightened.TimeDecayRate = 0
	validator.UpdateConfig(tightened)

	if validator.ValidatePosition("p1", mgl64.Vec3{1.4, 0, 0}, 2.0) {
		t.Fatalf("expected the tightened tolerance to reject the report")
	}
}

func TestConcurrentConfigReload(t *testing.T) {
	validator := newTestValidator(&testClock{now: 1})
	validator.RegisterPlayer("p1")
	validator.AddPositionReport(PositionReport{
		PlayerID: "p1", Position: mgl64.Vec3{1, 0, 0}, Sequence: 1, Timestamp: 1,
	})

	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 1000; i++ {
			cfg := DefaultConfig()
			cfg.BasePositionTolerance = float64(i % 10)
			cfg.PlayerMass = float64(100 + i)
			validator.UpdateConfig(cfg)
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 1000; i++ {
			validator.ValidatePosition("p1", mgl64.Vec3{1, 0, 0}, 1.5)
			validator.ValidateThrust("p1", mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})
			validator.PredictPosition("p1", 0.1)
			validator.PredictVelocity("p1", 0.1)
			validator.CalculateConsensus("p1", 1)
			validator.ValidateDistanceOverTime("p1", 5)
		}
	}()
	close(start)
	wg.Wait()
}

func TestNilValidatorIsSafe(t *testing.T) {
	var validator *Validator
	validator.RegisterPlayer("p1")
	validator.UnregisterPlayer("p1")
	if validator.Registered("p1") {
		t.Fatalf("expected nil validator to know nothing")
	}
	if validator.AddPositionReport(PositionReport{PlayerID: "p1", Sequence: 1, Timestamp: 1}) {
		t.Fatalf("expected nil validator to reject reports")
	}
	if validator.GetValidationState("p1") != Trusted {
		t.Fatalf("expected nil validator to default to Trusted")
	}
	if validator.ShouldKickPlayer("p1") {
		t.Fatalf("expected nil validator to never kick")
	}
}
