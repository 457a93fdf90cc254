package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestLagCompensatorStateAt(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	lag := NewLagCompensator(registry, nil)

	registry.Register("ship-1", ModeAuthority)
	for i := 1; i <= 3; i++ {
		registry.SetState("ship-1", State{
			Position:  mgl64.Vec3{float64(i), 0, 0},
			Timestamp: float64(i),
			Sequence:  uint64(i),
		})
	}

	rewound := lag.StateAt("ship-1", 2.4)
	if rewound.Timestamp != 2 {
		t.Fatalf("expected the nearest sample at t=2, got t=%v", rewound.Timestamp)
	}
	if rewound.Position != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("expected position (2,0,0), got %v", rewound.Position)
	}
}

func TestLagCompensatorFallsBackToCurrent(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	lag := NewLagCompensator(registry, nil)

	registry.Register("ship-1", ModeAuthority)

	if got := lag.StateAt("ship-1", 1.0); got != (State{}) {
		t.Fatalf("expected zero state with no samples, got %+v", got)
	}

	if got := lag.StateAt("ghost", 1.0); got != (State{}) {
		t.Fatalf("expected zero state for unknown entity, got %+v", got)
	}
}

func TestCleanupOldStates(t *testing.T) {
	metrics := newFakeMetrics()
	registry := NewRegistry(16, 16, metrics)
	lag := NewLagCompensator(registry, metrics)

	registry.Register("ship-1", ModeAuthority)
	for i := 0; i < 10; i++ {
		registry.SetState("ship-1", State{Timestamp: float64(i), Sequence: uint64(i + 1)})
	}

	removed := lag.CleanupOldStates(10, 2.0)
	if removed != 8 {
		t.Fatalf("expected 8 swept states, got %d", removed)
	}
	history := registry.History("ship-1")
	if history.Len() != 2 {
		t.Fatalf("expected 2 surviving samples, got %d", history.Len())
	}
	states := history.States()
	if states[0].Timestamp != 8 {
		t.Fatalf("expected oldest survivor at t=8, got %v", states[0].Timestamp)
	}
}
