package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	registry.Register("ship-1", ModeAutonomous)
	registry.Register("ship-1", ModeSimulated)

	mode, ok := registry.ModeOf("ship-1")
	if !ok || mode != ModeAutonomous {
		t.Fatalf("expected the original mode to survive re-registration, got %v", mode)
	}
}

func TestRegistryUnregisterRemovesEverything(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	registry.Register("ship-1", ModeAutonomous)
	registry.SetState("ship-1", State{Sequence: 1, Timestamp: 1})
	registry.StoreInput("ship-1", []byte{1}, 1)
	registry.EnablePrediction("ship-1", true)

	registry.Unregister("ship-1")

	if registry.Registered("ship-1") {
		t.Fatalf("expected the entity to be gone")
	}
	if _, ok := registry.State("ship-1"); ok {
		t.Fatalf("expected no state after unregister")
	}
	if registry.History("ship-1") != nil {
		t.Fatalf("expected no history after unregister")
	}
	if registry.Inputs("ship-1") != nil {
		t.Fatalf("expected no inputs after unregister")
	}
	if registry.PredictionEnabled("ship-1") {
		t.Fatalf("expected prediction flag cleared")
	}
}

func TestRegistryAcceptStateRejectsStale(t *testing.T) {
	metrics := newFakeMetrics()
	registry := NewRegistry(16, 16, metrics)
	registry.Register("ship-1", ModeSimulated)
	if !registry.AcceptState("ship-1", State{Sequence: 5, Timestamp: 1.0}) {
		t.Fatalf("expected the first sample to be accepted")
	}

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"duplicate sequence", State{Sequence: 5, Timestamp: 1.5}, false},
		{"older sequence", State{Sequence: 4, Timestamp: 1.5}, false},
		{"newer sequence, older timestamp", State{Sequence: 6, Timestamp: 0.9}, false},
		{"newer sequence, equal timestamp", State{Sequence: 6, Timestamp: 1.0}, false},
		{"strictly newer", State{Sequence: 6, Timestamp: 1.1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := registry.AcceptState("ship-1", tc.state)
			if got != tc.want {
				t.Fatalf("expected %v for %+v", tc.want, tc.state)
			}
		})
	}

	if metrics.counter("physics_stale_state_rejected_total") != 4 {
		t.Fatalf("expected 4 stale rejections recorded, got %d",
			metrics.counter("physics_stale_state_rejected_total"))
	}
}

func TestRegistrySetStateRecordsHistory(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	registry.Register("ship-1", ModeAuthority)

	for i := 1; i <= 3; i++ {
		registry.SetState("ship-1", State{Sequence: uint64(i), Timestamp: float64(i)})
	}

	history := registry.History("ship-1")
	if history == nil || history.Len() != 3 {
		t.Fatalf("expected 3 history entries, got %v", history.Len())
	}
	latest, _ := history.Latest()
	if latest.Sequence != 3 {
		t.Fatalf("expected latest sequence 3, got %d", latest.Sequence)
	}
}

func TestRegistryUnknownEntityDefaults(t *testing.T) {
	registry := NewRegistry(16, 16, nil)

	if registry.Registered("ghost") {
		t.Fatalf("expected ghost to be unknown")
	}
	if _, ok := registry.State("ghost"); ok {
		t.Fatalf("expected no state for ghost")
	}
	if registry.AcceptState("ghost", State{Sequence: 1, Timestamp: 1}) {
		t.Fatalf("expected AcceptState to refuse unknown entities")
	}
	registry.SetMode("ghost", ModeAuthority)
	if _, ok := registry.ModeOf("ghost"); ok {
		t.Fatalf("expected SetMode on ghost to be a no-op")
	}
	registry.SetState("ghost", State{Sequence: 3})
	if _, ok := registry.State("ghost"); ok {
		t.Fatalf("expected SetState on ghost to be a no-op")
	}
}

func TestRegistryNextSequence(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	registry.Register("ship-1", ModeAuthority)
	registry.SetState("ship-1", State{Sequence: 7})

	if got := registry.NextSequence("ship-1"); got != 8 {
		t.Fatalf("expected next sequence 8, got %d", got)
	}
}

func TestRegistryApplyStatePushesTransform(t *testing.T) {
	registry := NewRegistry(16, 16, nil)
	registry.Register("ship-1", ModeAutonomous)

	body := &fakeBody{}
	state := State{Position: mgl64.Vec3{1, 2, 3}, Sequence: 1, Timestamp: 1}
	registry.ApplyState("ship-1", body, state)

	if body.pos != state.Position {
		t.Fatalf("expected the transform to follow ApplyState, got %v", body.pos)
	}
	recorded, ok := registry.State("ship-1")
	if !ok || recorded.Position != state.Position {
		t.Fatalf("expected the state to be recorded, got %+v", recorded)
	}
}
