package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestManager(role Role, clock SessionClock, bodies map[EntityID]*fakeBody) *Manager {
	cfg := DefaultManagerConfig()
	cfg.Role = role
	return NewManager(cfg, ManagerDeps{
		Resolver: ResolverFunc(func(id EntityID) (Body, bool) {
			body, ok := bodies[id]
			return body, ok
		}),
		Clock: clock,
	})
}

func TestServerUpdateSamplesAuthorityBodies(t *testing.T) {
	bodies := map[EntityID]*fakeBody{
		"ship-1": {pos: mgl64.Vec3{1, 2, 3}, vel: mgl64.Vec3{4, 0, 0}},
	}
	manager := newTestManager(RoleServer, fixedClock(7.5), bodies)
	manager.RegisterEntity("ship-1", ModeAuthority)

	manager.UpdatePhysics(1.0 / 30.0)

	state, ok := manager.GetState("ship-1")
	if !ok {
		t.Fatalf("expected a recorded state after the server tick")
	}
	if state.Position != bodies["ship-1"].pos {
		t.Fatalf("expected the sampled ground truth, got %v", state.Position)
	}
	if state.Timestamp != 7.5 {
		t.Fatalf("expected timestamp from the session clock, got %v", state.Timestamp)
	}
	if state.Sequence != 1 {
		t.Fatalf("expected the first stamped sequence to be 1, got %d", state.Sequence)
	}
	if manager.Tick() != 1 {
		t.Fatalf("expected tick 1, got %d", manager.Tick())
	}

	manager.UpdatePhysics(1.0 / 30.0)
	state, _ = manager.GetState("ship-1")
	if state.Sequence != 2 {
		t.Fatalf("expected monotonically stamped sequences, got %d", state.Sequence)
	}
}

func TestReconcileWithServerRejectsStale(t *testing.T) {
	bodies := map[EntityID]*fakeBody{"ship-1": {}}
	manager := newTestManager(RoleClient, fixedClock(0), bodies)
	manager.RegisterEntity("ship-1", ModeSimulated)

	if !manager.ReconcileWithServer("ship-1", State{Sequence: 10, Timestamp: 1.0}) {
		t.Fatalf("expected the first server state to be accepted")
	}
	if manager.ReconcileWithServer("ship-1", State{Sequence: 10, Timestamp: 1.5}) {
		t.Fatalf("expected a duplicate sequence to be rejected")
	}
	if manager.ReconcileWithServer("ship-1", State{Sequence: 11, Timestamp: 1.0}) {
		t.Fatalf("expected a non-advancing timestamp to be rejected")
	}
	if !manager.ReconcileWithServer("ship-1", State{Sequence: 11, Timestamp: 1.1}) {
		t.Fatalf("expected a strictly newer state to be accepted")
	}
}

func TestReconcileWithServerSimulatedWithoutInterpolation(t *testing.T) {
	body := &fakeBody{}
	manager := newTestManager(RoleClient, fixedClock(0), map[EntityID]*fakeBody{"proxy-1": body})
	manager.RegisterEntity("proxy-1", ModeSimulated)

	server := State{Position: mgl64.Vec3{5, 0, 0}, Sequence: 1, Timestamp: 1}
	if !manager.ReconcileWithServer("proxy-1", server) {
		t.Fatalf("expected the update to be accepted")
	}
	if body.pos != server.Position {
		t.Fatalf("expected an immediate transform without interpolation, got %v", body.pos)
	}
}

func TestReconcileWithServerSimulatedWithInterpolation(t *testing.T) {
	body := &fakeBody{}
	manager := newTestManager(RoleClient, fixedClock(0), map[EntityID]*fakeBody{"proxy-1": body})
	manager.RegisterEntity("proxy-1", ModeSimulated)
	manager.EnableInterpolation("proxy-1", true)
	manager.SetState("proxy-1", State{Position: mgl64.Vec3{0, 0, 0}})

	server := State{Position: mgl64.Vec3{10, 0, 0}, Sequence: 1, Timestamp: 1}
	if !manager.ReconcileWithServer("proxy-1", server) {
		t.Fatalf("expected the update to be accepted")
	}
	if body.pos != (mgl64.Vec3{0, 0, 0}) {
		t.Fatalf("expected no immediate transform with interpolation enabled, got %v", body.pos)
	}

	manager.UpdatePhysics(0.05)
	if body.pos != (mgl64.Vec3{5, 0, 0}) {
		t.Fatalf("expected the proxy halfway to the target, got %v", body.pos)
	}
}

func TestReconcileWithServerAutonomousSnap(t *testing.T) {
	body := &fakeBody{}
	manager := newTestManager(RoleClient, fixedClock(0), map[EntityID]*fakeBody{"ship-1": body})
	manager.RegisterEntity("ship-1", ModeAutonomous)
	manager.SetState("ship-1", State{Position: mgl64.Vec3{0, 0, 0}})

	server := State{Position: mgl64.Vec3{3, 0, 0}, Sequence: 1, Timestamp: 1}
	if !manager.ReconcileWithServer("ship-1", server) {
		t.Fatalf("expected the update to be accepted")
	}
	if body.pos != server.Position {
		t.Fatalf("expected a hard snap beyond the error threshold, got %v", body.pos)
	}
}

func TestReconcileWithServerUnknownEntity(t *testing.T) {
	manager := newTestManager(RoleClient, fixedClock(0), nil)
	if manager.ReconcileWithServer("ghost", State{Sequence: 1, Timestamp: 1}) {
		t.Fatalf("expected updates for unknown entities to be dropped")
	}
}

func TestHistoricalState(t *testing.T) {
	manager := newTestManager(RoleServer, fixedClock(0), nil)
	manager.RegisterEntity("ship-1", ModeAuthority)
	manager.SetState("ship-1", State{Position: mgl64.Vec3{1, 0, 0}, Timestamp: 1, Sequence: 1})
	manager.SetState("ship-1", State{Position: mgl64.Vec3{2, 0, 0}, Timestamp: 2, Sequence: 2})

	rewound := manager.HistoricalState("ship-1", 1.2)
	if rewound.Position != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected the sample at t=1, got %v", rewound.Position)
	}
}

func TestClientUpdatePredictsAutonomousEntities(t *testing.T) {
	body := &fakeBody{}
	manager := newTestManager(RoleClient, fixedClock(3), map[EntityID]*fakeBody{"ship-1": body})
	manager.RegisterEntity("ship-1", ModeAutonomous)
	manager.EnableClientPrediction("ship-1", true)
	manager.SetState("ship-1", State{LinearVelocity: mgl64.Vec3{10, 0, 0}})

	manager.UpdatePhysics(0.1)

	state, _ := manager.GetState("ship-1")
	if state.Position != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected predicted position (1,0,0), got %v", state.Position)
	}
	if body.pos != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected the body to follow the prediction, got %v", body.pos)
	}
}

func TestClientUpdateExtrapolatesStaleProxies(t *testing.T) {
	body := &fakeBody{}
	manager := newTestManager(RoleClient, fixedClock(2.0), map[EntityID]*fakeBody{"proxy-1": body})
	manager.RegisterEntity("proxy-1", ModeSimulated)
	manager.EnableInterpolation("proxy-1", true)

	// Freshest sample is 1 second old, well past the interpolation delay;
	// the horizon clamp caps the projection at 0.2 seconds.
	manager.SetState("proxy-1", State{
		Position:       mgl64.Vec3{0, 0, 0},
		LinearVelocity: mgl64.Vec3{5, 0, 0},
		Timestamp:      1.0,
		Sequence:       1,
	})

	manager.UpdatePhysics(0.05)
	if body.pos != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("expected clamped extrapolation to (1,0,0), got %v", body.pos)
	}
}
