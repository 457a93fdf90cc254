package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBodyStoreSpawnResolveRemove(t *testing.T) {
	store := NewBodyStore()

	if _, ok := store.Resolve("ship-1"); ok {
		t.Fatalf("expected an empty store to resolve nothing")
	}

	store.Spawn("ship-1")
	body, ok := store.Resolve("ship-1")
	if !ok {
		t.Fatalf("expected the spawned entity to resolve")
	}

	body.SetPosition(mgl64.Vec3{1, 2, 3})
	store.Spawn("ship-1")
	again, _ := store.Resolve("ship-1")
	if again.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("expected re-spawn to keep the existing body, got %v", again.Position())
	}

	store.Remove("ship-1")
	if _, ok := store.Resolve("ship-1"); ok {
		t.Fatalf("expected the removed entity to be gone")
	}
}

func TestStoredBodyAccessors(t *testing.T) {
	store := NewBodyStore()
	store.Spawn("ship-1")
	body, _ := store.Resolve("ship-1")

	body.SetPosition(mgl64.Vec3{1, 0, 0})
	body.SetOrientation(mgl64.Vec3{0, 1, 0})
	body.SetLinearVelocity(mgl64.Vec3{2, 0, 0})
	body.SetAngularVelocity(mgl64.Vec3{0, 0, 3})

	if body.Position() != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("unexpected position %v", body.Position())
	}
	if body.Orientation() != (mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("unexpected orientation %v", body.Orientation())
	}
	if body.LinearVelocity() != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("unexpected linear velocity %v", body.LinearVelocity())
	}
	if body.AngularVelocity() != (mgl64.Vec3{0, 0, 3}) {
		t.Fatalf("unexpected angular velocity %v", body.AngularVelocity())
	}

	// Kinematic bodies ignore forces; transforms move only through setters.
	body.ApplyForce(mgl64.Vec3{100, 0, 0})
	if body.LinearVelocity() != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("expected forces to be ignored, got %v", body.LinearVelocity())
	}
}

func TestServerUpdateSamplesStoredBodies(t *testing.T) {
	store := NewBodyStore()
	store.Spawn("ship-1")
	cfg := DefaultManagerConfig()
	cfg.Role = RoleServer
	manager := NewManager(cfg, ManagerDeps{
		Resolver: store,
		Clock:    fixedClock(3.0),
	})
	manager.RegisterEntity("ship-1", ModeAuthority)

	manager.ApplyState("ship-1", State{
		Position:       mgl64.Vec3{5, 0, 0},
		LinearVelocity: mgl64.Vec3{1, 0, 0},
		Timestamp:      2.9,
		Sequence:       1,
		Simulating:     true,
	})
	manager.UpdatePhysics(1.0 / 30.0)

	state, ok := manager.GetState("ship-1")
	if !ok {
		t.Fatalf("expected the tick to record a state for the stored body")
	}
	if state.Position != (mgl64.Vec3{5, 0, 0}) {
		t.Fatalf("expected the applied transform sampled back, got %v", state.Position)
	}
	if state.Timestamp != 3.0 {
		t.Fatalf("expected the session clock stamp, got %v", state.Timestamp)
	}
}
