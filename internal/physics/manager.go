package physics

import (
	"context"
	"sync"
	"time"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	logsync "github.com/GhostDragonAlpha/Alexander-sub009/logging/sync"
)

// Role selects which per-frame path UpdatePhysics drives.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// ManagerConfig collects the physics-side tunables.
type ManagerConfig struct {
	Role                     Role
	InterpolationDelay       float64
	MaxExtrapolationTime     float64
	PredictionErrorThreshold float64
	HistoryCapacity          int
	InputCapacity            int
	HistoryMaxAge            float64
	HistorySweepInterval     float64
}

// DefaultManagerConfig mirrors the production tuning.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Role:                     RoleServer,
		InterpolationDelay:       0.1,
		MaxExtrapolationTime:     DefaultMaxExtrapolation,
		PredictionErrorThreshold: 1.0,
		HistoryCapacity:          100,
		InputCapacity:            100,
		HistoryMaxAge:            2.0,
		HistorySweepInterval:     10.0,
	}
}

// Manager is the per-frame dispatcher over the registry and its algorithms:
// the Authority path on the server, the Autonomous and Simulated paths on
// clients, plus periodic history housekeeping.
type Manager struct {
	cfg          ManagerConfig
	registry     *Registry
	predictor    *Predictor
	interpolator *Interpolator
	extrapolator *Extrapolator
	reconciler   *Reconciler
	lag          *LagCompensator
	resolver     Resolver
	clock        SessionClock
	publisher    logging.Publisher

	mu         sync.Mutex
	lastServer map[EntityID]State
	lastSweep  float64
	tick       uint64
}

// ManagerDeps carries the collaborators injected by the host process.
type ManagerDeps struct {
	Resolver  Resolver
	Clock     SessionClock
	Publisher logging.Publisher
	Metrics   registryMetrics
}

func NewManager(cfg ManagerConfig, deps ManagerDeps) *Manager {
	if cfg.HistoryCapacity < 1 {
		cfg.HistoryCapacity = 100
	}
	if cfg.InputCapacity < 1 {
		cfg.InputCapacity = 100
	}
	clock := deps.Clock
	if clock == nil {
		clock = NewSessionClock()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	registry := NewRegistry(cfg.HistoryCapacity, cfg.InputCapacity, deps.Metrics)
	interpolator := NewInterpolator(registry)
	m := &Manager{
		cfg:          cfg,
		registry:     registry,
		predictor:    NewPredictor(registry, clock),
		interpolator: interpolator,
		extrapolator: NewExtrapolator(cfg.MaxExtrapolationTime),
		lag:          NewLagCompensator(registry, deps.Metrics),
		resolver:     deps.Resolver,
		clock:        clock,
		publisher:    publisher,
		lastServer:   make(map[EntityID]State),
	}
	m.reconciler = NewReconciler(registry, interpolator, ReconcilerConfig{
		PredictionErrorThreshold: cfg.PredictionErrorThreshold,
		InterpolationDelay:       cfg.InterpolationDelay,
	}, publisher, deps.Metrics, m.Tick)
	return m
}

// NewSessionClock returns a monotonic session clock anchored at construction.
func NewSessionClock() SessionClock {
	start := time.Now()
	return SessionClockFunc(func() float64 {
		return time.Since(start).Seconds()
	})
}

// Registry exposes the underlying state registry.
func (m *Manager) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Reconciler exposes reconciliation statistics.
func (m *Manager) Reconciler() *Reconciler {
	if m == nil {
		return nil
	}
	return m.reconciler
}

// LagCompensator exposes historical-state queries.
func (m *Manager) LagCompensator() *LagCompensator {
	if m == nil {
		return nil
	}
	return m.lag
}

// Extrapolator exposes pure forward projection.
func (m *Manager) Extrapolator() *Extrapolator {
	if m == nil {
		return nil
	}
	return m.extrapolator
}

// Tick reports the number of completed update frames.
func (m *Manager) Tick() uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick
}

// RegisterEntity adds an entity under the given mode.
func (m *Manager) RegisterEntity(id EntityID, mode Mode) {
	if m == nil {
		return
	}
	m.registry.Register(id, mode)
}

// UnregisterEntity removes the entity from the registry and the reconciliation
// bookkeeping atomically.
func (m *Manager) UnregisterEntity(id EntityID) {
	if m == nil {
		return
	}
	m.registry.Unregister(id)
	m.mu.Lock()
	delete(m.lastServer, id)
	m.mu.Unlock()
}

// SetMode changes the algorithm driving an entity.
func (m *Manager) SetMode(id EntityID, mode Mode) {
	if m == nil {
		return
	}
	m.registry.SetMode(id, mode)
}

// EnableClientPrediction toggles local prediction for an entity.
func (m *Manager) EnableClientPrediction(id EntityID, enabled bool) {
	if m == nil {
		return
	}
	m.registry.EnablePrediction(id, enabled)
}

// EnableInterpolation toggles remote-proxy smoothing for an entity.
func (m *Manager) EnableInterpolation(id EntityID, enabled bool) {
	if m == nil {
		return
	}
	m.registry.EnableInterpolation(id, enabled)
}

// StoreInputState records a raw input sample for replay on correction.
func (m *Manager) StoreInputState(id EntityID, data []byte, timestamp float64) {
	if m == nil {
		return
	}
	m.registry.StoreInput(id, data, timestamp)
}

// ReconcileWithServer handles one authoritative update for an entity. Stale
// samples are rejected. Autonomous entities reconcile predicted state;
// simulated proxies smooth-follow the new target.
func (m *Manager) ReconcileWithServer(id EntityID, serverState State) bool {
	if m == nil {
		return false
	}
	mode, ok := m.registry.ModeOf(id)
	if !ok {
		return false
	}
	if !m.acceptServerState(id, serverState) {
		return false
	}

	body, _ := m.resolve(id)
	switch mode {
	case ModeAutonomous:
		m.reconciler.Reconcile(id, body, serverState)
	case ModeSimulated:
		if m.registry.InterpolationEnabled(id) {
			m.interpolator.Start(id, body, serverState, m.cfg.InterpolationDelay)
		} else {
			pushTransform(body, serverState)
		}
		m.registry.SetState(id, serverState)
	default:
		// Authority entities are the source of truth; inbound copies are
		// ignored.
	}
	return true
}

// acceptServerState enforces per-entity monotonic sequence and timestamp on
// the authoritative stream.
func (m *Manager) acceptServerState(id EntityID, state State) bool {
	m.mu.Lock()
	last, seen := m.lastServer[id]
	if seen && (state.Sequence <= last.Sequence || state.Timestamp <= last.Timestamp) {
		tick := m.tick
		m.mu.Unlock()
		logsync.StaleStateRejected(context.Background(), m.publisher, tick,
			logging.EntityRef{ID: string(id), Kind: logging.EntityKindShip},
			logsync.StalePayload{
				LastSequence:  last.Sequence,
				Sequence:      state.Sequence,
				LastTimestamp: last.Timestamp,
				Timestamp:     state.Timestamp,
			})
		return false
	}
	m.lastServer[id] = state
	m.mu.Unlock()
	return true
}

// GetState returns the entity's current recorded state.
func (m *Manager) GetState(id EntityID) (State, bool) {
	if m == nil {
		return State{}, false
	}
	return m.registry.State(id)
}

// SetState records a state without touching the visible transform.
func (m *Manager) SetState(id EntityID, state State) {
	if m == nil {
		return
	}
	m.registry.SetState(id, state)
}

// ApplyState records a state and pushes it onto the visible transform.
func (m *Manager) ApplyState(id EntityID, state State) {
	if m == nil {
		return
	}
	body, _ := m.resolve(id)
	m.registry.ApplyState(id, body, state)
}

// HistoricalState answers lag-compensation queries from history.
func (m *Manager) HistoricalState(id EntityID, pastTimestamp float64) State {
	if m == nil {
		return State{}
	}
	return m.lag.StateAt(id, pastTimestamp)
}

// UpdatePhysics advances every registered entity by dt along the path for the
// configured role, then runs periodic housekeeping.
func (m *Manager) UpdatePhysics(dt float64) {
	if m == nil || dt <= 0 {
		return
	}
	if m.cfg.Role == RoleServer {
		m.ServerUpdate(dt)
	} else {
		m.ClientUpdate(dt)
	}

	m.mu.Lock()
	m.tick++
	m.mu.Unlock()

	now := m.clock.SessionSeconds()
	m.mu.Lock()
	due := now-m.lastSweep >= m.cfg.HistorySweepInterval
	if due {
		m.lastSweep = now
	}
	m.mu.Unlock()
	if due {
		m.lag.CleanupOldStates(now, m.cfg.HistoryMaxAge)
	}
}

// ServerUpdate samples the ground truth of every Authority entity, stamps it
// and records it as current state plus history.
func (m *Manager) ServerUpdate(dt float64) {
	if m == nil {
		return
	}
	now := m.clock.SessionSeconds()
	for _, id := range m.registry.Entities(ModeAuthority) {
		body, ok := m.resolve(id)
		if !ok {
			continue
		}
		state := CaptureState(body)
		state.Timestamp = now
		state.Sequence = m.registry.NextSequence(id)
		m.registry.SetState(id, state)
	}
}

// ClientUpdate predicts every Autonomous entity and smooths every Simulated
// proxy, falling back to extrapolation when the freshest sample is older than
// the interpolation delay.
func (m *Manager) ClientUpdate(dt float64) {
	if m == nil {
		return
	}
	for _, id := range m.registry.Entities(ModeAutonomous) {
		if !m.registry.PredictionEnabled(id) {
			continue
		}
		body, ok := m.resolve(id)
		if !ok {
			continue
		}
		m.predictor.PredictMovement(id, body, dt)
	}

	now := m.clock.SessionSeconds()
	for _, id := range m.registry.Entities(ModeSimulated) {
		if !m.registry.InterpolationEnabled(id) {
			continue
		}
		body, ok := m.resolve(id)
		if !ok {
			continue
		}
		if m.interpolator.Update(id, body, dt) {
			continue
		}
		last, ok := m.registry.State(id)
		if !ok {
			continue
		}
		stale := now - last.Timestamp
		if stale > m.cfg.InterpolationDelay {
			pushTransform(body, m.extrapolator.Extrapolate(last, stale))
		}
	}
}

func (m *Manager) resolve(id EntityID) (Body, bool) {
	if m == nil || m.resolver == nil {
		return nil, false
	}
	return m.resolver.Resolve(id)
}
