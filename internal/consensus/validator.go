// Package consensus independently validates client-reported trajectories
// against physics-predictable motion, aggregates votes from multiple
// validators, and tracks per-player trust. Enforcement is left to the session
// layer; this package only answers whether a player should be kicked.
package consensus

import (
	"sync"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/gravity"
	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

// Config collects the validation tunables.
type Config struct {
	BasePositionTolerance     float64
	TimeDecayRate             float64
	BaseThrustTolerance       float64
	ThrustTolerancePercentage float64
	ConsensusThreshold        float64
	ConsensusMinimumVotes     int
	FlagThreshold             int
	KickThreshold             int
	KickTimeWindow            float64
	ReportHistoryCapacity     int
	MaxThrustForce            float64
	MaxSpeed                  float64
	PlayerMass                float64
	DefaultLatency            float64
	DistanceWindow            float64
}

// effectiveMass floors the configured mass so force-to-acceleration division
// stays finite on degenerate configurations.
func (c Config) effectiveMass() float64 {
	if c.PlayerMass < 1.0 {
		return 1.0
	}
	return c.PlayerMass
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		BasePositionTolerance:     1.0,
		TimeDecayRate:             0.5,
		BaseThrustTolerance:       10.0,
		ThrustTolerancePercentage: 0.1,
		ConsensusThreshold:        0.67,
		ConsensusMinimumVotes:     3,
		FlagThreshold:             3,
		KickThreshold:             5,
		KickTimeWindow:            10.0,
		ReportHistoryCapacity:     100,
		MaxThrustForce:            1000.0,
		MaxSpeed:                  500.0,
		PlayerMass:                1000.0,
		DefaultLatency:            0.1,
		DistanceWindow:            5.0,
	}
}

// Clock reports the monotonic session time in seconds.
type Clock interface {
	SessionSeconds() float64
}

// ClockFunc adapts functions into the Clock interface.
type ClockFunc func() float64

func (f ClockFunc) SessionSeconds() float64 {
	if f == nil {
		return 0
	}
	return f()
}

// LatencyProvider looks up a player's network latency in seconds.
type LatencyProvider interface {
	PlayerLatency(playerID string) (float64, bool)
}

// LatencyProviderFunc adapts functions into the LatencyProvider interface.
type LatencyProviderFunc func(playerID string) (float64, bool)

func (f LatencyProviderFunc) PlayerLatency(playerID string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	return f(playerID)
}

type validatorMetrics interface {
	Add(string, uint64)
}

// Deps carries the external collaborators the validator consumes.
type Deps struct {
	Gravity   gravity.Provider
	Latency   LatencyProvider
	Clock     Clock
	Publisher logging.Publisher
	Metrics   validatorMetrics
	Tick      func() uint64
	// OnTrustChange observes trust-state transitions after they are
	// recorded, so the transport can notify connected clients.
	OnTrustChange func(playerID string, previous, current TrustState, failures int)
}

// Validator owns the per-player report history, vote table and trust-state
// machine. All mutation is serialized by one mutex; operations on unknown
// players return defaults, never errors.
type Validator struct {
	cfg           Config
	gravity       gravity.Provider
	latency       LatencyProvider
	clock         Clock
	publisher     logging.Publisher
	metrics       validatorMetrics
	tick          func() uint64
	onTrustChange func(playerID string, previous, current TrustState, failures int)

	mu        sync.Mutex
	histories map[string]*reportRing
	votes     map[voteKey][]ValidationVote
	trust     map[string]*trustRecord
}

func NewValidator(cfg Config, deps Deps) *Validator {
	cfg = normalizeConfig(cfg)
	clock := deps.Clock
	if clock == nil {
		clock = ClockFunc(func() float64 { return 0 })
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Validator{
		cfg:           cfg,
		gravity:       deps.Gravity,
		latency:       deps.Latency,
		clock:         clock,
		publisher:     publisher,
		metrics:       deps.Metrics,
		tick:          deps.Tick,
		onTrustChange: deps.OnTrustChange,
		histories:     make(map[string]*reportRing),
		votes:         make(map[voteKey][]ValidationVote),
		trust:         make(map[string]*trustRecord),
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.ReportHistoryCapacity < 1 {
		cfg.ReportHistoryCapacity = 100
	}
	if cfg.ConsensusMinimumVotes < 1 {
		cfg.ConsensusMinimumVotes = 1
	}
	return cfg
}

// RegisterPlayer starts tracking a player with a fresh Trusted record.
// Re-registration is a no-op.
func (v *Validator) RegisterPlayer(playerID string) {
	if v == nil || playerID == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.histories[playerID]; exists {
		return
	}
	v.histories[playerID] = newReportRing(v.cfg.ReportHistoryCapacity)
	v.trust[playerID] = &trustRecord{state: Trusted}
}

// UnregisterPlayer atomically removes the player from the history, vote and
// trust tables.
func (v *Validator) UnregisterPlayer(playerID string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.histories, playerID)
	delete(v.trust, playerID)
	for key := range v.votes {
		if key.playerID == playerID {
			delete(v.votes, key)
		}
	}
}

// UpdateConfig swaps the validation tunables in place. Histories, votes and
// trust records carry over; the new history capacity only applies to players
// registered afterwards.
func (v *Validator) UpdateConfig(cfg Config) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.cfg = normalizeConfig(cfg)
	v.mu.Unlock()
}

// snapshotConfig copies the tunables under the lock so each validation
// operation works against one consistent view even while UpdateConfig swaps
// them from another goroutine.
func (v *Validator) snapshotConfig() Config {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cfg
}

// Registered reports whether the player is tracked.
func (v *Validator) Registered(playerID string) bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.histories[playerID]
	return ok
}

func (v *Validator) playerLatency(playerID string, fallback float64) float64 {
	if v.latency != nil {
		if latency, ok := v.latency.PlayerLatency(playerID); ok {
			return latency
		}
	}
	return fallback
}

func (v *Validator) currentTick() uint64 {
	if v == nil || v.tick == nil {
		return 0
	}
	return v.tick()
}
