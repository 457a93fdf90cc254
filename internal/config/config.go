// Package config loads and validates the server configuration from YAML with
// optional hot reload of the validation tunables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Role selects which update path the process drives each tick.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Config is the root configuration document.
type Config struct {
	Listen     ListenConfig        `yaml:"listen"`
	Simulation SimulationConfig    `yaml:"simulation"`
	Physics    PhysicsConfig       `yaml:"physics"`
	Validation ValidationConfig    `yaml:"validation"`
	Gravity    []GravityWellConfig `yaml:"gravity"`
}

// ListenConfig configures the HTTP/websocket front end.
type ListenConfig struct {
	Address string `yaml:"address"`
	// ReportsPerSecond bounds the per-session intake rate; Burst is the
	// limiter bucket size.
	ReportsPerSecond float64 `yaml:"reportsPerSecond"`
	Burst            int     `yaml:"burst"`
}

// SimulationConfig tunes the fixed-timestep loop and command intake.
type SimulationConfig struct {
	Role            Role `yaml:"role"`
	TickRate        int  `yaml:"tickRate"`
	CatchupMaxTicks int  `yaml:"catchupMaxTicks"`
	CommandCapacity int  `yaml:"commandCapacity"`
	PerActorLimit   int  `yaml:"perActorLimit"`
	WarningStep     int  `yaml:"warningStep"`
}

// PhysicsConfig tunes prediction, reconciliation, interpolation and history.
type PhysicsConfig struct {
	InterpolationDelay       float64       `yaml:"interpolationDelay"`
	MaxExtrapolationTime     float64       `yaml:"maxExtrapolationTime"`
	PredictionErrorThreshold float64       `yaml:"predictionErrorThreshold"`
	HistoryCapacity          int           `yaml:"historyCapacity"`
	HistoryMaxAge            float64       `yaml:"historyMaxAge"`
	HistorySweepInterval     time.Duration `yaml:"historySweepInterval"`
}

// ValidationConfig tunes the consensus validator and trust-state machine.
type ValidationConfig struct {
	BasePositionTolerance     float64       `yaml:"basePositionTolerance"`
	TimeDecayRate             float64       `yaml:"timeDecayRate"`
	BaseThrustTolerance       float64       `yaml:"baseThrustTolerance"`
	ThrustTolerancePercentage float64       `yaml:"thrustTolerancePercentage"`
	ConsensusThreshold        float64       `yaml:"consensusThreshold"`
	FlagThreshold             int           `yaml:"flagThreshold"`
	KickThreshold             int           `yaml:"kickThreshold"`
	KickTimeWindow            float64       `yaml:"kickTimeWindow"`
	ReportHistoryCapacity     int           `yaml:"reportHistoryCapacity"`
	MaxThrustForce            float64       `yaml:"maxThrustForce"`
	MaxSpeed                  float64       `yaml:"maxSpeed"`
	PlayerMass                float64       `yaml:"playerMass"`
	DefaultLatency            float64       `yaml:"defaultLatency"`
	DistanceWindow            float64       `yaml:"distanceWindow"`
	ConsensusMinimumVotes     int           `yaml:"consensusMinimumVotes"`
	SweepInterval             time.Duration `yaml:"sweepInterval"`
}

// GravityWellConfig declares one gravity source in the world. Wells are
// static for the lifetime of the process unless hot reload replaces them.
type GravityWellConfig struct {
	ID       string     `yaml:"id"`
	Position [3]float64 `yaml:"position"`
	Mass     float64    `yaml:"mass"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Listen: ListenConfig{
			Address:          ":8080",
			ReportsPerSecond: 60,
			Burst:            120,
		},
		Simulation: SimulationConfig{
			Role:            RoleServer,
			TickRate:        30,
			CatchupMaxTicks: 4,
			CommandCapacity: 1024,
			PerActorLimit:   32,
			WarningStep:     256,
		},
		Physics: PhysicsConfig{
			InterpolationDelay:       0.1,
			MaxExtrapolationTime:     0.2,
			PredictionErrorThreshold: 1.0,
			HistoryCapacity:          100,
			HistoryMaxAge:            2.0,
			HistorySweepInterval:     10 * time.Second,
		},
		Validation: ValidationConfig{
			BasePositionTolerance:     1.0,
			TimeDecayRate:             0.5,
			BaseThrustTolerance:       10.0,
			ThrustTolerancePercentage: 0.1,
			ConsensusThreshold:        0.67,
			FlagThreshold:             3,
			KickThreshold:             5,
			KickTimeWindow:            10.0,
			ReportHistoryCapacity:     100,
			MaxThrustForce:            1000.0,
			MaxSpeed:                  500.0,
			PlayerMass:                1000.0,
			DefaultLatency:            0.1,
			DistanceWindow:            5.0,
			ConsensusMinimumVotes:     3,
			SweepInterval:             10 * time.Second,
		},
	}
}

// Load reads the YAML document at path over the defaults. A missing path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return applyEnv(cfg), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Listen.Address = addr
	}
	return cfg
}

// Validate rejects configurations the simulation cannot run with.
func (c Config) Validate() error {
	switch c.Simulation.Role {
	case RoleServer, RoleClient:
	default:
		return fmt.Errorf("simulation.role must be %q or %q, got %q", RoleServer, RoleClient, c.Simulation.Role)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tickRate must be positive, got %d", c.Simulation.TickRate)
	}
	if c.Physics.HistoryCapacity <= 0 {
		return fmt.Errorf("physics.historyCapacity must be positive, got %d", c.Physics.HistoryCapacity)
	}
	if c.Physics.MaxExtrapolationTime < 0 {
		return fmt.Errorf("physics.maxExtrapolationTime must not be negative")
	}
	if c.Physics.PredictionErrorThreshold <= 0 {
		return fmt.Errorf("physics.predictionErrorThreshold must be positive")
	}
	if c.Validation.ConsensusThreshold <= 0.5 || c.Validation.ConsensusThreshold > 1 {
		return fmt.Errorf("validation.consensusThreshold must be in (0.5, 1], got %v", c.Validation.ConsensusThreshold)
	}
	if c.Validation.FlagThreshold <= 0 || c.Validation.KickThreshold < c.Validation.FlagThreshold {
		return fmt.Errorf("validation thresholds must satisfy 0 < flag <= kick, got flag=%d kick=%d", c.Validation.FlagThreshold, c.Validation.KickThreshold)
	}
	if c.Validation.PlayerMass <= 0 {
		return fmt.Errorf("validation.playerMass must be positive")
	}
	if c.Validation.ConsensusMinimumVotes < 1 {
		return fmt.Errorf("validation.consensusMinimumVotes must be at least 1, got %d", c.Validation.ConsensusMinimumVotes)
	}
	for i, well := range c.Gravity {
		if well.ID == "" {
			return fmt.Errorf("gravity[%d].id must not be empty", i)
		}
		if well.Mass <= 0 {
			return fmt.Errorf("gravity well %q mass must be positive, got %v", well.ID, well.Mass)
		}
	}
	return nil
}
