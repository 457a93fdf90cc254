package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/config"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/gravity"
	servernet "github.com/GhostDragonAlpha/Alexander-sub009/internal/net"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/net/proto"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/net/ws"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/observability"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/sim"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/telemetry"
	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	loggingSinks "github.com/GhostDragonAlpha/Alexander-sub009/logging/sinks"
)

// Config selects the configuration file and overrides the default logger.
type Config struct {
	ConfigPath string
	Logger     telemetry.Logger
}

// latencyTracker records per-player round-trip times observed on heartbeats.
type latencyTracker struct {
	mu      sync.RWMutex
	seconds map[string]float64
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{seconds: make(map[string]float64)}
}

func (t *latencyTracker) observe(playerID string, rtt time.Duration) {
	if playerID == "" || rtt < 0 {
		return
	}
	t.mu.Lock()
	t.seconds[playerID] = rtt.Seconds() / 2
	t.mu.Unlock()
}

func (t *latencyTracker) forget(playerID string) {
	t.mu.Lock()
	delete(t.seconds, playerID)
	t.mu.Unlock()
}

// PlayerLatency reports the last observed one-way latency for the player.
func (t *latencyTracker) PlayerLatency(playerID string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	latency, ok := t.seconds[playerID]
	return latency, ok
}

// Run wires the simulation core, the websocket gateway and the HTTP surface,
// then serves until the listener fails or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	serverCfg := config.Default()
	if cfg.ConfigPath != "" {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		serverCfg = loaded
	}
	if err := serverCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig := logging.DefaultConfig()
	sinks := map[string]logging.Sink{
		"console": loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
	}
	if logConfig.HasSink("json") && logConfig.JSON.FilePath != "" {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log file: %w", err)
		}
		defer file.Close()
		sinks["json"] = loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := logging.NewMetrics()
	telemetryMetrics := telemetry.WrapMetrics(metrics)
	gravityField := gravity.NewRegistry()
	syncGravity(gravityField, nil, serverCfg.Gravity)
	sessionClock := physics.NewSessionClock()
	tracker := newLatencyTracker()
	bodies := physics.NewBodyStore()

	managerCfg := physics.ManagerConfig{
		Role:                     physics.RoleServer,
		InterpolationDelay:       serverCfg.Physics.InterpolationDelay,
		MaxExtrapolationTime:     serverCfg.Physics.MaxExtrapolationTime,
		PredictionErrorThreshold: serverCfg.Physics.PredictionErrorThreshold,
		HistoryCapacity:          serverCfg.Physics.HistoryCapacity,
		InputCapacity:            serverCfg.Physics.HistoryCapacity,
		HistoryMaxAge:            serverCfg.Physics.HistoryMaxAge,
		HistorySweepInterval:     serverCfg.Physics.HistorySweepInterval.Seconds(),
	}
	if serverCfg.Simulation.Role == config.RoleClient {
		managerCfg.Role = physics.RoleClient
	}
	manager := physics.NewManager(managerCfg, physics.ManagerDeps{
		Resolver:  bodies,
		Clock:     sessionClock,
		Publisher: router,
		Metrics:   telemetryMetrics,
	})

	var gateway *ws.Handler
	validator := consensus.NewValidator(validationConfig(serverCfg.Validation), consensus.Deps{
		Gravity:   gravityField,
		Latency:   tracker,
		Clock:     consensus.ClockFunc(sessionClock.SessionSeconds),
		Publisher: router,
		Metrics:   telemetryMetrics,
		Tick:      manager.Tick,
		OnTrustChange: func(playerID string, previous, current consensus.TrustState, failures int) {
			data, err := proto.EncodeTrustNotice(proto.TrustNotice{
				PlayerID: playerID,
				Previous: previous.String(),
				Current:  current.String(),
				Failures: failures,
			})
			if err != nil {
				return
			}
			gateway.Broadcast(data)
		},
	})

	engine := sim.NewEngine(sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   telemetryMetrics,
		Clock:     logging.SystemClock{},
		Publisher: router,
	}, manager, validator, uuid.NewString(), sim.EngineHooks{
		OnConsensus: func(result consensus.ConsensusResult) {
			if data, err := proto.EncodeConsensusResult(result); err == nil {
				gateway.Broadcast(data)
			}
		},
		OnCorrection: func(playerID string, expected physics.State, positionError float64) {
			data, err := proto.EncodeCorrection(proto.Correction{
				EntityID: playerID,
				State:    proto.WireStateFrom(expected),
				Snap:     positionError >= serverCfg.Physics.PredictionErrorThreshold,
				Error:    positionError,
			})
			if err != nil {
				return
			}
			gateway.SendTo(playerID, data)
		},
	})

	var sweepMu sync.Mutex
	lastSweep := time.Now()
	hooks := sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			for _, cmd := range result.Commands {
				if cmd.Type == sim.CommandHeartbeat && cmd.Heartbeat != nil {
					tracker.observe(cmd.ActorID, cmd.Heartbeat.RTT)
				}
			}
			broadcastState(gateway, manager, result.Tick, sessionClock.SessionSeconds())
			for id, state := range validator.TrustSnapshot() {
				if state == consensus.Kicked {
					if gateway.Disconnect(id) {
						tracker.forget(id)
						telemetryLogger.Printf("kicked player %s after repeated validation failures", id)
					}
				}
			}
		},
		Housekeeping: func(now time.Time) {
			sweepMu.Lock()
			due := now.Sub(lastSweep) >= serverCfg.Validation.SweepInterval
			if due {
				lastSweep = now
			}
			sweepMu.Unlock()
			if due {
				validator.ExpireStaleFailures()
			}
		},
		OnQueueWarning: func(length int) {
			telemetryLogger.Printf("[backpressure] command queue depth %d", length)
		},
	}

	loop := sim.NewLoop(engine, sim.LoopConfig{
		TickRate:        serverCfg.Simulation.TickRate,
		CatchupMaxTicks: serverCfg.Simulation.CatchupMaxTicks,
		CommandCapacity: serverCfg.Simulation.CommandCapacity,
		PerActorLimit:   serverCfg.Simulation.PerActorLimit,
		WarningStep:     serverCfg.Simulation.WarningStep,
	}, hooks)

	gateway = ws.NewHandler(loop, manager, validator, ws.HandlerConfig{
		Logger:           fallbackLogger,
		Bodies:           bodies,
		ReportsPerSecond: serverCfg.Listen.ReportsPerSecond,
		ReportBurst:      serverCfg.Listen.Burst,
	})

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	if cfg.ConfigPath != "" {
		watcher, err := config.NewWatcher(cfg.ConfigPath, telemetryLogger)
		if err != nil {
			telemetryLogger.Printf("config watcher disabled: %v", err)
		} else {
			watcher.OnChange(func(previous, current config.Config) {
				validator.UpdateConfig(validationConfig(current.Validation))
				syncGravity(gravityField, previous.Gravity, current.Gravity)
				telemetryLogger.Printf("validation tunables reloaded from %s", cfg.ConfigPath)
			})
			defer watcher.Close()
		}
	}

	observabilityCfg := observability.Config{}
	if raw := os.Getenv("ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprof = value
		} else {
			telemetryLogger.Printf("invalid ENABLE_PPROF=%q: %v", raw, err)
		}
	}

	handler := servernet.NewHTTPHandler(gateway, loop, manager, validator, servernet.HTTPHandlerConfig{
		Logger:        fallbackLogger,
		TickRate:      serverCfg.Simulation.TickRate,
		Metrics:       metrics,
		Observability: observabilityCfg,
	})

	srv := &http.Server{Addr: serverCfg.Listen.Address, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func broadcastState(gateway *ws.Handler, manager *physics.Manager, tick uint64, now float64) {
	entityIDs := manager.Registry().Entities(physics.ModeAuthority)
	if len(entityIDs) == 0 {
		return
	}
	entities := make([]proto.EntityState, 0, len(entityIDs))
	for _, id := range entityIDs {
		state, ok := manager.GetState(id)
		if !ok {
			continue
		}
		entities = append(entities, proto.EntityState{
			EntityID: string(id),
			State:    proto.WireStateFrom(state),
		})
	}
	if len(entities) == 0 {
		return
	}
	data, err := proto.EncodeStateBroadcast(proto.StateBroadcast{
		Tick:     tick,
		Time:     now,
		Entities: entities,
	})
	if err != nil {
		return
	}
	gateway.Broadcast(data)
}

// syncGravity reconciles the registry with the configured wells, removing
// wells that vanished from the document and upserting the rest.
func syncGravity(registry *gravity.Registry, previous, current []config.GravityWellConfig) {
	kept := make(map[string]struct{}, len(current))
	for _, well := range current {
		kept[well.ID] = struct{}{}
		registry.Upsert(gravity.Source{
			ID:       well.ID,
			Position: mgl64.Vec3(well.Position),
			Mass:     well.Mass,
		})
	}
	for _, well := range previous {
		if _, ok := kept[well.ID]; !ok {
			registry.Remove(well.ID)
		}
	}
}

func validationConfig(cfg config.ValidationConfig) consensus.Config {
	return consensus.Config{
		BasePositionTolerance:     cfg.BasePositionTolerance,
		TimeDecayRate:             cfg.TimeDecayRate,
		BaseThrustTolerance:       cfg.BaseThrustTolerance,
		ThrustTolerancePercentage: cfg.ThrustTolerancePercentage,
		ConsensusThreshold:        cfg.ConsensusThreshold,
		FlagThreshold:             cfg.FlagThreshold,
		KickThreshold:             cfg.KickThreshold,
		KickTimeWindow:            cfg.KickTimeWindow,
		ReportHistoryCapacity:     cfg.ReportHistoryCapacity,
		MaxThrustForce:            cfg.MaxThrustForce,
		MaxSpeed:                  cfg.MaxSpeed,
		PlayerMass:                cfg.PlayerMass,
		DefaultLatency:            cfg.DefaultLatency,
		DistanceWindow:            cfg.DistanceWindow,
		ConsensusMinimumVotes:     cfg.ConsensusMinimumVotes,
	}
}
