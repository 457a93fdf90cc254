package physics

import (
	"context"
	"sync"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	logsync "github.com/GhostDragonAlpha/Alexander-sub009/logging/sync"
)

const (
	metricReconcileSnaps  = "physics_reconcile_snap_total"
	metricReconcileSmooth = "physics_reconcile_smooth_total"
)

// reconcileGateFraction skips corrections below this share of the error
// threshold to avoid visual jitter on negligible drift.
const reconcileGateFraction = 0.10

// ReconcilerConfig tunes the correction decision.
type ReconcilerConfig struct {
	PredictionErrorThreshold float64
	InterpolationDelay       float64
}

// Reconciler compares predicted state against the authoritative state and
// chooses between a hard snap and a smooth correction.
type Reconciler struct {
	registry     *Registry
	interpolator *Interpolator
	cfg          ReconcilerConfig
	publisher    logging.Publisher
	metrics      registryMetrics
	tick         func() uint64

	mu        sync.Mutex
	meanError float64
	count     uint64
}

func NewReconciler(registry *Registry, interpolator *Interpolator, cfg ReconcilerConfig, publisher logging.Publisher, metrics registryMetrics, tick func() uint64) *Reconciler {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Reconciler{
		registry:     registry,
		interpolator: interpolator,
		cfg:          cfg,
		publisher:    publisher,
		metrics:      metrics,
		tick:         tick,
	}
}

// ShouldReconcile gates out corrections whose positional error is negligible.
func (r *Reconciler) ShouldReconcile(id EntityID, serverState State) bool {
	if r == nil || r.registry == nil {
		return false
	}
	predicted, ok := r.registry.State(id)
	if !ok {
		return false
	}
	err := predicted.Position.Sub(serverState.Position).Len()
	return err >= r.cfg.PredictionErrorThreshold*reconcileGateFraction
}

// Reconcile applies the authoritative state to a predicted entity. Errors
// beyond the threshold snap immediately; smaller drift is smoothed over the
// interpolation delay.
func (r *Reconciler) Reconcile(id EntityID, body Body, serverState State) {
	if r == nil || r.registry == nil || !r.registry.Registered(id) {
		return
	}
	if !r.ShouldReconcile(id, serverState) {
		return
	}

	predicted, _ := r.registry.State(id)
	err := predicted.Position.Sub(serverState.Position).Len()
	r.recordError(err)

	actor := logging.EntityRef{ID: string(id), Kind: logging.EntityKindShip}
	payload := logsync.CorrectionPayload{
		Error:     err,
		Threshold: r.cfg.PredictionErrorThreshold,
		Sequence:  serverState.Sequence,
	}

	if err > r.cfg.PredictionErrorThreshold {
		r.registry.ApplyState(id, body, serverState)
		if r.metrics != nil {
			r.metrics.Add(metricReconcileSnaps, 1)
		}
		logsync.DivergenceSnap(context.Background(), r.publisher, r.currentTick(), actor, payload)
		return
	}

	r.interpolator.Start(id, body, serverState, r.cfg.InterpolationDelay)
	if r.metrics != nil {
		r.metrics.Add(metricReconcileSmooth, 1)
	}
	logsync.SmoothCorrection(context.Background(), r.publisher, r.currentTick(), actor, payload)
}

// Stats reports the streaming mean prediction error and the number of
// reconciliations.
func (r *Reconciler) Stats() (meanError float64, count uint64) {
	if r == nil {
		return 0, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meanError, r.count
}

func (r *Reconciler) recordError(err float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.meanError += (err - r.meanError) / float64(r.count)
}

func (r *Reconciler) currentTick() uint64 {
	if r.tick == nil {
		return 0
	}
	return r.tick()
}
