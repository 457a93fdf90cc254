package sync

import (
	"context"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

const (
	// EventDivergenceSnap is emitted when prediction error exceeds the
	// threshold and the entity is snapped to the authoritative state.
	EventDivergenceSnap logging.EventType = "sync.divergence_snap"
	// EventSmoothCorrection is emitted when a reconciliation starts an
	// interpolation toward the authoritative state.
	EventSmoothCorrection logging.EventType = "sync.smooth_correction"
	// EventStaleStateRejected is emitted when an authoritative update is
	// discarded because its sequence or timestamp regressed.
	EventStaleStateRejected logging.EventType = "sync.stale_state_rejected"
)

// CorrectionPayload captures the reconciliation decision details.
type CorrectionPayload struct {
	Error     float64 `json:"error"`
	Threshold float64 `json:"threshold"`
	Sequence  uint64  `json:"sequence"`
}

// StalePayload captures why an inbound state sample was rejected.
type StalePayload struct {
	LastSequence  uint64  `json:"lastSequence"`
	Sequence      uint64  `json:"sequence"`
	LastTimestamp float64 `json:"lastTimestamp"`
	Timestamp     float64 `json:"timestamp"`
}

// DivergenceSnap publishes a warning event when a hard correction is applied.
func DivergenceSnap(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CorrectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDivergenceSnap,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySync,
		Payload:  payload,
	})
}

// SmoothCorrection publishes a debug event when a soft correction starts.
func SmoothCorrection(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CorrectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSmoothCorrection,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySync,
		Payload:  payload,
	})
}

// StaleStateRejected publishes a debug event when an out-of-order sample is
// dropped.
func StaleStateRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StalePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStaleStateRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategorySync,
		Payload:  payload,
	})
}
