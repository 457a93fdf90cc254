package validation

import (
	"context"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

const (
	// EventTrustChanged is emitted whenever a player's trust state moves.
	EventTrustChanged logging.EventType = "validation.trust_changed"
	// EventConsensusReached is emitted when the vote tally for a report
	// crosses the supermajority threshold in either direction.
	EventConsensusReached logging.EventType = "validation.consensus_reached"
	// EventReportRejected is emitted when a position report is discarded as
	// stale or out of order.
	EventReportRejected logging.EventType = "validation.report_rejected"
)

// TrustPayload captures a trust-state transition.
type TrustPayload struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Failures int    `json:"failures"`
}

// ConsensusPayload captures a finished vote tally.
type ConsensusPayload struct {
	Sequence      uint64  `json:"sequence"`
	ValidVotes    int     `json:"validVotes"`
	InvalidVotes  int     `json:"invalidVotes"`
	AverageError  float64 `json:"averageError"`
	ValidFraction float64 `json:"validFraction"`
}

// ReportRejectedPayload captures the stale-report details.
type ReportRejectedPayload struct {
	LastSequence  uint64  `json:"lastSequence"`
	Sequence      uint64  `json:"sequence"`
	LastTimestamp float64 `json:"lastTimestamp"`
	Timestamp     float64 `json:"timestamp"`
}

// TrustChanged publishes the trust transition for a player. Escalations are
// warnings, recoveries informational.
func TrustChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload TrustPayload, escalation bool) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if escalation {
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTrustChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryValidation,
		Payload:  payload,
	})
}

// ConsensusReached publishes an info event for a decided vote tally.
func ConsensusReached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConsensusPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConsensusReached,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryValidation,
		Payload:  payload,
	})
}

// ReportRejected publishes a debug event for a discarded report.
func ReportRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ReportRejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventReportRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryValidation,
		Payload:  payload,
	})
}
