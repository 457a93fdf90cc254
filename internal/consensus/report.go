package consensus

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	logvalidation "github.com/GhostDragonAlpha/Alexander-sub009/logging/validation"
)

const metricStaleReport = "consensus_stale_report_rejected_total"

// PositionReport is one client-reported trajectory sample.
type PositionReport struct {
	PlayerID  string
	Position  mgl64.Vec3
	Velocity  mgl64.Vec3
	Thrust    mgl64.Vec3
	Timestamp float64
	Sequence  uint64
}

// reportRing keeps the most recent reports for one player, FIFO.
type reportRing struct {
	data  []PositionReport
	head  int
	count int
}

func newReportRing(capacity int) *reportRing {
	if capacity < 1 {
		capacity = 1
	}
	return &reportRing{data: make([]PositionReport, capacity)}
}

func (r *reportRing) push(report PositionReport) {
	idx := (r.head + r.count) % len(r.data)
	r.data[idx] = report
	if r.count < len(r.data) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.data)
}

func (r *reportRing) len() int {
	if r == nil {
		return 0
	}
	return r.count
}

func (r *reportRing) last() (PositionReport, bool) {
	if r == nil || r.count == 0 {
		return PositionReport{}, false
	}
	return r.data[(r.head+r.count-1)%len(r.data)], true
}

func (r *reportRing) at(i int) PositionReport {
	return r.data[(r.head+i)%len(r.data)]
}

// reports copies the retained samples in chronological order.
func (r *reportRing) reports() []PositionReport {
	if r == nil || r.count == 0 {
		return nil
	}
	out := make([]PositionReport, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.at(i)
	}
	return out
}

// AddPositionReport appends a report to the player's history. Reports whose
// sequence or timestamp are not strictly newer than the last accepted one are
// rejected, as are reports for unregistered players.
func (v *Validator) AddPositionReport(report PositionReport) bool {
	if v == nil || report.PlayerID == "" {
		return false
	}
	v.mu.Lock()
	ring := v.histories[report.PlayerID]
	if ring == nil {
		v.mu.Unlock()
		return false
	}
	if last, ok := ring.last(); ok {
		if report.Sequence <= last.Sequence || report.Timestamp <= last.Timestamp {
			tick := v.currentTick()
			v.mu.Unlock()
			if v.metrics != nil {
				v.metrics.Add(metricStaleReport, 1)
			}
			logvalidation.ReportRejected(context.Background(), v.publisher, tick,
				logging.EntityRef{ID: report.PlayerID, Kind: logging.EntityKindPlayer},
				logvalidation.ReportRejectedPayload{
					LastSequence:  last.Sequence,
					Sequence:      report.Sequence,
					LastTimestamp: last.Timestamp,
					Timestamp:     report.Timestamp,
				})
			return false
		}
	}
	ring.push(report)
	v.mu.Unlock()
	return true
}

// LastReport returns the most recent accepted report for the player.
func (v *Validator) LastReport(playerID string) (PositionReport, bool) {
	if v == nil {
		return PositionReport{}, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.histories[playerID].last()
}

// Reports copies the player's accepted report history in order.
func (v *Validator) Reports(playerID string) []PositionReport {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.histories[playerID].reports()
}
