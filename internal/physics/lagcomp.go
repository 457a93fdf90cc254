package physics

const metricHistorySwept = "physics_history_swept_total"

// LagCompensator answers "where was this entity at past time T" from the
// recorded history, for server-side interaction checks against what the
// attacker actually saw.
type LagCompensator struct {
	registry *Registry
	metrics  registryMetrics
}

func NewLagCompensator(registry *Registry, metrics registryMetrics) *LagCompensator {
	return &LagCompensator{registry: registry, metrics: metrics}
}

// StateAt returns the recorded state closest to pastTimestamp. With no
// history the current state is returned; unknown entities yield the zero
// state.
func (l *LagCompensator) StateAt(id EntityID, pastTimestamp float64) State {
	if l == nil || l.registry == nil {
		return State{}
	}
	if history := l.registry.History(id); history != nil {
		if state, ok := history.Closest(pastTimestamp); ok {
			return state
		}
	}
	state, _ := l.registry.State(id)
	return state
}

// CleanupOldStates removes history entries older than maxAge seconds before
// now across every registered entity and reports the number removed.
func (l *LagCompensator) CleanupOldStates(now, maxAge float64) int {
	if l == nil || l.registry == nil || maxAge <= 0 {
		return 0
	}
	cutoff := now - maxAge

	l.registry.mu.Lock()
	defer l.registry.mu.Unlock()
	removed := 0
	for _, history := range l.registry.histories {
		removed += history.TrimOlderThan(cutoff)
	}
	if removed > 0 && l.metrics != nil {
		l.metrics.Add(metricHistorySwept, uint64(removed))
	}
	return removed
}
