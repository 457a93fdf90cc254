package physics

import "sync"

const (
	metricRegistryStaleState = "physics_stale_state_rejected_total"
)

type registryMetrics interface {
	Add(string, uint64)
}

// Registry owns the per-entity synchronization state: mode, current state,
// history, recorded inputs, interpolation sessions and feature toggles. All
// lookups on an unregistered entity return defaults, never errors.
type Registry struct {
	mu sync.Mutex

	historyCapacity int
	inputCapacity   int
	metrics         registryMetrics

	modes         map[EntityID]Mode
	states        map[EntityID]State
	histories     map[EntityID]*HistoryBuffer
	inputs        map[EntityID]*InputBuffer
	sessions      map[EntityID]*Session
	predictOn     map[EntityID]bool
	interpolateOn map[EntityID]bool
}

// NewRegistry constructs a registry with the provided per-entity buffer
// capacities.
func NewRegistry(historyCapacity, inputCapacity int, metrics registryMetrics) *Registry {
	if historyCapacity < 1 {
		historyCapacity = 1
	}
	if inputCapacity < 1 {
		inputCapacity = 1
	}
	return &Registry{
		historyCapacity: historyCapacity,
		inputCapacity:   inputCapacity,
		metrics:         metrics,
		modes:           make(map[EntityID]Mode),
		states:          make(map[EntityID]State),
		histories:       make(map[EntityID]*HistoryBuffer),
		inputs:          make(map[EntityID]*InputBuffer),
		sessions:        make(map[EntityID]*Session),
		predictOn:       make(map[EntityID]bool),
		interpolateOn:   make(map[EntityID]bool),
	}
}

// Register adds an entity under the given mode. Re-registering an existing
// entity is a no-op.
func (r *Registry) Register(id EntityID, mode Mode) {
	if r == nil || id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modes[id]; exists {
		return
	}
	r.modes[id] = mode
	r.histories[id] = NewHistoryBuffer(r.historyCapacity)
	r.inputs[id] = NewInputBuffer(r.inputCapacity)
}

// Unregister atomically removes the entity from every subordinate map.
func (r *Registry) Unregister(id EntityID) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modes, id)
	delete(r.states, id)
	delete(r.histories, id)
	delete(r.inputs, id)
	delete(r.sessions, id)
	delete(r.predictOn, id)
	delete(r.interpolateOn, id)
}

// Registered reports whether the entity is known.
func (r *Registry) Registered(id EntityID) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.modes[id]
	return ok
}

// SetMode changes an entity's mode; unknown entities are ignored.
func (r *Registry) SetMode(id EntityID, mode Mode) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return
	}
	r.modes[id] = mode
}

// ModeOf returns the entity's mode.
func (r *Registry) ModeOf(id EntityID) (Mode, bool) {
	if r == nil {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	mode, ok := r.modes[id]
	return mode, ok
}

// Entities lists registered IDs filtered by mode.
func (r *Registry) Entities(mode Mode) []EntityID {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntityID, 0, len(r.modes))
	for id, m := range r.modes {
		if m == mode {
			out = append(out, id)
		}
	}
	return out
}

// State returns the entity's current state; unknown entities yield the zero
// state.
func (r *Registry) State(id EntityID) (State, bool) {
	if r == nil {
		return State{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[id]
	return state, ok
}

// SetState records the entity's current state and appends it to history.
// Unknown entities are ignored.
func (r *Registry) SetState(id EntityID, state State) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return
	}
	r.states[id] = state
	if history := r.histories[id]; history != nil {
		history.Push(state)
	}
}

// AcceptState records an inbound authoritative state only when it is strictly
// newer than the last accepted one. Stale or duplicate samples are rejected
// with a metric.
func (r *Registry) AcceptState(id EntityID, state State) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return false
	}
	if last, ok := r.states[id]; ok {
		if state.Sequence <= last.Sequence || state.Timestamp <= last.Timestamp {
			if r.metrics != nil {
				r.metrics.Add(metricRegistryStaleState, 1)
			}
			return false
		}
	}
	r.states[id] = state
	if history := r.histories[id]; history != nil {
		history.Push(state)
	}
	return true
}

// ApplyState records the state and pushes it onto the visible transform.
func (r *Registry) ApplyState(id EntityID, body Body, state State) {
	if r == nil {
		return
	}
	r.SetState(id, state)
	pushTransform(body, state)
}

// History exposes the entity's state history buffer.
func (r *Registry) History(id EntityID) *HistoryBuffer {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.histories[id]
}

// EnablePrediction toggles client-side prediction for an entity.
func (r *Registry) EnablePrediction(id EntityID, enabled bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return
	}
	r.predictOn[id] = enabled
}

// PredictionEnabled reports whether prediction runs for the entity.
func (r *Registry) PredictionEnabled(id EntityID) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.predictOn[id]
}

// EnableInterpolation toggles remote-proxy smoothing for an entity.
func (r *Registry) EnableInterpolation(id EntityID, enabled bool) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return
	}
	r.interpolateOn[id] = enabled
}

// InterpolationEnabled reports whether smoothing runs for the entity.
func (r *Registry) InterpolationEnabled(id EntityID) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interpolateOn[id]
}

// StoreInput appends a raw input sample for replay on correction.
func (r *Registry) StoreInput(id EntityID, data []byte, timestamp float64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	buffer := r.inputs[id]
	if buffer == nil {
		return
	}
	buffer.Push(InputRecord{Data: data, Timestamp: timestamp})
}

// Inputs copies the recorded input samples for an entity.
func (r *Registry) Inputs(id EntityID) []InputRecord {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputs[id].Records()
}

// session returns the entity's interpolation session, if any.
func (r *Registry) session(id EntityID) *Session {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

func (r *Registry) setSession(id EntityID, session *Session) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modes[id]; !ok {
		return
	}
	r.sessions[id] = session
}

// NextSequence returns the successor of the entity's latest sequence number.
func (r *Registry) NextSequence(id EntityID) uint64 {
	if r == nil {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[id].Sequence + 1
}
