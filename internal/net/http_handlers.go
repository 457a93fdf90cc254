package net

import (
	"encoding/json"
	"io"
	"log"
	nethttp "net/http"
	"time"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/net/ws"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/observability"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/sim"
	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

// HTTPHandlerConfig wires the shared simulation state into the HTTP surface.
type HTTPHandlerConfig struct {
	Logger        *log.Logger
	TickRate      int
	Metrics       *logging.Metrics
	Observability observability.Config
}

// NewHTTPHandler builds the server mux: health, diagnostics, trust
// administration and the websocket entry point.
func NewHTTPHandler(gateway *ws.Handler, loop *sim.Loop, manager *physics.Manager, validator *consensus.Validator, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var counters map[string]uint64
		var gauges map[string]uint64
		if cfg.Metrics != nil {
			counters, gauges = cfg.Metrics.Snapshot()
		}
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Tick       uint64            `json:"tick"`
			TickRate   int               `json:"tickRate"`
			Sessions   int               `json:"sessions"`
			Pending    int               `json:"pendingCommands"`
			Trust      map[string]string `json:"trust"`
			Counters   map[string]uint64 `json:"counters,omitempty"`
			Gauges     map[string]uint64 `json:"gauges,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       manager.Tick(),
			TickRate:   cfg.TickRate,
			Sessions:   gateway.SessionCount(),
			Pending:    loop.Pending(),
			Trust:      trustStrings(validator.TrustSnapshot()),
			Counters:   counters,
			Gauges:     gauges,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/trust", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		data, err := json.Marshal(trustStrings(validator.TrustSnapshot()))
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/trust/reset", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		var req struct {
			PlayerID string `json:"playerId"`
		}
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&req); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		if req.PlayerID == "" {
			httpError(w, "missing playerId", nethttp.StatusBadRequest)
			return
		}
		if !validator.Registered(req.PlayerID) {
			httpError(w, "unknown player", nethttp.StatusNotFound)
			return
		}

		validator.ResetValidationState(req.PlayerID)
		logger.Printf("trust reset for player %s", req.PlayerID)

		response := struct {
			Status   string `json:"status"`
			PlayerID string `json:"playerId"`
			State    string `json:"state"`
		}{
			Status:   "ok",
			PlayerID: req.PlayerID,
			State:    validator.GetValidationState(req.PlayerID).String(),
		}
		data, err := json.Marshal(response)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", gateway.Handle)

	observability.Register(mux, cfg.Observability)

	return mux
}

func trustStrings(snapshot map[string]consensus.TrustState) map[string]string {
	out := make(map[string]string, len(snapshot))
	for id, state := range snapshot {
		out[id] = state.String()
	}
	return out
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
