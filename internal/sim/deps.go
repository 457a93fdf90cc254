package sim

import (
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/telemetry"
	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation
// engine.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}
