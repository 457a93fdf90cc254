package sim

import (
	"time"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
)

// CommandType enumerates the inputs staged for the next tick.
type CommandType string

const (
	// CommandServerState carries an authoritative state received from the
	// server for one entity.
	CommandServerState CommandType = "ServerState"
	// CommandInput carries a raw client input sample for an autonomous
	// entity.
	CommandInput CommandType = "Input"
	// CommandReport carries a client-reported trajectory sample for
	// validation.
	CommandReport CommandType = "Report"
	// CommandVote carries a remote validator's verdict.
	CommandVote CommandType = "Vote"
	// CommandHeartbeat refreshes connectivity metadata for an actor.
	CommandHeartbeat CommandType = "Heartbeat"
)

// ServerStateCommand wraps an authoritative state update.
type ServerStateCommand struct {
	EntityID physics.EntityID
	State    physics.State
}

// InputCommand wraps a raw input sample recorded for replay on correction.
type InputCommand struct {
	EntityID  physics.EntityID
	Data      []byte
	Timestamp float64
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time
	ClientSent int64
	RTT        time.Duration
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick  uint64
	ActorID     string
	Type        CommandType
	IssuedAt    time.Time
	ServerState *ServerStateCommand
	Input       *InputCommand
	Report      *consensus.PositionReport
	Vote        *consensus.ValidationVote
	Heartbeat   *HeartbeatCommand
}
