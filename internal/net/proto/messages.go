package proto

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for websocket payloads.
	typeJoinAck       = "joinAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
	typeCorrection    = "correction"
	typeTrust         = "trust"
	typeConsensus     = "consensus"
)

// Client message type identifiers.
const (
	TypeInput     = "input"
	TypeReport    = "report"
	TypeVote      = "vote"
	TypeHeartbeat = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState      = typeState
	TypeCorrection = typeCorrection
	TypeTrust      = typeTrust
	TypeConsensus  = typeConsensus
)

// WireState mirrors physics.State on the wire.
type WireState struct {
	Position        mgl64.Vec3 `json:"position"`
	Orientation     mgl64.Vec3 `json:"orientation"`
	LinearVelocity  mgl64.Vec3 `json:"linearVelocity"`
	AngularVelocity mgl64.Vec3 `json:"angularVelocity"`
	Timestamp       float64    `json:"timestamp"`
	Sequence        uint64     `json:"seq"`
}

// ToPhysics converts the wire representation to the simulation state.
func (w WireState) ToPhysics() physics.State {
	return physics.State{
		Position:        w.Position,
		Orientation:     w.Orientation,
		LinearVelocity:  w.LinearVelocity,
		AngularVelocity: w.AngularVelocity,
		Timestamp:       w.Timestamp,
		Sequence:        w.Sequence,
	}
}

// WireStateFrom converts a simulation state to its wire representation.
func WireStateFrom(state physics.State) WireState {
	return WireState{
		Position:        state.Position,
		Orientation:     state.Orientation,
		LinearVelocity:  state.LinearVelocity,
		AngularVelocity: state.AngularVelocity,
		Timestamp:       state.Timestamp,
		Sequence:        state.Sequence,
	}
}

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver       int        `json:"ver,omitempty"`
	Type      string     `json:"type"`
	Input     []byte     `json:"input,omitempty"`
	Position  mgl64.Vec3 `json:"position"`
	Velocity  mgl64.Vec3 `json:"velocity"`
	Thrust    mgl64.Vec3 `json:"thrust"`
	Timestamp float64    `json:"timestamp"`
	Sequence  uint64     `json:"seq"`
	Target    string     `json:"target,omitempty"`
	Valid     *bool      `json:"valid,omitempty"`
	PosError  float64    `json:"posError,omitempty"`
	SentAt    int64      `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the structured simulation command carried by a
// websocket message. Origin metadata is populated by the gateway when the
// command is accepted for processing.
func ClientCommand(msg ClientMessage, actorID string) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		if len(msg.Input) == 0 {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandInput,
			Input: &sim.InputCommand{
				EntityID:  physics.EntityID(actorID),
				Data:      msg.Input,
				Timestamp: msg.Timestamp,
			},
		}, true
	case TypeReport:
		return sim.Command{
			Type: sim.CommandReport,
			Report: &consensus.PositionReport{
				PlayerID:  actorID,
				Position:  msg.Position,
				Velocity:  msg.Velocity,
				Thrust:    msg.Thrust,
				Timestamp: msg.Timestamp,
				Sequence:  msg.Sequence,
			},
		}, true
	case TypeVote:
		if msg.Target == "" || msg.Valid == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandVote,
			Vote: &consensus.ValidationVote{
				ValidatorID:    actorID,
				TargetPlayerID: msg.Target,
				Sequence:       msg.Sequence,
				IsValid:        *msg.Valid,
				PositionError:  msg.PosError,
			},
		}, true
	default:
		return sim.Command{}, false
	}
}

// JoinAck informs a freshly connected client of its identity.
type JoinAck struct {
	EntityID string
	Tick     uint64
}

// EncodeJoinAck renders the join acknowledgement payload.
func EncodeJoinAck(msg JoinAck) ([]byte, error) {
	frame := struct {
		Ver      int    `json:"ver"`
		Type     string `json:"type"`
		EntityID string `json:"entityId"`
		Tick     uint64 `json:"tick,omitempty"`
	}{
		Ver:      Version,
		Type:     typeJoinAck,
		EntityID: msg.EntityID,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq,omitempty"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// EntityState pairs an entity with its authoritative state.
type EntityState struct {
	EntityID string    `json:"entityId"`
	State    WireState `json:"state"`
}

// StateBroadcast carries the authoritative snapshot for one tick.
type StateBroadcast struct {
	Tick     uint64
	Time     float64
	Entities []EntityState
}

// EncodeStateBroadcast renders the per-tick state payload.
func EncodeStateBroadcast(msg StateBroadcast) ([]byte, error) {
	frame := struct {
		Ver      int           `json:"ver"`
		Type     string        `json:"type"`
		Tick     uint64        `json:"tick"`
		Time     float64       `json:"time"`
		Entities []EntityState `json:"entities,omitempty"`
	}{
		Ver:      Version,
		Type:     typeState,
		Tick:     msg.Tick,
		Time:     msg.Time,
		Entities: msg.Entities,
	}
	return json.Marshal(frame)
}

// Correction tells a client to rewind its predicted entity to a server state.
type Correction struct {
	EntityID string
	State    WireState
	Snap     bool
	Error    float64
}

// EncodeCorrection renders a correction payload.
func EncodeCorrection(msg Correction) ([]byte, error) {
	frame := struct {
		Ver      int       `json:"ver"`
		Type     string    `json:"type"`
		EntityID string    `json:"entityId"`
		State    WireState `json:"state"`
		Snap     bool      `json:"snap"`
		Error    float64   `json:"error"`
	}{
		Ver:      Version,
		Type:     typeCorrection,
		EntityID: msg.EntityID,
		State:    msg.State,
		Snap:     msg.Snap,
		Error:    msg.Error,
	}
	return json.Marshal(frame)
}

// TrustNotice informs clients of a trust-state transition.
type TrustNotice struct {
	PlayerID string
	Previous string
	Current  string
	Failures int
}

// EncodeTrustNotice renders a trust-state transition payload.
func EncodeTrustNotice(msg TrustNotice) ([]byte, error) {
	frame := struct {
		Ver      int    `json:"ver"`
		Type     string `json:"type"`
		PlayerID string `json:"playerId"`
		Previous string `json:"previous"`
		Current  string `json:"current"`
		Failures int    `json:"failures"`
	}{
		Ver:      Version,
		Type:     typeTrust,
		PlayerID: msg.PlayerID,
		Previous: msg.Previous,
		Current:  msg.Current,
		Failures: msg.Failures,
	}
	return json.Marshal(frame)
}

// EncodeConsensusResult renders the aggregated verdict payload.
func EncodeConsensusResult(result consensus.ConsensusResult) ([]byte, error) {
	frame := struct {
		Ver          int     `json:"ver"`
		Type         string  `json:"type"`
		PlayerID     string  `json:"playerId"`
		Seq          uint64  `json:"seq"`
		ValidVotes   int     `json:"validVotes"`
		InvalidVotes int     `json:"invalidVotes"`
		AverageError float64 `json:"averageError"`
		Reached      bool    `json:"reached"`
	}{
		Ver:          Version,
		Type:         typeConsensus,
		PlayerID:     result.PlayerID,
		Seq:          result.Sequence,
		ValidVotes:   result.ValidVotes,
		InvalidVotes: result.InvalidVotes,
		AverageError: result.AveragePositionError,
		Reached:      result.ConsensusReached,
	}
	return json.Marshal(frame)
}
