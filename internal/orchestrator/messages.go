package orchestrator

import (
	"encoding/json"

	"riverdeal/internal/poker"
)

// Error codes for ERROR messages, per the external interface contract.
const (
	ErrMissingTableID        = "MISSING_TABLE_ID"
	ErrTableNotFound         = "TABLE_NOT_FOUND"
	ErrInvalidTableMode      = "INVALID_TABLE_MODE"
	ErrInvalidSingleSession  = "INVALID_SINGLE_SESSION_ID"
	ErrInvalidPlayerID       = "INVALID_PLAYER_ID"
	ErrSeatNotJoined         = "SEAT_NOT_JOINED"
	ErrTableNotStarted       = "TABLE_NOT_STARTED"
	ErrTableEnded            = "TABLE_ENDED"
	ErrHandNotOver           = "HAND_NOT_OVER"
	ErrHandContinueNotReady  = "HAND_CONTINUE_NOT_READY"
	ErrNotYourTurn           = "NOT_YOUR_TURN"
	ErrInvalidAction         = "INVALID_ACTION"
	ErrInvalidJSON           = "INVALID_JSON"
	ErrValidationError       = "VALIDATION_ERROR"
)

// ClientMessage is an inbound message from a duplex client channel.
type ClientMessage struct {
	Type   string `json:"type"`
	Val    string `json:"val,omitempty"`
	Amount int    `json:"amount,omitempty"`
}

// ToAction converts a validated MOVE message to a poker.Action. "deal" is
// accepted as a legacy alias for "call".
func (m ClientMessage) ToAction() (poker.Action, error) {
	kind := m.Val
	if kind == "deal" {
		kind = "call"
	}
	switch kind {
	case "check":
		return poker.Action{Kind: poker.ActionCheck}, nil
	case "call":
		return poker.Action{Kind: poker.ActionCall}, nil
	case "fold":
		return poker.Action{Kind: poker.ActionFold}, nil
	case "raise":
		return poker.Action{Kind: poker.ActionRaise, Amount: m.Amount}, nil
	default:
		return poker.Action{}, errUnknownMove
	}
}

// ServerMessage is one outbound STATE/EVENT/ERROR envelope.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// EventPayload is the payload of an EVENT server message.
type EventPayload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// ErrorPayload is the payload of an ERROR server message.
type ErrorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func stateMessage(state poker.GameStatePublic) ServerMessage {
	return ServerMessage{Type: "STATE", Payload: state}
}

func eventMessage(ev poker.Event) ServerMessage {
	return ServerMessage{Type: "EVENT", Payload: EventPayload{Event: string(ev.Type), Data: ev.Data}}
}

func errorMessage(code, msg string, details ...string) ServerMessage {
	return ServerMessage{Type: "ERROR", Payload: ErrorPayload{Code: code, Message: msg, Details: details}}
}

// ErrorFrame marshals a standalone ERROR frame for a transport layer to
// write before a socket is registered with the orchestrator (e.g. a
// failed Connect handshake).
func ErrorFrame(code, msg string) []byte {
	data, err := json.Marshal(errorMessage(code, msg))
	if err != nil {
		return []byte(`{"type":"ERROR","payload":{"code":"` + code + `","message":"internal error"}}`)
	}
	return data
}
