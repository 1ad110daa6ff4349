package stream

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/petrepopescu21/ridemapper/internal/route"
	"github.com/petrepopescu21/ridemapper/internal/session"
)

// Inbound events.
const (
	EventSessionCreate        = "session:create"
	EventSessionJoin          = "session:join"
	EventSessionJoinManager   = "session:join-as-manager"
	EventSessionLeave         = "session:leave"
	EventSessionEnd           = "session:end"
	EventSessionRejoin        = "session:rejoin"
	EventValidateManager      = "session:validate-manager"
	EventLocationUpdate       = "location:update"
	EventRouteUpdate          = "route:update"
	EventSessionUpdateRoute   = "session:update-route"
	EventMessageSend          = "message:send"
)

// Outbound events.
const (
	EventSessionJoined   = "session:joined"
	EventSessionLeft     = "session:left"
	EventSessionEnded    = "session:ended"
	EventLocationUpdated = "location:updated"
	EventRouteUpdated    = "route:updated"
	EventMessageReceived = "message:received"
	EventAck             = "ack"
	EventError           = "error"
)

// Error codes returned in acks.
const (
	CodeInvalidPin         = "invalid_pin"
	CodeSessionInactive    = "session_inactive"
	CodeUnauthorized       = "unauthorized"
	CodeRouteNotFound      = "route_not_found"
	CodeRecoveryFailed     = "recovery_failed"
	CodePersistenceFailure = "persistence_failure"
	CodeBadRequest         = "bad_request"
)

// Envelope is the wire frame. Requests that want a reply set Ack; the reply
// comes back as an "ack" envelope carrying the same Ack value.
type Envelope struct {
	Event string          `json:"event"`
	Ack   int64           `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Reply struct {
	Success       bool             `json:"success"`
	Session       *session.Session `json:"session,omitempty"`
	ParticipantID string           `json:"participant_id,omitempty"`
	Route         *route.Route     `json:"route,omitempty"`
	RecoveryToken string           `json:"recovery_token,omitempty"`
	Error         string           `json:"error,omitempty"`
}

type createPayload struct {
	ManagerName string `json:"manager_name"`
	RouteID     string `json:"route_id"`
}

type joinPayload struct {
	Pin             string `json:"pin"`
	ParticipantName string `json:"participant_name"`
}

type joinManagerPayload struct {
	Pin         string `json:"pin"`
	ManagerName string `json:"manager_name"`
	ManagerID   string `json:"manager_id"`
}

type leavePayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

type endPayload struct {
	SessionID string `json:"session_id"`
	ManagerID string `json:"manager_id"`
}

type rejoinPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	RecoveryToken string `json:"recovery_token"`
}

type validateManagerPayload struct {
	SessionID string `json:"session_id"`
	ManagerID string `json:"manager_id"`
}

type locationPayload struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	Location      struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type routeUpdatePayload struct {
	SessionID string        `json:"session_id"`
	ManagerID string        `json:"manager_id"`
	Points    []route.Point `json:"points"`
}

type messagePayload struct {
	SessionID string `json:"session_id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`
}

func marshalEvent(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("marshal %s event: %v", event, err)
		raw = nil
	}
	payload, _ := json.Marshal(Envelope{Event: event, Data: raw})
	return payload
}

func marshalAck(ack int64, reply Reply) []byte {
	raw, _ := json.Marshal(reply)
	payload, _ := json.Marshal(Envelope{Event: EventAck, Ack: ack, Data: raw})
	return payload
}

// errorCode maps taxonomy errors to wire codes. Anything unrecognized came
// out of the persistence gateway.
func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidPin):
		return CodeInvalidPin
	case errors.Is(err, session.ErrSessionInactive):
		return CodeSessionInactive
	case errors.Is(err, session.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, session.ErrRecoveryFailed), errors.Is(err, session.ErrNotFound):
		return CodeRecoveryFailed
	case errors.Is(err, route.ErrNotFound):
		return CodeRouteNotFound
	default:
		return CodePersistenceFailure
	}
}
