package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/petrepopescu21/ridemapper/internal/message"
	"github.com/petrepopescu21/ridemapper/internal/route"
	"github.com/petrepopescu21/ridemapper/internal/session"
)

var errGatewayUnavailable = errors.New("persistence gateway unavailable")

// RouteWriter persists session route edits. Satisfied by *route.Service.
type RouteWriter interface {
	Create(ctx context.Context, rt route.Route) (route.Route, error)
	UpdatePoints(ctx context.Context, id string, pts []route.Point) (route.Route, error)
}

// MessageAppender records relayed messages. Satisfied by *message.Service.
type MessageAppender interface {
	Append(ctx context.Context, m message.Message) error
}

// Router turns inbound client events into store mutations and fans the
// resulting state changes out to the session's other subscribers. It holds no
// state of its own.
type Router struct {
	hub      *Hub
	sessions *session.Service
	routes   RouteWriter
	messages MessageAppender
}

func NewRouter(hub *Hub, sessions *session.Service, routes RouteWriter, messages MessageAppender) *Router {
	return &Router{
		hub:      hub,
		sessions: sessions,
		routes:   routes,
		messages: messages,
	}
}

// Handle processes one inbound envelope for a connection and returns the
// reply frame to send back, or nil when the event carries no reply.
func (r *Router) Handle(ctx context.Context, c *Client, env Envelope) []byte {
	switch env.Event {
	case EventSessionCreate:
		var p createPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ManagerName == "" {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		res, err := r.sessions.Create(ctx, p.ManagerName, p.RouteID)
		return r.admit(c, env.Ack, res, err)

	case EventSessionJoin:
		var p joinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Pin == "" || p.ParticipantName == "" {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		res, err := r.sessions.Join(ctx, p.Pin, p.ParticipantName)
		return r.admit(c, env.Ack, res, err)

	case EventSessionJoinManager:
		var p joinManagerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Pin == "" {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		res, err := r.sessions.JoinAsManager(ctx, p.Pin, p.ManagerName, p.ManagerID)
		return r.admit(c, env.Ack, res, err)

	case EventSessionLeave:
		var p leavePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return r.fireError(c, CodeBadRequest)
		}
		r.leave(ctx, c, p.SessionID, p.ParticipantID)
		return nil

	case EventSessionEnd:
		var p endPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return r.fireError(c, CodeBadRequest)
		}
		if err := r.sessions.EndAuthorized(ctx, p.SessionID, p.ManagerID); err != nil {
			return r.fireError(c, errorCode(err))
		}
		r.hub.Broadcast(p.SessionID, marshalEvent(EventSessionEnded, map[string]string{
			"session_id": p.SessionID,
		}))
		return nil

	case EventSessionRejoin:
		var p rejoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		if p.RecoveryToken != "" && (p.SessionID == "" || p.ParticipantID == "") {
			claims, err := r.sessions.ParseRecoveryToken(p.RecoveryToken)
			if err != nil {
				return marshalAck(env.Ack, Reply{Error: CodeRecoveryFailed})
			}
			p.SessionID, p.ParticipantID = claims.SessionID, claims.ParticipantID
		}
		sess, err := r.sessions.Rejoin(ctx, p.SessionID, p.ParticipantID)
		if err != nil {
			return marshalAck(env.Ack, Reply{Error: errorCode(err)})
		}
		r.hub.Bind(c, sess.ID, p.ParticipantID)
		return marshalAck(env.Ack, Reply{Success: true, Session: sess, ParticipantID: p.ParticipantID})

	case EventValidateManager:
		var p validateManagerPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		sess, err := r.sessions.ValidateManager(ctx, p.SessionID, p.ManagerID)
		if err != nil {
			return marshalAck(env.Ack, Reply{Error: errorCode(err)})
		}
		r.hub.Bind(c, sess.ID, p.ManagerID)
		r.sessions.Store().SetOnline(sess.ID, p.ManagerID, true)
		return marshalAck(env.Ack, Reply{Success: true, Session: sess, ParticipantID: p.ManagerID})

	case EventLocationUpdate:
		var p locationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return r.fireError(c, CodeBadRequest)
		}
		if err := r.Location(ctx, p.SessionID, p.ParticipantID, p.Location.Lat, p.Location.Lng); err != nil {
			return r.fireError(c, errorCode(err))
		}
		return nil

	case EventRouteUpdate, EventSessionUpdateRoute:
		var p routeUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || len(p.Points) == 0 {
			return marshalAck(env.Ack, Reply{Error: CodeBadRequest})
		}
		rt, err := r.updateRoute(ctx, p)
		if err != nil {
			return marshalAck(env.Ack, Reply{Error: errorCode(err)})
		}
		r.hub.BroadcastExcept(p.SessionID, p.ManagerID, marshalEvent(EventRouteUpdated, rt))
		return marshalAck(env.Ack, Reply{Success: true, Route: &rt})

	case EventMessageSend:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Content == "" {
			return r.fireError(c, CodeBadRequest)
		}
		r.relayMessage(ctx, p)
		return nil

	default:
		return r.fireError(c, CodeBadRequest)
	}
}

// admit finishes a create/join/join-as-manager: bind the connection, tell the
// rest of the session, and ack the caller.
func (r *Router) admit(c *Client, ack int64, res *session.JoinResult, err error) []byte {
	if err != nil {
		return marshalAck(ack, Reply{Error: errorCode(err)})
	}

	r.hub.Bind(c, res.Session.ID, res.Participant.ID)
	r.hub.BroadcastExcept(res.Session.ID, res.Participant.ID, marshalEvent(EventSessionJoined, map[string]any{
		"session_id":  res.Session.ID,
		"participant": res.Participant,
	}))

	return marshalAck(ack, Reply{
		Success:       true,
		Session:       res.Session,
		ParticipantID: res.Participant.ID,
		RecoveryToken: res.RecoveryToken,
	})
}

func (r *Router) leave(ctx context.Context, c *Client, sessionID, participantID string) {
	res, err := r.sessions.Leave(ctx, sessionID, participantID)
	if err != nil {
		if c != nil {
			r.fireError(c, errorCode(err))
		}
		return
	}

	r.hub.BroadcastExcept(sessionID, participantID, marshalEvent(EventSessionLeft, map[string]any{
		"session_id":  sessionID,
		"participant": res.Participant,
	}))
	if res.Ended {
		r.hub.Broadcast(sessionID, marshalEvent(EventSessionEnded, map[string]string{
			"session_id": sessionID,
		}))
	}
	if c != nil && c.ParticipantID == participantID {
		r.hub.Unbind(c)
	}
}

// Location applies a position update and fans it out to the session's other
// connections. Shared by the websocket event and the HTTP fallback ingress.
func (r *Router) Location(ctx context.Context, sessionID, participantID string, lat, lng float64) error {
	p, err := r.sessions.Store().UpdateLocation(sessionID, participantID, lat, lng)
	if err != nil {
		return err
	}

	r.hub.BroadcastExcept(sessionID, participantID, marshalEvent(EventLocationUpdated, map[string]any{
		"session_id":  sessionID,
		"participant": p,
	}))
	return nil
}

// updateRoute persists a manager's route edit and attaches the result to the
// session. A session with no route yet gets one created on the fly, named
// after its pin.
func (r *Router) updateRoute(ctx context.Context, p routeUpdatePayload) (route.Route, error) {
	if !r.sessions.Store().IsManager(p.SessionID, p.ManagerID) {
		return route.Route{}, session.ErrUnauthorized
	}
	if r.routes == nil {
		return route.Route{}, errGatewayUnavailable
	}
	sess, ok := r.sessions.Store().Get(p.SessionID)
	if !ok {
		return route.Route{}, session.ErrNotFound
	}

	var rt route.Route
	var err error
	if sess.RouteID == "" {
		rt, err = r.routes.Create(ctx, route.Route{
			Name:      "Route " + sess.Pin,
			Points:    p.Points,
			CreatedBy: p.ManagerID,
		})
	} else {
		rt, err = r.routes.UpdatePoints(ctx, sess.RouteID, p.Points)
	}
	if err != nil {
		return route.Route{}, err
	}

	if err := r.sessions.Store().SetRoute(p.SessionID, rt); err != nil {
		return route.Route{}, err
	}
	return rt, nil
}

// relayMessage stamps and routes a chat message. Direct messages go to the
// named recipient only; history writes are best-effort and never block the
// relay.
func (r *Router) relayMessage(ctx context.Context, p messagePayload) {
	m := message.Message{
		ID:        uuid.NewString(),
		SessionID: p.SessionID,
		FromID:    p.FromID,
		ToID:      p.ToID,
		Content:   p.Content,
		Type:      p.Type,
		Timestamp: time.Now(),
	}
	if m.Type == "" {
		if m.ToID != "" {
			m.Type = message.TypeDirect
		} else {
			m.Type = message.TypeBroadcast
		}
	}

	if r.messages != nil {
		if err := r.messages.Append(ctx, m); err != nil {
			log.Printf("message history write failed: %v", err)
		}
	}

	payload := marshalEvent(EventMessageReceived, m)
	if m.Type == message.TypeDirect && m.ToID != "" {
		r.hub.SendTo(p.SessionID, m.ToID, payload)
		return
	}
	r.hub.BroadcastExcept(p.SessionID, p.FromID, payload)
}

// Disconnect marks a bound participant offline but leaves it in the store so
// a rejoin can pick the identity back up.
func (r *Router) Disconnect(c *Client) {
	if c.SessionID != "" && c.ParticipantID != "" {
		r.sessions.Store().SetOnline(c.SessionID, c.ParticipantID, false)
	}
	r.hub.Close(c)
}

func (r *Router) fireError(c *Client, code string) []byte {
	payload := marshalEvent(EventError, Reply{Error: code})
	select {
	case c.Send <- payload:
	default:
	}
	return nil
}
