package session

import (
	"context"
	"log"

	"github.com/petrepopescu21/ridemapper/internal/db"
	"github.com/petrepopescu21/ridemapper/internal/route"
)

// RouteResolver loads persisted routes when a session is created against a
// route id. Satisfied by *route.Service.
type RouteResolver interface {
	Get(ctx context.Context, id string) (route.Route, error)
}

// Service owns session admission and termination rules on top of the Store.
// The persistence gateway is written to best-effort only: a gateway outage
// degrades durability, never live session behavior.
type Service struct {
	store  *Store
	routes RouteResolver
	db     db.Querier
	secret []byte
}

func NewService(store *Store, routes RouteResolver, q db.Querier, tokenSecret string) *Service {
	return &Service{
		store:  store,
		routes: routes,
		db:     q,
		secret: []byte(tokenSecret),
	}
}

func (s *Service) Store() *Store {
	return s.store
}

type JoinResult struct {
	Session       *Session
	Participant   *Participant
	RecoveryToken string
}

type LeaveResult struct {
	SessionID   string
	Participant *Participant
	WasManager  bool
	Ended       bool
}

// Create starts a new session, or — when one is already live — admits the
// caller to it as an additional manager. The deployment runs one ride at a
// time, so a second create is treated as joining, not as an error.
func (s *Service) Create(ctx context.Context, managerName, routeID string) (*JoinResult, error) {
	if active, ok := s.store.FirstActive(); ok {
		return s.JoinAsManager(ctx, active.Pin, managerName, "")
	}

	var rt *route.Route
	if routeID != "" {
		if s.routes == nil {
			return nil, route.ErrNotFound
		}
		resolved, err := s.routes.Get(ctx, routeID)
		if err != nil {
			return nil, err
		}
		rt = &resolved
	}

	sess, err := s.store.Create(managerName, rt)
	if err != nil {
		return nil, err
	}
	s.persistCreated(ctx, sess)

	manager := sess.Participants[sess.ManagerID]
	token, err := s.IssueRecoveryToken(sess.ID, manager.ID, true)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Session: sess, Participant: manager, RecoveryToken: token}, nil
}

func (s *Service) Join(ctx context.Context, pin, participantName string) (*JoinResult, error) {
	return s.join(ctx, pin, participantName, false, "")
}

// JoinAsManager admits an additional manager. A non-empty managerID is kept
// as the participant id so the manager's client can regenerate a stable
// identity across reconnects.
func (s *Service) JoinAsManager(ctx context.Context, pin, managerName, managerID string) (*JoinResult, error) {
	return s.join(ctx, pin, managerName, true, managerID)
}

func (s *Service) join(ctx context.Context, pin, name string, isManager bool, forcedID string) (*JoinResult, error) {
	sess, ok := s.store.GetByPin(pin)
	if !ok {
		return nil, ErrInvalidPin
	}
	if !sess.IsActive {
		return nil, ErrSessionInactive
	}

	p, snapshot, err := s.store.AddParticipant(sess.ID, name, isManager, forcedID)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueRecoveryToken(snapshot.ID, p.ID, isManager)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Session: snapshot, Participant: p, RecoveryToken: token}, nil
}

// Leave removes a participant. When the departing participant was the last
// manager the whole session is ended, so no manager-less ride lingers.
func (s *Service) Leave(ctx context.Context, sessionID, participantID string) (*LeaveResult, error) {
	p, lastManagerGone, err := s.store.RemoveParticipant(sessionID, participantID)
	if err != nil {
		return nil, err
	}

	res := &LeaveResult{SessionID: sessionID, Participant: p, WasManager: p.IsManager}
	if lastManagerGone {
		res.Ended = s.End(ctx, sessionID)
	}
	return res, nil
}

// End deactivates a session and releases its pin. Idempotent: ending a
// missing or already-ended session reports false and does nothing.
func (s *Service) End(ctx context.Context, sessionID string) bool {
	sess, ok := s.store.End(sessionID)
	if !ok {
		return false
	}
	s.persistEnded(ctx, sess)
	return true
}

// EndAuthorized is End gated on the caller holding a manager role in the
// session.
func (s *Service) EndAuthorized(ctx context.Context, sessionID, managerID string) error {
	if !s.store.IsManager(sessionID, managerID) {
		return ErrUnauthorized
	}
	s.End(ctx, sessionID)
	return nil
}

// ValidateManager confirms a manager identity against a still-active session.
// Role is the only gate; there is no re-authentication.
func (s *Service) ValidateManager(ctx context.Context, sessionID, managerID string) (*Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok || !sess.IsActive {
		return nil, ErrRecoveryFailed
	}
	p, ok := sess.Participants[managerID]
	if !ok || !p.IsManager {
		return nil, ErrRecoveryFailed
	}
	return sess, nil
}

// Rejoin re-admits a disconnected participant that was never removed. A
// participant evicted by an explicit leave recovers only via a fresh join.
func (s *Service) Rejoin(ctx context.Context, sessionID, participantID string) (*Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok || !sess.IsActive {
		return nil, ErrRecoveryFailed
	}
	if _, ok := sess.Participants[participantID]; !ok {
		return nil, ErrRecoveryFailed
	}

	s.store.SetOnline(sessionID, participantID, true)
	sess, _ = s.store.Get(sessionID)
	return sess, nil
}

func (s *Service) persistCreated(ctx context.Context, sess *Session) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, pin, manager_id, manager_name, route_id, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),true,$6,$7)
	`, sess.ID, sess.Pin, sess.ManagerID, sess.ManagerName, sess.RouteID, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		log.Printf("session metadata write failed: %v", err)
	}
}

func (s *Service) persistEnded(ctx context.Context, sess *Session) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET is_active=false, ends_at=$2, updated_at=$2 WHERE id=$1
	`, sess.ID, sess.EndsAt)
	if err != nil {
		log.Printf("session metadata write failed: %v", err)
	}
}
