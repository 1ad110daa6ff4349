package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrepopescu21/ridemapper/internal/pin"
	"github.com/petrepopescu21/ridemapper/internal/route"
)

// Store is the authoritative in-memory registry of active sessions. A single
// lock serializes every mutation, so two handlers can never interleave inside
// the same session's participant map. All reads return deep copies.
type Store struct {
	mu       sync.RWMutex
	pins     *pin.Registry
	sessions map[string]*Session
}

func NewStore(pins *pin.Registry) *Store {
	return &Store{
		pins:     pins,
		sessions: map[string]*Session{},
	}
}

// Create registers a new active session with the given manager as its sole
// participant and binds a fresh pin to it.
func (st *Store) Create(managerName string, rt *route.Route) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := uuid.NewString()
	p, err := st.pins.Allocate(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	manager := &Participant{
		ID:        uuid.NewString(),
		Name:      managerName,
		IsManager: true,
		IsOnline:  true,
		JoinedAt:  now,
		LastSeen:  now,
	}

	sess := &Session{
		ID:           id,
		Pin:          p,
		ManagerID:    manager.ID,
		ManagerName:  managerName,
		Participants: map[string]*Participant{manager.ID: manager},
		CreatedAt:    now,
		UpdatedAt:    now,
		IsActive:     true,
	}
	if rt != nil {
		sess.RouteID = rt.ID
		sess.Route = rt
	}

	st.sessions[id] = sess
	return sess.clone(), nil
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

func (st *Store) GetByPin(p string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.pins.Lookup(p)
	if !ok {
		return nil, false
	}
	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// FirstActive returns any currently active session. The deployment runs a
// single live ride, so "any" and "the" coincide.
func (st *Store) FirstActive() (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, sess := range st.sessions {
		if sess.IsActive {
			return sess.clone(), true
		}
	}
	return nil, false
}

func (st *Store) ActiveCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, sess := range st.sessions {
		if sess.IsActive {
			n++
		}
	}
	return n
}

func (st *Store) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, sess.clone())
	}
	return out
}

// AddParticipant inserts a participant into an active session. When forcedID
// is non-empty it is used as the participant id, which lets a manager client
// keep a stable identity across reconnects.
func (st *Store) AddParticipant(sessionID, name string, isManager bool, forcedID string) (*Participant, *Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if !sess.IsActive {
		return nil, nil, ErrSessionInactive
	}

	id := forcedID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	p := &Participant{
		ID:        id,
		Name:      name,
		IsManager: isManager,
		IsOnline:  true,
		JoinedAt:  now,
		LastSeen:  now,
	}
	sess.Participants[id] = p
	sess.UpdatedAt = now

	pc := *p
	return &pc, sess.clone(), nil
}

// RemoveParticipant deletes a participant and reports whether the session is
// now left without any manager.
func (st *Store) RemoveParticipant(sessionID, participantID string) (*Participant, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return nil, false, ErrNotFound
	}
	p, ok := sess.Participants[participantID]
	if !ok {
		return nil, false, ErrNotFound
	}

	delete(sess.Participants, participantID)
	sess.UpdatedAt = time.Now()

	pc := *p
	return &pc, p.IsManager && sess.managerCount() == 0, nil
}

func (st *Store) UpdateLocation(sessionID, participantID string, lat, lng float64) (*Participant, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok || !sess.IsActive {
		return nil, ErrNotFound
	}
	p, ok := sess.Participants[participantID]
	if !ok {
		return nil, ErrNotFound
	}

	now := time.Now()
	p.Location = &Location{Lat: lat, Lng: lng, Timestamp: now}
	p.LastSeen = now
	p.IsOnline = true
	sess.UpdatedAt = now

	pc := *p
	loc := *p.Location
	pc.Location = &loc
	return &pc, nil
}

func (st *Store) SetOnline(sessionID, participantID string, online bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return
	}
	p, ok := sess.Participants[participantID]
	if !ok {
		return
	}
	p.IsOnline = online
	p.LastSeen = time.Now()
}

func (st *Store) SetRoute(sessionID string, rt route.Route) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.RouteID = rt.ID
	sess.Route = &rt
	sess.UpdatedAt = time.Now()
	return nil
}

// IsManager reports whether the participant exists in the session and is
// flagged as a manager. Role is the only authorization gate.
func (st *Store) IsManager(sessionID, participantID string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return false
	}
	p, ok := sess.Participants[participantID]
	return ok && p.IsManager
}

// End marks the session inactive, releases its pin, discards participants and
// evicts it from the registry. Returns false if the session is already gone.
func (st *Store) End(sessionID string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[sessionID]
	if !ok {
		return nil, false
	}

	now := time.Now()
	sess.IsActive = false
	sess.EndsAt = &now
	sess.UpdatedAt = now
	st.pins.Release(sess.Pin)

	snapshot := sess.clone()
	sess.Participants = map[string]*Participant{}
	delete(st.sessions, sessionID)
	return snapshot, true
}
