package session

import (
	"time"

	"github.com/petrepopescu21/ridemapper/internal/route"
)

type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Participant exists only in memory for the lifetime of its session. It is
// never persisted; a restart loses participants but not session metadata.
type Participant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	IsManager bool       `json:"is_manager"`
	IsOnline  bool       `json:"is_online"`
	JoinedAt  time.Time  `json:"joined_at"`
	LastSeen  time.Time  `json:"last_seen"`
	Location  *Location  `json:"location,omitempty"`
}

// Session is one live tracking event. The participant map is owned by the
// session; there are no back-references.
type Session struct {
	ID           string                  `json:"id"`
	Pin          string                  `json:"pin"`
	ManagerID    string                  `json:"manager_id"`
	ManagerName  string                  `json:"manager_name"`
	RouteID      string                  `json:"route_id,omitempty"`
	Route        *route.Route            `json:"route,omitempty"`
	Participants map[string]*Participant `json:"participants"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	IsActive     bool                    `json:"is_active"`
	EndsAt       *time.Time              `json:"ends_at,omitempty"`
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Participants = make(map[string]*Participant, len(s.Participants))
	for id, p := range s.Participants {
		pc := *p
		if p.Location != nil {
			loc := *p.Location
			pc.Location = &loc
		}
		cp.Participants[id] = &pc
	}
	if s.Route != nil {
		rt := *s.Route
		rt.Points = append([]route.Point(nil), s.Route.Points...)
		cp.Route = &rt
	}
	if s.EndsAt != nil {
		t := *s.EndsAt
		cp.EndsAt = &t
	}
	return &cp
}

// managerCount counts participants flagged as managers. Join-as-manager
// allows several per session.
func (s *Session) managerCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.IsManager {
			n++
		}
	}
	return n
}
