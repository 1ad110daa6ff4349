package route

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/petrepopescu21/ridemapper/internal/db"
	"github.com/petrepopescu21/ridemapper/internal/shared/geo"
)

var ErrNotFound = errors.New("route not found")

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, input Route) (Route, error) {
	input.ID = uuid.NewString()
	input.Points = NormalizePoints(input.Points)
	input.DistanceM = DistanceM(input.Points)

	points, err := json.Marshal(input.Points)
	if err != nil {
		return Route{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO routes (id, name, description, points, distance_m, created_by, is_template)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, input.ID, input.Name, input.Description, points, input.DistanceM, input.CreatedBy, input.IsTemplate)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return Route{}, err
	}
	return input, nil
}

func (s *Service) Get(ctx context.Context, id string) (Route, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, points, COALESCE(distance_m,0), created_by, is_template, created_at, updated_at
		FROM routes WHERE id=$1
	`, id)
	return scanRoute(row)
}

// UpdatePoints replaces a route's point sequence. Last writer wins; there is
// no merge of concurrent edits.
func (s *Service) UpdatePoints(ctx context.Context, id string, pts []Point) (Route, error) {
	rt, err := s.Get(ctx, id)
	if err != nil {
		return Route{}, err
	}

	rt.Points = NormalizePoints(pts)
	rt.DistanceM = DistanceM(rt.Points)

	points, err := json.Marshal(rt.Points)
	if err != nil {
		return Route{}, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE routes
		SET points=$2, distance_m=$3, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, rt.ID, points, rt.DistanceM)
	if err := row.Scan(&rt.UpdatedAt); err != nil {
		return Route{}, err
	}
	return rt, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM routes WHERE id=$1`, id)
	return err
}

func (s *Service) ListTemplates(ctx context.Context) ([]Route, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, description, points, COALESCE(distance_m,0), created_by, is_template, created_at, updated_at
		FROM routes WHERE is_template=true
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

func scanRoute(row pgx.Row) (Route, error) {
	var rt Route
	var points []byte
	err := row.Scan(&rt.ID, &rt.Name, &rt.Description, &points, &rt.DistanceM, &rt.CreatedBy, &rt.IsTemplate, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrNotFound
	}
	if err != nil {
		return Route{}, err
	}
	if len(points) > 0 {
		if err := json.Unmarshal(points, &rt.Points); err != nil {
			return Route{}, err
		}
	}
	return rt, nil
}

// NormalizePoints tags the first point as start, the last as end and
// everything between as waypoint, preserving order.
func NormalizePoints(pts []Point) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	for i := range out {
		switch i {
		case 0:
			out[i].Type = PointStart
		case len(out) - 1:
			out[i].Type = PointEnd
		default:
			out[i].Type = PointWaypoint
		}
	}
	return out
}

// DistanceM sums the haversine distance along the point sequence in meters.
func DistanceM(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += geo.HaversineKm(pts[i-1].Lat, pts[i-1].Lng, pts[i].Lat, pts[i].Lng) * 1000
	}
	return total
}
