package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var testPoints = []Point{
	{Lat: 44.4268, Lng: 26.1025},
	{Lat: 44.4500, Lng: 26.0800},
	{Lat: 44.4800, Lng: 26.0500},
}

func TestNormalizePoints(t *testing.T) {
	pts := NormalizePoints(testPoints)
	if pts[0].Type != PointStart {
		t.Fatalf("expected first point typed start, got %q", pts[0].Type)
	}
	if pts[1].Type != PointWaypoint {
		t.Fatalf("expected middle point typed waypoint, got %q", pts[1].Type)
	}
	if pts[2].Type != PointEnd {
		t.Fatalf("expected last point typed end, got %q", pts[2].Type)
	}
	if testPoints[0].Type != "" {
		t.Fatalf("normalize must not mutate its input")
	}
}

func TestDistanceM(t *testing.T) {
	d := DistanceM(testPoints)
	if d <= 0 {
		t.Fatalf("expected positive distance")
	}
	if DistanceM(testPoints[:1]) != 0 {
		t.Fatalf("single point has no distance")
	}
}

func TestCreateRoute(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO routes`).
		WithArgs(pgxmock.AnyArg(), "Morning loop", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "manager-1", false).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	svc := NewService(mock)
	rt, err := svc.Create(context.Background(), Route{Name: "Morning loop", Points: testPoints, CreatedBy: "manager-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rt.ID == "" {
		t.Fatalf("expected route id assigned")
	}
	if rt.Points[0].Type != PointStart || rt.Points[2].Type != PointEnd {
		t.Fatalf("expected normalized point types")
	}
	if rt.DistanceM <= 0 {
		t.Fatalf("expected computed distance")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetRoute(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	points := []byte(`[{"lat":44.4268,"lng":26.1025,"type":"start"},{"lat":44.48,"lng":26.05,"type":"end"}]`)
	mock.ExpectQuery(`SELECT id, name, description, points`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "points", "distance_m", "created_by", "is_template", "created_at", "updated_at"}).
			AddRow("route-1", "Morning loop", "", points, 5000.0, "manager-1", true, time.Now(), time.Now()))

	svc := NewService(mock)
	rt, err := svc.Get(context.Background(), "route-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rt.Points) != 2 || rt.Points[0].Type != PointStart {
		t.Fatalf("unexpected points %+v", rt.Points)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, points`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePoints(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	points := []byte(`[{"lat":1,"lng":2,"type":"start"},{"lat":3,"lng":4,"type":"end"}]`)
	mock.ExpectQuery(`SELECT id, name, description, points`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "points", "distance_m", "created_by", "is_template", "created_at", "updated_at"}).
			AddRow("route-1", "Morning loop", "", points, 100.0, "manager-1", false, time.Now(), time.Now()))

	mock.ExpectQuery(`UPDATE routes`).
		WithArgs("route-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock)
	rt, err := svc.UpdatePoints(context.Background(), "route-1", testPoints)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(rt.Points) != 3 || rt.Points[1].Type != PointWaypoint {
		t.Fatalf("expected replaced, normalized points")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePointsMissingRoute(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, points`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	svc := NewService(mock)
	if _, err := svc.UpdatePoints(context.Background(), "missing", testPoints); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRoute(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM routes`).
		WithArgs("route-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	svc := NewService(mock)
	if err := svc.Delete(context.Background(), "route-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestListTemplates(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	points := []byte(`[{"lat":1,"lng":2,"type":"start"},{"lat":3,"lng":4,"type":"end"}]`)
	mock.ExpectQuery(`SELECT id, name, description, points`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "points", "distance_m", "created_by", "is_template", "created_at", "updated_at"}).
			AddRow("route-1", "Morning loop", "", points, 100.0, "manager-1", true, time.Now(), time.Now()).
			AddRow("route-2", "Evening loop", "", points, 200.0, "manager-1", true, time.Now(), time.Now()))

	svc := NewService(mock)
	routes, err := svc.ListTemplates(context.Background())
	if err != nil || len(routes) != 2 {
		t.Fatalf("list: %v (%d routes)", err, len(routes))
	}
}

func TestListTemplatesQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, description, points`).
		WillReturnError(errRoute)

	svc := NewService(mock)
	if _, err := svc.ListTemplates(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

var errRoute = errors.New("route error")
