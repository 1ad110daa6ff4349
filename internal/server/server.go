package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/petrepopescu21/ridemapper/internal/config"
	"github.com/petrepopescu21/ridemapper/internal/db"
	"github.com/petrepopescu21/ridemapper/internal/message"
	"github.com/petrepopescu21/ridemapper/internal/pin"
	"github.com/petrepopescu21/ridemapper/internal/route"
	"github.com/petrepopescu21/ridemapper/internal/session"
	"github.com/petrepopescu21/ridemapper/internal/stream"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Store    *session.Store
	Sessions *session.Service
	Hub      *stream.Hub
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	store := session.NewStore(pin.NewRegistry())

	// A lost gateway degrades route and history features only; live session,
	// location and messaging behavior keeps working without it.
	var (
		querier  db.Querier
		resolver session.RouteResolver
		writer   stream.RouteWriter
		appender stream.MessageAppender
		history  stream.MessageHistory
		routeSvc *route.Service
	)
	if pool != nil {
		querier = pool
		routeSvc = route.NewService(pool)
		msgSvc := message.NewService(pool)
		resolver = routeSvc
		writer = routeSvc
		appender = msgSvc
		history = msgSvc
	}

	sessions := session.NewService(store, resolver, querier, cfg.TokenSecret)
	hub := stream.NewHub(redisClient)
	router := stream.NewRouter(hub, sessions, writer, appender)

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       pool,
		Redis:    redisClient,
		Store:    store,
		Sessions: sessions,
		Hub:      hub,
	}

	registerRoutes(s, router, routeSvc, history)
	return s
}

func registerRoutes(s *Server, router *stream.Router, routeSvc *route.Service, history stream.MessageHistory) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		persistence := "ok"
		if s.DB == nil {
			persistence = "unreachable"
		} else {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			if err := s.DB.Ping(ctx); err != nil {
				persistence = "unreachable"
			}
			cancel()
		}
		return c.JSON(fiber.Map{
			"status":          "ok",
			"persistence":     persistence,
			"active_sessions": s.Store.ActiveCount(),
		})
	})

	stream.RegisterRoutes(s.App.Group("/live"), router, history)

	if routeSvc != nil {
		route.RegisterRoutes(s.App.Group("/routes"), routeSvc, session.ManagerMiddleware(s.Sessions))
	}
}
