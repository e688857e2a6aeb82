package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cerita/nobat/internal/config"
	"github.com/cerita/nobat/internal/http/middleware"
	"github.com/cerita/nobat/internal/metrics"
	"github.com/cerita/nobat/internal/repository"
	"github.com/cerita/nobat/internal/service/booking"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	turnsRepo := repository.NewTurnsRepository(mysqlDB)
	operatorsRepo := repository.NewOperatorsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (Redis / ClickHouse)
	sessionsRepo := repository.NewSessionsRepository(rds)
	chNotifsRepo := repository.NewCHNotificationsRepository(clickhouseDB)

	// services
	bookingSvc := booking.New(mysqlDB, turnsRepo, outboxRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// login issues the session tokens the rest of the API requires
	e.POST("/login", loginHandler(operatorsRepo, sessionsRepo, cfg.Session.TTL))

	// middlewares
	authMW := middleware.SessionMiddleware(sessionsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		KeyPrefix:      "rl:sess:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes (the paths the booking page has always called)
	g := e.Group("", authMW, rlMW)
	g.POST("/logout", logoutHandler(sessionsRepo))
	g.GET("/turns", listTurnsHandler(bookingSvc))
	g.GET("/turns/:direction", listTurnsHandler(bookingSvc))
	g.GET("/turns/:direction/:date", listTurnsHandler(bookingSvc))
	g.POST("/turn", createTurnHandler(bookingSvc))
	g.PUT("/turn", updateTurnHandler(bookingSvc))
	g.DELETE("/turn/:id", deleteTurnHandler(bookingSvc))
	g.PUT("/commentSms/:id", commentSMSHandler(bookingSvc))
	g.GET("/reports/notifications", listNotificationsHandler(chNotifsRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
