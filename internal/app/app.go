package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rsx/cansat-groundstation/internal/bus"
	"github.com/rsx/cansat-groundstation/internal/config"
	"github.com/rsx/cansat-groundstation/internal/handler"
	"github.com/rsx/cansat-groundstation/internal/link"
	"github.com/rsx/cansat-groundstation/internal/log"
	"github.com/rsx/cansat-groundstation/internal/middleware"
	"github.com/rsx/cansat-groundstation/internal/recorder"
	"github.com/rsx/cansat-groundstation/internal/repository/postgres"
	"github.com/rsx/cansat-groundstation/internal/service"
	"github.com/rsx/cansat-groundstation/internal/station"
	"github.com/rsx/cansat-groundstation/internal/stream"
)

const busQueue = 256

// App holds the ground station and all of its dependencies
type App struct {
	config *config.Config
	opener link.Opener
	logger zerolog.Logger

	db      *pgxpool.Pool
	server  *http.Server
	link    *link.Link
	csv     *recorder.CSV
	bus     *bus.MemoryBus
	station *station.Station
	hub     *stream.Hub

	stopHub context.CancelFunc
	hubDone chan struct{}
}

// Option customises an App
type Option func(*App)

// WithOpener replaces the serial device opener
func WithOpener(o link.Opener) Option {
	return func(a *App) { a.opener = o }
}

// New creates a new App
func New(cfg *config.Config, opts ...Option) (*App, error) {
	log.Configure(log.Config{Level: cfg.Log.Level})

	app := &App{
		config: cfg,
		opener: link.SerialOpener{},
		logger: log.WithComponent("app"),
	}
	for _, opt := range opts {
		opt(app)
	}

	return app, nil
}

// Initialize connects to the database, starts the station and builds the router
func (a *App) Initialize(ctx context.Context) error {
	if err := a.connectDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := a.setupStation(ctx); err != nil {
		return fmt.Errorf("failed to set up station: %w", err)
	}

	a.setupServer()

	a.logger.Info().Msg("application initialized")
	return nil
}

// connectDB opens the PostgreSQL connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info().Str("host", a.config.Database.Host).Msg("connected to database")
	return nil
}

// setupStation wires the serial link, recorders and bus into the station core
func (a *App) setupStation(ctx context.Context) error {
	csv, err := recorder.OpenCSV(a.config.Station.CSVPath)
	if err != nil {
		return err
	}
	a.csv = csv

	a.bus = bus.NewMemoryBus(busQueue)
	a.link = link.New(a.opener, a.config.Link.BaudRate, nil)
	a.station = station.New(a.config.Station, station.Deps{
		Link:      a.link,
		CSV:       csv,
		Logfile:   recorder.NewLogCapture(a.config.Station.LogfilePath),
		Missions:  postgres.NewMissionRepository(a.db),
		Telemetry: postgres.NewTelemetryRepository(a.db),
		Events:    postgres.NewEventRepository(a.db),
		Bus:       a.bus,
	})
	a.link.SetHandler(a.station)

	a.hub = stream.NewHub(a.bus)
	hubCtx, cancel := context.WithCancel(context.Background())
	a.stopHub = cancel
	a.hubDone = make(chan struct{})
	go func() {
		defer close(a.hubDone)
		if err := a.hub.Run(hubCtx); err != nil {
			a.logger.Error().Err(err).Msg("stream hub stopped")
		}
	}()

	if port := a.config.Link.Port; port != "" {
		// Startup continues without the port; operators can open it over the API
		if err := a.station.OpenPort(ctx, port); err != nil {
			a.logger.Warn().Err(err).Str("port", port).Msg("could not open ground port at startup")
		}
	}
	return nil
}

// setupServer builds the HTTP router and handlers
func (a *App) setupServer() {
	memberRepo := postgres.NewMemberRepository(a.db)
	teamRepo := postgres.NewTeamRepository(a.db)
	missionRepo := postgres.NewMissionRepository(a.db)
	telemetryRepo := postgres.NewTelemetryRepository(a.db)
	eventRepo := postgres.NewEventRepository(a.db)

	teamService := service.NewTeamService(teamRepo)
	authService := service.NewAuthService(
		memberRepo,
		a.config.JWT.Secret,
		a.config.JWT.GetExpiration(),
	)
	statsService := service.NewStatsService(missionRepo, telemetryRepo, eventRepo)

	authHandler := handler.NewAuthHandler(authService)
	teamHandler := handler.NewTeamHandler(teamService)
	stationHandler := handler.NewStationHandler(a.station)
	linkHandler := handler.NewLinkHandler(a.station)
	commandHandler := handler.NewCommandHandler(a.station)
	statsHandler := handler.NewStatsHandler(statsService)

	authMiddleware := middleware.AuthMiddleware(authService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(log.AccessLog(log.WithComponent("http")))
	r.Use(chimiddleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			a.logger.Error().Err(err).Msg("failed to write health check response")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	// Rosters are created before anyone can log in
	r.Post("/team/add", teamHandler.AddTeam)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		// no request timeout on the live feed
		r.Get("/stream", a.hub.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(60 * time.Second))

			r.Get("/team/get", teamHandler.GetTeam)

			r.Route("/station", func(r chi.Router) {
				r.Get("/", stationHandler.GetStation)
				r.Get("/events", stationHandler.GetEvents)
				r.Get("/events/history", statsHandler.GetEventHistory)
				r.Get("/series", stationHandler.ListSeries)
				r.Get("/series/{name}", stationHandler.GetSeries)
				r.Get("/map", stationHandler.GetMap)
				r.Post("/reset", stationHandler.Reset)
				r.Put("/team-id", stationHandler.SetTeamID)
			})

			r.Route("/link", func(r chi.Router) {
				r.Get("/ports", linkHandler.ListPorts)
				r.Post("/open", linkHandler.Open)
				r.Post("/close", linkHandler.Close)
			})

			r.With(middleware.CommandRateLimit(a.config.RateLimit.CommandsPerMinute)).
				Post("/commands/{action}", commandHandler.Send)

			r.Get("/telemetry/recent", statsHandler.GetRecentTelemetry)
			r.Get("/stats/mission", statsHandler.GetMissionStats)
		})
	})

	addr := fmt.Sprintf("%s:%s", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info().Str("addr", addr).Msg("HTTP server configured")
}

// Handler returns the HTTP handler
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run starts the HTTP server
func (a *App) Run() error {
	a.logger.Info().Str("addr", a.server.Addr).Msg("starting HTTP server")
	return a.server.ListenAndServe()
}

// Shutdown stops the server, the stream hub and the station, then closes the
// serial link, the CSV file and the database
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("shutting down application")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown server: %w", err))
		}
	}

	if a.stopHub != nil {
		a.stopHub()
		select {
		case <-a.hubDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("stream hub: %w", ctx.Err()))
		}
	}

	if a.station != nil {
		a.station.Close()
	}
	if a.link != nil && a.link.IsOpen() {
		if err := a.link.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close ground port: %w", err))
		}
	}
	if a.csv != nil {
		if err := a.csv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close csv: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.logger.Info().Msg("application stopped")
	return nil
}
