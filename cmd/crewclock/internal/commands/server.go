package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewclock/crewclock/internal/api"
	"github.com/crewclock/crewclock/internal/catalog"
	"github.com/crewclock/crewclock/internal/engine"
	"github.com/crewclock/crewclock/internal/logger"
	"github.com/crewclock/crewclock/internal/probe"
	"github.com/crewclock/crewclock/internal/store"
	memorystore "github.com/crewclock/crewclock/internal/store/memory"
	postgresstore "github.com/crewclock/crewclock/internal/store/postgres"
)

type ServerCmd struct {
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"CREWCLOCK_LISTEN"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"CREWCLOCK_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	// Location probe configuration
	ProbeType    string        `help:"location probe type (gateway or static)" default:"static" env:"CREWCLOCK_PROBE_TYPE" enum:"gateway,static"`
	GatewayURL   string        `help:"device location gateway base URL" default:"" env:"CREWCLOCK_GATEWAY_URL"`
	ProbeTimeout time.Duration `help:"timeout for a single location fix" default:"10s" env:"CREWCLOCK_PROBE_TIMEOUT"`
	StaticLat    float64       `help:"latitude reported by the static probe" default:"0"`
	StaticLng    float64       `help:"longitude reported by the static probe" default:"0"`

	// Job catalog configuration
	CatalogPath string `help:"path to the job catalog YAML file" default:"jobs.yaml" env:"CREWCLOCK_CATALOG_PATH"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"CREWCLOCK_POSTGRES_AUTO_MIGRATE"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	var sessionStore store.SessionStore

	switch c.StoreType {
	case "postgres":
		if c.PostgresStore.ConnString == "" {
			return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
		}

		poolCfg := &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		}
		pool, err := postgresstore.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		sessionStore = postgresstore.NewSessionStore(pool)
		log.Info().Msg("Using PostgreSQL session store")

	default:
		sessionStore = memorystore.NewSessionStore()
		log.Warn().Msg("Using in-memory session store; sessions are lost on restart")
	}

	var locProbe probe.Probe
	switch c.ProbeType {
	case "gateway":
		if c.GatewayURL == "" {
			return errors.New("gateway URL is required for the gateway probe (--gateway-url or CREWCLOCK_GATEWAY_URL)")
		}
		var err error
		locProbe, err = probe.NewGatewayProbe(c.GatewayURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create gateway probe: %w", err)
		}
		log.Info().Str("gateway", c.GatewayURL).Msg("Using device gateway location probe")

	default:
		locProbe = probe.NewStaticProbe(c.StaticLat, c.StaticLng)
		log.Warn().Msg("Using static location probe; all fixes report the configured coordinates")
	}

	jobs, err := catalog.Load(c.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load job catalog: %w", err)
	}

	eng := engine.New(sessionStore, locProbe, engine.Config{ProbeTimeout: c.ProbeTimeout})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(logger.RequestLogger(log))

	api.NewHandler(eng, jobs).RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := configureHTTPServer(c.Listen, e)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Msg("HTTP server listening")
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
