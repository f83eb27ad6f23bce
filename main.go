package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ouarsenis/thawra-api/config"
	auditrepo "github.com/ouarsenis/thawra-api/internal/repositories/audit"
	eventrepo "github.com/ouarsenis/thawra-api/internal/repositories/event"
	personrepo "github.com/ouarsenis/thawra-api/internal/repositories/person"
	regionrepo "github.com/ouarsenis/thawra-api/internal/repositories/region"
	sourcerepo "github.com/ouarsenis/thawra-api/internal/repositories/source"
	userrepo "github.com/ouarsenis/thawra-api/internal/repositories/user"
	authsvc "github.com/ouarsenis/thawra-api/internal/services/auth"
	eventsvc "github.com/ouarsenis/thawra-api/internal/services/event"
	personsvc "github.com/ouarsenis/thawra-api/internal/services/person"
	sourcesvc "github.com/ouarsenis/thawra-api/internal/services/source"
	usersvc "github.com/ouarsenis/thawra-api/internal/services/user"
	"github.com/ouarsenis/thawra-api/pkg/auth"
	"github.com/ouarsenis/thawra-api/pkg/authz"
	"github.com/ouarsenis/thawra-api/pkg/database"
	custommw "github.com/ouarsenis/thawra-api/pkg/middleware"
	auditroutes "github.com/ouarsenis/thawra-api/pkg/routes/audit"
	authroutes "github.com/ouarsenis/thawra-api/pkg/routes/auth"
	eventroutes "github.com/ouarsenis/thawra-api/pkg/routes/event"
	"github.com/ouarsenis/thawra-api/pkg/routes/health"
	personroutes "github.com/ouarsenis/thawra-api/pkg/routes/person"
	regionroutes "github.com/ouarsenis/thawra-api/pkg/routes/region"
	sourceroutes "github.com/ouarsenis/thawra-api/pkg/routes/source"
	userroutes "github.com/ouarsenis/thawra-api/pkg/routes/user"
	"github.com/ouarsenis/thawra-api/pkg/startup"
	"github.com/ouarsenis/thawra-api/pkg/tracing"
	"github.com/ouarsenis/thawra-api/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind environment: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("service exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := initTracing(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer shutdown()
	}

	var db database.DB
	var sqlxDB *sqlx.DB
	var e *echo.Echo
	var checker *health.Checker

	manager := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	manager.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			conn, err := sqlx.Connect("postgres", databaseDSN(cfg))
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := migratepg.WithInstance(conn.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			sqlxDB = conn
			db = database.NewDatabaseInstance(conn, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if sqlxDB == nil {
				return nil
			}
			return sqlxDB.Close()
		},
	})

	manager.AddDependency(&dependency{
		name:      "http-server",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			e, checker = buildServer(cfg, logger, db)

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil {
					logger.WithError(err).Info("http server stopped")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error {
			if e == nil {
				return nil
			}
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})

	if err := manager.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)
	logger.WithField("port", cfg.Port).Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return manager.Stop(stopCtx)
}

func buildServer(cfg *config.Config, logger ectologger.Logger, db database.DB) (*echo.Echo, *health.Checker) {
	events := eventrepo.NewRepository(db, logger)
	regions := regionrepo.NewRepository(db, logger)
	sources := sourcerepo.NewRepository(db, logger)
	people := personrepo.NewRepository(db, logger)
	users := userrepo.NewRepository(db, logger)
	audits := auditrepo.NewRepository(db, logger)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)

	eventService := eventsvc.NewService(events, regions, logger)
	sourceService := sourcesvc.NewService(sources, logger)
	personService := personsvc.NewService(people, logger)
	userService := usersvc.NewService(users, logger)
	authService := authsvc.NewService(users, tokens, logger)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.HTTPErrorHandler = custommw.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(custommw.Context())
	e.Use(custommw.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(custommw.Authentication(tokens, users, logger))
	e.Use(custommw.Audit(audits, audits, cfg.AuditWriteTimeout, logger))

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1", authz.Gate(authz.DefaultPolicy(), logger))
	authroutes.NewHandler(authService, userService, logger).Register(api.Group("/auth"))
	eventroutes.NewHandler(eventService, logger).Register(api.Group("/events"))
	regionroutes.NewHandler(regions, events, logger).Register(api.Group("/regions"))
	sourceroutes.NewHandler(sourceService, logger).Register(api.Group("/sources"))
	personroutes.NewHandler(personService, logger).Register(api.Group("/people"))
	userroutes.NewHandler(userService, logger).Register(api.Group("/users"))
	auditroutes.NewHandler(audits, logger).Register(api.Group("/audit"))

	return e, checker
}

func initTracing(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (func(), error) {
	var exporter sdktrace.SpanExporter
	if cfg.TracingOTLPEndpoint == "" {
		// No collector configured. Spans go to the logger instead.
		exporter = exporters.NewConsoleExporter(logger)
	} else {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

func newLogger(cfg *config.Config) ectologger.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapCfg.Build()
	if err != nil {
		zapLogger = zap.NewNop()
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func databaseDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseUserName,
		cfg.DatabasePassword,
		cfg.DatabaseName,
		cfg.DatabaseSSLMode,
	)
}

// dependency adapts plain start/stop funcs to the startup manager.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}
