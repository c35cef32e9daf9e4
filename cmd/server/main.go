package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"renoflow/internal/amo"
	amohandler "renoflow/internal/amo/handler"
	amoservice "renoflow/internal/amo/service"
	"renoflow/internal/audit"
	audithandler "renoflow/internal/audit/handler"
	"renoflow/internal/casefile"
	casefilehandler "renoflow/internal/casefile/handler"
	"renoflow/internal/filing"
	httpapi "renoflow/internal/http"
	"renoflow/internal/journey"
	journeyhandler "renoflow/internal/journey/handler"
	jwttoken "renoflow/internal/jwt_token"
	"renoflow/internal/mailer"
	"renoflow/internal/platform/config"
	"renoflow/internal/platform/httpserver"
	"renoflow/internal/platform/logger"
	"renoflow/internal/platform/metrics"
	"renoflow/internal/platform/postgres"
	platformredis "renoflow/internal/platform/redis"
	"renoflow/internal/territory"
	"renoflow/internal/users"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives behind the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Stores fall back to memory when no backing service is configured, so a
	// bare `go run ./cmd/server` gives a working dev instance.
	var (
		journeyStore    journey.Store
		companyStore    amo.CompanyStore
		validationStore amo.ValidationStore
		tokenStore      amo.TokenStore
		caseFileStore   casefile.Store
		userStore       users.Store
		auditStore      audit.Store
	)
	if db != nil {
		journeyStore = journey.NewPostgresStore(db)
		companyStore = amo.NewPostgresCompanyStore(db)
		validationStore = amo.NewPostgresValidationStore(db)
		tokenStore = amo.NewPostgresTokenStore(db)
		caseFileStore = casefile.NewPostgresStore(db)
		userStore = users.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		journeyStore = journey.NewInMemoryStore()
		companyStore = amo.NewInMemoryCompanyStore()
		validationStore = amo.NewInMemoryValidationStore()
		tokenStore = amo.NewInMemoryTokenStore()
		caseFileStore = casefile.NewInMemoryStore()
		userStore = users.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}
	if redisClient != nil {
		tokenStore = amo.NewRedisTokenStore(redisClient.Client)
	}
	if db == nil {
		// Dev instance: give the memory store something to discover.
		if _, err := amo.SeedCompanies(ctx, companyStore); err != nil {
			log.Error("company seed failed", "error", err)
			os.Exit(1)
		}
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		stream, err := audit.NewKafkaStream(ctx, cfg.KafkaBrokers, "renoflow.audit")
		if err != nil {
			log.Error("kafka stream setup failed", "error", err)
			os.Exit(1)
		}
		defer stream.Close()
		auditOpts = append(auditOpts, audit.WithStream(stream))
	}
	auditTrail := audit.NewPublisher(auditStore, auditOpts...)
	auditQueue := audit.NewQueue(256, log)
	auditWorker := audit.NewWorker(auditTrail, auditQueue.Events(), log)

	journeyCfg := journey.DefaultConfig()
	journeyCfg.InitialStep = cfg.InitialStep
	journeys, err := journey.NewService(journeyStore, journeyCfg, log, m)
	if err != nil {
		log.Error("journey service setup failed", "error", err)
		os.Exit(1)
	}

	engine, err := territory.NewEngine(companyStore)
	if err != nil {
		log.Error("territory engine setup failed", "error", err)
		os.Exit(1)
	}

	amoSvc, err := amoservice.New(
		validationStore,
		tokenStore,
		companyStore,
		journeys,
		engine,
		users.NewDirectory(userStore),
		mailer.NewLogMailer(log),
		auditQueue,
		m,
		log,
		amoservice.Config{
			TokenValidity:   cfg.TokenValidity,
			DecisionBaseURL: cfg.DecisionBaseURL,
		},
	)
	if err != nil {
		log.Error("amo service setup failed", "error", err)
		os.Exit(1)
	}

	bridge, err := casefile.NewBridge(caseFileStore, filing.NewFake(), journeys,
		casefile.DefaultStatusMap(), auditQueue, m, log)
	if err != nil {
		log.Error("case-file bridge setup failed", "error", err)
		os.Exit(1)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "renoflow", "renoflow")

	checks := map[string]httpapi.HealthChecker{}
	if db != nil {
		checks["postgres"] = dbChecker{db}
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httpapi.NewRouter(httpapi.Config{
		Logger: log,
		Handlers: []httpapi.Registrar{
			journeyhandler.New(journeys, log, jwtSvc),
			amohandler.New(amoSvc, log, jwtSvc),
			casefilehandler.New(bridge, log, jwtSvc),
			audithandler.New(auditTrail, log, jwtSvc),
		},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	syncWorker := casefile.NewWorker(bridge, cfg.SyncInterval, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting renoflow", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := syncWorker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := auditWorker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
