package main

import (
	"context"
	"database/sql"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	grpchealth "google.golang.org/grpc/health"

	"lexgate/backend/internal/admission"
	"lexgate/backend/internal/audit"
	auditrepo "lexgate/backend/internal/audit/repository"
	"lexgate/backend/internal/config"
	"lexgate/backend/internal/db"
	"lexgate/backend/internal/health"
	"lexgate/backend/internal/logger"
	"lexgate/backend/internal/ratelimit"
	"lexgate/backend/internal/security"
	"lexgate/backend/internal/server"
	"lexgate/backend/internal/server/interceptors"
	"lexgate/backend/internal/session"
	sessionrepo "lexgate/backend/internal/session/repository"
	"lexgate/backend/internal/telemetry"
	telemetryotel "lexgate/backend/internal/telemetry/otel"
	"lexgate/backend/internal/trial"
	trialrepo "lexgate/backend/internal/trial/repository"
)

const connectTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, !cfg.Production())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry")
	}
	providers.SetGlobal()

	tokens, err := security.LoadTokenProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("token keys")
	}

	healthSrv := grpchealth.NewServer()
	checker := health.NewChecker(healthSrv)

	var pg *sql.DB
	if cfg.DatabaseURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		pg, err = db.Open(cctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("postgres")
		}
		defer pg.Close()
		checker.Add("postgres", pg)
	}

	var rdb *redis.Client
	if cfg.QuotaBackend == config.QuotaBackendRedis {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		rdb, err = db.OpenRedis(cctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
		checker.Add("redis", health.RedisPinger(rdb))
	}

	var authority sessionrepo.Authority
	enforcerOpts := []session.Option{
		session.WithTimeout(cfg.SessionAuthorityTimeout()),
		session.WithFailurePolicy(cfg.SessionFailurePolicy()),
	}
	if pg != nil {
		authority = sessionrepo.NewPostgresRepository(pg)
	} else {
		if cfg.Production() {
			log.Fatal().Msg("DATABASE_URL must be set in production")
		}
		log.Warn().Msg("DATABASE_URL not set; using in-memory session authority that registers sessions on first use")
		mem := sessionrepo.NewMemoryRepository()
		authority = mem
		enforcerOpts = append(enforcerOpts, session.WithRegistrar(mem))
	}

	var store trialrepo.Store
	switch cfg.QuotaBackend {
	case config.QuotaBackendRedis:
		store = trialrepo.NewRedisStore(rdb)
	case config.QuotaBackendPostgres:
		store = trialrepo.NewPostgresStore(pg)
	default:
		store = trialrepo.NewMemoryStore()
	}

	limiter, err := ratelimit.New(cfg.RateLimit())
	if err != nil {
		log.Fatal().Err(err).Msg("rate limiter")
	}
	metrics, err := admission.NewMetrics(providers.Meter(), limiter.TokensRemaining)
	if err != nil {
		log.Fatal().Err(err).Msg("metrics")
	}
	enforcer := session.NewEnforcer(authority, enforcerOpts...)
	gate := trial.NewGate(store, cfg.TrialLimits(), cfg.QuotaFailurePolicy())
	var auditTrail telemetry.EventEmitter
	if pg != nil {
		auditTrail = audit.NewLogger(auditrepo.NewPostgresRepository(pg), interceptors.ClientIP)
	}
	pipeline := admission.NewPipeline(admission.DefaultCatalog(), enforcer, limiter, gate,
		admission.WithMetrics(metrics),
		admission.WithEventEmitter(telemetry.Multi(
			telemetryotel.NewEventEmitter(providers.LoggerProvider),
			auditTrail,
		)),
	)

	s := server.NewServer(server.Deps{
		Tokens:   tokens,
		Pipeline: pipeline,
		Health:   healthSrv,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen")
	}

	go checker.Run(ctx, health.DefaultInterval)
	go func() {
		log.Info().
			Str("addr", cfg.GRPCAddr).
			Str("quota_backend", cfg.QuotaBackend).
			Strs("trial_services", cfg.TrialServices()).
			Str("session_policy", cfg.SessionFailurePolicy().String()).
			Str("quota_policy", cfg.QuotaFailurePolicy().String()).
			Msg("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gRPC server...")
	checker.Shutdown()
	s.GracefulStop()

	// Let in-flight decision events drain before the log exporter shuts down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown")
	}
	log.Info().Msg("gRPC server stopped")
}
