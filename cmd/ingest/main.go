package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hedera-pulse/internal/config"
	"hedera-pulse/internal/db"
	"hedera-pulse/internal/domain"
	"hedera-pulse/internal/ingest"
	"hedera-pulse/internal/provider"
	"hedera-pulse/internal/repository"
	"hedera-pulse/pkg/logger"
	"hedera-pulse/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "hedera-pulse-ingest"
	usage       = "usage: go run ./cmd/ingest [start-timestamp]"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initTracerFunc   = tracing.InitTracer
	newSourceFunc    = func(tracer trace.Tracer, baseURL string) ingest.TransactionSource {
		return provider.NewHederaProvider(tracer, baseURL)
	}
	newStoreFunc = func(tracer trace.Tracer) (ingest.TransactionStore, func(context.Context) error) {
		repo := repository.NewTransactionRepository(db.Pool, tracer)
		return repo, repo.RunMigrations
	}
	argsFunc = func() []string { return os.Args[1:] }
	exitFunc = os.Exit
)

func main() {
	if !ingestOnce() {
		exitFunc(1)
	}
}

// ingestOnce reports whether the run succeeded. It returns rather than exits
// so the tracer and pool are flushed and closed first.
func ingestOnce() bool {
	loadEnvFunc()
	cfg := loadConfigFunc()
	log := logger.NewWithConfig(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
	})

	args := argsFunc()
	if len(args) > 1 {
		log.Fatal().Msg(usage)
	}
	start := ""
	if len(args) == 1 {
		start = args[0]
		if err := ingest.ValidateStart(start); err != nil {
			log.Fatal().Err(err).Msg(usage)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL, log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize postgres")
	}
	defer db.Close()

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	res, err := run(ctx, cfg, tracer, log, start)
	if err != nil {
		log.Error().Err(err).Int("stored", res.Stored).Msg("ingest failed")
		return false
	}
	log.Info().Str("last", res.Last).Int("stored", res.Stored).Msg("ingest complete")
	return true
}

func run(ctx context.Context, cfg *config.Config, tracer trace.Tracer, log zerolog.Logger, start string) (domain.IngestResult, error) {
	store, migrate := newStoreFunc(tracer)
	if err := migrate(ctx); err != nil {
		return domain.IngestResult{}, err
	}

	in := ingest.NewIngester(
		tracer,
		log,
		newSourceFunc(tracer, cfg.HederaMirrorURL),
		store,
		cfg.IngestStartTimestamp,
		cfg.IngestMaxPages,
	)
	return in.Run(ctx, start)
}
