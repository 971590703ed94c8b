package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hedera-pulse/internal/bot"
	"hedera-pulse/internal/cache"
	"hedera-pulse/internal/config"
	"hedera-pulse/internal/db"
	"hedera-pulse/internal/handler"
	"hedera-pulse/internal/job"
	"hedera-pulse/internal/provider"
	"hedera-pulse/internal/repository"
	"hedera-pulse/internal/service"
	"hedera-pulse/pkg/logger"
	"hedera-pulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v3"

	_ "hedera-pulse/docs"
)

const serviceName = "hedera-pulse"

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newMetricStore   = func(tracer trace.Tracer) (service.MetricStore, func(context.Context) error) {
		repo := repository.NewMetricRepository(db.Pool, tracer)
		return repo, repo.RunMigrations
	}
	newStatusStore = func() service.StatusStore {
		if cache.Client == nil {
			return nil
		}
		return cache.NewStatusStore(cache.Client)
	}
	newHederaFunc = func(tracer trace.Tracer, baseURL string) service.HederaSource {
		return provider.NewHederaProvider(tracer, baseURL)
	}
	newFearGreedFunc = func(tracer trace.Tracer, baseURL string) service.FearGreedSource {
		return provider.NewFearGreedProvider(tracer, baseURL)
	}
	startCollectorFunc     = func(j *job.CollectorJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Hedera Pulse API
// @version         1.0
// @description     Collects Hedera network metrics and the crypto fear & greed index and serves them as time series.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	log := logger.NewWithConfig(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL, log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize postgres")
	}
	defer db.Close()
	if err := initRedisFunc(ctx, cfg.RedisURL, log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis")
	}

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	store, migrate := newMetricStore(tracer)
	if db.Pool != nil {
		if err := migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	metricService := service.NewMetricService(
		tracer,
		log,
		newHederaFunc(tracer, cfg.HederaMirrorURL),
		newFearGreedFunc(tracer, cfg.FearGreedURL),
		store,
		newStatusStore(),
		cfg.HederaUSDCToken,
	)

	// Collector runs until ctx is cancelled
	collector := job.NewCollectorJob(tracer, log, metricService, cfg.CollectPollSecs)
	startCollectorFunc(collector, ctx)

	telegram, err := startTelegramBotFunc(cfg.TelegramBotToken, metricService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start Telegram bot")
	}

	r := newRouterFunc()
	r.Use(gin.Recovery(), handler.RequestLogger(log), handler.CORS(), otelgin.Middleware(serviceName))

	handler.New(tracer, log, metricService).RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("http server listening")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()
	stopBot(telegram)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exiting")
}

func stopBot(b *tele.Bot) {
	if b != nil {
		b.Stop()
	}
}
