package main

import (
	"context"
	"os"
	"time"

	"hedera-pulse/internal/config"
	"hedera-pulse/internal/dashboard"
	"hedera-pulse/internal/metricsclient"
	"hedera-pulse/internal/tui"
	"hedera-pulse/pkg/logger"
	"hedera-pulse/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	runProgramFunc = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
	logOutput = func() *os.File { return os.Stderr }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	// The TUI owns stdout, so logs go to stderr.
	log := logger.NewWithConfig(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "hedera-pulse-dashboard",
		Output:  logOutput(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "hedera-pulse-dashboard")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	client := metricsclient.New(cfg.MetricsAPIURL, tracer)
	ctrl := dashboard.NewController(client, tracer, log,
		dashboard.WithInterval(time.Duration(cfg.DashboardRefreshSecs)*time.Second),
	)

	if err := run(ctx, ctrl, client.BaseURL(), log); err != nil {
		log.Error().Err(err).Msg("dashboard exited with error")
	}
}

func run(ctx context.Context, ctrl *dashboard.Controller, source string, log zerolog.Logger) error {
	model := tui.NewModel(ctx, ctrl, source)
	defer model.Close()

	log.Info().Str("api", source).Dur("interval", ctrl.Interval()).Msg("dashboard starting")
	return runProgramFunc(model)
}
