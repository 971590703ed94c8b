package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"hedera-pulse/internal/config"
	"hedera-pulse/internal/dashboard"
	"hedera-pulse/internal/metricsclient"
	"hedera-pulse/internal/tui"
	"hedera-pulse/pkg/logger"
	"hedera-pulse/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
)

const serviceName = "hedera-pulse-ssh"

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

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

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)
	interval := time.Duration(cfg.DashboardRefreshSecs) * time.Second

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		// The dashboard is read-only public data: any key is accepted, the
		// fingerprint is only logged.
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			logSessionKey(log, ctx.User(), key)
			return true
		}),
		wish.WithKeyboardInteractiveAuth(func(ssh.Context, gossh.KeyboardInteractiveChallenge) bool {
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(sessionHandler(cfg.MetricsAPIURL, interval, tracer, log)),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	if srv != nil {
		go func() {
			log.Info().Str("addr", addr).Msg("SSH server listening")
			if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				log.Error().Err(err).Msg("SSH server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down SSH server")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("SSH server shutdown error")
		}
	}

	log.Info().Msg("SSH server exited")
}

func logSessionKey(log zerolog.Logger, user string, key ssh.PublicKey) string {
	fp := gossh.FingerprintSHA256(key)
	log.Info().Str("user", user).Str("key_type", key.Type()).Str("fingerprint", fp).Msg("ssh session key")
	return fp
}

// sessionHandler gives every session its own client and controller; the
// model, and with it the controller and subscription, is closed when the
// session ends.
func sessionHandler(apiURL string, interval time.Duration, tracer trace.Tracer, log zerolog.Logger) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		sessionLog := log.With().Str("user", s.User()).Str("remote", s.RemoteAddr().String()).Logger()

		client := metricsclient.New(apiURL, tracer)
		ctrl := dashboard.NewController(client, tracer, sessionLog, dashboard.WithInterval(interval))

		model := tui.NewModel(s.Context(), ctrl, client.BaseURL())
		pty, _, _ := s.Pty()
		model.SetSize(pty.Window.Width, pty.Window.Height)

		go func() {
			<-s.Context().Done()
			model.Close()
			sessionLog.Debug().Msg("session closed")
		}()

		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}
}
