package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hedera-pulse/internal/domain"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
)

const replyTimeout = 10 * time.Second

type MetricReader interface {
	GetSeries(ctx context.Context, feed domain.Feed, limit int) (domain.Series, error)
	GetStatus(ctx context.Context) (domain.CollectorStatus, error)
}

// StartTelegramBot starts long polling in the background. It returns a nil
// bot when token is empty.
func StartTelegramBot(token string, metrics MetricReader, log zerolog.Logger) (*tele.Bot, error) {
	if token == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/metrics", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		return c.Send(metricsSummary(ctx, metrics))
	})

	b.Handle("/status", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		status, err := metrics.GetStatus(ctx)
		if err != nil {
			return c.Send(fmt.Sprintf("Error reading collector status: %v", err))
		}
		return c.Send(statusSummary(status))
	})

	log.Info().Msg("Telegram bot started")
	go b.Start()
	return b, nil
}

// metricsSummary renders the newest value of every feed, one per line.
func metricsSummary(ctx context.Context, metrics MetricReader) string {
	lines := make([]string, 0, len(domain.Feeds))
	for _, feed := range domain.Feeds {
		series, err := metrics.GetSeries(ctx, feed, 1)
		switch {
		case err != nil:
			lines = append(lines, fmt.Sprintf("%s: error (%v)", feed.Title(), err))
		case len(series) == 0:
			lines = append(lines, fmt.Sprintf("%s: no data", feed.Title()))
		default:
			lines = append(lines, fmt.Sprintf("%s: %s (%s)", feed.Title(), formatNumber(series[0].Value), series[0].Timestamp))
		}
	}
	return strings.Join(lines, "\n")
}

func statusSummary(s domain.CollectorStatus) string {
	if s.LastRunID == "" {
		return "Collector has not run yet"
	}
	msg := fmt.Sprintf("Last run: %s\nAt: %s", s.LastRunID, s.LastRunAt.Format(time.RFC3339))
	if !s.LastSuccessAt.IsZero() {
		msg += "\nLast success: " + s.LastSuccessAt.Format(time.RFC3339)
	}
	if s.LastError != "" {
		msg += "\nError: " + s.LastError
	}
	return msg
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
