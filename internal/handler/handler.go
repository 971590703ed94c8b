package handler

import (
	"context"

	"hedera-pulse/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type MetricReader interface {
	GetSeries(ctx context.Context, feed domain.Feed, limit int) (domain.Series, error)
	GetRaw(ctx context.Context, limit int) ([]domain.StoredMetric, error)
	GetStatus(ctx context.Context) (domain.CollectorStatus, error)
	Subscribe() (<-chan domain.CollectionResult, func())
}

type Handler struct {
	tracer  trace.Tracer
	log     zerolog.Logger
	metrics MetricReader
}

func New(tracer trace.Tracer, log zerolog.Logger, metrics MetricReader) *Handler {
	return &Handler{
		tracer:  tracer,
		log:     log.With().Str("component", "http").Logger(),
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/metrics")
	api.GET("/hedera/tx-count", h.GetTxCount)
	api.GET("/hedera/usdc-minted", h.GetUSDCMinted)
	api.GET("/crypto/greed-fear", h.GetGreedFear)
	api.GET("/debug/raw", h.GetRaw)
	api.GET("/status", h.GetStatus)
	api.GET("/stream", h.Stream)
}
