package handler

import (
	"net/http"
	"strconv"

	"hedera-pulse/internal/domain"
	"hedera-pulse/internal/repository"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetTxCount godoc
// @Summary      Hedera transaction count
// @Description  Returns the newest transaction count observations, newest first
// @Tags         metrics
// @Produce      json
// @Param        limit  query  int  false  "Number of points (default 100, max 1000)"  default(100)
// @Success      200  {array}   domain.Metric
// @Failure      500  {object}  map[string]string
// @Router       /api/metrics/hedera/tx-count [get]
func (h *Handler) GetTxCount(c *gin.Context) { h.getSeries(c, domain.FeedTxCount) }

// GetUSDCMinted godoc
// @Summary      USDC supply on Hedera
// @Description  Returns the newest USDC total supply observations, newest first
// @Tags         metrics
// @Produce      json
// @Param        limit  query  int  false  "Number of points (default 100, max 1000)"  default(100)
// @Success      200  {array}   domain.Metric
// @Failure      500  {object}  map[string]string
// @Router       /api/metrics/hedera/usdc-minted [get]
func (h *Handler) GetUSDCMinted(c *gin.Context) { h.getSeries(c, domain.FeedUSDCMinted) }

// GetGreedFear godoc
// @Summary      Crypto fear & greed index
// @Description  Returns the newest fear & greed index observations, newest first
// @Tags         metrics
// @Produce      json
// @Param        limit  query  int  false  "Number of points (default 100, max 1000)"  default(100)
// @Success      200  {array}   domain.Metric
// @Failure      500  {object}  map[string]string
// @Router       /api/metrics/crypto/greed-fear [get]
func (h *Handler) GetGreedFear(c *gin.Context) { h.getSeries(c, domain.FeedGreedFear) }

func (h *Handler) getSeries(c *gin.Context, feed domain.Feed) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-series")
	defer span.End()
	span.SetAttributes(attribute.String("metric.feed", string(feed)))

	limit, ok := parseLimit(c, repository.DefaultSeriesLimit)
	if !ok {
		return
	}

	series, err := h.metrics.GetSeries(ctx, feed, limit)
	if err != nil {
		h.log.Error().Err(err).Str("feed", string(feed)).Msg("series query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetRaw godoc
// @Summary      Raw metric rows
// @Description  Returns the newest stored rows across all sources, for debugging
// @Tags         debug
// @Produce      json
// @Param        limit  query  int  false  "Number of rows (default 10, max 1000)"  default(10)
// @Success      200  {array}   domain.StoredMetric
// @Failure      500  {object}  map[string]string
// @Router       /api/metrics/debug/raw [get]
func (h *Handler) GetRaw(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-raw")
	defer span.End()

	limit, ok := parseLimit(c, repository.DefaultRawLimit)
	if !ok {
		return
	}

	rows, err := h.metrics.GetRaw(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetStatus godoc
// @Summary      Collector status
// @Description  Returns the outcome of the most recent collection run
// @Tags         metrics
// @Produce      json
// @Success      200  {object}  domain.CollectorStatus
// @Failure      500  {object}  map[string]string
// @Router       /api/metrics/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	status, err := h.metrics.GetStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
