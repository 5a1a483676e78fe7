package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"indexdash/internal/index"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxStocks caps how many rows GET /stocks returns.
const MaxStocks = 10

const (
	msgRoot            = "日経平均株価ダッシュボード API"
	msgRefreshed       = "株価データを更新しました"
	msgFeedUnavailable = "株価データを取得できませんでした"
	msgRefreshFailed   = "株価データの更新に失敗しました"
	msgGenerated       = "過去%d日分のデータを生成しました"
	msgGenerateFailed  = "過去データの生成に失敗しました"
)

type Refresher interface {
	Refresh(ctx context.Context) (float64, error)
}

type Backfiller interface {
	Backfill(ctx context.Context, windowDays int, basePrice float64) (index.BackfillResult, error)
}

type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// BackfillParams are the fixed inputs of POST /stocks/generate-recent.
type BackfillParams struct {
	WindowDays int
	BasePrice  float64
}

// Handler serves the dashboard API for a single index symbol.
type Handler struct {
	symbol     string
	store      index.Store
	refresher  Refresher
	backfiller Backfiller
	backfill   BackfillParams
	health     HealthChecker
	logger     *zap.Logger
}

func NewHandler(symbol string, store index.Store, refresher Refresher, backfiller Backfiller,
	backfill BackfillParams, health HealthChecker, logger *zap.Logger) *Handler {
	return &Handler{
		symbol:     symbol,
		store:      store,
		refresher:  refresher,
		backfiller: backfiller,
		backfill:   backfill,
		health:     health,
		logger:     logger.With(zap.String("component", "http")),
	}
}

// Root handles the liveness message
// GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": msgRoot})
}

// Health reports whether the store answers
// GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil && !h.health.IsHealthy(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetStocks returns the most recent records, newest first
// GET /stocks?limit=N
func (h *Handler) GetStocks(c *gin.Context) {
	limit := MaxStocks
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxStocks)
	}

	records, err := h.store.Recent(c.Request.Context(), h.symbol, limit)
	if err != nil {
		h.logger.Error("Failed to load stocks", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stocks"})
		return
	}

	resp := StocksResponse{Stocks: make([]StockResponse, 0, len(records))}
	for _, rec := range records {
		resp.Stocks = append(resp.Stocks, toStockResponse(rec))
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh writes one new record for today (or the latest feed session)
// POST /stocks/refresh
func (h *Handler) Refresh(c *gin.Context) {
	price, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, index.ErrDataUnavailable) {
			c.JSON(http.StatusServiceUnavailable, RefreshResponse{Message: msgFeedUnavailable, NewPrice: 0})
			return
		}
		c.JSON(http.StatusInternalServerError, RefreshResponse{Message: msgRefreshFailed, NewPrice: 0})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{Message: msgRefreshed, NewPrice: price})
}

// GenerateRecent regenerates the synthetic history window
// POST /stocks/generate-recent
func (h *Handler) GenerateRecent(c *gin.Context) {
	res, err := h.backfiller.Backfill(c.Request.Context(), h.backfill.WindowDays, h.backfill.BasePrice)
	if err != nil {
		h.logger.Error("Backfill failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, GenerateRecentResponse{Message: msgGenerateFailed})
		return
	}

	c.JSON(http.StatusOK, GenerateRecentResponse{
		Message:     fmt.Sprintf(msgGenerated, h.backfill.WindowDays),
		LatestPrice: res.LastClose,
		Inserted:    res.Inserted,
		Skipped:     res.Skipped,
		Purged:      res.Purged,
	})
}
