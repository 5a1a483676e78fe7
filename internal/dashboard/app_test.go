package dashboard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"indexdash/config"
	"indexdash/internal/dashboard"
	"indexdash/internal/index"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func getStocks(t *testing.T, app *dashboard.App) []map[string]any {
	t.Helper()
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stocks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Stocks []map[string]any `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Stocks
}

// go test -v --run ^TestNewSeedsSQLite$
func TestNewSeedsSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nikkei.db")
	cfg := loadConfig(t, map[string]string{
		"DATABASE_DRIVER":      config.DriverSQLite,
		"DATABASE_SQLITE_PATH": path,
	})

	app, err := dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	stocks := getStocks(t, app)
	require.Len(t, stocks, 5)
	assert.Equal(t, "2024-01-05", stocks[0]["date"])
	require.NoError(t, app.Close())

	// restart against the same file: no second seed
	app, err = dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()
	assert.Len(t, getStocks(t, app), 5)
}

// go test -v --run ^TestNewMemoryWithScheduler$
func TestNewMemoryWithScheduler(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"DATABASE_DRIVER":   config.DriverMemory,
		"SCHEDULER_ENABLED": "true",
	})

	app, err := dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, app.Scheduler)
	assert.True(t, app.Scheduler.TradingDaysOnly(), "default calendar must resolve")
	assert.Equal(t, index.ModeSynthetic, app.Refresher.Mode())

	app.Start(context.Background())
	require.NoError(t, app.Close())
}

// go test -v --run ^TestNewUnknownCalendar$
func TestNewUnknownCalendar(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"DATABASE_DRIVER":   config.DriverMemory,
		"SCHEDULER_ENABLED": "true",
	})
	cfg.Market.CalendarMIC = "xnone"

	_, err := dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xnone")
}

// go test -v --run ^TestNewSeedsConfiguredSymbol$
func TestNewSeedsConfiguredSymbol(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"DATABASE_DRIVER": config.DriverMemory,
		"MARKET_SYMBOL":   "NKY",
	})

	app, err := dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	stocks := getStocks(t, app)
	require.Len(t, stocks, 5)
	assert.Equal(t, "NKY", stocks[0]["symbol"])
	assert.Equal(t, 34300.0, stocks[0]["close_price"])

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stocks/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		NewPrice float64 `json:"new_price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// anchored to the seeded close, not the 38000 default
	assert.InDelta(t, 34300, body.NewPrice, 34300*0.02+0.01)
}

// go test -v --run ^TestNewFeedMode$
func TestNewFeedMode(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer feed.Close()

	cfg := loadConfig(t, map[string]string{
		"DATABASE_DRIVER": config.DriverMemory,
		"REFRESH_MODE":    config.RefreshModeFeed,
		"FEED_BASE_URL":   feed.URL,
	})

	app, err := dashboard.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.Scheduler)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stocks/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Len(t, getStocks(t, app), 5)
}
