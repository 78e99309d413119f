package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/twpulse/internal/app"
	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/models"
	"github.com/bobmcallan/twpulse/internal/storage"
)

// --- mocks ---

type mockDashboard struct {
	result  *models.AggregatedResult
	symbols []string
}

func (m *mockDashboard) BuildDashboard(_ context.Context, requestedSymbol string) *models.AggregatedResult {
	m.symbols = append(m.symbols, requestedSymbol)
	r := *m.result
	r.RequestedSymbol = requestedSymbol
	return &r
}

type mockStocks struct {
	analysis *models.StockAnalysis
	err      error
}

func (m *mockStocks) FetchHistory(context.Context, string, int) ([]models.PriceBar, error) {
	return nil, m.err
}

func (m *mockStocks) Analyze(_ context.Context, symbol string) (*models.StockAnalysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	a := *m.analysis
	a.Symbol = symbol
	return &a, nil
}

func (m *mockStocks) AnalyzeWatchlist(context.Context, []string) []*models.StockAnalysis {
	return nil
}

func ptr(v float64) *float64 { return &v }

func sampleAnalysis() *models.StockAnalysis {
	day := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	return &models.StockAnalysis{
		Symbol:        "2330",
		Name:          "台積電",
		CurrentPrice:  1450,
		AverageClose:  1420.5,
		StdDevClose:   12.34,
		VolatilityPct: 0.87,
		MaxGain:       &models.DailyMove{Pct: 3.21, Date: day},
		TotalVolume:   123456,
		AverageVolume: 41152,
		MA5:           ptr(1440),
		Delta1D:       ptr(-1.5),
		History:       []models.PriceBar{{Date: day, Close: 1450, Volume: 1000}},
		PlotRef:       "2330.png",
	}
}

func sampleResult() *models.AggregatedResult {
	return &models.AggregatedResult{
		News:        []models.NewsItem{{Title: "台積電法說會釋利多", Link: "https://tw.stock.yahoo.com/news/1", PublishedLabel: "1小時前", Source: models.SourceYahooTW}},
		Keywords:    []models.KeywordRank{{Term: "台積電", Count: 3}},
		KeywordNews: []models.KeywordNews{{Term: "台積電", Items: []models.NewsItem{}}},
		Watchlist:   []*models.StockAnalysis{sampleAnalysis()},
		GeneratedAt: time.Date(2025, 10, 16, 14, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, dash *mockDashboard, stocks *mockStocks) *Server {
	t.Helper()
	logger := common.NewSilentLogger()
	store, err := storage.NewFileBlobStore(logger, &storage.FileBlobConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	if dash == nil {
		dash = &mockDashboard{result: sampleResult()}
	}
	if stocks == nil {
		stocks = &mockStocks{analysis: sampleAnalysis()}
	}

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	a := &app.App{
		Config:           cfg,
		Logger:           logger,
		PlotStore:        store,
		StockService:     stocks,
		DashboardService: dash,
	}
	return NewServer(a)
}

// --- dashboard page ---

func TestDashboardPage_Get(t *testing.T) {
	dash := &mockDashboard{result: sampleResult()}
	srv := newTestServer(t, dash, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "台積電法說會釋利多")
	assert.Contains(t, body, "台積電 (3)")
	assert.Contains(t, body, `/plots/2330.png`)
	assert.Contains(t, body, "3.21% (2025-10-16)")
	assert.Contains(t, body, "-1.50%")
	assert.Equal(t, []string{""}, dash.symbols)
}

func TestDashboardPage_PostSymbol(t *testing.T) {
	result := sampleResult()
	result.ErrorMessage = models.SymbolNotFoundMessage("9999")
	dash := &mockDashboard{result: result}
	srv := newTestServer(t, dash, nil)

	form := url.Values{"symbol": {"  9999 "}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"9999"}, dash.symbols)
	assert.Contains(t, rec.Body.String(), "找不到股票代號 9999 的資料")
	assert.Contains(t, rec.Body.String(), `value="9999"`)
}

func TestDashboardPage_EmptyResult(t *testing.T) {
	dash := &mockDashboard{result: &models.AggregatedResult{
		News:        []models.NewsItem{},
		Keywords:    []models.KeywordRank{},
		KeywordNews: []models.KeywordNews{},
		Watchlist:   []*models.StockAnalysis{},
		Degraded:    []string{models.LegHeadlines},
	}}
	srv := newTestServer(t, dash, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "目前沒有新聞")
	assert.Contains(t, body, "熱門股票資料暫時無法取得")
}

func TestDashboardPage_UnknownPath(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardPage_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
}

// --- JSON API ---

func TestDashboardJSON(t *testing.T) {
	dash := &mockDashboard{result: sampleResult()}
	srv := newTestServer(t, dash, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?symbol=2330", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.AggregatedResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "2330", got.RequestedSymbol)
	require.Len(t, got.Watchlist, 1)
	assert.Equal(t, "台積電", got.Watchlist[0].Name)
	assert.Equal(t, []string{"2330"}, dash.symbols)
}

func TestStockAPI_Found(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/2317", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.StockAnalysis
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "2317", got.Symbol)
	require.NotNil(t, got.MA5)
	assert.Equal(t, 1440.0, *got.MA5)
	assert.Nil(t, got.MA10)
}

func TestStockAPI_NotFound(t *testing.T) {
	srv := newTestServer(t, nil, &mockStocks{err: models.ErrSymbolNotFound})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/9999", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "找不到股票代號 9999 的資料", resp.Error)
	assert.Equal(t, "symbol_not_found", resp.Code)
}

func TestStockAPI_UpstreamFailure(t *testing.T) {
	srv := newTestServer(t, nil, &mockStocks{err: errors.New("connection reset")})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/2330", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStockAPI_MissingSymbol(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- plots ---

func TestPlots_ServesStoredPNG(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, srv.app.PlotStore.Put(context.Background(), storage.PlotKey("2330"), png))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plots/2330.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestPlots_Rejected(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	for _, p := range []string{"/plots/", "/plots/missing.png", "/plots/notes.txt", "/plots/sub/2330.png"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
	}
}

// --- system ---

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var v map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, common.GetVersion(), v["version"])
	assert.Contains(t, v, "commit")
}

func TestShutdown_SignalsChannel(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	ch := make(chan struct{}, 1)
	srv.SetShutdownChannel(ch)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shutdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown channel was not signaled")
	}
}

func TestShutdown_DisabledInProduction(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	srv.app.Config.Environment = "production"

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/shutdown", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- template helpers ---

func TestTemplateHelpers(t *testing.T) {
	assert.Equal(t, "10.00", formatNum(10))
	assert.Equal(t, "-", formatOptNum(nil))
	assert.Equal(t, "12.30", formatOptNum(ptr(12.3)))
	assert.Equal(t, "-", formatPct(nil))
	assert.Equal(t, "+33.33%", formatPct(ptr(33.33)))
	assert.Equal(t, "-18.18%", formatPct(ptr(-18.18)))
	assert.Equal(t, "-", formatMove(nil))
	assert.Equal(t, "", formatDate(time.Time{}))
	assert.Equal(t, "/plots/2330.png", plotURL("2330.png"))
}
