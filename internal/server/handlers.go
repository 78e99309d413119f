package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/models"
	"github.com/bobmcallan/twpulse/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageRenderer holds the parsed dashboard template.
type pageRenderer struct {
	dashboard *template.Template
}

// dashboardPage is the template data for one render.
type dashboardPage struct {
	Result  *models.AggregatedResult
	Version string
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"num":     formatNum,
		"optnum":  formatOptNum,
		"pct":     formatPct,
		"move":    formatMove,
		"date":    formatDate,
		"plotURL": plotURL,
	}
	t := template.Must(template.New("dashboard.html").Funcs(funcs).ParseFS(templateFS, "templates/dashboard.html"))
	return &pageRenderer{dashboard: t}
}

// render executes into a buffer so a template failure never leaves a half-written page.
func (p *pageRenderer) render(w http.ResponseWriter, data dashboardPage) error {
	var buf bytes.Buffer
	if err := p.dashboard.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

// handleDashboardPage serves GET / and the POST / symbol form.
func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	symbol := ""
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		symbol = strings.TrimSpace(r.PostFormValue("symbol"))
	}

	result := s.app.DashboardService.BuildDashboard(r.Context(), symbol)
	if err := s.pages.render(w, dashboardPage{Result: result, Version: common.GetVersion()}); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render dashboard page")
		WriteError(w, http.StatusInternalServerError, "Failed to render dashboard")
	}
}

// handleDashboardJSON serves GET /api/dashboard?symbol=
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	WriteJSON(w, http.StatusOK, s.app.DashboardService.BuildDashboard(r.Context(), symbol))
}

// handleStock serves GET /api/stocks/{symbol}
func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := strings.TrimSpace(PathParam(r, "/api/stocks/", ""))
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	analysis, err := s.app.StockService.Analyze(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, models.ErrSymbolNotFound) {
			WriteErrorWithCode(w, http.StatusNotFound, models.SymbolNotFoundMessage(symbol), "symbol_not_found")
			return
		}
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Stock analysis failed")
		WriteError(w, http.StatusBadGateway, "Upstream price history unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, analysis)
}

// handlePlot serves GET /plots/{symbol}.png from the plot store.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/plots/")
	symbol, ok := strings.CutSuffix(name, ".png")
	if !ok || !common.IsValidSymbol(symbol) {
		http.NotFound(w, r)
		return
	}

	data, err := s.app.PlotStore.Get(r.Context(), storage.PlotKey(symbol))
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to read plot")
		WriteError(w, http.StatusInternalServerError, "Failed to read plot")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// Template helpers

func formatNum(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatOptNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatNum(*v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func formatMove(m *models.DailyMove) string {
	if m == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%% (%s)", m.Pct, formatDate(m.Date))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func plotURL(ref string) string {
	return "/plots/" + url.PathEscape(ref)
}
