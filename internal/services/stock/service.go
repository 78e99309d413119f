// Package stock computes per-symbol price statistics
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
	"github.com/bobmcallan/twpulse/internal/stats"
)

// Service implements StockService over a price-history provider
type Service struct {
	prices       interfaces.PriceHistoryClient
	charts       interfaces.ChartRenderer
	names        interfaces.SymbolDirectory
	suffixes     []string
	lookbackDays int
	concurrency  int
	logger       *common.Logger
	now          func() time.Time // injectable clock for testing
}

// NewService creates a stock service.
// charts may be nil, in which case analyses carry no plot.
func NewService(prices interfaces.PriceHistoryClient, charts interfaces.ChartRenderer, names interfaces.SymbolDirectory, cfg *common.Config, logger *common.Logger) *Service {
	return &Service{
		prices:       prices,
		charts:       charts,
		names:        names,
		suffixes:     cfg.Stocks.ExchangeSuffixes,
		lookbackDays: cfg.Stocks.LookbackDays,
		concurrency:  cfg.Dashboard.Concurrency,
		logger:       logger,
		now:          time.Now,
	}
}

// FetchHistory returns chronological bars within lookbackDays calendar days
// of the latest bar. Listed (TWSE) tickers are tried before OTC (TPEx).
func (s *Service) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	if !common.IsValidSymbol(symbol) {
		return nil, models.ErrSymbolNotFound
	}

	var transient []error
	for _, suffix := range s.suffixes {
		ticker := symbol + "." + suffix
		bars, err := s.prices.GetDailyBars(ctx, ticker, lookbackDays)
		if err == nil && len(bars) > 0 {
			return trimToLookback(bars, lookbackDays), nil
		}
		if err != nil && !errors.Is(err, models.ErrSymbolNotFound) {
			s.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price history fetch failed")
			transient = append(transient, err)
		}
	}

	if len(transient) > 0 {
		return nil, fmt.Errorf("price history for %s: %w", symbol, errors.Join(transient...))
	}
	return nil, models.ErrSymbolNotFound
}

// trimToLookback keeps bars strictly newer than lookbackDays before the last bar
func trimToLookback(bars []models.PriceBar, lookbackDays int) []models.PriceBar {
	if lookbackDays <= 0 || len(bars) == 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Date.AddDate(0, 0, -lookbackDays)
	for i, b := range bars {
		if b.Date.After(cutoff) {
			return bars[i:]
		}
	}
	return bars
}

// Analyze computes statistics over the configured lookback window and
// renders a trend plot. A plot failure is logged and leaves PlotRef empty.
func (s *Service) Analyze(ctx context.Context, symbol string) (*models.StockAnalysis, error) {
	symbol = strings.TrimSpace(symbol)

	bars, err := s.FetchHistory(ctx, symbol, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	analysis := Compute(symbol, bars)
	analysis.Name = symbol
	if s.names != nil {
		analysis.Name = s.names.Name(symbol)
	}
	analysis.ComputedAt = s.now()

	if s.charts != nil {
		ref, err := s.charts.RenderStockChart(ctx, symbol, bars)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Plot rendering failed")
		} else {
			analysis.PlotRef = ref
		}
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Float64("price", analysis.CurrentPrice).
		Msg("Stock analyzed")

	return analysis, nil
}

// Compute derives the statistics for a non-empty chronological series.
// Displayed figures are rounded to two decimals.
func Compute(symbol string, bars []models.PriceBar) *models.StockAnalysis {
	closes := stats.Closes(bars)
	mean := stats.Mean(closes)
	stddev := stats.SampleStdDev(closes)
	gain, drop := stats.Extremes(bars)
	totalVolume, avgVolume := stats.VolumeTotals(bars)
	d1, d7, d30 := stats.Deltas(closes)

	history := make([]models.PriceBar, len(bars))
	for i, b := range bars {
		history[i] = models.PriceBar{Date: b.Date, Close: stats.Round2(b.Close), Volume: b.Volume}
	}

	return &models.StockAnalysis{
		Symbol:        symbol,
		CurrentPrice:  stats.Round2(closes[len(closes)-1]),
		AverageClose:  stats.Round2(mean),
		StdDevClose:   stats.Round2(stddev),
		VolatilityPct: stats.Round2(stats.VolatilityPct(stddev, mean)),
		MaxGain:       roundMove(gain),
		MaxDrop:       roundMove(drop),
		TotalVolume:   totalVolume,
		AverageVolume: stats.Round2(avgVolume),
		MA5:           stats.Round2Ptr(stats.SMA(closes, 5)),
		MA10:          stats.Round2Ptr(stats.SMA(closes, 10)),
		Delta1D:       stats.Round2Ptr(d1),
		Delta7D:       stats.Round2Ptr(d7),
		Delta30D:      stats.Round2Ptr(d30),
		History:       history,
	}
}

func roundMove(m *models.DailyMove) *models.DailyMove {
	if m == nil {
		return nil
	}
	return &models.DailyMove{Pct: stats.Round2(m.Pct), Date: m.Date}
}

// AnalyzeWatchlist analyzes symbols concurrently and returns results in
// input order. Symbols without data, or whose fetch failed, are omitted.
func (s *Service) AnalyzeWatchlist(ctx context.Context, symbols []string) []*models.StockAnalysis {
	slots := make([]*models.StockAnalysis, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			analysis, err := s.Analyze(gctx, sym)
			if err != nil {
				if !errors.Is(err, models.ErrSymbolNotFound) {
					s.logger.Warn().Err(err).Str("symbol", sym).Msg("Watch-list symbol skipped")
				}
				return nil
			}
			slots[i] = analysis
			return nil
		})
	}
	_ = g.Wait()

	results := make([]*models.StockAnalysis, 0, len(symbols))
	for _, a := range slots {
		if a != nil {
			results = append(results, a)
		}
	}
	return results
}

// Ensure Service implements StockService
var _ interfaces.StockService = (*Service)(nil)
