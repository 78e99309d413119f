package interfaces

import (
	"context"

	"github.com/bobmcallan/twpulse/internal/models"
)

// NewsService fetches headlines and keyword-correlated news.
// Both methods always return a usable (possibly empty) slice; a non-nil
// error only describes which upstream steps degraded.
type NewsService interface {
	FetchHeadlines(ctx context.Context) ([]models.NewsItem, error)
	FetchByKeyword(ctx context.Context, term string) ([]models.NewsItem, error)
}

// KeywordExtractor ranks the most frequent candidate keywords in headlines
type KeywordExtractor interface {
	ExtractKeywords(items []models.NewsItem, topN int) []models.KeywordRank
}

// StockService computes per-symbol statistics
type StockService interface {
	// FetchHistory returns the last lookbackDays of bars, or models.ErrSymbolNotFound
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error)

	// Analyze returns the statistics for symbol, or models.ErrSymbolNotFound
	Analyze(ctx context.Context, symbol string) (*models.StockAnalysis, error)

	// AnalyzeWatchlist analyzes symbols in order, omitting any without data
	AnalyzeWatchlist(ctx context.Context, symbols []string) []*models.StockAnalysis
}

// ChartRenderer produces and stores a trend plot, returning its filename
type ChartRenderer interface {
	RenderStockChart(ctx context.Context, symbol string, bars []models.PriceBar) (string, error)
}

// DashboardService assembles one dashboard render
type DashboardService interface {
	BuildDashboard(ctx context.Context, requestedSymbol string) *models.AggregatedResult
}

// SymbolDirectory resolves display names for listing codes
type SymbolDirectory interface {
	// Name returns the display name for code, or code itself when unknown
	Name(code string) string
}
