// Package interfaces defines service contracts for twpulse
package interfaces

import (
	"context"

	"github.com/bobmcallan/twpulse/internal/models"
)

// HeadlineClient scrapes the rotating top-news listing
type HeadlineClient interface {
	// FetchHeadlines returns up to limit headlines in document order
	FetchHeadlines(ctx context.Context, limit int) ([]models.NewsItem, error)
}

// NewsSearchClient performs a keyword-scoped news lookup
type NewsSearchClient interface {
	// SearchNews returns up to limit items matching term
	SearchNews(ctx context.Context, term string, limit int) ([]models.NewsItem, error)

	// Name identifies the upstream source in logs
	Name() string
}

// PriceHistoryClient provides daily close/volume series
type PriceHistoryClient interface {
	// GetDailyBars returns chronological daily bars for a provider ticker
	// (e.g. "2330.TW") covering at least the last days calendar days.
	// A ticker with no data returns models.ErrSymbolNotFound.
	GetDailyBars(ctx context.Context, ticker string, days int) ([]models.PriceBar, error)
}
