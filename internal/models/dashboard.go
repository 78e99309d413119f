package models

import (
	"fmt"
	"time"
)

// Degraded leg identifiers recorded on AggregatedResult.Degraded
const (
	LegHeadlines = "headlines"
	LegKeyword   = "keyword"
	LegSymbol    = "symbol"
	LegWatchlist = "watchlist"
)

// AggregatedResult is everything the dashboard page needs for one render.
// Missing pieces are empty, never errors.
type AggregatedResult struct {
	News            []NewsItem       `json:"news"`
	Keywords        []KeywordRank    `json:"keywords"`
	KeywordNews     []KeywordNews    `json:"keyword_news"`
	RequestedSymbol string           `json:"requested_symbol,omitempty"`
	Stock           *StockAnalysis   `json:"stock,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Watchlist       []*StockAnalysis `json:"watchlist"`
	Degraded        []string         `json:"degraded,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// SymbolNotFoundMessage is the user-facing message for an unknown symbol.
func SymbolNotFoundMessage(symbol string) string {
	return fmt.Sprintf("找不到股票代號 %s 的資料", symbol)
}
