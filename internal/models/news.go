// Package models defines data structures for twpulse
package models

import "time"

// News source identifiers
const (
	SourceYahooTW      = "yahoo-tw"
	SourceCnyes        = "cnyes"
	SourceYahooFinance = "yahoo-finance"
)

// NewsItem represents a headline or keyword-search hit.
// PublishedAt is set when the upstream timestamp parsed; otherwise the raw
// label (if any) is carried verbatim in PublishedLabel.
type NewsItem struct {
	Title          string     `json:"title"`
	Link           string     `json:"link"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	PublishedLabel string     `json:"published_label,omitempty"`
	Category       string     `json:"category,omitempty"`
	Source         string     `json:"source"`
}

// DateLabel returns a display label for the publication time.
func (n NewsItem) DateLabel() string {
	if n.PublishedAt != nil {
		return n.PublishedAt.Format("2006-01-02 15:04")
	}
	return n.PublishedLabel
}

// KeywordRank is a candidate keyword and its occurrence count.
type KeywordRank struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// KeywordNews pairs a ranked keyword with the news retrieved by searching for it.
type KeywordNews struct {
	Term  string     `json:"term"`
	Items []NewsItem `json:"items"`
}
