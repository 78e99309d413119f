package models

import (
	"errors"
	"time"
)

// ErrSymbolNotFound is returned when a symbol has no usable price history.
// It is an ordinary negative outcome, not a failure of the service.
var ErrSymbolNotFound = errors.New("symbol not found")

// PriceBar is one daily close/volume observation.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DailyMove is a single day's percent change from the prior close.
type DailyMove struct {
	Pct  float64   `json:"pct"`
	Date time.Time `json:"date"`
}

// StockAnalysis holds the descriptive statistics for one symbol.
// Pointer fields are nil when the history is too short to define them.
type StockAnalysis struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	CurrentPrice  float64    `json:"current_price"`
	AverageClose  float64    `json:"average_close"`
	StdDevClose   float64    `json:"stddev_close"`
	VolatilityPct float64    `json:"volatility_pct"`
	MaxGain       *DailyMove `json:"max_gain,omitempty"`
	MaxDrop       *DailyMove `json:"max_drop,omitempty"`
	TotalVolume   int64      `json:"total_volume"`
	AverageVolume float64    `json:"average_volume"`
	MA5           *float64   `json:"ma5,omitempty"`
	MA10          *float64   `json:"ma10,omitempty"`
	Delta1D       *float64   `json:"delta_1d,omitempty"`
	Delta7D       *float64   `json:"delta_7d,omitempty"`
	Delta30D      *float64   `json:"delta_30d,omitempty"`
	History       []PriceBar `json:"history"`
	PlotRef       string     `json:"plot_ref,omitempty"`
	ComputedAt    time.Time  `json:"computed_at"`
}

// HasPlot reports whether a chart artifact was produced.
func (a *StockAnalysis) HasPlot() bool {
	return a != nil && a.PlotRef != ""
}
