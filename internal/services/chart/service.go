// Package chart renders price trend plots and stores them as artifacts
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
	"github.com/bobmcallan/twpulse/internal/stats"
	"github.com/bobmcallan/twpulse/internal/storage"
)

// ErrNoPlot is returned when there are too few bars to draw a line
var ErrNoPlot = errors.New("no plot available")

// Service implements ChartRenderer backed by a blob store
type Service struct {
	store  interfaces.BlobStore
	width  int
	height int
	logger *common.Logger
}

// NewService creates a chart renderer writing into store
func NewService(store interfaces.BlobStore, cfg common.PlotsConfig, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		width:  cfg.Width,
		height: cfg.Height,
		logger: logger,
	}
}

// RenderStockChart draws close, MA5 and MA10 for bars and stores the PNG
// under the symbol's plot key, replacing any previous image. Returns the
// stable artifact filename. When bars are too few to plot, any earlier
// image for the symbol is removed so it is not served as current.
func (s *Service) RenderStockChart(ctx context.Context, symbol string, bars []models.PriceBar) (string, error) {
	png, err := RenderPNG(symbol, bars, s.width, s.height)
	if err != nil {
		if errors.Is(err, ErrNoPlot) {
			if derr := s.store.Delete(ctx, storage.PlotKey(symbol)); derr != nil {
				s.logger.Warn().Err(derr).Str("symbol", symbol).Msg("Failed to remove stale plot")
			}
		}
		return "", err
	}

	if err := s.store.Put(ctx, storage.PlotKey(symbol), png); err != nil {
		return "", fmt.Errorf("failed to store plot for %s: %w", symbol, err)
	}

	s.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Int("bytes", len(png)).Msg("Plot rendered")
	return storage.PlotFilename(symbol), nil
}

// RenderPNG renders a line chart of closes with 5 and 10 day moving
// averages. Averages appear only once their window is filled.
func RenderPNG(symbol string, bars []models.PriceBar, width, height int) ([]byte, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars, got %d", ErrNoPlot, len(bars))
	}

	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		dates[i] = b.Date
	}
	closes := stats.Closes(bars)

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Close",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
				StrokeWidth: 2.5,
			},
			XValues: dates,
			YValues: closes,
		},
	}
	series = appendAverage(series, "MA5", dates, closes, 5, drawing.ColorFromHex("f59e0b"))
	series = appendAverage(series, "MA10", dates, closes, 10, drawing.ColorFromHex("10b981"))

	graph := chart.Chart{
		Title:  symbol,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("01/02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: flatRange(closes),
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// appendAverage adds a dashed SMA line when at least two points exist
func appendAverage(series []chart.Series, name string, dates []time.Time, closes []float64, period int, color drawing.Color) []chart.Series {
	ma := stats.MovingAverageSeries(closes, period)
	if len(ma) < 2 {
		return series
	}
	return append(series, chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor:     color,
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: dates[period-1:],
		YValues: ma,
	})
}

// flatRange pads the y axis when every close is equal, since go-chart
// rejects a zero-height range. Nil lets the chart autoscale.
func flatRange(closes []float64) chart.Range {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range closes {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if hi > lo {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.01, 1)
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// Ensure Service implements ChartRenderer
var _ interfaces.ChartRenderer = (*Service)(nil)
