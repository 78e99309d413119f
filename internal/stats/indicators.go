// Package stats provides descriptive statistics over daily price bars
package stats

import (
	"math"

	"github.com/cinar/indicator"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/twpulse/internal/models"
)

// Closes extracts the close series from bars
func Closes(bars []models.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// SMA returns the mean of the trailing period closes, or nil when there
// are fewer than period values. It is the last point of
// MovingAverageSeries, so the displayed and plotted averages agree.
func SMA(closes []float64, period int) *float64 {
	series := MovingAverageSeries(closes, period)
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	return &v
}

// MovingAverageSeries returns the SMA line for plotting. Element i
// corresponds to closes[i+period-1]; the warm-up window is omitted.
func MovingAverageSeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	return indicator.Sma(period, closes)[period-1:]
}

// Mean returns the arithmetic mean (0 for empty input)
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the n-1 standard deviation. Fewer than two values
// yield 0.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// VolatilityPct is the coefficient of variation in percent (0 when mean is 0)
func VolatilityPct(stddev, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return stddev / mean * 100
}

// PercentChange returns (to-from)/from*100, or nil when from is 0
func PercentChange(from, to float64) *float64 {
	if from == 0 {
		return nil
	}
	v := (to - from) / from * 100
	return &v
}

// DailyReturns returns the percent change of each bar from the prior
// close. The first bar has no return; bars after a zero close are skipped.
func DailyReturns(bars []models.PriceBar) []models.DailyMove {
	if len(bars) < 2 {
		return nil
	}
	moves := make([]models.DailyMove, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		pct := PercentChange(bars[i-1].Close, bars[i].Close)
		if pct == nil {
			continue
		}
		moves = append(moves, models.DailyMove{Pct: *pct, Date: bars[i].Date})
	}
	return moves
}

// Extremes returns the largest and smallest daily return. Ties go to the
// earliest date. Both are nil with fewer than two bars.
func Extremes(bars []models.PriceBar) (maxGain, maxDrop *models.DailyMove) {
	for _, m := range DailyReturns(bars) {
		m := m
		if maxGain == nil || m.Pct > maxGain.Pct {
			maxGain = &m
		}
		if maxDrop == nil || m.Pct < maxDrop.Pct {
			maxDrop = &m
		}
	}
	return maxGain, maxDrop
}

// VolumeTotals returns the summed and mean volume
func VolumeTotals(bars []models.PriceBar) (total int64, average float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	for _, b := range bars {
		total += b.Volume
	}
	return total, float64(total) / float64(len(bars))
}

// Deltas returns the change of the last close against the previous bar,
// the close five bars earlier (one trading week) and the first bar.
// The weekly figure is reported only from seven bars on, although its
// base bar exists from six.
func Deltas(closes []float64) (d1, d7, d30 *float64) {
	n := len(closes)
	if n < 2 {
		return nil, nil, nil
	}
	last := closes[n-1]
	d1 = PercentChange(closes[n-2], last)
	if n >= 7 {
		d7 = PercentChange(closes[n-6], last)
	}
	d30 = PercentChange(closes[0], last)
	return d1, d7, d30
}

// Round2 rounds half away from zero to two decimals
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round2Ptr rounds through a pointer, preserving nil
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}
