// Package yahoofinance provides daily price history and a fallback keyword
// news search backed by Yahoo's public JSON endpoints.
package yahoofinance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

const (
	DefaultChartBaseURL = "https://query1.finance.yahoo.com"
	DefaultNewsBaseURL  = "https://tw.stock.yahoo.com/_td-stock/api/resource"
	DefaultTimeout      = 10 * time.Second
	DefaultRateLimit    = 5 // requests per second
)

// Taipei is the exchange timezone; bar dates are normalised to it
var Taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// Client implements PriceHistoryClient and NewsSearchClient
type Client struct {
	chartBaseURL string
	newsBaseURL  string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithChartBaseURL sets the chart API base URL
func WithChartBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.chartBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithNewsBaseURL sets the news search base URL
func WithNewsBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.newsBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo client. No API key is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		chartBaseURL: DefaultChartBaseURL,
		newsBaseURL:  DefaultNewsBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the source
func (c *Client) Name() string { return models.SourceYahooFinance }

// chartResponse is the v8 chart payload. Prices are pointers because
// Yahoo emits null for halted or holiday sessions.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chartRange picks the smallest Yahoo range covering days calendar days
func chartRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 31:
		return "1mo"
	case days <= 92:
		return "3mo"
	case days <= 183:
		return "6mo"
	case days <= 366:
		return "1y"
	default:
		return "2y"
	}
}

// GetDailyBars returns chronological daily bars for ticker (e.g. "2330.TW").
// Null bars are skipped. An unknown ticker or an empty series returns
// models.ErrSymbolNotFound.
func (c *Client) GetDailyBars(ctx context.Context, ticker string, days int) ([]models.PriceBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", chartRange(days))
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.chartBaseURL, url.PathEscape(ticker), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("ticker", ticker).Int("days", days).Msg("Yahoo chart request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("ticker", ticker).Dur("elapsed", elapsed).Msg("Yahoo chart request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("ticker", ticker).Dur("elapsed", elapsed).Msg("Yahoo chart: ticker not found")
		return nil, models.ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("ticker", ticker).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo chart non-OK response")
		return nil, fmt.Errorf("yahoo chart error: status %d for ticker %s", resp.StatusCode, ticker)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, models.ErrSymbolNotFound
		}
		return nil, fmt.Errorf("yahoo chart error: %s", chart.Chart.Error.Description)
	}

	bars := parseBars(&chart)
	if len(bars) == 0 {
		return nil, models.ErrSymbolNotFound
	}

	c.logger.Info().Str("ticker", ticker).Int("bars", len(bars)).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo chart call")
	return bars, nil
}

func parseBars(chart *chartResponse) []models.PriceBar {
	if len(chart.Chart.Result) == 0 {
		return nil
	}
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		t := time.Unix(ts, 0).In(Taipei)
		bars = append(bars, models.PriceBar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Taipei),
			Close:  *quote.Close[i],
			Volume: volume,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

type newsResponse struct {
	Data []struct {
		Title               string `json:"title"`
		URL                 string `json:"url"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
		Provider            string `json:"provider"`
	} `json:"data"`
}

// SearchNews returns up to limit stories for term. The term travels as a
// path segment, matching the portal's resource API.
func (c *Client) SearchNews(ctx context.Context, term string, limit int) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?limit=%s", c.newsBaseURL, url.PathEscape(term), strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("term", term).Dur("elapsed", elapsed).Msg("Yahoo news request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("term", term).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo news non-OK response")
		return nil, fmt.Errorf("yahoo news error: status %d for term %s", resp.StatusCode, term)
	}

	var apiResp newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, d := range apiResp.Data {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(d.Title)
		link := strings.TrimSpace(d.URL)
		if title == "" || link == "" {
			continue
		}
		item := models.NewsItem{
			Title:    title,
			Link:     link,
			Category: d.Provider,
			Source:   models.SourceYahooFinance,
		}
		if d.ProviderPublishTime > 0 {
			ts := time.Unix(d.ProviderPublishTime, 0).In(Taipei)
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}

	c.logger.Info().Str("term", term).Int("count", len(items)).Dur("elapsed", elapsed).Msg("Yahoo news call")
	return items, nil
}

// Ensure Client implements both provider interfaces
var (
	_ interfaces.PriceHistoryClient = (*Client)(nil)
	_ interfaces.NewsSearchClient   = (*Client)(nil)
)
