// Package cnyes provides a client for the Anue (cnyes) news search API
package cnyes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

const (
	DefaultBaseURL   = "https://api.cnyes.com/media/api/v1"
	DefaultNewsURL   = "https://news.cnyes.com/news/id"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements NewsSearchClient against the cnyes search endpoint
type Client struct {
	baseURL    string
	newsURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithNewsURL sets the article URL prefix used to build links
func WithNewsURL(newsURL string) ClientOption {
	return func(c *Client) {
		c.newsURL = strings.TrimRight(newsURL, "/")
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

// NewClient creates a new cnyes search client. The endpoint is public.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		newsURL: DefaultNewsURL,
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
func (c *Client) Name() string { return models.SourceCnyes }

type searchResponse struct {
	Items []struct {
		Title     string `json:"title"`
		NewsID    int64  `json:"newsId"`
		PublishAt int64  `json:"publishAt"`
		Category  string `json:"categoryName"`
	} `json:"items"`
}

// SearchNews returns up to limit articles matching term.
// Items without a title or id are dropped.
func (c *Client) SearchNews(ctx context.Context, term string, limit int) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("type", "news")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("term", term).Msg("cnyes search request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("term", term).Dur("elapsed", elapsed).Msg("cnyes search request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("term", term).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("cnyes search non-OK response")
		return nil, fmt.Errorf("cnyes API error: status %d for term %s", resp.StatusCode, term)
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, it := range apiResp.Items {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" || it.NewsID == 0 {
			continue
		}
		item := models.NewsItem{
			Title:    title,
			Link:     fmt.Sprintf("%s/%d", c.newsURL, it.NewsID),
			Category: it.Category,
			Source:   models.SourceCnyes,
		}
		if it.PublishAt > 0 {
			ts := time.Unix(it.PublishAt, 0)
			item.PublishedAt = &ts
		}
		items = append(items, item)
	}

	c.logger.Info().Str("term", term).Int("count", len(items)).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("cnyes search call")
	return items, nil
}

// Ensure Client implements NewsSearchClient
var _ interfaces.NewsSearchClient = (*Client)(nil)
