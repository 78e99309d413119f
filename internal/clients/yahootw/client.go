// Package yahootw scrapes the Yahoo Taiwan stock portal's top-news listing
package yahootw

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

const (
	DefaultBaseURL   = "https://tw.stock.yahoo.com"
	DefaultSelector  = `a[data-ylk*="t1:a1"]`
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Client implements HeadlineClient by parsing the portal home page
type Client struct {
	baseURL    string
	selector   string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the page URL; relative links resolve against it
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSelector sets the CSS selector matching headline anchors
func WithSelector(selector string) ClientOption {
	return func(c *Client) {
		if selector != "" {
			c.selector = selector
		}
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

// NewClient creates a new headline scraper
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		selector: DefaultSelector,
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

// FetchHeadlines returns up to limit headlines in document order.
// Anchors without a title or href are skipped.
func (c *Client) FetchHeadlines(ctx context.Context, limit int) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("url", base.String()).Dur("elapsed", elapsed).Msg("Headline page request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Headline page non-OK response")
		return nil, fmt.Errorf("headline page error: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse headline page: %w", err)
	}

	items := extractHeadlines(doc, c.selector, base, limit)

	c.logger.Info().Int("count", len(items)).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Headline page scraped")
	return items, nil
}

func extractHeadlines(doc *goquery.Document, selector string, base *url.URL, limit int) []models.NewsItem {
	items := make([]models.NewsItem, 0, limit)

	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(items) >= limit {
			return false
		}

		title := strings.Join(strings.Fields(s.Text()), " ")
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || !ok || href == "" {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		item := models.NewsItem{
			Title:  title,
			Link:   base.ResolveReference(ref).String(),
			Source: models.SourceYahooTW,
		}
		applyDateLabel(&item, s)

		items = append(items, item)
		return true
	})

	return items
}

// applyDateLabel looks for a time element inside the anchor or its
// enclosing list item. An unparseable label is kept verbatim.
func applyDateLabel(item *models.NewsItem, s *goquery.Selection) {
	t := s.Find("time").First()
	if t.Length() == 0 {
		t = s.Closest("li, article, div").Find("time").First()
	}
	if t.Length() == 0 {
		return
	}

	label := strings.TrimSpace(t.AttrOr("datetime", ""))
	if label == "" {
		label = strings.TrimSpace(t.Text())
	}
	if label == "" {
		return
	}

	if ts, err := time.Parse(time.RFC3339, label); err == nil {
		item.PublishedAt = &ts
		return
	}
	item.PublishedLabel = label
}

// Ensure Client implements HeadlineClient
var _ interfaces.HeadlineClient = (*Client)(nil)
