// Package dashboard assembles the aggregated view for one page render
package dashboard

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

// Service implements DashboardService
type Service struct {
	news        interfaces.NewsService
	keywords    interfaces.KeywordExtractor
	stocks      interfaces.StockService
	watchlist   []string
	topKeywords int
	correlated  int
	concurrency int
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing
}

// NewService creates the orchestrator
func NewService(news interfaces.NewsService, keywords interfaces.KeywordExtractor, stocks interfaces.StockService, cfg *common.Config, logger *common.Logger) *Service {
	return &Service{
		news:        news,
		keywords:    keywords,
		stocks:      stocks,
		watchlist:   append([]string(nil), cfg.Stocks.Watchlist...),
		topKeywords: cfg.News.TopKeywords,
		correlated:  cfg.News.CorrelatedKeywords,
		concurrency: cfg.Dashboard.Concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// degradedSet collects leg names from concurrent goroutines
type degradedSet struct {
	mu   sync.Mutex
	legs []string
}

func (d *degradedSet) add(leg string) {
	d.mu.Lock()
	d.legs = append(d.legs, leg)
	d.mu.Unlock()
}

func (d *degradedSet) sorted() []string {
	sort.Strings(d.legs)
	return d.legs
}

// BuildDashboard runs the headline, requested-symbol and watch-list legs
// concurrently. Every leg degrades to empty on failure; the result is
// always complete.
func (s *Service) BuildDashboard(ctx context.Context, requestedSymbol string) *models.AggregatedResult {
	start := time.Now()
	requestedSymbol = strings.TrimSpace(requestedSymbol)

	result := &models.AggregatedResult{
		News:            []models.NewsItem{},
		Keywords:        []models.KeywordRank{},
		KeywordNews:     []models.KeywordNews{},
		RequestedSymbol: requestedSymbol,
		Watchlist:       []*models.StockAnalysis{},
	}
	degraded := &degradedSet{}

	var g errgroup.Group

	g.Go(func() error {
		s.buildNews(ctx, result, degraded)
		return nil
	})

	if requestedSymbol != "" {
		g.Go(func() error {
			analysis, err := s.stocks.Analyze(ctx, requestedSymbol)
			if err != nil {
				if !errors.Is(err, models.ErrSymbolNotFound) {
					s.logger.Warn().Err(err).Str("symbol", requestedSymbol).Msg("Requested symbol analysis failed")
					degraded.add(models.LegSymbol)
				}
				result.ErrorMessage = models.SymbolNotFoundMessage(requestedSymbol)
				return nil
			}
			result.Stock = analysis
			return nil
		})
	}

	g.Go(func() error {
		if analyses := s.stocks.AnalyzeWatchlist(ctx, s.watchlist); len(analyses) > 0 {
			result.Watchlist = analyses
		} else if len(s.watchlist) > 0 {
			degraded.add(models.LegWatchlist)
		}
		return nil
	})

	_ = g.Wait()

	result.Degraded = degraded.sorted()
	result.GeneratedAt = s.now()

	s.logger.Info().
		Str("symbol", requestedSymbol).
		Int("headlines", len(result.News)).
		Int("keywords", len(result.Keywords)).
		Int("watchlist", len(result.Watchlist)).
		Strs("degraded", result.Degraded).
		Dur("elapsed", time.Since(start)).
		Msg("Dashboard built")

	return result
}

// buildNews fetches headlines, ranks keywords and looks up correlated news
// for the leading terms. Keyword lookups are independent and keep rank order.
func (s *Service) buildNews(ctx context.Context, result *models.AggregatedResult, degraded *degradedSet) {
	headlines, err := s.news.FetchHeadlines(ctx)
	if err != nil {
		degraded.add(models.LegHeadlines)
	}
	if len(headlines) == 0 {
		return
	}
	result.News = headlines

	if ranks := s.keywords.ExtractKeywords(headlines, s.topKeywords); ranks != nil {
		result.Keywords = ranks
	}

	terms := result.Keywords
	if len(terms) > s.correlated {
		terms = terms[:s.correlated]
	}

	slots := make([]models.KeywordNews, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, kw := range terms {
		i, term := i, kw.Term
		g.Go(func() error {
			items, err := s.news.FetchByKeyword(gctx, term)
			if err != nil {
				degraded.add(models.LegKeyword + ":" + term)
			}
			if items == nil {
				items = []models.NewsItem{}
			}
			slots[i] = models.KeywordNews{Term: term, Items: items}
			return nil
		})
	}
	_ = g.Wait()

	result.KeywordNews = slots
}

// Ensure Service implements DashboardService
var _ interfaces.DashboardService = (*Service)(nil)
