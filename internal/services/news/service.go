// Package news provides headline and keyword news lookup with source fallback
package news

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

// Service implements NewsService with a primary keyword search and an
// optional fallback used when the primary yields nothing.
type Service struct {
	headlines     interfaces.HeadlineClient
	primary       interfaces.NewsSearchClient
	fallback      interfaces.NewsSearchClient
	headlineLimit int
	keywordLimit  int
	logger        *common.Logger
}

// NewService creates a news service.
// fallback may be nil, in which case a primary miss returns empty.
func NewService(headlines interfaces.HeadlineClient, primary, fallback interfaces.NewsSearchClient, cfg common.NewsConfig, logger *common.Logger) *Service {
	return &Service{
		headlines:     headlines,
		primary:       primary,
		fallback:      fallback,
		headlineLimit: cfg.HeadlineLimit,
		keywordLimit:  cfg.CorrelatedLimit,
		logger:        logger,
	}
}

// FetchHeadlines returns the current top headlines. On failure the slice
// is empty and the error describes why.
func (s *Service) FetchHeadlines(ctx context.Context) ([]models.NewsItem, error) {
	items, err := s.headlines.FetchHeadlines(ctx, s.headlineLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Headline fetch failed")
		return []models.NewsItem{}, fmt.Errorf("headlines: %w", err)
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	if len(items) > s.headlineLimit {
		items = items[:s.headlineLimit]
	}
	return items, nil
}

// FetchByKeyword returns up to the configured number of items for term,
// trying the primary source then the fallback. The slice is always usable;
// the error joins whatever went wrong along the way.
func (s *Service) FetchByKeyword(ctx context.Context, term string) ([]models.NewsItem, error) {
	items, primaryErr := s.search(ctx, s.primary, term)
	if len(items) > 0 {
		return items, nil
	}

	if s.fallback == nil {
		return []models.NewsItem{}, primaryErr
	}

	s.logger.Info().
		Str("term", term).
		Str("primary", s.primary.Name()).
		Str("fallback", s.fallback.Name()).
		Bool("primary_failed", primaryErr != nil).
		Msg("Attempting fallback news search")

	items, fallbackErr := s.search(ctx, s.fallback, term)
	if len(items) > 0 {
		return items, nil
	}
	return []models.NewsItem{}, errors.Join(primaryErr, fallbackErr)
}

func (s *Service) search(ctx context.Context, client interfaces.NewsSearchClient, term string) ([]models.NewsItem, error) {
	items, err := client.SearchNews(ctx, term, s.keywordLimit)
	if err != nil {
		s.logger.Warn().Err(err).Str("term", term).Str("source", client.Name()).Msg("News search failed")
		return nil, fmt.Errorf("%s search %q: %w", client.Name(), term, err)
	}

	usable := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if it.Title == "" || it.Link == "" {
			continue
		}
		usable = append(usable, it)
		if len(usable) == s.keywordLimit {
			break
		}
	}
	return usable, nil
}

// Ensure Service implements NewsService
var _ interfaces.NewsService = (*Service)(nil)
