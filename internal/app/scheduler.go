package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/twpulse/internal/clients/yahoofinance"
	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
)

// refreshTimeout bounds one watch-list refresh run
const refreshTimeout = 2 * time.Minute

// Scheduler re-analyzes the watch-list on a cron spec so plot artifacts
// stay current without a page view.
type Scheduler struct {
	cron      *cron.Cron
	stocks    interfaces.StockService
	watchlist []string
	logger    *common.Logger
	ctx       context.Context
}

// NewScheduler registers the refresh task. spec uses six fields (seconds
// first) and is evaluated in exchange time.
func NewScheduler(ctx context.Context, spec string, stocks interfaces.StockService, watchlist []string, logger *common.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(yahoofinance.Taipei)),
		stocks:    stocks,
		watchlist: append([]string(nil), watchlist...),
		logger:    logger,
		ctx:       ctx,
	}
	if _, err := s.cron.AddFunc(spec, s.RefreshNow); err != nil {
		return nil, fmt.Errorf("register watch-list refresh %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("symbols", len(s.watchlist)).Msg("Watch-list refresh scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Watch-list refresh scheduler stopped")
}

// RefreshNow analyzes every watch-list symbol, re-rendering its plot
func (s *Scheduler) RefreshNow() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()

	results := s.stocks.AnalyzeWatchlist(ctx, s.watchlist)

	plotted := 0
	for _, r := range results {
		if r.HasPlot() {
			plotted++
		}
	}

	s.logger.Info().
		Int("symbols", len(s.watchlist)).
		Int("analyzed", len(results)).
		Int("plotted", plotted).
		Dur("elapsed", time.Since(start)).
		Msg("Watch-list refresh: complete")
}
