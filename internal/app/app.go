package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/twpulse/internal/clients/cnyes"
	"github.com/bobmcallan/twpulse/internal/clients/yahoofinance"
	"github.com/bobmcallan/twpulse/internal/clients/yahootw"
	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/keywords"
	"github.com/bobmcallan/twpulse/internal/services/chart"
	"github.com/bobmcallan/twpulse/internal/services/dashboard"
	"github.com/bobmcallan/twpulse/internal/services/news"
	"github.com/bobmcallan/twpulse/internal/services/stock"
	"github.com/bobmcallan/twpulse/internal/storage"
	"github.com/bobmcallan/twpulse/internal/symbols"
)

// App holds all initialized clients and services.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	PlotStore        *storage.FileBlobStore
	Symbols          interfaces.SymbolDirectory
	NewsService      interfaces.NewsService
	KeywordExtractor interfaces.KeywordExtractor
	StockService     interfaces.StockService
	ChartRenderer    interfaces.ChartRenderer
	DashboardService interfaces.DashboardService
	StartupTime      time.Time

	scheduler       *Scheduler
	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and wires every client and service.
// configPath may be empty, in which case TWPULSE_CONFIG, then twpulse.toml
// next to the binary, then config/twpulse.toml are tried.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("TWPULSE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "twpulse.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/twpulse.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative plot and log paths to the binary directory
	if config.Plots.Dir != "" && !filepath.IsAbs(config.Plots.Dir) {
		config.Plots.Dir = filepath.Join(binDir, config.Plots.Dir)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	a, err := NewAppWithConfig(config, logger)
	if err != nil {
		return nil, err
	}
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// NewAppWithConfig wires the app from an already validated config
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	plotStore, err := storage.NewFileBlobStore(logger, &storage.FileBlobConfig{BasePath: config.Plots.Dir})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plot storage: %w", err)
	}

	names, err := symbols.NewDirectory(config.Stocks.SymbolsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbol names: %w", err)
	}

	segmenter, err := keywords.NewGseSegmenter(config.News.Dictionary, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword segmenter: %w", err)
	}

	// Initialize API clients
	cc := config.Clients
	headlineClient := yahootw.NewClient(
		yahootw.WithBaseURL(cc.YahooTW.BaseURL),
		yahootw.WithSelector(cc.YahooTW.Selector),
		yahootw.WithLogger(logger),
		yahootw.WithRateLimit(cc.YahooTW.RateLimit),
		yahootw.WithTimeout(cc.YahooTW.GetTimeout()),
	)
	cnyesClient := cnyes.NewClient(
		cnyes.WithBaseURL(cc.Cnyes.BaseURL),
		cnyes.WithLogger(logger),
		cnyes.WithRateLimit(cc.Cnyes.RateLimit),
		cnyes.WithTimeout(cc.Cnyes.GetTimeout()),
	)
	yahooClient := yahoofinance.NewClient(
		yahoofinance.WithChartBaseURL(cc.YahooFinance.ChartBaseURL),
		yahoofinance.WithNewsBaseURL(cc.YahooFinance.NewsBaseURL),
		yahoofinance.WithLogger(logger),
		yahoofinance.WithRateLimit(cc.YahooFinance.RateLimit),
		yahoofinance.WithTimeout(cc.YahooFinance.GetTimeout()),
	)

	// Initialize services
	newsService := news.NewService(headlineClient, cnyesClient, yahooClient, config.News, logger)
	extractor := keywords.NewExtractor(segmenter, logger)
	chartService := chart.NewService(plotStore, config.Plots, logger)
	stockService := stock.NewService(yahooClient, chartService, names, config, logger)
	dashboardService := dashboard.NewService(newsService, extractor, stockService, config, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		PlotStore:        plotStore,
		Symbols:          names,
		NewsService:      newsService,
		KeywordExtractor: extractor,
		StockService:     stockService,
		ChartRenderer:    chartService,
		DashboardService: dashboardService,
		StartupTime:      time.Now(),
	}, nil
}

// StartScheduler launches the watch-list refresh scheduler when enabled.
func (a *App) StartScheduler() error {
	if !a.Config.Scheduler.Enabled {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewScheduler(ctx, a.Config.Scheduler.RefreshCron, a.StockService, a.Config.Stocks.Watchlist, a.Logger)
	if err != nil {
		cancel()
		return err
	}
	a.scheduler = s
	a.schedulerCancel = cancel
	s.Start()
	return nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close plot storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler = nil
	}
	if a.PlotStore != nil {
		a.PlotStore.Close()
		a.PlotStore = nil
	}
}
