package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kovalyov-valentin/news-radar/internal/article"
	"github.com/kovalyov-valentin/news-radar/internal/bot"
	"github.com/kovalyov-valentin/news-radar/internal/bot/middleware"
	"github.com/kovalyov-valentin/news-radar/internal/botkit"
	"github.com/kovalyov-valentin/news-radar/internal/cache"
	"github.com/kovalyov-valentin/news-radar/internal/config"
	"github.com/kovalyov-valentin/news-radar/internal/dedup"
	"github.com/kovalyov-valentin/news-radar/internal/enricher"
	"github.com/kovalyov-valentin/news-radar/internal/entities"
	"github.com/kovalyov-valentin/news-radar/internal/export"
	"github.com/kovalyov-valentin/news-radar/internal/fetcher"
	"github.com/kovalyov-valentin/news-radar/internal/governor"
	"github.com/kovalyov-valentin/news-radar/internal/logger"
	"github.com/kovalyov-valentin/news-radar/internal/normalize"
	"github.com/kovalyov-valentin/news-radar/internal/notifier"
	"github.com/kovalyov-valentin/news-radar/internal/pipeline"
	"github.com/kovalyov-valentin/news-radar/internal/scoring"
	"github.com/kovalyov-valentin/news-radar/internal/selector"
	"github.com/kovalyov-valentin/news-radar/internal/storage"
	"github.com/kovalyov-valentin/news-radar/internal/summary"
	transporthttp "github.com/kovalyov-valentin/news-radar/internal/transport/http"
)

func main() {
	once := flag.Bool("once", false, "run a single radar cycle and exit")
	flag.Parse()

	cfg, err := config.Get()
	if err != nil {
		fallbackLog := logger.New("error", true)
		fallbackLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log, *once); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("radar stopped")
	}

	log.Info().Msg("radar stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, once bool) error {
	// База необязательна: без нее источники только из файла, прогоны только в JSON
	var db *sqlx.DB
	if cfg.DatabaseDSN != "" {
		var err error
		db, err = sqlx.Connect("postgres", cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	sources, sourceStorage, err := buildSources(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	responseCache, err := buildCache(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	knownSources, err := sources.Sources(ctx)
	if err != nil {
		return err
	}

	var (
		gov = governor.New(
			config.Intervals(knownSources),
			governor.WithDefaultInterval(cfg.DefaultMinInterval),
		)
		newsFetcher = fetcher.NewFetcher(
			sources,
			normalize.New(normalizeConfig(cfg), logger.For(log, "normalize")),
			gov,
			logger.For(log, "fetcher"),
			fetcher.WithCache(responseCache),
			fetcher.WithDefaultTimeout(cfg.DefaultFetchTimeout),
		)
	)

	generator, closeGenerator, err := buildGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGenerator()

	cached := summary.NewCached(
		generator,
		responseCache,
		summary.WithRateLimit(cfg.Enrich.LLMRPM),
		summary.WithCallTimeout(cfg.Enrich.CallTimeout),
	)

	scorer, err := scoring.NewScorer(cfg.Weights.Scoring())
	if err != nil {
		return err
	}

	services := pipeline.Services{
		Fetcher: newsFetcher,
		Marker:  dedup.NewMarker(dedup.DefaultThreshold),
		Scorer:  scorer,
		Enricher: enricher.New(
			entities.NewRuleExtractor(),
			cached,
			logger.For(log, "enricher"),
			enricher.WithConcurrency(cfg.Enrich.Concurrency),
			enricher.WithCallTimeout(cfg.Enrich.CallTimeout),
		),
		Calls: cached,
	}
	if cfg.FetchBodies {
		services.Bodies = article.NewExtractor(nil, logger.For(log, "article"))
	}

	radar := pipeline.New(services, pipeline.Config{
		Selector: selector.Config{
			TargetCount:  cfg.Selector.TargetCount,
			MinCount:     cfg.Selector.MinCount,
			MinThreshold: cfg.Selector.MinThreshold,
			MaxThreshold: cfg.Selector.MaxThreshold,
		},
		MaxEvents: cfg.MaxEvents,
	}, logger.For(log, "pipeline"))

	sinks := []pipeline.Sink{export.NewJSONFile(cfg.OutputFile)}

	var runStorage *storage.RunPostgresStorage
	if db != nil {
		runStorage = storage.NewRunPostgresStorage(db)
		if err := runStorage.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, runStorage)
	}

	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return err
		}
		sinks = append(sinks, notifier.New(botAPI, notifier.Config{
			ChannelID:  cfg.TelegramChannelID,
			TopN:       cfg.TelegramTopN,
			MinHotness: cfg.TelegramMinHot,
		}, logger.For(log, "notifier")))
	}

	runner := pipeline.NewRunner(radar, cfg.RunInterval, logger.For(log, "runner"), sinks...)

	if once {
		_, err := runner.RunOnce(ctx)
		return err
	}

	seedLatest(ctx, runner, runStorage, cfg.OutputFile, log)

	g, ctx := errgroup.WithContext(ctx)

	// Воркер радара
	g.Go(func() error {
		return runner.Start(ctx)
	})

	g.Go(func() error {
		return transporthttp.NewServer(cfg.HTTPAddr, runner, sources, logger.For(log, "http")).Start(ctx)
	})

	if botAPI != nil {
		newsBot := botkit.New(botAPI, logger.For(log, "bot"))
		newsBot.RegisterCmdView("start", bot.ViewCmdStart())
		newsBot.RegisterCmdView("top", bot.ViewCmdTop(runner))
		newsBot.RegisterCmdView("listsources", bot.ViewCmdListSources(sources))
		if sourceStorage != nil {
			newsBot.RegisterCmdView(
				"addsource",
				middleware.AdminOnly(cfg.TelegramChannelID, bot.ViewCmdAddSource(sourceStorage)),
			)
		}

		g.Go(func() error {
			return newsBot.Run(ctx)
		})
	}

	return g.Wait()
}

// Источники из файла плюс источники, добавленные через бота
func buildSources(ctx context.Context, cfg config.Config, db *sqlx.DB, log zerolog.Logger) (storage.Combined, *storage.SourcePostgresStorage, error) {
	var providers storage.Combined

	if cfg.SourcesFile != "" {
		fromFile, err := config.LoadSources(cfg.SourcesFile, cfg)
		switch {
		case err == nil:
			providers = append(providers, storage.StaticSources(fromFile))
			log.Info().Int("sources", len(fromFile)).Str("file", cfg.SourcesFile).Msg("sources loaded")
		case errors.Is(err, os.ErrNotExist) && db != nil:
			log.Warn().Str("file", cfg.SourcesFile).Msg("sources file not found, using database only")
		default:
			return nil, nil, err
		}
	}

	if db == nil {
		return providers, nil, nil
	}

	sourceStorage := storage.NewSourcePostgresStorage(db)
	if err := sourceStorage.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	return append(providers, sourceStorage), sourceStorage, nil
}

func buildCache(ctx context.Context, cfg config.Config, db *sqlx.DB, log zerolog.Logger) (*cache.Cache, error) {
	var backend cache.Backend

	switch cfg.Cache.Backend {
	case config.CacheFile:
		fileCache, err := cache.NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		backend = fileCache
	case config.CachePostgres:
		pgCache := cache.NewPostgresCache(db, cfg.Cache.TTL)
		if err := pgCache.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		backend = pgCache
	default:
		memCache := cache.NewMemoryCache(cfg.Cache.TTL)
		go memCache.StartJanitor(ctx, time.Hour)
		backend = memCache
	}

	return cache.New(backend, logger.For(log, "cache")), nil
}

func buildGenerator(ctx context.Context, cfg config.Config, log zerolog.Logger) (summary.Generator, func(), error) {
	switch cfg.Enrich.LLMProvider {
	case config.ProviderOpenAI:
		return summary.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger.For(log, "openai")), func() {}, nil
	case config.ProviderGemini:
		gemini, err := summary.NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return gemini, func() { _ = gemini.Close() }, nil
	default:
		return summary.DefaultRuleTable(), func() {}, nil
	}
}

func normalizeConfig(cfg config.Config) normalize.Config {
	nc := normalize.DefaultConfig()
	nc.MinTitleLength = cfg.Filter.MinTitle
	nc.MaxTitleLength = cfg.Filter.MaxTitle
	nc.MinBodyLength = cfg.Filter.MinBody
	nc.MaxItemsPerSource = cfg.Filter.MaxItems
	nc.MarkPriority = cfg.Filter.MarkPriority
	nc.SortByPriority = cfg.Filter.SortByPriority
	if len(cfg.Filter.ExcludeKeywords) > 0 {
		nc.ExcludeKeywords = cfg.Filter.ExcludeKeywords
	}
	if len(cfg.Filter.PriorityKeywords) > 0 {
		nc.PriorityKeywords = cfg.Filter.PriorityKeywords
	}
	return nc
}

// После рестарта отдаем прошлый радар, пока не закончился первый прогон
func seedLatest(ctx context.Context, runner *pipeline.Runner, runs *storage.RunPostgresStorage, outputFile string, log zerolog.Logger) {
	if runs != nil {
		if out, err := runs.Latest(ctx); err == nil {
			runner.Seed(out)
			return
		}
	}

	out, err := export.ReadJSONFile(outputFile)
	if err != nil {
		log.Debug().Err(err).Msg("no previous radar output")
		return
	}
	runner.Seed(out)
}
