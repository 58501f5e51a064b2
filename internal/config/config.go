package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/joho/godotenv"

	"github.com/kovalyov-valentin/news-radar/internal/model"
	"github.com/kovalyov-valentin/news-radar/internal/scoring"
)

// Файлы конфигурации в hcl, переменные окружения с префиксом NR_
type Config struct {
	LogLevel  string `hcl:"log_level" env:"LOG_LEVEL" default:"info"`
	LogPretty bool   `hcl:"log_pretty" env:"LOG_PRETTY" default:"false"`

	RunInterval time.Duration `hcl:"run_interval" env:"RUN_INTERVAL" default:"15m"`
	SourcesFile string        `hcl:"sources_file" env:"SOURCES_FILE" default:"./sources.yaml"`
	// Для источников, у которых в файле не задан свой интервал
	DefaultMinInterval  time.Duration `hcl:"default_min_interval" env:"DEFAULT_MIN_INTERVAL" default:"60s"`
	DefaultFetchTimeout time.Duration `hcl:"default_fetch_timeout" env:"DEFAULT_FETCH_TIMEOUT" default:"10s"`
	FetchBodies         bool          `hcl:"fetch_bodies" env:"FETCH_BODIES" default:"false"`

	Filter   Filter   `hcl:"filter" env:"FILTER"`
	Selector Selector `hcl:"selector" env:"SELECTOR"`
	Weights  Weights  `hcl:"weights" env:"WEIGHTS"`
	Cache    Cache    `hcl:"cache" env:"CACHE"`
	Enrich   Enrich   `hcl:"enrich" env:"ENRICH"`

	MaxEvents int `hcl:"max_events" env:"MAX_EVENTS" default:"15"`

	OpenAIKey     string `hcl:"openai_key" env:"OPENAI_KEY"`
	OpenAIBaseURL string `hcl:"openai_base_url" env:"OPENAI_BASE_URL"`
	OpenAIModel   string `hcl:"openai_model" env:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	GeminiKey     string `hcl:"gemini_key" env:"GEMINI_KEY"`
	GeminiModel   string `hcl:"gemini_model" env:"GEMINI_MODEL" default:"gemini-1.5-flash"`

	DatabaseDSN string `hcl:"database_dsn" env:"DATABASE_DSN"`

	TelegramBotToken  string  `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChannelID int64   `hcl:"telegram_channel_id" env:"TELEGRAM_CHANNEL_ID"`
	TelegramTopN      int     `hcl:"telegram_top_n" env:"TELEGRAM_TOP_N" default:"3"`
	TelegramMinHot    float64 `hcl:"telegram_min_hotness" env:"TELEGRAM_MIN_HOTNESS" default:"0.4"`

	HTTPAddr   string `hcl:"http_addr" env:"HTTP_ADDR" default:":8080"`
	OutputFile string `hcl:"output_file" env:"OUTPUT_FILE" default:"./radar_output.json"`
}

type Filter struct {
	MinTitle         int      `hcl:"min_title" env:"MIN_TITLE" default:"15"`
	MaxTitle         int      `hcl:"max_title" env:"MAX_TITLE" default:"200"`
	MinBody          int      `hcl:"min_body" env:"MIN_BODY" default:"20"`
	MaxItems         int      `hcl:"max_items" env:"MAX_ITEMS" default:"20"`
	ExcludeKeywords  []string `hcl:"exclude_keywords" env:"EXCLUDE_KEYWORDS"`
	PriorityKeywords []string `hcl:"priority_keywords" env:"PRIORITY_KEYWORDS"`
	MarkPriority     bool     `hcl:"mark_priority" env:"MARK_PRIORITY" default:"true"`
	SortByPriority   bool     `hcl:"sort_by_priority" env:"SORT_BY_PRIORITY" default:"true"`
}

type Selector struct {
	TargetCount  int     `hcl:"target_count" env:"TARGET_COUNT" default:"10"`
	MinCount     int     `hcl:"min_count" env:"MIN_COUNT" default:"5"`
	MinThreshold float64 `hcl:"min_threshold" env:"MIN_THRESHOLD" default:"0.05"`
	MaxThreshold float64 `hcl:"max_threshold" env:"MAX_THRESHOLD" default:"0.8"`
}

type Weights struct {
	Unexpectedness float64 `hcl:"unexpectedness" env:"UNEXPECTEDNESS" default:"0.3"`
	Materiality    float64 `hcl:"materiality" env:"MATERIALITY" default:"0.25"`
	Velocity       float64 `hcl:"velocity" env:"VELOCITY" default:"0.2"`
	Breadth        float64 `hcl:"breadth" env:"BREADTH" default:"0.15"`
	SourceTrust    float64 `hcl:"source_trust" env:"SOURCE_TRUST" default:"0.1"`
}

func (w Weights) Scoring() scoring.Weights {
	return scoring.Weights{
		Unexpectedness: w.Unexpectedness,
		Materiality:    w.Materiality,
		Velocity:       w.Velocity,
		Breadth:        w.Breadth,
		SourceTrust:    w.SourceTrust,
	}
}

type Cache struct {
	// memory, file или postgres
	Backend string        `hcl:"backend" env:"BACKEND" default:"memory"`
	TTL     time.Duration `hcl:"ttl" env:"TTL" default:"24h"`
	Dir     string        `hcl:"dir" env:"DIR" default:"./.cache"`
}

type Enrich struct {
	Concurrency int           `hcl:"concurrency" env:"CONCURRENCY" default:"4"`
	CallTimeout time.Duration `hcl:"call_timeout" env:"CALL_TIMEOUT" default:"30s"`
	// rules, openai или gemini
	LLMProvider string `hcl:"llm_provider" env:"LLM_PROVIDER" default:"rules"`
	// Запросов к LLM в минуту, 0 без ограничения
	LLMRPM int `hcl:"llm_rpm" env:"LLM_RPM" default:"0"`
}

const (
	ProviderRules  = "rules"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	CacheMemory   = "memory"
	CacheFile     = "file"
	CachePostgres = "postgres"
)

var DefaultFiles = []string{"./config.hcl", "./config.local.hcl"}

// Load читает .env, затем файлы и переменные окружения. Переменные окружения важнее файлов
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NR",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

var (
	cfg     Config
	loadErr error
	once    sync.Once
)

// Get загружает конфиг один раз за процесс из файлов по умолчанию
func Get() (Config, error) {
	once.Do(func() {
		cfg, loadErr = Load(DefaultFiles...)
	})
	return cfg, loadErr
}

// Validate проверяет то, без чего запуск не имеет смысла
func (c Config) Validate() error {
	var errs []error

	if err := c.Weights.Scoring().Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.SourcesFile == "" && c.DatabaseDSN == "" {
		errs = append(errs, model.ErrNoSources)
	}

	if c.RunInterval <= 0 {
		errs = append(errs, errors.New("run_interval must be positive"))
	}

	if c.Selector.MinThreshold < 0 || c.Selector.MaxThreshold > 1 || c.Selector.MinThreshold > c.Selector.MaxThreshold {
		errs = append(errs, errors.New("selector thresholds must satisfy 0 <= min_threshold <= max_threshold <= 1"))
	}

	switch c.Enrich.LLMProvider {
	case ProviderRules:
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			errs = append(errs, errors.New("openai_key is required for llm_provider openai"))
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini_key is required for llm_provider gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm_provider %q", c.Enrich.LLMProvider))
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheFile:
	case CachePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database_dsn is required for postgres cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	if c.TelegramBotToken != "" && c.TelegramChannelID == 0 {
		errs = append(errs, errors.New("telegram_channel_id is required when telegram_bot_token is set"))
	}

	return errors.Join(errs...)
}
