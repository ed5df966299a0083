package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Browser     BrowserConfig   `toml:"browser"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	Sinks       SinksConfig     `toml:"sinks"`
	Schedules   SchedulesConfig `toml:"schedules"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level         string   `toml:"level"`           // "debug", "info", "warn", "error"
	Format        string   `toml:"format"`          // "json" or "text"
	Output        []string `toml:"output"`          // "stdout", "file"
	TimeFormat    string   `toml:"time_format"`     // Time format for logs (default: "15:04:05.000")
	MinEventLevel string   `toml:"min_event_level"` // Minimum log level to publish as events ("debug", "info", "warn", "error")
}

// BrowserConfig contains headless Chrome configuration for page rendering
type BrowserConfig struct {
	PoolSize          int           `toml:"pool_size"`          // Number of concurrent browser contexts
	Headless          bool          `toml:"headless"`           // Run Chrome headless (default: true)
	UserAgent         string        `toml:"user_agent"`         // User agent string for all page loads
	WindowWidth       int           `toml:"window_width"`       // Viewport width in pixels
	WindowHeight      int           `toml:"window_height"`      // Viewport height in pixels
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Per-page navigation timeout
	SettleWait        time.Duration `toml:"settle_wait"`        // Time to wait for JavaScript to render after navigation
}

// CrawlerConfig contains same-origin crawl configuration
type CrawlerConfig struct {
	MaxDepth     int           `toml:"max_depth"`     // Maximum link depth from the seed URL
	MaxPages     int           `toml:"max_pages"`     // Hard cap on pages rendered per analysis
	RequestDelay time.Duration `toml:"request_delay"` // Minimum delay between page loads on the same site
	MaxBodySize  int           `toml:"max_body_size"` // Maximum rendered HTML size in bytes
	SkipPatterns []string      `toml:"skip_patterns"` // URL path substrings to skip (e.g., "/cart", "/login")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for AI operations (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key for Claude operations
	Model       string  `toml:"model"`       // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Default provider: "gemini" or "claude" (default: "gemini")
	MaxContentChars int         `toml:"max_content_chars"` // Crawled content is truncated to this many characters before prompting (default: 15000)
	TemplatesDir    string      `toml:"templates_dir"`     // Directory of prompt template overrides (default: embedded templates only)
}

// AnalysisConfig contains analysis job lifecycle configuration
type AnalysisConfig struct {
	MaxConcurrent   int           `toml:"max_concurrent"`    // Maximum analyses running at once
	DefaultMaxDepth int           `toml:"default_max_depth"` // Crawl depth when a request omits max_depth
	Timeout         time.Duration `toml:"timeout"`           // Overall deadline for a single analysis
	RetentionTTL    time.Duration `toml:"retention_ttl"`     // Completed jobs older than this are swept
	SweepInterval   time.Duration `toml:"sweep_interval"`    // How often the retention sweep runs
}

// SinksConfig groups the result sink configurations.
// All sinks are optional; the store sink is always active.
type SinksConfig struct {
	Spreadsheet SpreadsheetSinkConfig `toml:"spreadsheet"`
	Webhook     WebhookSinkConfig     `toml:"webhook"`
	Email       EmailSinkConfig       `toml:"email"`
}

// SpreadsheetSinkConfig configures the XLSX export sink
type SpreadsheetSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // XLSX file path, appended to on each completed analysis
}

// WebhookSinkConfig configures the webhook delivery sink
type WebhookSinkConfig struct {
	Enabled bool          `toml:"enabled"`
	URL     string        `toml:"url"`     // POST target for completed analysis payloads
	Timeout time.Duration `toml:"timeout"` // Delivery timeout per attempt
	Secret  string        `toml:"secret"`  // Optional bearer token sent as Authorization header
}

// EmailSinkConfig configures the SMTP notification sink
type EmailSinkConfig struct {
	Enabled  bool     `toml:"enabled"`
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
	UseTLS   bool     `toml:"use_tls"`
}

// SchedulesConfig configures recurring analyses loaded from a YAML presets file
type SchedulesConfig struct {
	Enabled     bool   `toml:"enabled"`
	PresetsFile string `toml:"presets_file"` // YAML file with named schedule entries (default: "./schedules.yaml")
}

// WebSocketConfig contains configuration for WebSocket log and event streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
	// Whitelist of event types to broadcast via WebSocket. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"analysis_progress": "500ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in specto.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			Output:        []string{"stdout", "file"},
			MinEventLevel: "info",
		},
		Browser: BrowserConfig{
			PoolSize:          2,
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:       1920,
			WindowHeight:      1080,
			NavigationTimeout: 30 * time.Second,
			SettleWait:        3 * time.Second,
		},
		Crawler: CrawlerConfig{
			MaxDepth:     2,
			MaxPages:     10,
			RequestDelay: 1 * time.Second,
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			SkipPatterns: []string{"/cart", "/checkout", "/login", "/signin", "/wp-admin"},
		},
		Gemini: GeminiConfig{
			APIKey:      "", // User must provide API key (no fallback)
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			RateLimit:   "4s", // Default to 4s (15 RPM) for free tier
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxContentChars: 15000,
		},
		Analysis: AnalysisConfig{
			MaxConcurrent:   3,
			DefaultMaxDepth: 0,
			Timeout:         90 * time.Second,
			RetentionTTL:    1 * time.Hour,
			SweepInterval:   5 * time.Minute,
		},
		Sinks: SinksConfig{
			Spreadsheet: SpreadsheetSinkConfig{
				Enabled: false,
				Path:    "./data/analyses.xlsx",
			},
			Webhook: WebhookSinkConfig{
				Enabled: false,
				Timeout: 10 * time.Second,
			},
			Email: EmailSinkConfig{
				Enabled: false,
				Port:    587,
				UseTLS:  true,
			},
		},
		Schedules: SchedulesConfig{
			Enabled:     false,
			PresetsFile: "./schedules.yaml",
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
				"Publishing Event",
			},
			// Empty AllowedEvents allows all events
			AllowedEvents: []string{},
			// Throttle high-frequency events to prevent WebSocket flooding during crawls
			ThrottleIntervals: map[string]string{
				"analysis_progress": "500ms",
				"page_crawled":      "500ms",
			},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: SPECTO_ENV, fallback: GO_ENV)
	if env := os.Getenv("SPECTO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SPECTO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SPECTO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("SPECTO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SPECTO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SPECTO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SPECTO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if minEventLevel := os.Getenv("SPECTO_LOG_MIN_EVENT_LEVEL"); minEventLevel != "" {
		config.Logging.MinEventLevel = minEventLevel
	}

	// Browser configuration
	if poolSize := os.Getenv("SPECTO_BROWSER_POOL_SIZE"); poolSize != "" {
		if ps, err := strconv.Atoi(poolSize); err == nil {
			config.Browser.PoolSize = ps
		}
	}
	if headless := os.Getenv("SPECTO_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if userAgent := os.Getenv("SPECTO_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if navTimeout := os.Getenv("SPECTO_BROWSER_NAVIGATION_TIMEOUT"); navTimeout != "" {
		if nt, err := time.ParseDuration(navTimeout); err == nil {
			config.Browser.NavigationTimeout = nt
		}
	}
	if settleWait := os.Getenv("SPECTO_BROWSER_SETTLE_WAIT"); settleWait != "" {
		if sw, err := time.ParseDuration(settleWait); err == nil {
			config.Browser.SettleWait = sw
		}
	}

	// Crawler configuration
	if maxDepth := os.Getenv("SPECTO_CRAWLER_MAX_DEPTH"); maxDepth != "" {
		if md, err := strconv.Atoi(maxDepth); err == nil {
			config.Crawler.MaxDepth = md
		}
	}
	if maxPages := os.Getenv("SPECTO_CRAWLER_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Crawler.MaxPages = mp
		}
	}
	if requestDelay := os.Getenv("SPECTO_CRAWLER_REQUEST_DELAY"); requestDelay != "" {
		if rd, err := time.ParseDuration(requestDelay); err == nil {
			config.Crawler.RequestDelay = rd
		}
	}
	if maxBodySize := os.Getenv("SPECTO_CRAWLER_MAX_BODY_SIZE"); maxBodySize != "" {
		if mbs, err := strconv.Atoi(maxBodySize); err == nil {
			config.Crawler.MaxBodySize = mbs
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("SPECTO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SPECTO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if timeout := os.Getenv("SPECTO_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("SPECTO_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("SPECTO_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SPECTO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SPECTO_ prefix takes priority
	}
	if model := os.Getenv("SPECTO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("SPECTO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("SPECTO_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("SPECTO_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("SPECTO_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("SPECTO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if maxChars := os.Getenv("SPECTO_LLM_MAX_CONTENT_CHARS"); maxChars != "" {
		if mc, err := strconv.Atoi(maxChars); err == nil {
			config.LLM.MaxContentChars = mc
		}
	}
	if templatesDir := os.Getenv("SPECTO_LLM_TEMPLATES_DIR"); templatesDir != "" {
		config.LLM.TemplatesDir = templatesDir
	}

	// Analysis configuration
	if maxConcurrent := os.Getenv("SPECTO_ANALYSIS_MAX_CONCURRENT"); maxConcurrent != "" {
		if mc, err := strconv.Atoi(maxConcurrent); err == nil {
			config.Analysis.MaxConcurrent = mc
		}
	}
	if timeout := os.Getenv("SPECTO_ANALYSIS_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Analysis.Timeout = d
		}
	}
	if retention := os.Getenv("SPECTO_ANALYSIS_RETENTION_TTL"); retention != "" {
		if r, err := time.ParseDuration(retention); err == nil {
			config.Analysis.RetentionTTL = r
		}
	}

	// Sink configuration
	if path := os.Getenv("SPECTO_SPREADSHEET_PATH"); path != "" {
		config.Sinks.Spreadsheet.Enabled = true
		config.Sinks.Spreadsheet.Path = path
	}
	if url := os.Getenv("SPECTO_WEBHOOK_URL"); url != "" {
		config.Sinks.Webhook.Enabled = true
		config.Sinks.Webhook.URL = url
	}
	if secret := os.Getenv("SPECTO_WEBHOOK_SECRET"); secret != "" {
		config.Sinks.Webhook.Secret = secret
	}

	// Schedules configuration
	if presetsFile := os.Getenv("SPECTO_SCHEDULES_FILE"); presetsFile != "" {
		config.Schedules.Enabled = true
		config.Schedules.PresetsFile = presetsFile
	}

	// WebSocket configuration
	if minLevel := os.Getenv("SPECTO_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateSchedule validates a cron schedule expression.
// Accepts standard 5-field cron expressions and @every duration syntax.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	return nil
}

// IsProduction returns true when the environment is configured for production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
