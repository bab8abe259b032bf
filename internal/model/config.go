package model

import "time"

// Config is the complete runtime configuration, assembled by the CLI from
// defaults, the config file, environment variables, and flags (in ascending
// precedence).
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http" yaml:"http"`
	Crawl      CrawlConfig      `mapstructure:"crawl" yaml:"crawl"`
	PDF        PDFConfig        `mapstructure:"pdf" yaml:"pdf"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Graph      GraphConfig      `mapstructure:"graph" yaml:"graph"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit" yaml:"rate_limit"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls the page-fetch and download clients
type HTTPConfig struct {
	Timeout      int    `mapstructure:"timeout" yaml:"timeout"`               // Request timeout in seconds
	UserAgent    string `mapstructure:"user_agent" yaml:"user_agent"`         // User-Agent header
	MaxBodyBytes int64  `mapstructure:"max_body_bytes" yaml:"max_body_bytes"` // Response size cap for HTML pages
	HTTPProxy    string `mapstructure:"http_proxy" yaml:"http_proxy"`         // Proxy URL (empty = HTTP_PROXY env)
	HTTPSProxy   string `mapstructure:"https_proxy" yaml:"https_proxy"`       // Proxy URL for https (empty = HTTPS_PROXY env)
	NoProxy      string `mapstructure:"no_proxy" yaml:"no_proxy"`             // Comma-separated hosts that bypass the proxy
}

// CrawlConfig controls the breadth-first crawl
type CrawlConfig struct {
	MaxDepth            int           `mapstructure:"max_depth" yaml:"max_depth"`                         // Number of levels to walk from the seeds
	MaxConcurrent       int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`               // Parallel page fetches per level
	MemoryThresholdPct  float64       `mapstructure:"memory_threshold_pct" yaml:"memory_threshold_pct"`   // Pause new fetches above this system memory usage
	MemoryCheckInterval time.Duration `mapstructure:"memory_check_interval" yaml:"memory_check_interval"` // Recheck cadence while paused
	RespectRobots       bool          `mapstructure:"respect_robots" yaml:"respect_robots"`               // Honor robots.txt disallow rules
}

// PDFConfig controls PDF download and text extraction
type PDFConfig struct {
	StoreDir string `mapstructure:"store_dir" yaml:"store_dir"` // Directory for downloaded PDFs
	Timeout  int    `mapstructure:"timeout" yaml:"timeout"`     // Download timeout in seconds
	Workers  int    `mapstructure:"workers" yaml:"workers"`     // Concurrent downloads (1 = sequential)
}

// PreprocessConfig controls markdown cleaning and chunk packing
type PreprocessConfig struct {
	TargetTokens    int  `mapstructure:"target_tokens" yaml:"target_tokens"`       // Token budget per output chunk
	LegacyOvershoot bool `mapstructure:"legacy_overshoot" yaml:"legacy_overshoot"` // Close chunks at-or-over budget instead of strictly under
}

// ExtractionConfig controls document splitting and LLM fan-out
type ExtractionConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" yaml:"chunk_size"`       // Tokens per extraction chunk
	ChunkOverlap int `mapstructure:"chunk_overlap" yaml:"chunk_overlap"` // Token overlap between consecutive chunks
	Concurrency  int `mapstructure:"concurrency" yaml:"concurrency"`     // Parallel LLM calls per document
}

// GraphConfig holds graph database connection settings.
// URI, username and password have no defaults: they come from the
// environment (NEO4J_URI, NEO4J_USERNAME, NEO4J_PASSWORD) or the config
// file, and commands that touch the graph fail fast when unset.
type GraphConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"` // Empty selects the server default
}

// LLMConfig holds model client settings. Kept separate from the llm
// package's own Config to avoid an import cycle; the CLI maps between them.
type LLMConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`       // openai, anthropic, ollama
	Model      string `mapstructure:"model" yaml:"model"`             // Model name
	APIKey     string `mapstructure:"api_key" yaml:"-"`               // Never serialized
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`       // Override for OpenAI-compatible endpoints
	Timeout    int    `mapstructure:"timeout" yaml:"timeout"`         // Per-call timeout in seconds
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"` // Bounded retry on transient failures
	MaxTokens  int    `mapstructure:"max_tokens" yaml:"max_tokens"`   // Response token cap (0 = provider default)
}

// CacheConfig controls the fetch-result cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"` // Off by default: crawls bypass the cache
	Dir     string        `mapstructure:"dir" yaml:"dir"`         // Disk layer location
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`         // Entry lifetime
}

// RateLimitConfig controls per-host request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// OutputConfig controls CLI verbosity
type OutputConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the standard configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30,
			UserAgent:    "graphloom/1.0 (+https://github.com/graphloom/graphloom)",
			MaxBodyBytes: 10 * 1024 * 1024,
		},
		Crawl: CrawlConfig{
			MaxDepth:            3,
			MaxConcurrent:       10,
			MemoryThresholdPct:  70.0,
			MemoryCheckInterval: time.Second,
			RespectRobots:       true,
		},
		PDF: PDFConfig{
			StoreDir: "downloaded_pdfs",
			Timeout:  30,
			Workers:  1,
		},
		Preprocess: PreprocessConfig{
			TargetTokens: 512,
		},
		Extraction: ExtractionConfig{
			ChunkSize:    2000,
			ChunkOverlap: 200,
			Concurrency:  8,
		},
		LLM: LLMConfig{
			Provider:   "openai",
			Timeout:    120,
			MaxRetries: 2,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".graphloom-cache",
			TTL:     24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Output: OutputConfig{},
	}
}
