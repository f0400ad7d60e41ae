package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Request  RequestConfig  `yaml:"request"`
	Limits   map[string]int `yaml:"limits"`
	Batch    BatchConfig    `yaml:"batch"`
	Resolver ResolverConfig `yaml:"resolver"`
	Sources  SourcesConfig  `yaml:"sources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Ring     int         `yaml:"ring"` // records kept for /api/log
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds the optional shared fast tier / counter store.
// An empty Addr keeps everything in-process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// BatchConfig holds chunked-processing settings for enrichment runs.
type BatchConfig struct {
	Size  int      `yaml:"size"`
	Delay Duration `yaml:"delay"`
}

// ResolverConfig holds settings for the hierarchical image resolver.
type ResolverConfig struct {
	Target      int      `yaml:"target"`
	MaxPerLevel int      `yaml:"max_per_level"`
	MinPerLevel int      `yaml:"min_per_level"`
	MicroTTL    Duration `yaml:"micro_ttl"`
	GlobalTerm  string   `yaml:"global_term"`
}

// SourcesConfig holds per-upstream settings.
type SourcesConfig struct {
	Brave     BraveConfig     `yaml:"brave"`
	Flickr    FlickrConfig    `yaml:"flickr"`
	Wikimedia WikimediaConfig `yaml:"wikimedia"`
	GeoNames  GeoNamesConfig  `yaml:"geonames"`
	Nominatim NominatimConfig `yaml:"nominatim"`
	Gemini    LLMConfig       `yaml:"gemini"`
}

// BraveConfig holds settings for the primary image search backend.
type BraveConfig struct {
	Endpoint string `yaml:"endpoint"`
	Key      string `yaml:"key"`
}

// FlickrConfig holds settings for the photo directory backend.
type FlickrConfig struct {
	Endpoint string `yaml:"endpoint"`
	Key      string `yaml:"key"`
}

// WikimediaConfig holds settings for the community fallback backend.
type WikimediaConfig struct {
	Endpoint string `yaml:"endpoint"`
	Language string `yaml:"language"`
}

// GeoNamesConfig holds settings for the open geographic database.
type GeoNamesConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Username string   `yaml:"username"`
	Radius   Distance `yaml:"radius"`
	MaxRows  int      `yaml:"max_rows"`
}

// NominatimConfig holds settings for the geocoder.
type NominatimConfig struct {
	Endpoint string `yaml:"endpoint"`
	Email    string `yaml:"email"`
}

// LLMConfig holds settings for the AI backend.
type LLMConfig struct {
	Model string `yaml:"model"`
	Key   string `yaml:"key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:8432",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Ring: 500,
		},
		Database: DatabaseConfig{
			Path: "./data/fernweh.db",
		},
		Redis: RedisConfig{
			Addr: "",
			DB:   0,
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(20 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
		},
		Limits: map[string]int{},
		Batch: BatchConfig{
			Size:  3,
			Delay: Duration(1 * time.Second),
		},
		Resolver: ResolverConfig{
			Target:      20,
			MaxPerLevel: 5,
			MinPerLevel: 3,
			MicroTTL:    Duration(1 * time.Hour),
			GlobalTerm:  "travel landscape",
		},
		Sources: SourcesConfig{
			Brave: BraveConfig{
				Endpoint: "https://api.search.brave.com/res/v1/images/search",
			},
			Flickr: FlickrConfig{
				Endpoint: "https://api.flickr.com/services/rest",
			},
			Wikimedia: WikimediaConfig{
				Endpoint: "https://en.wikipedia.org/w/api.php",
				Language: "en",
			},
			GeoNames: GeoNamesConfig{
				Endpoint: "http://api.geonames.org",
				Radius:   Distance(5000),
				MaxRows:  30,
			},
			Nominatim: NominatimConfig{
				Endpoint: "https://nominatim.openstreetmap.org",
			},
			Gemini: LLMConfig{
				Model: "gemini-2.5-flash-lite",
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		cfg.applyEnv()

		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// If file does not exist, save defaults.
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty secret fields from the environment. The config file
// wins when both are set, so keys checked into YAML keep working.
func (c *Config) applyEnv() {
	if c.Sources.Brave.Key == "" {
		c.Sources.Brave.Key = os.Getenv("BRAVE_API_KEY")
	}
	if c.Sources.Flickr.Key == "" {
		c.Sources.Flickr.Key = os.Getenv("FLICKR_API_KEY")
	}
	if c.Sources.GeoNames.Username == "" {
		c.Sources.GeoNames.Username = os.Getenv("GEONAMES_USERNAME")
	}
	if c.Sources.Nominatim.Email == "" {
		c.Sources.Nominatim.Email = os.Getenv("NOMINATIM_EMAIL")
	}
	if c.Sources.Gemini.Key == "" {
		c.Sources.Gemini.Key = os.Getenv("GEMINI_API_KEY")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
}

func (c *Config) validate() error {
	if c.Batch.Size < 1 {
		return fmt.Errorf("batch.size must be >= 1, got %d", c.Batch.Size)
	}
	if c.Resolver.MaxPerLevel < 1 {
		return fmt.Errorf("resolver.max_per_level must be >= 1, got %d", c.Resolver.MaxPerLevel)
	}
	if c.Resolver.MinPerLevel > c.Resolver.MaxPerLevel {
		return fmt.Errorf("resolver.min_per_level (%d) must not exceed max_per_level (%d)",
			c.Resolver.MinPerLevel, c.Resolver.MaxPerLevel)
	}
	for service, limit := range c.Limits {
		if limit < 0 {
			return fmt.Errorf("limits.%s must be >= 0, got %d", service, limit)
		}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Fernweh Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us, ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), mi (miles)
# API keys may be left empty and supplied via .env / environment:
#   BRAVE_API_KEY, FLICKR_API_KEY, GEONAMES_USERNAME, GEMINI_API_KEY

`)
	data = append(header, data...)

	// Inject comments above keys that deserve them. Regex keeps the
	// indentation intact.
	reLimits := regexp.MustCompile(`(?m)^(limits:)`)
	data = reLimits.ReplaceAll(data, []byte("# Requests per hour per upstream service; omitted services use built-in defaults.\n${1}"))

	reMicro := regexp.MustCompile(`(?m)^(\s+)micro_ttl:`)
	data = reMicro.ReplaceAll(data, []byte("${1}# Short-lived per-level result cache, independent of the main TTL table.\n${1}micro_ttl:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
