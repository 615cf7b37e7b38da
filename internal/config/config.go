package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Matchmaker/internal/geo"
	"github.com/MikeSquared-Agency/Matchmaker/internal/matching"
	"github.com/MikeSquared-Agency/Matchmaker/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Redis    RedisConfig    `yaml:"redis"`
	Matching MatchingConfig `yaml:"matching"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`

	// SeedFile feeds the in-memory store when no database URL is set.
	SeedFile string `yaml:"seed_file"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RequestTimeoutMs   int    `yaml:"request_timeout_ms"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MatchingConfig struct {
	Weights           WeightsConfig             `yaml:"weights"`
	CapabilityWeights scoring.CapabilityWeights `yaml:"capability_weights"`

	FuzzyThreshold    int     `yaml:"fuzzy_threshold"`
	MinMatchScore     float64 `yaml:"min_match_score"`
	FallbackMinScore  float64 `yaml:"fallback_min_score"`
	MaxDistanceKm     float64 `yaml:"max_distance_km"`
	LocalRadiusKm     float64 `yaml:"local_radius_km"`
	DefaultMaxResults int     `yaml:"default_max_results"`

	// Reference point for orders without a client location.
	ReferenceLatitude  float64 `yaml:"reference_latitude"`
	ReferenceLongitude float64 `yaml:"reference_longitude"`
}

type WeightsConfig struct {
	Capability  float64 `yaml:"capability"`
	Geographic  float64 `yaml:"geographic"`
	Performance float64 `yaml:"performance"`
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLMinutes int  `yaml:"ttl_minutes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMs) * time.Millisecond
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// WeightSet returns the top-level weights, validated.
func (m MatchingConfig) WeightSet() (scoring.WeightSet, error) {
	return scoring.NewWeightSet(m.Weights.Capability, m.Weights.Geographic, m.Weights.Performance)
}

// ScoringConfig converts the matching section into scorer tunables.
// MaxDistanceKm moves the outer edge of the last distance band.
func (m MatchingConfig) ScoringConfig() scoring.Config {
	bands := scoring.DefaultDistanceBands(m.LocalRadiusKm)
	if last := len(bands) - 1; m.MaxDistanceKm > bands[last-1].MaxKm {
		bands[last].MaxKm = m.MaxDistanceKm
	}
	return scoring.Config{
		FuzzyThreshold:    m.FuzzyThreshold,
		CapabilityWeights: m.CapabilityWeights,
		DistanceBands:     bands,
		Reference:         geo.Point{Lat: m.ReferenceLatitude, Lon: m.ReferenceLongitude},
	}
}

func (m MatchingConfig) EngineConfig() matching.Config {
	return matching.Config{
		MinMatchScore:     m.MinMatchScore,
		FallbackMinScore:  m.FallbackMinScore,
		DefaultMaxResults: m.DefaultMaxResults,
	}
}

func Load(path string) (*Config, error) {
	def := scoring.DefaultWeights()
	cfg := &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 120,
			RequestTimeoutMs:   10000,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Matching: MatchingConfig{
			Weights: WeightsConfig{
				Capability:  def.Capability,
				Geographic:  def.Geographic,
				Performance: def.Performance,
			},
			CapabilityWeights:  scoring.DefaultCapabilityWeights(),
			FuzzyThreshold:     70,
			MinMatchScore:      0.1,
			FallbackMinScore:   0.05,
			MaxDistanceKm:      1000,
			LocalRadiusKm:      50,
			DefaultMaxResults:  20,
			ReferenceLatitude:  40.7128,
			ReferenceLongitude: -74.0060,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLMinutes: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MATCHMAKER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("MATCHMAKER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("MATCHMAKER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("MATCHMAKER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("MATCHMAKER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("MATCHMAKER_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MATCHMAKER_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	setFloat("MATCHMAKER_CAPABILITY_WEIGHT", &cfg.Matching.Weights.Capability)
	setFloat("MATCHMAKER_GEOGRAPHIC_WEIGHT", &cfg.Matching.Weights.Geographic)
	setFloat("MATCHMAKER_PERFORMANCE_WEIGHT", &cfg.Matching.Weights.Performance)
	if v := os.Getenv("MATCHMAKER_FUZZY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.FuzzyThreshold = n
		}
	}
	setFloat("MATCHMAKER_MIN_MATCH_SCORE", &cfg.Matching.MinMatchScore)
	setFloat("MATCHMAKER_FALLBACK_MIN_SCORE", &cfg.Matching.FallbackMinScore)
	setFloat("MATCHMAKER_MAX_DISTANCE_KM", &cfg.Matching.MaxDistanceKm)
	setFloat("MATCHMAKER_LOCAL_RADIUS_KM", &cfg.Matching.LocalRadiusKm)
	if v := os.Getenv("MATCHMAKER_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if v := os.Getenv("MATCHMAKER_CACHE_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLMinutes = n
		}
	}
	if v := os.Getenv("MATCHMAKER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MATCHMAKER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("MATCHMAKER_SEED_FILE"); v != "" {
		cfg.SeedFile = v
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
