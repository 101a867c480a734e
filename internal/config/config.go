package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the process-mining service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	EventStore EventStoreConfig `yaml:"eventStore"`
	Incidents  IncidentsConfig  `yaml:"incidents"`
	Cache      CacheConfig      `yaml:"cache"`
	Anomaly    AnomalyConfig    `yaml:"anomaly"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// EventStoreConfig configures where the event log is read from. With neither
// an endpoint nor a file the service falls back to the built-in demo log.
type EventStoreConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	File     string        `yaml:"file"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IncidentsConfig configures the incident backend used for resource error
// counts.
type IncidentsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// CacheConfig controls Valkey-backed caching of upstream fetches.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// AnomalyConfig selects the resource error source: "incidents" queries the
// incident backend, "synthetic" draws seeded errors, "nop" reports none.
type AnomalyConfig struct {
	Mode string  `yaml:"mode"`
	Seed int64   `yaml:"seed"`
	Rate float64 `yaml:"rate"`
}

// AnalysisConfig tunes the mining passes.
type AnalysisConfig struct {
	TopN        int               `yaml:"topN"`
	Conformance ConformanceConfig `yaml:"conformance"`
}

// ConformanceConfig selects the reference flow and scoring thresholds. An
// inline Flow wins over FlowName/FlowsPath.
type ConformanceConfig struct {
	Flow          []string `yaml:"flow"`
	FlowName      string   `yaml:"flowName"`
	FlowsPath     string   `yaml:"flowsPath"`
	ExtraSlack    int      `yaml:"extraSlack"`
	MissingSlack  int      `yaml:"missingSlack"`
	OrderPenalty  float64  `yaml:"orderPenalty"`
	ConformingMin float64  `yaml:"conformingMin"`
	PartialMin    float64  `yaml:"partialMin"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"serviceName"`
	Environment string        `yaml:"environment"`
	SampleRatio float64       `yaml:"sampleRatio"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// WatchConfig controls reloading the event log when its file changes.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_PM_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		EventStore: EventStoreConfig{
			Timeout:  5 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Incidents: IncidentsConfig{
			Timeout:  5 * time.Second,
			CacheTTL: 2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Anomaly: AnomalyConfig{
			Mode: "synthetic",
			Seed: 42,
			Rate: 0.1,
		},
		Analysis: AnalysisConfig{
			TopN: 8,
			Conformance: ConformanceConfig{
				Flow:          []string{"Create PO", "Approve PO", "Receive Goods", "Pay Invoice"},
				FlowsPath:     "configs/flows/default.yaml",
				ExtraSlack:    2,
				MissingSlack:  1,
				OrderPenalty:  0.1,
				ConformingMin: 0.8,
				PartialMin:    0.5,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "mirador-pm",
			Environment: "dev",
			SampleRatio: 1.0,
			Timeout:     5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Watch:   WatchConfig{Enabled: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_PM_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_PM_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_PM_EVENTSTORE_URL"); v != "" {
		cfg.EventStore.Endpoint = v
	}
	if v := os.Getenv("MIRADOR_PM_EVENTSTORE_API_KEY"); v != "" {
		cfg.EventStore.APIKey = v
	}
	if v := os.Getenv("MIRADOR_PM_EVENTS_FILE"); v != "" {
		cfg.EventStore.File = v
	}
	if v := os.Getenv("MIRADOR_PM_EVENTS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.EventStore.CacheTTL = d
		}
	}
	if v := os.Getenv("MIRADOR_PM_INCIDENTS_URL"); v != "" {
		cfg.Incidents.Endpoint = v
	}
	if v := os.Getenv("MIRADOR_PM_INCIDENTS_API_KEY"); v != "" {
		cfg.Incidents.APIKey = v
	}
	if v := os.Getenv("MIRADOR_PM_INCIDENTS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Incidents.CacheTTL = d
		}
	}
	if v := os.Getenv("MIRADOR_PM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_PM_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ReadTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.WriteTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_PM_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("MIRADOR_PM_ANOMALY_MODE"); v != "" {
		cfg.Anomaly.Mode = v
	}
	if v := os.Getenv("MIRADOR_PM_ANOMALY_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Anomaly.Seed = seed
		}
	}
	if v := os.Getenv("MIRADOR_PM_ANOMALY_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Anomaly.Rate = rate
		}
	}
	if v := os.Getenv("MIRADOR_PM_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.TopN = n
		}
	}
	if v := os.Getenv("MIRADOR_PM_FLOW_NAME"); v != "" {
		cfg.Analysis.Conformance.FlowName = v
	}
	if v := os.Getenv("MIRADOR_PM_FLOWS_PATH"); v != "" {
		cfg.Analysis.Conformance.FlowsPath = v
	}
	if v := os.Getenv("MIRADOR_PM_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
		cfg.Telemetry.Enabled = true
	}
	if v := os.Getenv("MIRADOR_PM_TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("MIRADOR_PM_WATCH_ENABLED"); v != "" {
		cfg.Watch.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
}
