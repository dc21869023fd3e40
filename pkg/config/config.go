package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. The distributor cadences, gate
// thresholds, dedup window, and buffer capacity are hot-reloadable through
// Manager.
type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Engine struct {
		Instruments   []string      `yaml:"instruments" validate:"min=1"`
		CycleInterval time.Duration `yaml:"cycle_interval" default:"1m"`
	} `yaml:"engine"`

	Gate struct {
		// LOW is rejected unconditionally; it is not accepted here either.
		AcceptTiers      []string `yaml:"accept_tiers" default:"[\"HIGH\",\"MEDIUM\"]" validate:"dive,oneof=HIGH MEDIUM"`
		MLThreshold      float64  `yaml:"ml_threshold" default:"0.45" validate:"gte=0,lte=1"`
		WinRateThreshold float64  `yaml:"win_rate_threshold" default:"0.35" validate:"gte=0,lte=1"`
		AutoTune         bool     `yaml:"auto_tune" default:"false"`
	} `yaml:"gate"`

	Dedup struct {
		Window        time.Duration `yaml:"window" default:"24h"`
		SweepInterval time.Duration `yaml:"sweep_interval" default:"10m"`
		MaxEntries    int           `yaml:"max_entries" default:"10000" validate:"gt=0"`
	} `yaml:"dedup"`

	Distributor struct {
		CheckInterval time.Duration `yaml:"check_interval" default:"5s"`
		Tiers         []TierConfig  `yaml:"tiers" validate:"min=1,dive"`
	} `yaml:"distributor"`

	Feedback struct {
		WinRateAlpha      float64 `yaml:"win_rate_alpha" default:"0.1" validate:"gt=0,lte=1"`
		ObservationWindow int     `yaml:"observation_window" default:"20" validate:"gt=0"`
		TimeoutRateLimit  float64 `yaml:"timeout_rate_limit" default:"0.5" validate:"gt=0,lte=1"`
	} `yaml:"feedback"`

	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers      []string      `yaml:"brokers" validate:"min=1"`
		TopicPrefix  string        `yaml:"topic_prefix" default:"ignitex.signals"`
		AlertTopic   string        `yaml:"alert_topic" default:"ignitex.ops.alerts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		RetryBackoff time.Duration `yaml:"retry_backoff" default:"200ms"`
		RetryMax     int           `yaml:"retry_max" default:"4"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"ignitex"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	ML struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout" default:"3s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"ml"`

	MarketData struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxTicksPerSec int           `yaml:"max_ticks_per_sec" default:"50"`
	} `yaml:"marketdata"`

	Queue struct {
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"queue"`
}

// TierConfig describes one subscriber tier's release cohort.
type TierConfig struct {
	Name      string        `yaml:"name" validate:"required"`
	Cadence   time.Duration `yaml:"cadence" validate:"required,gt=0"`
	BufferCap int           `yaml:"buffer_cap" default:"25" validate:"gt=0"`
}

var validate = validator.New()

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets/addresses with
// environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("ML_BASE_URL"); v != "" {
		c.ML.BaseURL = v
	}
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	return c, nil
}

// Validate checks structural constraints the tag rules cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, t := range c.Distributor.Tiers {
		if c.Distributor.CheckInterval >= t.Cadence {
			return fmt.Errorf("distributor check_interval %s must be shorter than tier %q cadence %s",
				c.Distributor.CheckInterval, t.Name, t.Cadence)
		}
	}
	if c.Dedup.SweepInterval >= c.Dedup.Window {
		return fmt.Errorf("dedup sweep_interval must be shorter than the window")
	}
	return nil
}
