package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"labreserve/internal/model"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "LABRESERVE_CONFIG_PATH"

type Config struct {
	API struct {
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Fetch struct {
		Attempts    int `yaml:"attempts"`
		BackoffMS   int `yaml:"backoff_ms"`
		Concurrency int `yaml:"concurrency"`
		// PrefetchWeeks is how many upcoming weeks serve keeps warm; 0 disables.
		PrefetchWeeks           int `yaml:"prefetch_weeks"`
		PrefetchIntervalSeconds int `yaml:"prefetch_interval_seconds"`
	} `yaml:"fetch"`

	Schedule model.OperationalDay `yaml:"schedule"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	DevicesFile string `yaml:"devices_file"`
}

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first so ${VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.API.CacheTTLSeconds <= 0 {
		c.API.CacheTTLSeconds = 60
	}
	if c.Fetch.Attempts <= 0 {
		c.Fetch.Attempts = 3
	}
	if c.Fetch.BackoffMS <= 0 {
		c.Fetch.BackoffMS = 1000
	}
	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Fetch.PrefetchIntervalSeconds <= 0 {
		c.Fetch.PrefetchIntervalSeconds = 300
	}
	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		c.Schedule.StartHour = 0
	}
	if c.DevicesFile == "" {
		c.DevicesFile = "configs/devices.yaml"
	}
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) PrefetchInterval() time.Duration {
	return time.Duration(c.Fetch.PrefetchIntervalSeconds) * time.Second
}

func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffMS) * time.Millisecond
}
