package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/notify"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/probe"
)

type Config struct {
	// EnvFile is loaded before environment overrides are applied. Variables
	// already set in the process take precedence over the file.
	EnvFile string `yaml:"env_file"`
	Server  Server `yaml:"server"`
	Probe   Probe  `yaml:"probe"`
	Suite   Suite  `yaml:"suite"`
	Store   Store  `yaml:"store"`
	Notify  Notify `yaml:"notify"`
	Sweep   Sweep  `yaml:"sweep"`
}

type Server struct {
	Addr        string `yaml:"addr"`
	MonitorAddr string `yaml:"monitor_addr"`
	AuthToken   string `yaml:"auth_token"`
	Release     bool   `yaml:"release"`
	Debug       bool   `yaml:"debug"`
	Silent      bool   `yaml:"silent"`
	Metrics     bool   `yaml:"metrics"`
}

type Probe struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

type Suite struct {
	File string `yaml:"file"`
	Dir  string `yaml:"dir"`
}

type Store struct {
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

type Notify struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type Sweep struct {
	Interval time.Duration `yaml:"interval"`
	Parallel int           `yaml:"parallel"`
	EventID  string        `yaml:"event_id"`
}

const (
	defaultAddr     = ":4000"
	defaultMongoURI = "mongodb://localhost:27017"
	defaultDatabase = "ai_arena"
	defaultStoreDir = "arena-data"
	defaultEnvFile  = ".env"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := finish(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file exists: built-in
// defaults plus the .env file and environment overrides.
func Default() (*Config, error) {
	var cfg Config
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return err
	}
	applyEnv(cfg)
	return validate(cfg)
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

// applyEnv lets the deployment environment override the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Notify.NATSURL = v
	}
	if v := os.Getenv("ARENA_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}

	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = probe.DefaultTimeout
	}
	if cfg.Probe.Timeout < 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if cfg.Probe.MaxBodyBytes == 0 {
		cfg.Probe.MaxBodyBytes = probe.DefaultMaxBodyBytes
	}
	if cfg.Probe.MaxBodyBytes < 0 {
		return fmt.Errorf("probe.max_body_bytes must be positive")
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	switch cfg.Store.Backend {
	case "memory":
	case "file":
		if cfg.Store.Dir == "" {
			cfg.Store.Dir = defaultStoreDir
		}
	case "mongo":
		if cfg.Store.MongoURI == "" {
			cfg.Store.MongoURI = defaultMongoURI
		}
		if cfg.Store.Database == "" {
			cfg.Store.Database = defaultDatabase
		}
	default:
		return fmt.Errorf("store.backend %q: must be memory, file or mongo", cfg.Store.Backend)
	}

	if cfg.Notify.NATSURL != "" {
		if _, err := url.Parse(cfg.Notify.NATSURL); err != nil {
			return fmt.Errorf("notify.nats_url: %w", err)
		}
		if cfg.Notify.SubjectPrefix == "" {
			cfg.Notify.SubjectPrefix = notify.DefaultSubjectPrefix
		}
	}

	if cfg.Sweep.Interval < 0 {
		return fmt.Errorf("sweep.interval must not be negative")
	}
	if cfg.Sweep.Parallel == 0 {
		cfg.Sweep.Parallel = 4
	}
	if cfg.Sweep.Parallel < 0 {
		return fmt.Errorf("sweep.parallel must be at least 1")
	}
	return nil
}
