// Package config loads service settings from defaults, an optional YAML
// file and QUICKPLAN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Stats     StatsConfig     `mapstructure:"stats"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Export    ExportConfig    `mapstructure:"export"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "neo4j".
	Driver       string `mapstructure:"driver"`
	SeedExamples bool   `mapstructure:"seed_examples"`
}

type SQLiteConfig struct {
	Path         string        `mapstructure:"path"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type StatsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RateLimitConfig struct {
	API     LimitConfig `mapstructure:"api"`
	Refresh LimitConfig `mapstructure:"refresh"`
}

// LimitConfig allows Requests per Window for each client. Zero requests
// disables the limiter.
type LimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ExportConfig struct {
	Title    string `mapstructure:"title"`
	Filename string `mapstructure:"filename"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.seed_examples", true)
	v.SetDefault("sqlite.path", "data/tasks.db")
	v.SetDefault("sqlite.busy_timeout", 5*time.Second)
	v.SetDefault("sqlite.max_open_conns", 1)
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("stats.ttl", 30*time.Second)
	v.SetDefault("ratelimit.api.requests", 100)
	v.SetDefault("ratelimit.api.window", 15*time.Minute)
	v.SetDefault("ratelimit.refresh.requests", 5)
	v.SetDefault("ratelimit.refresh.window", 2*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("export.title", "QuickPlan Report")
	v.SetDefault("export.filename", "quickplan-report")
}

// Load reads the configuration. configFile may be empty.
func Load(configFile string) (Config, error) {
	var cfg Config

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("QUICKPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// PORT is honoured for hosting platforms that only set that variable.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("QUICKPLAN_SERVER_ADDR") == "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path must be set")
		}
	case "neo4j":
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri must be set")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Stats.TTL < 0 {
		return fmt.Errorf("stats.ttl must not be negative")
	}
	return nil
}
