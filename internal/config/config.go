package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"golddust/internal/router"
)

const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "tint"
	DefaultSource      = SourceStatic
	DefaultWindow      = 5 * time.Minute
	DefaultListen      = "127.0.0.1:8787"
	DefaultRedisPrefix = "golddust"
	DefaultSTUNServer  = "stun.l.google.com:19302"
)

const (
	SourceStatic = "static"
	SourceCSV    = "csv"
	SourceFile   = "file"
	SourceRedis  = "redis"
)

// Config is the on-disk configuration for the snapshot provider and the CLI.
type Config struct {
	Log         LogConfig     `yaml:"log" toml:"log"`
	Backends    BackendConfig `yaml:"backends" toml:"backends"`
	Health      HealthConfig  `yaml:"health" toml:"health"`
	Server      ServerConfig  `yaml:"server" toml:"server"`
	STUNServers []string      `yaml:"stun_servers,omitempty" toml:"stun_servers"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // tint|json|text
}

// BackendConfig lists known backends. The kind-level toggles gate every node of that kind.
type BackendConfig struct {
	RelayEnabled *bool  `yaml:"relay_enabled,omitempty" toml:"relay_enabled"`
	ExitEnabled  *bool  `yaml:"exit_enabled,omitempty" toml:"exit_enabled"`
	Nodes        []Node `yaml:"nodes" toml:"nodes"`

	// Names used by gold-dust-vpn.toml. Load folds them into RelayEnabled/ExitEnabled.
	OxenEnabled *bool `yaml:"oxen_enabled,omitempty" toml:"oxen_enabled,omitempty"`
	TorEnabled  *bool `yaml:"tor_enabled,omitempty" toml:"tor_enabled,omitempty"`
}

// Node is one backend entry with its static health values.
type Node struct {
	ID          string  `yaml:"id" toml:"id"`
	Kind        string  `yaml:"kind" toml:"kind"`
	Enabled     *bool   `yaml:"enabled,omitempty" toml:"enabled"`
	LatencyMs   float64 `yaml:"latency_ms" toml:"latency_ms"`
	FailureRate float64 `yaml:"failure_rate" toml:"failure_rate"`
}

type HealthConfig struct {
	Source      string   `yaml:"source" toml:"source"`
	CSVPath     string   `yaml:"csv_path,omitempty" toml:"csv_path"`
	Window      Duration `yaml:"window" toml:"window"`
	FilePath    string   `yaml:"file_path,omitempty" toml:"file_path"`
	RedisAddr   string   `yaml:"redis_addr,omitempty" toml:"redis_addr"`
	RedisPrefix string   `yaml:"redis_prefix,omitempty" toml:"redis_prefix"`
}

type ServerConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// Load reads a YAML or TOML config file, picked by extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if isTOML(path) {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return Config{}, fmt.Errorf("parse %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Backends.foldLegacyToggles(); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

func (b *BackendConfig) foldLegacyToggles() error {
	fold := func(legacy **bool, current **bool, legacyName, name string) error {
		if *legacy == nil {
			return nil
		}
		if *current != nil && **current != **legacy {
			return fmt.Errorf("backends.%s and backends.%s disagree", legacyName, name)
		}
		*current = *legacy
		*legacy = nil
		return nil
	}
	if err := fold(&b.OxenEnabled, &b.RelayEnabled, "oxen_enabled", "relay_enabled"); err != nil {
		return err
	}
	return fold(&b.TorEnabled, &b.ExitEnabled, "tor_enabled", "exit_enabled")
}

// Save writes the config to disk in the format matching its extension.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(&cfg)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks everything that can be checked without building snapshots.
func Validate(cfg Config) error {
	switch cfg.Log.Format {
	case "tint", "json", "text":
	default:
		return fmt.Errorf("log.format must be tint, json or text (got %q)", cfg.Log.Format)
	}

	for i, n := range cfg.Backends.Nodes {
		if n.ID == "" {
			return fmt.Errorf("backends.nodes[%d].id is required", i)
		}
		if _, err := router.ParseKind(n.Kind); err != nil {
			return fmt.Errorf("backends.nodes[%d]: %w", i, err)
		}
	}

	switch cfg.Health.Source {
	case SourceStatic:
	case SourceCSV:
		if cfg.Health.CSVPath == "" {
			return fmt.Errorf("health.csv_path is required for source %q", SourceCSV)
		}
		if cfg.Health.Window <= 0 {
			return fmt.Errorf("health.window must be positive")
		}
	case SourceFile:
		if cfg.Health.FilePath == "" {
			return fmt.Errorf("health.file_path is required for source %q", SourceFile)
		}
	case SourceRedis:
		if cfg.Health.RedisAddr == "" {
			return fmt.Errorf("health.redis_addr is required for source %q", SourceRedis)
		}
	default:
		return fmt.Errorf("unknown health.source %q", cfg.Health.Source)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Backends.RelayEnabled == nil {
		cfg.Backends.RelayEnabled = boolPtr(true)
	}
	if cfg.Backends.ExitEnabled == nil {
		cfg.Backends.ExitEnabled = boolPtr(true)
	}
	if len(cfg.Backends.Nodes) == 0 {
		cfg.Backends.Nodes = DefaultNodes()
	}
	for i := range cfg.Backends.Nodes {
		if cfg.Backends.Nodes[i].Enabled == nil {
			cfg.Backends.Nodes[i].Enabled = boolPtr(true)
		}
	}

	cfg.Health.Source = strings.ToLower(strings.TrimSpace(cfg.Health.Source))
	if cfg.Health.Source == "" {
		cfg.Health.Source = DefaultSource
	}
	if cfg.Health.Window == 0 {
		cfg.Health.Window = Duration(DefaultWindow)
	}
	if cfg.Health.RedisPrefix == "" {
		cfg.Health.RedisPrefix = DefaultRedisPrefix
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}

	if len(cfg.STUNServers) == 0 {
		cfg.STUNServers = []string{DefaultSTUNServer}
	}
}

// DefaultNodes is the static sample set used when no backends are configured.
func DefaultNodes() []Node {
	return []Node{
		{ID: "relay-node-1", Kind: "relay", LatencyMs: 55, FailureRate: 0.020},
		{ID: "relay-node-2", Kind: "relay", LatencyMs: 70, FailureRate: 0.040},
		{ID: "exit-node-1", Kind: "exit", LatencyMs: 250, FailureRate: 0.010},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func boolPtr(v bool) *bool {
	return &v
}
