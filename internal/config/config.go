package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. RIDE_HTTP__ADDR sets http.addr.
const EnvPrefix = "RIDE_"

type HTTPConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	// RequestTimeout bounds a single read-only API call. Mutations are not cut off.
	RequestTimeout time.Duration `json:"request_timeout"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	StatsKey string `json:"stats_key"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
	Group   string   `json:"group"`
}

type PostgresConfig struct {
	DSN     string `json:"dsn"`
	Migrate bool   `json:"migrate"`
}

type WebhookConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config captures every tunable of the dispatch binaries. Values come from
// defaults, then an optional YAML/JSON file, then RIDE_ environment variables.
type Config struct {
	HTTP        HTTPConfig     `json:"http"`
	Redis       RedisConfig    `json:"redis"`
	Kafka       KafkaConfig    `json:"kafka"`
	Postgres    PostgresConfig `json:"postgres"`
	Webhook     WebhookConfig  `json:"webhook"`
	Log         LogConfig      `json:"log"`
	MetricsAddr string         `json:"metrics_addr"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  5 * time.Second,
		},
		Redis:       RedisConfig{StatsKey: "ride_stats"},
		Kafka:       KafkaConfig{Topic: "ride-events", Group: "ride-dispatch-consumer"},
		Webhook:     WebhookConfig{Timeout: 3 * time.Second},
		Log:         LogConfig{Level: "info", Format: "json"},
		MetricsAddr: ":2112",
	}
}

// Load reads path (skipped when empty) and environment overrides on top of
// Default. All validation problems are reported together.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return Config{}, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitAndTrim(cfg.Kafka.Brokers)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	return cfg, cfg.Validate()
}

// Validate checks the values the binaries cannot run without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"http.read_timeout":     c.HTTP.ReadTimeout,
		"http.write_timeout":    c.HTTP.WriteTimeout,
		"http.shutdown_timeout": c.HTTP.ShutdownTimeout,
		"http.request_timeout":  c.HTTP.RequestTimeout,
		"webhook.timeout":       c.Webhook.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, p := range strings.Split(r, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
