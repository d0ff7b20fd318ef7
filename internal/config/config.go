package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		Port string `yaml:"port"`
	} `yaml:"api"`
	Gateway struct {
		Port string `yaml:"port"`
	} `yaml:"gateway"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bus struct {
		Partitions int    `yaml:"partitions"`
		Block      string `yaml:"block"`
	} `yaml:"bus"`
	Quiz struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Scoring struct {
		// AnswerOnce guards score increments against bus redelivery and
		// re-answering. Enabled unless explicitly set to false.
		AnswerOnce *bool `yaml:"answer_once"`
	} `yaml:"scoring"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// AnswerOnceEnabled reports whether the scorer should keep the answered-set
// guard. Defaults to true; turning it off restores the unguarded behavior of
// the at-least-once bus.
func (c Config) AnswerOnceEnabled() bool {
	return c.Scoring.AnswerOnce == nil || *c.Scoring.AnswerOnce
}

// TTLDuration parses a duration string or returns the fallback if empty or
// invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
