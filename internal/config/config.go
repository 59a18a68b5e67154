package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Room struct {
		// Expiry is how long a room may sit in waiting before the sweeper
		// deletes it.
		Expiry string `yaml:"expiry"`
		// SweepInterval is the period between sweeps; a first sweep also runs
		// shortly after startup.
		SweepInterval   string `yaml:"sweepInterval"`
		StartupSweepLag string `yaml:"startupSweepLag"`
	} `yaml:"room"`
	Questions struct {
		// GeneratorURL points at the external question generator. Empty means
		// fallback sample sets only.
		GeneratorURL     string `yaml:"generatorUrl"`
		GeneratorTimeout string `yaml:"generatorTimeout"`
		CacheTTL         string `yaml:"cacheTtl"`
	} `yaml:"questions"`
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

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
