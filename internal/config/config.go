package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string `yaml:"port"`
	BaseURL       string `yaml:"base_url"`
	DatabaseURL   string `yaml:"database_url"`
	JWTSecret     string `yaml:"jwt_secret"`
	SessionSecret string `yaml:"session_secret"`
	RedisURL      string `yaml:"redis_url"`
	GeoIPDBPath   string `yaml:"geoip_db_path"`

	Transcoding TranscodingConfig `yaml:"transcoding"`
}

type TranscodingConfig struct {
	// Directory holding the transcoder executables (ffmpeg, lame, ...).
	Directory string `yaml:"directory"`

	// Command used for downsampling; its first word must exist in Directory.
	DownsampleCommand string `yaml:"downsample_command"`
}

const defaultDownsampleCommand = "ffmpeg -i %s -map 0:0 -b:a %bk -v 0 -f mp3 -"

// Load reads the YAML file at path when path is non-empty, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	overrideFromEnv(&cfg.Port, "PORT")
	overrideFromEnv(&cfg.BaseURL, "BASE_URL")
	overrideFromEnv(&cfg.DatabaseURL, "DATABASE_URL")
	overrideFromEnv(&cfg.JWTSecret, "JWT_SECRET")
	overrideFromEnv(&cfg.SessionSecret, "SESSION_SECRET")
	overrideFromEnv(&cfg.RedisURL, "REDIS_URL")
	overrideFromEnv(&cfg.GeoIPDBPath, "GEOIP_DB_PATH")
	overrideFromEnv(&cfg.Transcoding.Directory, "TRANSCODE_DIR")
	overrideFromEnv(&cfg.Transcoding.DownsampleCommand, "DOWNSAMPLE_COMMAND")

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = cfg.JWTSecret
	}
	if cfg.Transcoding.Directory == "" {
		cfg.Transcoding.Directory = "transcode"
	}
	if cfg.Transcoding.DownsampleCommand == "" {
		cfg.Transcoding.DownsampleCommand = defaultDownsampleCommand
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New(strings.Join(missing, ", ") + " required")
	}
	return nil
}

func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func overrideFromEnv(field *string, key string) {
	if value := os.Getenv(key); value != "" {
		*field = value
	}
}
