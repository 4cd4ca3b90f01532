package main

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const devSecretKey = "development key"

type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	Session  SessionConfig  `toml:"session"`
	Chat     ChatConfig     `toml:"chat"`
}

type AppConfig struct {
	Addr      string `toml:"addr"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SessionConfig struct {
	SecretKey     string `toml:"secret_key"`
	CookieName    string `toml:"cookie_name"`
	MaxAgeSeconds int    `toml:"max_age_seconds"`
	Secure        bool   `toml:"secure"`
}

type ChatConfig struct {
	MaxMessageLength int `toml:"max_message_length"`
}

// LoadConfig reads the optional TOML file named by CHAT_CONFIG (default
// config.toml) over the defaults, then applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	path := getEnv("CHAT_CONFIG", "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "decode config file %s", path)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Addr:      ":5000",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Database: DatabaseConfig{
			Path: "/tmp/chat.db",
		},
		Session: SessionConfig{
			SecretKey:     devSecretKey,
			CookieName:    "session",
			MaxAgeSeconds: 86400,
		},
		Chat: ChatConfig{
			MaxMessageLength: 500,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Addr = getEnv("CHAT_ADDR", cfg.App.Addr)
	cfg.App.LogLevel = getEnv("CHAT_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("CHAT_LOG_FORMAT", cfg.App.LogFormat)
	cfg.Database.Path = getEnv("CHAT_DATABASE", cfg.Database.Path)
	cfg.Session.SecretKey = getEnv("CHAT_SECRET_KEY", cfg.Session.SecretKey)
	cfg.Session.MaxAgeSeconds = getEnvAsInt("CHAT_SESSION_MAX_AGE", cfg.Session.MaxAgeSeconds)
	cfg.Chat.MaxMessageLength = getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", cfg.Chat.MaxMessageLength)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
