// Package config loads relay's settings from ~/.relay/config.yaml and
// RELAY_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Images ImagesConfig
	AI     AIConfig
	Client ClientConfig
	Note   NoteConfig
	Log    LogConfig
}

type ServerConfig struct {
	URL   string // where clients reach the backend
	Addr  string // where `relay serve` listens
	Token string
}

type DBConfig struct {
	Path string
}

type ImagesConfig struct {
	Dir string
}

type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type ClientConfig struct {
	Timeout time.Duration
}

type NoteConfig struct {
	AutosaveDelay  time.Duration
	HighlightDwell time.Duration
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Dir returns ~/.relay
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".relay"), nil
}

// setDefaults registers every key so env overrides work for keys absent
// from the file
func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("server.url", "http://127.0.0.1:3000")
	v.SetDefault("server.addr", "127.0.0.1:3000")
	v.SetDefault("server.token", "")
	v.SetDefault("db.path", filepath.Join(dir, "relay.db"))
	v.SetDefault("images.dir", filepath.Join(dir, "images"))
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("client.timeout", "60s")
	v.SetDefault("note.autosave_delay", "900ms")
	v.SetDefault("note.highlight_dwell", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// Load reads the config file at path, or ~/.relay/config.yaml when path is
// empty. A missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			URL:   v.GetString("server.url"),
			Addr:  v.GetString("server.addr"),
			Token: v.GetString("server.token"),
		},
		DB:     DBConfig{Path: expandHome(v.GetString("db.path"))},
		Images: ImagesConfig{Dir: expandHome(v.GetString("images.dir"))},
		AI: AIConfig{
			APIKey:  v.GetString("ai.api_key"),
			BaseURL: v.GetString("ai.base_url"),
			Model:   v.GetString("ai.model"),
			Timeout: v.GetDuration("ai.timeout"),
		},
		Client: ClientConfig{Timeout: v.GetDuration("client.timeout")},
		Note: NoteConfig{
			AutosaveDelay:  v.GetDuration("note.autosave_delay"),
			HighlightDwell: v.GetDuration("note.highlight_dwell"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   expandHome(v.GetString("log.file")),
		},
	}

	// Fall back to the conventional variable when no key is configured
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	if c.Note.AutosaveDelay <= 0 {
		return fmt.Errorf("note.autosave_delay must be positive, got %s", c.Note.AutosaveDelay)
	}
	if c.Note.HighlightDwell <= 0 {
		return fmt.Errorf("note.highlight_dwell must be positive, got %s", c.Note.HighlightDwell)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive, got %s", c.Client.Timeout)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
