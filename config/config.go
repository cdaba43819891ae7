// Package config loads the client settings from <profileDir>/config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Filename is the config file inside the profile directory.
	Filename = "config.yaml"

	DefaultServer     = "http://localhost:8000"
	DefaultStreamPath = "/stream"
	DefaultLogFile    = "jpfa.log"

	// LogToStderr as log.file sends logs to stderr instead of a file.
	LogToStderr = "-"
)

// Config holds persistent client settings.
type Config struct {
	Server     string       `yaml:"server"`
	Token      string       `yaml:"token,omitempty"`
	StreamPath string       `yaml:"stream_path"`
	Theme      string       `yaml:"theme"`
	Stream     StreamConfig `yaml:"stream"`
	Engine     EngineConfig `yaml:"engine"`
	Log        LogConfig    `yaml:"log"`
}

// StreamConfig controls the push connection.
type StreamConfig struct {
	Reconnect     bool `yaml:"reconnect"`
	MaxReconnects int  `yaml:"max_reconnects"`
}

// EngineConfig tunes conversation routing.
type EngineConfig struct {
	// TrackBackground keeps status and pending flags of conversations that
	// are not on screen up to date.
	TrackBackground bool `yaml:"track_background"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		Server:     DefaultServer,
		StreamPath: DefaultStreamPath,
		Theme:      "dark",
		Stream: StreamConfig{
			Reconnect:     true,
			MaxReconnects: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   DefaultLogFile,
		},
	}
}

// ProfileDir returns ~/.jpfa, or ~/.jpfa/profiles/<profile> for a named
// profile.
func ProfileDir(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if profile == "" {
		return filepath.Join(home, ".jpfa"), nil
	}
	return filepath.Join(home, ".jpfa", "profiles", profile), nil
}

// Load reads <profileDir>/config.yaml. A missing file yields Defaults.
// JPFA_SERVER and JPFA_TOKEN override the file.
func Load(profileDir string) (Config, error) {
	return LoadFile(filepath.Join(profileDir, Filename))
}

// LoadFile reads the config at path. Keys absent from the file keep their
// default values and ${VAR} references are expanded from the environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
			return Defaults(), fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to <profileDir>/config.yaml, creating the directory if
// needed.
func Save(profileDir string, cfg Config) error {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(profileDir, Filename), data, 0o600)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JPFA_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("JPFA_TOKEN"); v != "" {
		cfg.Token = v
	}
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return fmt.Errorf("server is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server must be an http or https URL, got %q", c.Server)
	}
	if _, err := c.StreamURL(); err != nil {
		return err
	}
	if c.Stream.MaxReconnects < 0 {
		return fmt.Errorf("stream.max_reconnects must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// StreamURL resolves stream_path against the server. An absolute
// stream_path (http, https, ws or wss) is used as is.
func (c *Config) StreamURL() (string, error) {
	p := c.StreamPath
	if p == "" {
		p = DefaultStreamPath
	}
	ref, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("stream_path is not a valid URL: %w", err)
	}
	if ref.IsAbs() {
		switch ref.Scheme {
		case "http", "https", "ws", "wss":
			return ref.String(), nil
		}
		return "", fmt.Errorf("stream_path has unsupported scheme %q", ref.Scheme)
	}
	return strings.TrimRight(c.Server, "/") + "/" + strings.TrimLeft(p, "/"), nil
}

// LogPath returns the absolute log file path, or LogToStderr.
func (c *Config) LogPath(profileDir string) string {
	switch {
	case c.Log.File == LogToStderr:
		return LogToStderr
	case c.Log.File == "":
		return filepath.Join(profileDir, DefaultLogFile)
	case filepath.IsAbs(c.Log.File):
		return c.Log.File
	}
	return filepath.Join(profileDir, c.Log.File)
}
