package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon configuration file (ripple.toml).
type Config struct {
	// ListenAddr is the host:port the HTTP/WebSocket gateway binds to.
	ListenAddr string `toml:"listen_addr"`
	// DataDir holds the SQLite database, the instance lock and log files.
	DataDir string `toml:"data_dir"`
	// SessionSecret is the HS256 key shared with the session service
	// that issues identity tokens.
	SessionSecret string `toml:"session_secret"`
	// AllowedOrigins lists Origin header values accepted on WebSocket
	// upgrade. Empty means same-host only.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns a config with development defaults rooted at dir.
func Default(dir string) *Config {
	return &Config{
		ListenAddr: "127.0.0.1:8080",
		DataDir:    dir,
	}
}

// Load reads config from the given path. Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8080"
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// DBPath returns the SQLite database path inside the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "ripple.db")
}

// LogPath returns the daemon log file path inside the data dir.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "rippled.log")
}
