package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings.
type Config struct {
	User    UserConfig        `toml:"user"`
	Git     GitConfig         `toml:"git"`
	Remotes map[string]string `toml:"remotes"`
}

// UserConfig identifies the commit author.
type UserConfig struct {
	Name string `toml:"name"`
}

// GitConfig configures the delegated git backend.
type GitConfig struct {
	// Executable overrides the git binary used for delegated operations.
	// Empty means "git" from PATH.
	Executable string `toml:"executable"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.KeelDir, "config.toml")
}

// ReadConfig reads .keel/config.toml. Missing config returns an empty config.
func (r *Repo) ReadConfig() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(r.configPath(), &cfg); err != nil {
		if os.IsNotExist(err) {
			return &Config{Remotes: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .keel/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.KeelDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote stores/updates a named remote URL in repository config.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("set remote: remote name is required")
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return fmt.Errorf("set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return fmt.Errorf("set remote: %w", err)
	}
	cfg.Remotes[name] = remoteURL
	if err := r.WriteConfig(cfg); err != nil {
		return fmt.Errorf("set remote: %w", err)
	}
	return nil
}

// RemoteURL returns the URL for a named remote, or an error if unset.
func (r *Repo) RemoteURL(name string) (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", fmt.Errorf("remote url: %w", err)
	}
	url, ok := cfg.Remotes[strings.TrimSpace(name)]
	if !ok || strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("remote url: remote %q is not configured", name)
	}
	return url, nil
}
