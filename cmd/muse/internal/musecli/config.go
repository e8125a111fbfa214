package musecli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const configDirName = ".muse"

// Config mirrors .muse/config.toml: a bearer token, one entry per
// configured remote, the committing user's identity, and one
// branch->remote tracking entry per local branch with an upstream set.
type Config struct {
	Auth     AuthConfig                `mapstructure:"auth"`
	Remotes  map[string]RemoteConfig   `mapstructure:"remotes"`
	User     UserConfig                `mapstructure:"user"`
	Upstream map[string]UpstreamConfig `mapstructure:"upstream"`

	v    *viper.Viper
	root string
}

type AuthConfig struct {
	Token string `mapstructure:"token"`
}

type RemoteConfig struct {
	URL    string `mapstructure:"url"`
	RepoID string `mapstructure:"repo_id"`
}

type UserConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type UpstreamConfig struct {
	Remote string `mapstructure:"remote"`
	Branch string `mapstructure:"branch"`
}

func configPath(root string) string {
	return filepath.Join(root, configDirName, "config.toml")
}

// LoadConfig reads .muse/config.toml under root. A missing file yields
// an empty, writable Config rather than an error, matching init's need
// to build one from scratch.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath(root))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("musecli: reading config: %w", err)
		}
	}

	cfg := &Config{
		Remotes:  map[string]RemoteConfig{},
		Upstream: map[string]UpstreamConfig{},
		v:        v,
		root:     root,
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("musecli: parsing config: %w", err)
	}

	if cfg.Remotes == nil {
		cfg.Remotes = map[string]RemoteConfig{}
	}

	if cfg.Upstream == nil {
		cfg.Upstream = map[string]UpstreamConfig{}
	}

	return cfg, nil
}

// Persist writes every section back to .muse/config.toml, creating the
// directory if needed.
func (c *Config) Persist() error {
	if err := os.MkdirAll(filepath.Join(c.root, configDirName), 0o755); err != nil {
		return fmt.Errorf("musecli: creating config dir: %w", err)
	}

	c.v.Set("auth", c.Auth)
	c.v.Set("remotes", c.Remotes)
	c.v.Set("user", c.User)
	c.v.Set("upstream", c.Upstream)

	path := configPath(c.root)
	if err := c.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("musecli: writing config: %w", err)
	}

	return nil
}

// SetRemote adds or replaces a named remote. url is the maestro
// server's base URL; repoID is the "owner/slug" identifier the server
// assigns the repo.
func (c *Config) SetRemote(name, url, repoID string) {
	c.Remotes[name] = RemoteConfig{URL: url, RepoID: repoID}
}

// RemoveRemote drops a named remote and any upstream entries pointing
// at it.
func (c *Config) RemoveRemote(name string) {
	delete(c.Remotes, name)

	for branch, up := range c.Upstream {
		if up.Remote == name {
			delete(c.Upstream, branch)
		}
	}
}

// Remote resolves a remote's URL, defaulting to "origin" when name is
// empty.
func (c *Config) Remote(name string) (RemoteConfig, error) {
	if name == "" {
		name = "origin"
	}

	remote, ok := c.Remotes[name]
	if !ok {
		return RemoteConfig{}, fmt.Errorf("no such remote: %s", name)
	}

	return remote, nil
}

// SetUpstream records branch's tracking remote/branch.
func (c *Config) SetUpstream(localBranch, remote, remoteBranch string) {
	c.Upstream[localBranch] = UpstreamConfig{Remote: remote, Branch: remoteBranch}
}
