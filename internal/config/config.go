package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// GitHubConfig holds authentication and provisioning configuration for GitHub.
type GitHubConfig struct {
	ClientID string `toml:"client_id"`
	Token    string `toml:"token"`
	Org      string `toml:"org"`
}

// GitLabConfig holds authentication and provisioning configuration for GitLab.
type GitLabConfig struct {
	ClientID     string `toml:"client_id"`
	Token        string `toml:"token"`
	RefreshToken string `toml:"refresh_token"`
	URL          string `toml:"url"`
	Group        string `toml:"group"`
}

// Requirement is a tool that must be installed, optionally with a minimum version.
type Requirement struct {
	Name       string `toml:"name"`
	MinVersion string `toml:"min_version"`
}

// Config holds all kickstart configuration. Exported fields mirror the file;
// environment values surface only through the accessors and are never saved.
type Config struct {
	Template       string        `toml:"template"`
	Editor         string        `toml:"editor"`
	InstallCommand string        `toml:"install_command"`
	DefaultBranch  string        `toml:"default_branch"`
	GitHub         GitHubConfig  `toml:"github"`
	GitLab         GitLabConfig  `toml:"gitlab"`
	Requirements   []Requirement `toml:"requirements"`

	env environment
}

// environment holds the variables captured by LoadFrom.
type environment struct {
	githubToken string
	gitlabToken string
	gitlabURL   string
	template    string
	editor      string
}

const (
	defaultTemplate = "https://github.com/waabox/kickstart-template.git"
	defaultBranch   = "main"
)

// TemplateOrDefault returns KICKSTART_TEMPLATE, then Template, then the built-in template repository.
func (c Config) TemplateOrDefault() string {
	if c.env.template != "" {
		return c.env.template
	}
	if c.Template != "" {
		return c.Template
	}
	return defaultTemplate
}

// DefaultBranchOrDefault returns DefaultBranch if set, otherwise "main".
func (c Config) DefaultBranchOrDefault() string {
	if c.DefaultBranch != "" {
		return c.DefaultBranch
	}
	return defaultBranch
}

// GitHubToken returns GITHUB_TOKEN if set, otherwise github.token.
func (c Config) GitHubToken() string {
	if c.env.githubToken != "" {
		return c.env.githubToken
	}
	return c.GitHub.Token
}

// GitLabToken returns GITLAB_TOKEN if set, otherwise gitlab.token.
func (c Config) GitLabToken() string {
	if c.env.gitlabToken != "" {
		return c.env.gitlabToken
	}
	return c.GitLab.Token
}

// GitLabURL returns GITLAB_URL if set, otherwise gitlab.url.
func (c Config) GitLabURL() string {
	if c.env.gitlabURL != "" {
		return c.env.gitlabURL
	}
	return c.GitLab.URL
}

// EditorCommand returns editor from the file, falling back to VISUAL and then EDITOR.
func (c Config) EditorCommand() string {
	if c.Editor != "" {
		return c.Editor
	}
	return c.env.editor
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// Environment variables are captured alongside the file values and win in the accessors:
//   - GITHUB_TOKEN       over github.token
//   - GITLAB_TOKEN       over gitlab.token
//   - GITLAB_URL         over gitlab.url
//   - KICKSTART_TEMPLATE over template
//
// VISUAL and then EDITOR are used when editor is unset.
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	cfg.env = readEnvironment()
	return cfg, nil
}

// DefaultConfigPath returns the default path for the kickstart config file.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kickstart", "config.toml")
}

func readEnvironment() environment {
	env := environment{
		githubToken: os.Getenv("GITHUB_TOKEN"),
		gitlabToken: os.Getenv("GITLAB_TOKEN"),
		gitlabURL:   os.Getenv("GITLAB_URL"),
		template:    os.Getenv("KICKSTART_TEMPLATE"),
		editor:      os.Getenv("VISUAL"),
	}
	if env.editor == "" {
		env.editor = os.Getenv("EDITOR")
	}
	return env
}

// Save writes the file-backed fields of cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}
