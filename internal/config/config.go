package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a release run.
// Values are populated from .release-me.yaml, RELEASE_ME_* env vars, and CLI flags.
type Config struct {
	MainBranch        string        `mapstructure:"main_branch"`
	Remote            string        `mapstructure:"remote"`
	ToolPackage       string        `mapstructure:"tool_package"`
	ManifestFile      string        `mapstructure:"manifest_file"`
	ChangelogFile     string        `mapstructure:"changelog_file"`
	ChangelogDir      string        `mapstructure:"changelog_dir"`
	GitTagPrefix      string        `mapstructure:"git_tag_prefix"`
	VersionFile       string        `mapstructure:"version_file"`
	VersionSnippet    string        `mapstructure:"version_snippet"`
	BoilerplatePrefix string        `mapstructure:"boilerplate_prefix"`
	PackageManager    string        `mapstructure:"package_manager"`
	RegistryClient    string        `mapstructure:"registry_client"`
	BuildScript       string        `mapstructure:"build_script"`
	InstallTimeout    time.Duration `mapstructure:"install_timeout"`
	CommitDistTag     string        `mapstructure:"commit_dist_tag"`
	LogLevel          string        `mapstructure:"log_level"`
	Verbose           bool          `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("main_branch", "main")
	viper.SetDefault("remote", "origin")
	viper.SetDefault("tool_package", "@brillout/release-me")
	viper.SetDefault("manifest_file", "package.json")
	viper.SetDefault("changelog_file", "CHANGELOG.md")
	viper.SetDefault("changelog_dir", "")
	viper.SetDefault("git_tag_prefix", "")
	viper.SetDefault("version_file", "projectInfo.ts")
	viper.SetDefault("version_snippet", "const PROJECT_VERSION = '%s'")
	viper.SetDefault("boilerplate_prefix", "create-")
	viper.SetDefault("package_manager", "pnpm")
	viper.SetDefault("registry_client", "npm")
	viper.SetDefault("build_script", "build")
	viper.SetDefault("install_timeout", 10*time.Minute)
	viper.SetDefault("commit_dist_tag", "commit")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// Validate rejects configurations the release workflow cannot run with.
func (c Config) Validate() error {
	required := []struct {
		key, val string
	}{
		{"main_branch", c.MainBranch},
		{"remote", c.Remote},
		{"tool_package", c.ToolPackage},
		{"manifest_file", c.ManifestFile},
		{"changelog_file", c.ChangelogFile},
		{"package_manager", c.PackageManager},
		{"registry_client", c.RegistryClient},
		{"commit_dist_tag", c.CommitDistTag},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("config: %s must not be empty", r.key)
		}
	}
	if c.InstallTimeout <= 0 {
		return fmt.Errorf("config: install_timeout must be positive, got %s", c.InstallTimeout)
	}
	if c.VersionFile != "" && c.VersionSnippet == "" {
		return fmt.Errorf("config: version_snippet is required when version_file is set")
	}
	if c.VersionSnippet != "" {
		verbs := strings.ReplaceAll(c.VersionSnippet, "%%", "")
		if strings.Count(verbs, "%") != 1 || strings.Count(verbs, "%s") != 1 {
			return fmt.Errorf("config: version_snippet must contain exactly one %%s, got %q", c.VersionSnippet)
		}
	}
	return nil
}
