package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/app-updater/internal/domain/release"
)

// Feeds holds the feed URI of every update channel.
type Feeds struct {
	// Release is the feed of stable builds.
	Release string `yaml:"release"`
	// Beta is the feed of beta builds.
	Beta string `yaml:"beta"`
	// All is the feed listing every build.
	All string `yaml:"all"`
}

// Proxy describes the user's proxy settings.
type Proxy struct {
	// URL is the proxy address, e.g. http://proxy:3128. Empty means the
	// environment proxy (HTTP_PROXY and friends) is used.
	URL string `yaml:"url"`
	// Username is optional proxy authentication.
	Username string `yaml:"username,omitempty"`
	// Password is optional proxy authentication.
	Password string `yaml:"password,omitempty"`
	// Disabled turns off every proxy, including the environment one.
	Disabled bool `yaml:"no_proxy,omitempty"`
}

// Config holds the settings supplied by the owner application.
type Config struct {
	// Channel selects the feed: release, beta or all.
	Channel string `yaml:"channel"`
	// Feeds maps channels to feed URIs.
	Feeds Feeds `yaml:"feeds"`
	// FeedURL overrides the channel feed when set.
	FeedURL string `yaml:"feed_url,omitempty"`
	// OwnerPath is the application relaunched after the update.
	OwnerPath string `yaml:"owner_path,omitempty"`
	// DownloadDir receives downloaded artifacts.
	DownloadDir string `yaml:"download_dir"`
	// ScriptPath is where the install script is written; derived from DownloadDir when empty.
	ScriptPath string `yaml:"script_path,omitempty"`
	// StateFile stores the outcome of the last check.
	StateFile string `yaml:"state_file"`
	// Timeout bounds the feed request and the wait for response headers.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFile optionally duplicates logs to a rotating file.
	LogFile string `yaml:"log_file,omitempty"`
	// Proxy configures outgoing HTTP requests.
	Proxy Proxy `yaml:"proxy"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "app-updater-settings.yaml"

	// DefaultStateFilename is the default filename for the last check state.
	DefaultStateFilename = "app-updater-state.yaml"

	// DefaultChannel is used when no channel is configured.
	DefaultChannel = "release"

	// DefaultTimeout is the default duration for feed requests.
	DefaultTimeout = 30 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config and state files.
	DefaultFilePermissions = 0o600

	// appDirName is the directory created under the XDG cache home.
	appDirName = "app-updater"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownChannel is returned for channel names other than release, beta and all.
	errUnknownChannel = errors.New("unknown update channel")
	// errFeedRequired is returned when the selected channel has no feed.
	errFeedRequired = errors.New("feed URI must be provided for the selected channel")
	// errNotAbsoluteURI is returned for feed or proxy URIs without scheme and host.
	errNotAbsoluteURI = errors.New("URI must be absolute")
)

// DefaultDownloadDir returns the per-user cache directory for artifacts.
func DefaultDownloadDir() string {
	return filepath.Join(xdg.CacheHome, appDirName)
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the proxy password may be stored here.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks channel, feed and proxy settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Channel == "" {
		settings.Channel = DefaultChannel
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if settings.DownloadDir == "" {
		settings.DownloadDir = DefaultDownloadDir()
	}

	if settings.StateFile == "" {
		settings.StateFile = filepath.Join(settings.DownloadDir, DefaultStateFilename)
	}

	mode, err := settings.Mode()
	if err != nil {
		return err
	}

	feedURL := settings.FeedFor(mode)
	if feedURL == "" {
		return fmt.Errorf("channel %s: %w", settings.Channel, errFeedRequired)
	}

	for _, uri := range []string{settings.FeedURL, settings.Feeds.Release, settings.Feeds.Beta, settings.Feeds.All} {
		if uri == "" {
			continue
		}

		if err = validateAbsoluteURI(uri); err != nil {
			return fmt.Errorf("invalid feed URI: %w", err)
		}
	}

	if settings.Proxy.URL != "" {
		if err = validateAbsoluteURI(settings.Proxy.URL); err != nil {
			return fmt.Errorf("invalid proxy URI: %w", err)
		}
	}

	return nil
}

// Mode returns the configured channel as a release mode.
func (c *Config) Mode() (release.Mode, error) {
	channel := c.Channel
	if channel == "" {
		channel = DefaultChannel
	}

	mode := release.ParseMode(channel)
	if mode == release.ModeUnknown {
		return mode, fmt.Errorf("%w: %s", errUnknownChannel, channel)
	}

	return mode, nil
}

// FeedFor returns the feed URI for mode. An explicit FeedURL always wins.
func (c *Config) FeedFor(mode release.Mode) string {
	if c.FeedURL != "" {
		return c.FeedURL
	}

	switch mode {
	case release.ModeBetaBuild:
		return c.Feeds.Beta
	case release.ModeAllBuilds:
		return c.Feeds.All
	case release.ModeReleaseBuild, release.ModeUnknown:
		return c.Feeds.Release
	default:
		return c.Feeds.Release
	}
}

func validateAbsoluteURI(uri string) error {
	parsed, err := url.ParseRequestURI(uri)
	if err != nil {
		return err
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s: %w", uri, errNotAbsoluteURI)
	}

	return nil
}
