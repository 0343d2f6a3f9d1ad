package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

const (
	defaultDBPath         = "./database.sqlite"
	defaultScreenshotDir  = "screenshots"
	defaultViewportWidth  = 1500
	defaultViewportHeight = 920
	defaultCaptureTimeout = 60
	defaultPollTimeout    = 10
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Log      LogConfig      `yaml:"log"`
}

type TelegramConfig struct {
	Token              string `yaml:"token"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SnapshotConfig struct {
	Dir            string `yaml:"dir"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// Empty means chromedp looks the browser up on PATH.
	ChromePath string `yaml:"chrome_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// LoadConfig reads filename (if non-empty), applies env overrides and fills
// defaults. It does not check for the bot token, see Validate.
func LoadConfig(filename string) (*Config, error) {
	var config Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal YAML")
		}
	}

	config.applyEnv()
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("SHIPBOT_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("SHIPBOT_SCREENSHOT_DIR"); v != "" {
		c.Snapshot.Dir = v
	}
}

func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeoutSeconds <= 0 {
		c.Telegram.PollTimeoutSeconds = defaultPollTimeout
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = defaultScreenshotDir
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = defaultViewportWidth
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = defaultViewportHeight
	}
	if c.Snapshot.TimeoutSeconds <= 0 {
		c.Snapshot.TimeoutSeconds = defaultCaptureTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks what the bot cannot start without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (set BOT_TOKEN)")
	}
	return nil
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Telegram.PollTimeoutSeconds) * time.Second
}

func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Snapshot.TimeoutSeconds) * time.Second
}
