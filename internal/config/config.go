// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Player() PlayerConfig
	Toolkit() ToolkitConfig
	Browser() BrowserConfig
	Archive() ArchiveConfig
	Report() ReportConfig
	Run() RunConfig
	SetRunConfig(rc RunConfig)
}

// Config holds the entire application configuration. Access normally goes
// through the Interface getters; the exported fields exist for unmarshaling
// and for tests that need to poke individual values.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	PlayerCfg  PlayerConfig  `mapstructure:"player" yaml:"player"`
	ToolkitCfg ToolkitConfig `mapstructure:"toolkit" yaml:"toolkit"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	ArchiveCfg ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	ReportCfg  ReportConfig  `mapstructure:"report" yaml:"report"`
	// RunCfg gets its marching orders from CLI flags, not the config file.
	RunCfg RunConfig `mapstructure:"-" yaml:"-"`
}

// --- Interface Method Implementations ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Player() PlayerConfig   { return c.PlayerCfg }
func (c *Config) Toolkit() ToolkitConfig { return c.ToolkitCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Archive() ArchiveConfig { return c.ArchiveCfg }
func (c *Config) Report() ReportConfig   { return c.ReportCfg }
func (c *Config) Run() RunConfig         { return c.RunCfg }

func (c *Config) SetRunConfig(rc RunConfig) { c.RunCfg = rc }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PlayerConfig tunes the event player's timing and failure behavior.
type PlayerConfig struct {
	// EventDelay is the default wait applied before an injected event plays.
	EventDelay time.Duration `mapstructure:"event_delay" yaml:"event_delay"`
	// TypingDelay separates the keydown/keyup pairs of an expanded type.
	TypingDelay time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`
	// PollInterval is the readiness re-check cadence for waiting playables.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// Timeout bounds how long a playable may stay not-ready. Zero disables
	// timeout enforcement.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// TrapExceptions converts panics inside queued callbacks into playable
	// failures instead of crashing the run.
	TrapExceptions bool `mapstructure:"trap_exceptions" yaml:"trap_exceptions"`
	// VisualFeedback renders a pointer marker on the page while events play.
	VisualFeedback bool `mapstructure:"visual_feedback" yaml:"visual_feedback"`
	// VisualStopGrace keeps the marker on screen briefly after a failure so
	// the last position stays inspectable.
	VisualStopGrace time.Duration `mapstructure:"visual_stop_grace" yaml:"visual_stop_grace"`
}

// ToolkitConfig selects which widget library variant the futures layer
// targets.
type ToolkitConfig struct {
	// Variant is "classic" or "modern".
	Variant string `mapstructure:"variant" yaml:"variant"`
}

// BrowserConfig holds settings for the headless browser host.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// TypingRate caps CDP key event dispatch in keys per second.
	TypingRate float64        `mapstructure:"typing_rate" yaml:"typing_rate"`
	Viewport   map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// ArchiveConfig holds the run-archive database settings.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"-"`
	// Compress stores spec transcripts brotli-compressed.
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ReportConfig selects the result reporters.
type ReportConfig struct {
	// Formats lists enabled reporters: "log", "junit".
	Formats []string `mapstructure:"formats" yaml:"formats"`
	// JUnitPath is where the junit reporter writes its XML.
	JUnitPath string `mapstructure:"junit_path" yaml:"junit_path"`
}

// RunConfig holds settings populated from CLI flags for one run.
type RunConfig struct {
	URL      string
	Scenario string
	Output   string
}

// NewDefaultConfig creates a new configuration struct populated with default
// values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration
// parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "orion-core")
	v.SetDefault("logger.log_file", "orion.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Player --
	v.SetDefault("player.event_delay", "500ms")
	v.SetDefault("player.typing_delay", "50ms")
	v.SetDefault("player.poll_interval", "50ms")
	v.SetDefault("player.timeout", "5s")
	v.SetDefault("player.trap_exceptions", true)
	v.SetDefault("player.visual_feedback", false)
	v.SetDefault("player.visual_stop_grace", "250ms")

	// -- Toolkit --
	v.SetDefault("toolkit.variant", "classic")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.typing_rate", 20.0)

	// -- Archive --
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.compress", true)

	// -- Report --
	v.SetDefault("report.formats", []string{"log"})
	v.SetDefault("report.junit_path", "orion-results.xml")
}

// NewConfigFromViper creates a new configuration instance from a viper
// object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("archive.url", "ORION_ARCHIVE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.PlayerCfg.Validate(); err != nil {
		return fmt.Errorf("player configuration invalid: %w", err)
	}
	if err := c.ToolkitCfg.Validate(); err != nil {
		return fmt.Errorf("toolkit configuration invalid: %w", err)
	}
	if c.BrowserCfg.TypingRate <= 0 {
		return fmt.Errorf("browser.typing_rate must be positive")
	}
	if err := c.ArchiveCfg.Validate(); err != nil {
		return fmt.Errorf("archive configuration invalid: %w", err)
	}
	for _, f := range c.ReportCfg.Formats {
		if f != "log" && f != "junit" {
			return fmt.Errorf("unknown report format %q", f)
		}
	}
	return nil
}

// Validate checks the player timing settings.
func (p *PlayerConfig) Validate() error {
	if p.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if p.EventDelay < 0 || p.TypingDelay < 0 {
		return fmt.Errorf("event delays must not be negative")
	}
	return nil
}

// Validate checks the toolkit selection.
func (t *ToolkitConfig) Validate() error {
	switch t.Variant {
	case "classic", "modern":
		return nil
	}
	return fmt.Errorf("variant must be \"classic\" or \"modern\", got %q", t.Variant)
}

// Validate checks the archive settings.
func (a *ArchiveConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.URL == "" {
		return fmt.Errorf("archive.url is required when the archive is enabled. Set ORION_ARCHIVE_URL")
	}
	return nil
}
