// internal/config/config.go - Watchdog configuration store
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Telegram   TelegramConfig   `yaml:"telegram"`

	ExcludedIPs   []string                     `yaml:"excluded_ips"`
	NotifySSH     bool                         `yaml:"notify_ssh"`
	NotifyReboot  bool                         `yaml:"notify_reboot"`
	AlertSettings map[string]AlertTypeSettings `yaml:"alert_settings"`
	MountPoints   []MountPoint                 `yaml:"mount_points"`
	TopProcesses  int                          `yaml:"top_processes"`
}

// AlertTypeSettings governs how the dispatcher treats one alert type.
// ReminderInterval is in seconds; 0 means never remind.
type AlertTypeSettings struct {
	Enabled          bool  `yaml:"enabled" json:"enabled"`
	ReminderInterval int64 `yaml:"reminder_interval" json:"reminder_interval"`
	NotifyRecovery   bool  `yaml:"notify_recovery" json:"notify_recovery"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MonitoringConfig struct {
	TickInterval          time.Duration `yaml:"tick_interval"`
	SSHCheckInterval      time.Duration `yaml:"ssh_check_interval"`
	InternetCheckInterval time.Duration `yaml:"internet_check_interval"`

	AuthLogPath    string `yaml:"auth_log_path"`
	CheckpointPath string `yaml:"checkpoint_path"`
	LedgerPath     string `yaml:"ledger_path"`
	HistoryPath    string `yaml:"history_path"`

	UptimePath         string `yaml:"uptime_path"`
	UptimeFallbackPath string `yaml:"uptime_fallback_path"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	// APIBaseURL overrides the Telegram API endpoint, mainly for tests.
	APIBaseURL string `yaml:"api_base_url,omitempty"`
}

type MountPoint struct {
	Path      string `yaml:"path" json:"path"`
	Threshold int    `yaml:"threshold" json:"threshold"`
}

// DefaultExcludedIPs are the ranges never alerted on out of the box:
// loopback plus the RFC 1918 private ranges.
func DefaultExcludedIPs() []string {
	return []string{"127.0.0.1", "192.168.0.0/16", "10.0.0.0/8", "172.16.0.0/12"}
}

// SettingsFor returns the settings for one alert type. Unknown or missing
// types fall back to permissive defaults by explicit rule: enabled, hourly
// reminders, recovery notifications on.
func (c *Config) SettingsFor(alertType string) AlertTypeSettings {
	if s, ok := c.AlertSettings[alertType]; ok {
		return s
	}
	return AlertTypeSettings{Enabled: true, ReminderInterval: 3600, NotifyRecovery: true}
}

// HasSettings reports whether the type is explicitly configured.
func (c *Config) HasSettings(alertType string) bool {
	_, ok := c.AlertSettings[alertType]
	return ok
}

// SSHAlertsEnabled resolves whether SSH login alerting is active. Alert
// settings take precedence over the global notify_ssh flag.
func (c *Config) SSHAlertsEnabled() bool {
	if s, ok := c.AlertSettings["ssh"]; ok {
		return s.Enabled
	}
	return c.NotifySSH
}

// RebootAlertsEnabled resolves whether reboot alerting is active.
func (c *Config) RebootAlertsEnabled() bool {
	if s, ok := c.AlertSettings["reboot"]; ok {
		return s.Enabled
	}
	return c.NotifyReboot
}

// Load reads and validates the configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrCreate loads the config file, writing a default one first if it
// does not exist yet.
func LoadOrCreate(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		config := Default()
		if err := config.Save(filename); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}
	return Load(filename)
}

// Validate normalizes missing fields to their defaults and checks the
// result. Surfaces that accept a config from outside Load (the web API)
// must call this before persisting, so that a file we write is always a
// file Load will accept back.
func (c *Config) Validate() error {
	setDefaults(c)
	return validate(c)
}

// Save overwrites the configuration file. The engine itself never calls
// this; only the web configuration surface does.
func (c *Config) Save(filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	config := &Config{
		ExcludedIPs:  DefaultExcludedIPs(),
		NotifySSH:    true,
		NotifyReboot: true,
		AlertSettings: map[string]AlertTypeSettings{
			"ssh": {
				Enabled:          true,
				ReminderInterval: 0, // one notification per login, no reminders
				NotifyRecovery:   false,
			},
			"internet": {
				Enabled:          true,
				ReminderInterval: 0, // reminders cannot be delivered while offline
				NotifyRecovery:   true,
			},
			"reboot": {
				Enabled:          true,
				ReminderInterval: 0,
				NotifyRecovery:   false,
			},
		},
		TopProcesses: 5,
	}
	setDefaults(config)
	return config
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":5000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Monitoring.TickInterval == 0 {
		cfg.Monitoring.TickInterval = 10 * time.Second
	}
	if cfg.Monitoring.SSHCheckInterval == 0 {
		cfg.Monitoring.SSHCheckInterval = 30 * time.Second
	}
	if cfg.Monitoring.InternetCheckInterval == 0 {
		cfg.Monitoring.InternetCheckInterval = 60 * time.Second
	}
	if cfg.Monitoring.AuthLogPath == "" {
		cfg.Monitoring.AuthLogPath = "/var/log/auth.log"
	}
	if cfg.Monitoring.CheckpointPath == "" {
		cfg.Monitoring.CheckpointPath = "./data/auth_log_position"
	}
	if cfg.Monitoring.LedgerPath == "" {
		cfg.Monitoring.LedgerPath = "./data/active_alerts.json"
	}
	if cfg.Monitoring.HistoryPath == "" {
		cfg.Monitoring.HistoryPath = "./data/history.db"
	}
	if cfg.Monitoring.UptimePath == "" {
		cfg.Monitoring.UptimePath = "/proc/uptime"
	}
	if cfg.Monitoring.UptimeFallbackPath == "" {
		cfg.Monitoring.UptimeFallbackPath = "/host/proc/uptime"
	}

	if len(cfg.ExcludedIPs) == 0 {
		cfg.ExcludedIPs = DefaultExcludedIPs()
	}
	if cfg.AlertSettings == nil {
		cfg.AlertSettings = map[string]AlertTypeSettings{}
	}
	if cfg.TopProcesses == 0 {
		cfg.TopProcesses = 5
	}
}

func validate(cfg *Config) error {
	if cfg.Monitoring.TickInterval <= 0 {
		return fmt.Errorf("monitoring.tick_interval must be positive")
	}
	if cfg.Monitoring.SSHCheckInterval <= 0 {
		return fmt.Errorf("monitoring.ssh_check_interval must be positive")
	}
	if cfg.Monitoring.InternetCheckInterval <= 0 {
		return fmt.Errorf("monitoring.internet_check_interval must be positive")
	}

	for name, settings := range cfg.AlertSettings {
		if settings.ReminderInterval < 0 {
			return fmt.Errorf("alert_settings.%s.reminder_interval must be >= 0", name)
		}
	}

	for _, mp := range cfg.MountPoints {
		if mp.Path == "" {
			return fmt.Errorf("mount_points contains entry with empty path")
		}
		if mp.Threshold < 1 || mp.Threshold > 100 {
			return fmt.Errorf("mount point %s threshold must be between 1 and 100", mp.Path)
		}
	}

	if cfg.TopProcesses < 1 || cfg.TopProcesses > 20 {
		return fmt.Errorf("top_processes must be between 1 and 20")
	}

	return nil
}
