package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pstryklab/pstryk-go/logging"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigPstryk struct {
	// Base URL of the Pstryk integrations API, default: the public endpoint
	BaseUrl *string `mapstructure:"base_url"`
	// Static bearer token handed out in the Pstryk app
	ApiToken string `mapstructure:"api_token"`
	// Request timeout in seconds, default: 10
	TimeoutSeconds *int `mapstructure:"timeout_seconds"`
	// Number of fractional digits for surfaced monetary values, default: 4
	PriceDecimals *int `mapstructure:"price_decimals"`
	// Cron expression for the refresh cycle, default: top of every hour
	RunAt *string `mapstructure:"run_at"`
}

func (p AppConfigPstryk) GetBaseUrl() string {
	if p.BaseUrl == nil {
		return ""
	}
	return *p.BaseUrl
}

func (p AppConfigPstryk) GetTimeout() time.Duration {
	if p.TimeoutSeconds == nil {
		return 10 * time.Second
	}
	return time.Duration(*p.TimeoutSeconds) * time.Second
}

func (p AppConfigPstryk) GetPriceDecimals() int {
	if p.PriceDecimals == nil {
		return 4
	}
	return *p.PriceDecimals
}

func (p AppConfigPstryk) GetRunAt() string {
	if p.RunAt == nil {
		return "0 * * * *"
	}
	return *p.RunAt
}

type AppConfigMeter struct {
	Host     string // Empty host disables the local meter input
	Port     int16
	Username string
	Password string
}

func (m AppConfigMeter) Enabled() bool {
	return m.Host != ""
}

type AppConfigCache struct {
	Dir string
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they get deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigDisplay struct {
	// Timezone used for local calendar bucketing and displayed times, default: Europe/Warsaw
	Timezone *string `mapstructure:"timezone"`
}

func (d AppConfigDisplay) GetTimezone() string {
	if d.Timezone == nil {
		return "Europe/Warsaw"
	}
	return *d.Timezone
}

type AppConfigLogging struct {
	// Min log level for database: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return "JSON"
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return "TEXT"
	}
	return "JSON"
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api      AppConfigApi
	Pstryk   AppConfigPstryk
	Meter    AppConfigMeter
	Cache    AppConfigCache
	Database AppConfigDatabase
	Display  AppConfigDisplay
	Logging  AppConfigLogging
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	// Config is read once at startup, a change on disk only gets logged.
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Default().Warn("config file changed, restart to apply", slog.String("file", e.Name))
	})
	viper.WatchConfig()

	return &c, nil
}
