// Package config builds the exporter configuration once at startup.
// Values come from an optional YAML file overlaid by environment
// variables; components receive the resulting struct and never read
// the environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SQL       SQLConfig       `yaml:"sql"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Export    ExportConfig    `yaml:"export"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Watermark WatermarkConfig `yaml:"watermark"`
	RunLog    string          `yaml:"run_log"`
	Log       LogConfig       `yaml:"log"`

	// NotifyOnFailure sends a plain notice to the recipient when the
	// run fails, in addition to the run log entry.
	NotifyOnFailure bool `yaml:"notify_on_failure"`
}

type SQLConfig struct {
	Server   string `yaml:"server"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type SMTPConfig struct {
	Server    string `yaml:"server"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Recipient string `yaml:"recipient"`
}

type ExportConfig struct {
	// Compress gzips the CSV payload before attaching/archiving.
	Compress bool `yaml:"compress"`
}

type ArchiveConfig struct {
	Backend string `yaml:"backend"` // "" (disabled) | "local" | "gcs" | "s3"
	Bucket  string `yaml:"bucket"`
	Dir     string `yaml:"dir"`
	Prefix  string `yaml:"prefix"`
	Format  string `yaml:"format"` // "csv" | "parquet"
	Region  string `yaml:"region"`
}

type WatermarkConfig struct {
	File     string `yaml:"file"`
	LockFile string `yaml:"lock_file"` // "" disables the advisory lock
}

type LogConfig struct {
	Format string `yaml:"format"` // "json" | "text"
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
}

// Load builds the configuration from an optional YAML file at path
// (empty path skips the file) with environment variables taking
// precedence. Missing required settings fail the load.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		SMTP:      SMTPConfig{Port: 587},
		Archive:   ArchiveConfig{Prefix: "exports/", Format: "csv"},
		Watermark: WatermarkConfig{File: "./watermark.txt"},
		RunLog:    "./logs.txt",
		Log:       LogConfig{Format: "text", Level: "info"},
	}
}

func (c *Config) applyEnv() {
	setenv(&c.SQL.Server, "SQL_SERVER")
	setenv(&c.SQL.Database, "SQL_DATABASE")
	setenv(&c.SQL.User, "SQL_UID")
	setenv(&c.SQL.Password, "SQL_PWD")

	setenv(&c.SMTP.Server, "SMTP_SERVER")
	setenvInt(&c.SMTP.Port, "SMTP_PORT")
	setenv(&c.SMTP.Username, "SMTP_USERNAME")
	setenv(&c.SMTP.Password, "SMTP_PASSWORD")
	setenv(&c.SMTP.Recipient, "SMTP_RECIPIENT")

	setenvBool(&c.Export.Compress, "EXPORT_COMPRESS")
	setenvBool(&c.NotifyOnFailure, "NOTIFY_ON_FAILURE")

	setenv(&c.Archive.Backend, "ARCHIVE_BACKEND")
	setenv(&c.Archive.Bucket, "ARCHIVE_BUCKET")
	setenv(&c.Archive.Dir, "ARCHIVE_DIR")
	setenv(&c.Archive.Prefix, "ARCHIVE_PREFIX")
	setenv(&c.Archive.Format, "ARCHIVE_FORMAT")
	setenv(&c.Archive.Region, "ARCHIVE_REGION")

	setenv(&c.Watermark.File, "WATERMARK_FILE")
	setenv(&c.Watermark.LockFile, "LOCK_FILE")
	setenv(&c.RunLog, "RUN_LOG")

	setenv(&c.Log.Format, "LOG_FORMAT")
	setenv(&c.Log.Level, "LOG_LEVEL")
}

// validate checks the settings the run cannot start without. Everything
// here fails before any connection is opened.
func (c *Config) validate() error {
	var missing []string
	required := []struct {
		key string
		val string
	}{
		{"SQL_SERVER", c.SQL.Server},
		{"SQL_DATABASE", c.SQL.Database},
		{"SQL_UID", c.SQL.User},
		{"SQL_PWD", c.SQL.Password},
		{"SMTP_SERVER", c.SMTP.Server},
		{"SMTP_USERNAME", c.SMTP.Username},
		{"SMTP_PASSWORD", c.SMTP.Password},
		{"SMTP_RECIPIENT", c.SMTP.Recipient},
	}
	for _, r := range required {
		if r.val == "" {
			missing = append(missing, r.key)
		}
	}
	if c.SMTP.Port <= 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Archive.Backend {
	case "", "local", "gcs", "s3":
	default:
		return fmt.Errorf("unknown archive backend: %s", c.Archive.Backend)
	}
	switch c.Archive.Format {
	case "csv", "parquet":
	default:
		return fmt.Errorf("unknown archive format: %s", c.Archive.Format)
	}
	return nil
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setenvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setenvBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}
