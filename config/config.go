// Package config loads the billingctl configuration from a YAML file and
// BILLING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/billing"
	"github.com/xraph/billing/notify/kafka"
)

// EnvPrefix prefixes every environment override, e.g.
// BILLING_STORE_DSN overrides store.dsn.
const EnvPrefix = "BILLING"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// File is the full configuration file.
type File struct {
	Billing billing.Config `mapstructure:"billing"`
	Store   StoreConfig    `mapstructure:"store"`
	Kafka   KafkaConfig    `mapstructure:"kafka"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging LoggingConfig  `mapstructure:"logging"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// KafkaConfig enables notifications when Brokers is non-empty.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	RequiredAcks string        `mapstructure:"required_acks"`
	Compression  string        `mapstructure:"compression_codec"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// Producer converts k to the producer settings of the kafka notifier.
func (k KafkaConfig) Producer() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		RequiredAcks: k.RequiredAcks,
		Compression:  k.Compression,
		RetryMax:     k.RetryMax,
		RetryBackoff: k.RetryBackoff,
	}
}

// MetricsConfig serves Prometheus metrics on Addr when enabled.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel parses Level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func setDefaults(v *viper.Viper) {
	d := billing.DefaultConfig()
	v.SetDefault("billing.invoice_prefix", d.InvoicePrefix)
	v.SetDefault("billing.currency", d.Currency)
	v.SetDefault("billing.default_due_days", d.DefaultDueDays)
	v.SetDefault("billing.fallback_late_fee", d.FallbackLateFee)
	v.SetDefault("billing.reminder_window_days", d.ReminderWindowDays)
	v.SetDefault("billing.reminder_interval", d.ReminderInterval)
	v.SetDefault("billing.effect_queue_size", d.EffectQueueSize)
	v.SetDefault("billing.effect_timeout", d.EffectTimeout)
	v.SetDefault("billing.plugin_timeout", d.PluginTimeout)

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "billing.db")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "billing-events")
	v.SetDefault("kafka.client_id", "billingctl")
	v.SetDefault("kafka.required_acks", "all")
	v.SetDefault("kafka.compression_codec", "none")
	v.SetDefault("kafka.retry_max", 5)
	v.SetDefault("kafka.retry_backoff", 100*time.Millisecond)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads path when it is non-empty, or billing.yaml from the working
// directory and /etc/billing otherwise. A missing default file is not an
// error. Environment variables override both.
func Load(path string) (*File, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("billing")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/billing")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	// AutomaticEnv hands lists over as one comma-separated string.
	f.Kafka.Brokers = splitList(f.Kafka.Brokers)

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate reports every invalid field at once.
func (f *File) Validate() error {
	var errs billing.MultiError
	if err := f.Billing.Validate(); err != nil {
		var me billing.MultiError
		if errors.As(err, &me) {
			for _, e := range me.Errors {
				errs.Add(e)
			}
		} else {
			errs.Add(err)
		}
	}

	switch f.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMongo:
		if f.Store.DSN == "" {
			errs.Add(billing.ValidationError{Field: "store.dsn", Message: "required for driver " + f.Store.Driver})
		}
	case DriverMemory:
	default:
		errs.Add(billing.ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("unknown driver %q, want postgres, sqlite, mongo or memory", f.Store.Driver),
		})
	}

	if f.Kafka.Enabled() && f.Kafka.Topic == "" {
		errs.Add(billing.ValidationError{Field: "kafka.topic", Message: "required when brokers are set"})
	}
	if f.Metrics.Enabled && f.Metrics.Addr == "" {
		errs.Add(billing.ValidationError{Field: "metrics.addr", Message: "required when metrics are enabled"})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func describe(path string) string {
	if path == "" {
		return "billing.yaml"
	}
	return path
}
