package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/plugin"
	"github.com/xraph/billing/types"
)

// Config holds engine settings. Fields carry mapstructure and yaml tags so
// the same struct loads from files through viper or the forge config
// manager.
type Config struct {
	// InvoicePrefix starts every invoice number (default: "VIT").
	InvoicePrefix string `json:"invoice_prefix" mapstructure:"invoice_prefix" yaml:"invoice_prefix"`

	// Currency is the ISO 4217 code bills are issued in (default: "inr").
	// Generation refuses tariffs priced in any other currency.
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// DefaultDueDays applies when no late fee policy is in effect (default: 15).
	DefaultDueDays int `json:"default_due_days" mapstructure:"default_due_days" yaml:"default_due_days"`

	// FallbackLateFee is charged, in major units, when an account carries a
	// previous due but no late fee policy applies (default: "50.00").
	FallbackLateFee string `json:"fallback_late_fee" mapstructure:"fallback_late_fee" yaml:"fallback_late_fee"`

	// ReminderWindowDays is how far ahead due reminders look (default: 3).
	ReminderWindowDays int `json:"reminder_window_days" mapstructure:"reminder_window_days" yaml:"reminder_window_days"`

	// ReminderInterval runs both reminder sweeps periodically once the
	// engine is started. Zero disables the ticker.
	ReminderInterval time.Duration `json:"reminder_interval" mapstructure:"reminder_interval" yaml:"reminder_interval"`

	// EffectQueueSize bounds post-commit side effects waiting for the
	// worker (default: 1024).
	EffectQueueSize int `json:"effect_queue_size" mapstructure:"effect_queue_size" yaml:"effect_queue_size"`

	// EffectTimeout bounds one side effect (default: 30s).
	EffectTimeout time.Duration `json:"effect_timeout" mapstructure:"effect_timeout" yaml:"effect_timeout"`

	// PluginTimeout bounds one plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		InvoicePrefix:      "VIT",
		Currency:           types.DefaultCurrency,
		DefaultDueDays:     latefee.DefaultStandardDueDays,
		FallbackLateFee:    "50.00",
		ReminderWindowDays: 3,
		EffectQueueSize:    1024,
		EffectTimeout:      30 * time.Second,
		PluginTimeout:      plugin.DefaultTimeout,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.InvoicePrefix == "" {
		c.InvoicePrefix = d.InvoicePrefix
	}
	if c.Currency == "" {
		c.Currency = d.Currency
	}
	if c.DefaultDueDays == 0 {
		c.DefaultDueDays = d.DefaultDueDays
	}
	if c.FallbackLateFee == "" {
		c.FallbackLateFee = d.FallbackLateFee
	}
	if c.ReminderWindowDays == 0 {
		c.ReminderWindowDays = d.ReminderWindowDays
	}
	if c.EffectQueueSize == 0 {
		c.EffectQueueSize = d.EffectQueueSize
	}
	if c.EffectTimeout == 0 {
		c.EffectTimeout = d.EffectTimeout
	}
	if c.PluginTimeout == 0 {
		c.PluginTimeout = d.PluginTimeout
	}
	return c
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs MultiError
	if c.InvoicePrefix == "" {
		errs.Add(invalid("invoice_prefix", "must not be empty"))
	}
	if c.DefaultDueDays < 0 {
		errs.Add(invalid("default_due_days", "must not be negative, got %d", c.DefaultDueDays))
	}
	if d, err := decimal.NewFromString(c.FallbackLateFee); err != nil {
		errs.Add(invalid("fallback_late_fee", "%q is not a decimal amount", c.FallbackLateFee))
	} else if d.IsNegative() {
		errs.Add(invalid("fallback_late_fee", "must not be negative, got %s", c.FallbackLateFee))
	}
	if c.ReminderWindowDays < 0 {
		errs.Add(invalid("reminder_window_days", "must not be negative, got %d", c.ReminderWindowDays))
	}
	if c.EffectQueueSize < 0 {
		errs.Add(invalid("effect_queue_size", "must not be negative, got %d", c.EffectQueueSize))
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// currency is the normalized billing currency.
func (c Config) currency() string {
	return types.Zero(c.Currency).Currency
}

// fallbackLateFee is the configured fallback fee in the bill's currency.
func (c Config) fallbackLateFee(currency string) types.Money {
	d, err := decimal.NewFromString(c.FallbackLateFee)
	if err != nil {
		return types.Zero(currency)
	}
	return types.FromDecimal(d, currency)
}
