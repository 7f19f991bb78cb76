package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/billing"
	"github.com/xraph/billing/plugin"
	"github.com/xraph/billing/store"
	mongostore "github.com/xraph/billing/store/mongo"
)

// Option configures the billing Forge extension.
type Option func(*Extension)

// WithStore sets the store for the billing engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithMongoDatabase backs the engine with the MongoDB store on db. The
// deployment must be a replica set so bills and payments commit atomically.
func WithMongoDatabase(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongostore.New(db)
	}
}

// WithEngineOption passes a billing.Option through to the underlying engine.
func WithEngineOption(opt billing.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a billing plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, billing.WithPlugin(p))
	}
}

// WithNotifier delivers bill, receipt and reminder notifications.
func WithNotifier(n billing.Notifier) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, billing.WithNotifier(n))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithInvoicePrefix sets the prefix of generated invoice numbers.
func WithInvoicePrefix(prefix string) Option {
	return func(e *Extension) { e.config.Engine.InvoicePrefix = prefix }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
