package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry holds registered plugins and dispatches events to the ones that
// implement each hook. Hook lists are resolved once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onBillGenerated        []OnBillGenerated
	onBillGenerationFailed []OnBillGenerationFailed
	onBatchCompleted       []OnBatchCompleted
	onReminderSent         []OnReminderSent
	onPaymentRecorded      []OnPaymentRecorded
	onAdvanceApplied       []OnAdvanceApplied
	onAdvanceDeposited     []OnAdvanceDeposited
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnBillGenerated); ok {
		r.onBillGenerated = append(r.onBillGenerated, v)
		hooks = append(hooks, "OnBillGenerated")
	}
	if v, ok := p.(OnBillGenerationFailed); ok {
		r.onBillGenerationFailed = append(r.onBillGenerationFailed, v)
		hooks = append(hooks, "OnBillGenerationFailed")
	}
	if v, ok := p.(OnBatchCompleted); ok {
		r.onBatchCompleted = append(r.onBatchCompleted, v)
		hooks = append(hooks, "OnBatchCompleted")
	}
	if v, ok := p.(OnReminderSent); ok {
		r.onReminderSent = append(r.onReminderSent, v)
		hooks = append(hooks, "OnReminderSent")
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
		hooks = append(hooks, "OnPaymentRecorded")
	}
	if v, ok := p.(OnAdvanceApplied); ok {
		r.onAdvanceApplied = append(r.onAdvanceApplied, v)
		hooks = append(hooks, "OnAdvanceApplied")
	}
	if v, ok := p.(OnAdvanceDeposited); ok {
		r.onAdvanceDeposited = append(r.onAdvanceDeposited, v)
		hooks = append(hooks, "OnAdvanceDeposited")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every hook in list, logging failures.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitBillGenerated emits a bill generated event.
func (r *Registry) EmitBillGenerated(ctx context.Context, b *bill.Bill, actor string, batch bool) {
	emit(ctx, r, "OnBillGenerated", func(r *Registry) []OnBillGenerated { return r.onBillGenerated },
		func(p OnBillGenerated) error { return p.OnBillGenerated(ctx, b, actor, batch) })
}

// EmitBillGenerationFailed emits a bill generation failure.
func (r *Registry) EmitBillGenerationFailed(ctx context.Context, readingID string, cause error) {
	emit(ctx, r, "OnBillGenerationFailed", func(r *Registry) []OnBillGenerationFailed { return r.onBillGenerationFailed },
		func(p OnBillGenerationFailed) error { return p.OnBillGenerationFailed(ctx, readingID, cause) })
}

// EmitBatchCompleted emits a batch completed event.
func (r *Registry) EmitBatchCompleted(ctx context.Context, summary *bill.BatchSummary, actor string) {
	emit(ctx, r, "OnBatchCompleted", func(r *Registry) []OnBatchCompleted { return r.onBatchCompleted },
		func(p OnBatchCompleted) error { return p.OnBatchCompleted(ctx, summary, actor) })
}

// EmitReminderSent emits a reminder sent event.
func (r *Registry) EmitReminderSent(ctx context.Context, b *bill.Bill, overdue bool) {
	emit(ctx, r, "OnReminderSent", func(r *Registry) []OnReminderSent { return r.onReminderSent },
		func(p OnReminderSent) error { return p.OnReminderSent(ctx, b, overdue) })
}

// EmitPaymentRecorded emits a payment recorded event.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, pay *payment.Payment, b *bill.Bill, actor string) {
	emit(ctx, r, "OnPaymentRecorded", func(r *Registry) []OnPaymentRecorded { return r.onPaymentRecorded },
		func(p OnPaymentRecorded) error { return p.OnPaymentRecorded(ctx, pay, b, actor) })
}

// EmitAdvanceApplied emits an advance applied event.
func (r *Registry) EmitAdvanceApplied(ctx context.Context, pay *payment.Payment, b *bill.Bill, actor string, automatic bool) {
	emit(ctx, r, "OnAdvanceApplied", func(r *Registry) []OnAdvanceApplied { return r.onAdvanceApplied },
		func(p OnAdvanceApplied) error { return p.OnAdvanceApplied(ctx, pay, b, actor, automatic) })
}

// EmitAdvanceDeposited emits an advance deposited event.
func (r *Registry) EmitAdvanceDeposited(ctx context.Context, c *account.Customer, amount types.Money, actor string) {
	emit(ctx, r, "OnAdvanceDeposited", func(r *Registry) []OnAdvanceDeposited { return r.onAdvanceDeposited },
		func(p OnAdvanceDeposited) error { return p.OnAdvanceDeposited(ctx, c, amount, actor) })
}

// callWithTimeout calls a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
