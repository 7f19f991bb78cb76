package billing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/billing/plugin"
	"github.com/xraph/billing/store"
	"github.com/xraph/billing/types"
)

// Engine is the billing and ledger engine.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	notifier Notifier
	renderer Renderer
	now      func() time.Time
	migrate  bool

	// Post-commit side effects
	effects  chan effect
	inflight int
	idle     chan struct{}
	idleMu   sync.Mutex
	dispatch sync.RWMutex
	started  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// effect is work that runs after a unit of work committed. It can fail
// without affecting the operation that queued it.
type effect struct {
	name string
	ctx  context.Context
	run  func(ctx context.Context) error
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		config:   DefaultConfig(),
		notifier: NopNotifier{},
		renderer: NopRenderer{},
		now:      time.Now,
		migrate:  true,
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.config = e.config.WithDefaults()
	e.plugins.WithTimeout(e.config.PluginTimeout)
	e.effects = make(chan effect, e.config.EffectQueueSize)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithConfig replaces the engine configuration. Zero fields fall back to
// DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithNotifier sets the customer notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithRenderer sets the bill document renderer.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithClock overrides the time source used for bill dates, due dates and
// payment timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithoutMigrate leaves the schema alone on Start, for deployments that
// migrate out of band.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.migrate = false
	}
}

// Config returns the resolved engine configuration.
func (e *Engine) Config() Config { return e.config }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Start migrates the store unless WithoutMigrate was given, initializes
// plugins and starts the side effect worker. Before Start, side effects
// run inline once their operation commits.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return err
	}

	if e.migrate {
		if err := e.store.Migrate(ctx); err != nil {
			return errors.Join(ErrMigrationFailed, err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.dispatch.Lock()
	e.started = true
	e.dispatch.Unlock()

	e.wg.Add(1)
	go e.effectWorker()

	if e.config.ReminderInterval > 0 {
		e.wg.Add(1)
		go e.reminderWorker(ctx)
	}

	e.logger.Info("billing engine started",
		"invoice_prefix", e.config.InvoicePrefix,
		"effect_queue_size", e.config.EffectQueueSize,
		"reminder_interval", e.config.ReminderInterval,
	)

	return nil
}

// Stop drains queued side effects, shuts plugins down and closes the store.
func (e *Engine) Stop() error {
	e.dispatch.Lock()
	wasStarted := e.started
	e.started = false
	e.dispatch.Unlock()

	if wasStarted {
		close(e.stopChan)
		e.wg.Wait()
	}

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Flush blocks until every queued side effect has run or ctx is done.
func (e *Engine) Flush(ctx context.Context) error {
	e.idleMu.Lock()
	if e.inflight == 0 {
		e.idleMu.Unlock()
		return nil
	}
	idle := e.idle
	e.idleMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track counts a queued effect. The first one opens a new idle channel.
func (e *Engine) track() {
	e.idleMu.Lock()
	if e.inflight == 0 {
		e.idle = make(chan struct{})
	}
	e.inflight++
	e.idleMu.Unlock()
}

// untrack releases a queued effect and wakes Flush callers once none remain.
func (e *Engine) untrack() {
	e.idleMu.Lock()
	e.inflight--
	if e.inflight == 0 {
		close(e.idle)
	}
	e.idleMu.Unlock()
}

// ──────────────────────────────────────────────────
// Side effects
// ──────────────────────────────────────────────────

// emit runs plugin hooks once the caller's unit of work has committed.
// Hooks run inline and are never dropped; the registry bounds each one
// with the plugin timeout.
func (e *Engine) emit(ctx context.Context, fn func(ctx context.Context)) {
	fn(context.WithoutCancel(ctx))
}

// after queues fn to run once the caller's unit of work has committed.
// The effect keeps ctx values but not its cancellation. Notifications and
// renders go through here and are dropped with a warning when the queue
// is full.
func (e *Engine) after(ctx context.Context, name string, fn func(ctx context.Context) error) {
	eff := effect{name: name, ctx: context.WithoutCancel(ctx), run: fn}

	e.dispatch.RLock()
	if !e.started {
		e.dispatch.RUnlock()
		e.runEffect(eff)
		return
	}

	e.track()
	select {
	case e.effects <- eff:
	default:
		e.untrack()
		e.logger.Warn("effect queue full, dropping side effect", "effect", name)
	}
	e.dispatch.RUnlock()
}

func (e *Engine) effectWorker() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			// Final drain
			for {
				select {
				case eff := <-e.effects:
					e.runEffect(eff)
					e.untrack()
				default:
					return
				}
			}

		case eff := <-e.effects:
			e.runEffect(eff)
			e.untrack()
		}
	}
}

func (e *Engine) runEffect(eff effect) {
	ctx, cancel := context.WithTimeout(eff.ctx, e.config.EffectTimeout)
	defer cancel()

	if err := eff.run(ctx); err != nil {
		e.logger.Warn("side effect failed",
			"effect", eff.name,
			"error", err,
		)
	}
}

func (e *Engine) reminderWorker(ctx context.Context) {
	defer e.wg.Done()

	ctx = context.WithoutCancel(ctx)
	ticker := time.NewTicker(e.config.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			due, err := e.SendDueReminders(ctx)
			if err != nil {
				e.logger.Error("due reminder sweep failed", "error", err)
			}
			overdue, err := e.SendOverdueReminders(ctx)
			if err != nil {
				e.logger.Error("overdue reminder sweep failed", "error", err)
			}
			e.logger.Debug("reminder sweep finished", "due", due, "overdue", overdue)
		}
	}
}

// today is the current calendar day in UTC.
func (e *Engine) today() time.Time {
	return types.Day(e.now())
}
