// Package audithook turns billing events into audit records.
//
// The package defines its own Recorder so the audit backend stays a
// wiring-time choice. Every mutating engine operation produces exactly one
// record per entity it changed.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/plugin"
	"github.com/xraph/billing/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnBillGenerated        = (*Extension)(nil)
	_ plugin.OnBillGenerationFailed = (*Extension)(nil)
	_ plugin.OnBatchCompleted       = (*Extension)(nil)
	_ plugin.OnReminderSent         = (*Extension)(nil)
	_ plugin.OnPaymentRecorded      = (*Extension)(nil)
	_ plugin.OnAdvanceApplied       = (*Extension)(nil)
	_ plugin.OnAdvanceDeposited     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit log entry.
type AuditEvent struct {
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	Category   string         `json:"category"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

type ipKey struct{}

// WithIPAddress attaches the caller's address to ctx so audit records made
// on its behalf carry it.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// IPAddressFrom returns the address set by WithIPAddress.
func IPAddressFrom(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}

// Extension bridges billing events to a Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillGenerated implements plugin.OnBillGenerated.
func (e *Extension) OnBillGenerated(ctx context.Context, b *bill.Bill, actor string, batch bool) error {
	action := ActionGenerateBill
	if batch {
		action = ActionGenerateBillBatchEntry
	}
	return e.record(ctx, actor, action, SeverityInfo, OutcomeSuccess,
		EntityBill, b.ID.String(), CategoryBilling, nil,
		"invoice_number", b.InvoiceNumber,
		"billing_month", b.BillingMonth,
		"net_payable", b.NetPayable.FormatMajor(),
	)
}

// OnBillGenerationFailed implements plugin.OnBillGenerationFailed.
func (e *Extension) OnBillGenerationFailed(ctx context.Context, readingID string, cause error) error {
	return e.record(ctx, SystemActor, ActionGenerateBillFailed, SeverityWarning, OutcomeFailure,
		EntityReading, readingID, CategoryBilling, cause,
	)
}

// OnBatchCompleted implements plugin.OnBatchCompleted.
func (e *Extension) OnBatchCompleted(ctx context.Context, s *bill.BatchSummary, actor string) error {
	outcome := OutcomeSuccess
	if len(s.Errors) > 0 {
		outcome = OutcomePartial
	}
	return e.record(ctx, actor, ActionGenerateBillBatch, SeverityInfo, outcome,
		EntityBatch, s.Month, CategoryBilling, nil,
		"evaluated", s.Evaluated,
		"created", s.Created,
		"skipped", s.Skipped,
		"errors", len(s.Errors),
	)
}

// OnReminderSent implements plugin.OnReminderSent.
func (e *Extension) OnReminderSent(ctx context.Context, b *bill.Bill, overdue bool) error {
	action := ActionBillReminder
	if overdue {
		action = ActionBillOverdueReminder
	}
	return e.record(ctx, SystemActor, action, SeverityInfo, OutcomeSuccess,
		EntityBill, b.ID.String(), CategoryReminder, nil,
		"invoice_number", b.InvoiceNumber,
		"due_date", b.DueDate.Format(types.DateLayout),
		"balance", b.Balance.FormatMajor(),
	)
}

// ──────────────────────────────────────────────────
// Payment and wallet hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, p *payment.Payment, b *bill.Bill, actor string) error {
	return e.record(ctx, actor, ActionRecordPayment, SeverityInfo, OutcomeSuccess,
		EntityPayment, p.ID.String(), CategoryPayment, nil,
		"reference", p.Reference,
		"bill_id", b.ID.String(),
		"amount", p.Amount.FormatMajor(),
		"convenience_fee", p.ConvenienceFee.FormatMajor(),
		"mode", string(p.Mode),
	)
}

// OnAdvanceApplied implements plugin.OnAdvanceApplied.
func (e *Extension) OnAdvanceApplied(ctx context.Context, p *payment.Payment, b *bill.Bill, actor string, automatic bool) error {
	action := ActionApplyAdvance
	if automatic {
		action = ActionAutoApplyAdvance
	}
	return e.record(ctx, actor, action, SeverityInfo, OutcomeSuccess,
		EntityPayment, p.ID.String(), CategoryWallet, nil,
		"bill_id", b.ID.String(),
		"applied", p.Amount.FormatMajor(),
		"balance", b.Balance.FormatMajor(),
	)
}

// OnAdvanceDeposited implements plugin.OnAdvanceDeposited.
func (e *Extension) OnAdvanceDeposited(ctx context.Context, c *account.Customer, amount types.Money, actor string) error {
	return e.record(ctx, actor, ActionAddAdvancePayment, SeverityInfo, OutcomeSuccess,
		EntityCustomer, c.ID.String(), CategoryWallet, nil,
		"amount", amount.FormatMajor(),
		"advance_balance", c.AdvanceBalance.FormatMajor(),
	)
}

// record builds and sends an audit event. Recorder failures are logged and
// swallowed.
func (e *Extension) record(
	ctx context.Context,
	actor, action, severity, outcome string,
	entityType, entityID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}
	if actor == "" {
		actor = SystemActor
	}

	details := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		details[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		details["error"] = err.Error()
	}

	evt := &AuditEvent{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  IPAddressFrom(ctx),
		Category:   category,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"entity_id", entityID,
			"error", recErr,
		)
	}
	return nil
}
