package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/types"
)

// GenerateBillsForMonth bills every meter reading recorded for month.
//
// Readings whose account already has a bill for the month are skipped
// silently. A reading that fails is skipped and its error is collected in
// the summary; the run always continues. Each bill commits on its own, so
// bills created before a failure stay. The only errors returned are an
// invalid month and a failure to list the month's readings.
func (e *Engine) GenerateBillsForMonth(ctx context.Context, month, actor string) (*bill.BatchSummary, error) {
	if _, err := types.ParseMonth(month); err != nil {
		return nil, invalid("month", "billing month %q must be YYYY-MM", month)
	}

	readings, err := e.store.ListReadingsByMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list readings for %s: %w", month, err)
	}

	summary := &bill.BatchSummary{Month: month, Errors: []string{}}
	for _, r := range readings {
		summary.Evaluated++

		_, err := e.store.GetBillByAccountMonth(ctx, r.AccountID, month)
		if err == nil {
			summary.Skipped++
			continue
		}
		if !errors.Is(err, ErrBillNotFound) {
			e.batchFailure(ctx, summary, r, err)
			continue
		}

		b, adj, err := e.generate(ctx, r.ID, actor)
		if err != nil {
			e.batchFailure(ctx, summary, r, err)
			continue
		}

		summary.Created++
		e.billGenerated(ctx, b, adj, actor, true)
	}

	e.logger.Info("batch generation finished",
		"month", month,
		"evaluated", summary.Evaluated,
		"created", summary.Created,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
	)

	result := *summary
	e.emit(ctx, func(ctx context.Context) {
		e.plugins.EmitBatchCompleted(ctx, &result, actor)
	})
	return summary, nil
}

func (e *Engine) batchFailure(ctx context.Context, summary *bill.BatchSummary, r *reading.Reading, cause error) {
	summary.Skipped++
	summary.Errors = append(summary.Errors, fmt.Sprintf("Account %s: %s", e.accountLabel(ctx, r), cause))
	e.generationFailed(ctx, r.ID, cause)
}

// accountLabel names the reading's account by its account number, falling
// back to the account ID.
func (e *Engine) accountLabel(ctx context.Context, r *reading.Reading) string {
	acct, err := e.store.GetAccount(ctx, r.AccountID)
	if err != nil || acct.AccountNumber == "" {
		return r.AccountID.String()
	}
	return acct.AccountNumber
}
