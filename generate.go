package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/rating"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

// ──────────────────────────────────────────────────
// Bill generation
// ──────────────────────────────────────────────────

// GenerateBill turns a meter reading into a priced, due-dated bill and
// applies the customer's advance balance to it, all in one unit of work.
//
// It fails with ErrReadingNotFound, ErrBillAlreadyExists when the account
// already has a bill for the reading's month, and ErrNoActiveTariff when no
// tariff is in effect for the account's category today. Rendering and
// notification happen after commit and never fail the call.
func (e *Engine) GenerateBill(ctx context.Context, readingID id.ReadingID, actor string) (*bill.Bill, error) {
	b, adj, err := e.generate(ctx, readingID, actor)
	if err != nil {
		e.generationFailed(ctx, readingID, err)
		return nil, err
	}

	e.billGenerated(ctx, b, adj, actor, false)
	return b, nil
}

// generate runs one reading through pricing and ledger creation. adj is the
// advance adjustment applied to the new bill, if any.
func (e *Engine) generate(ctx context.Context, readingID id.ReadingID, actor string) (b *bill.Bill, adj *payment.Payment, err error) {
	err = e.store.Atomic(ctx, func(ctx context.Context) error {
		r, err := e.store.GetReading(ctx, readingID)
		if err != nil {
			return err
		}

		if _, err := e.store.GetBillByAccountMonth(ctx, r.AccountID, r.BillingMonth); err == nil {
			return detailed(ErrBillAlreadyExists, "billing: bill for %s already generated", r.BillingMonth)
		} else if !errors.Is(err, ErrBillNotFound) {
			return err
		}

		acct, err := e.store.GetAccount(ctx, r.AccountID)
		if err != nil {
			return err
		}

		today := e.today()
		t, err := e.resolveTariff(ctx, acct.TariffCategory, today)
		if err != nil {
			return err
		}

		created, err := e.priceAndCreate(ctx, acct, r, t, today, actor)
		if err != nil {
			return err
		}

		applied, err := e.reconcileWallet(ctx, created, actor, "Auto-applied advance balance on bill generation")
		if err != nil {
			return fmt.Errorf("apply advance to %s: %w", created.InvoiceNumber, err)
		}

		b, adj = created, applied
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("bill generated",
		"bill_id", b.ID,
		"invoice_number", b.InvoiceNumber,
		"account_id", b.AccountID,
		"billing_month", b.BillingMonth,
		"net_payable", b.NetPayable.FormatMajor(),
		"balance", b.Balance.FormatMajor(),
	)
	return b, adj, nil
}

// resolveTariff returns the single tariff in effect for code on day.
func (e *Engine) resolveTariff(ctx context.Context, code string, day time.Time) (*tariff.Tariff, error) {
	candidates, err := e.store.ActiveTariffs(ctx, code, day)
	if err != nil {
		return nil, err
	}

	t, ok := tariff.Select(candidates, day)
	if !ok {
		return nil, detailed(ErrNoActiveTariff, "billing: no active tariff for category %s on %s", code, day.Format(types.DateLayout))
	}
	return t, nil
}

// price computes the charge breakdown of units on tariff t for an account
// in tariffCategory with connection type conn.
func (e *Engine) price(ctx context.Context, t *tariff.Tariff, tariffCategory string, conn account.ConnectionType, units int64, day time.Time) (rating.Breakdown, error) {
	slabs, err := e.store.ListSlabs(ctx, t.ID)
	if err != nil {
		return rating.Breakdown{}, err
	}
	if len(slabs) == 0 {
		return rating.Breakdown{}, detailed(ErrNoSlabs, "billing: tariff %s has no slabs", t.Code)
	}

	charges, err := e.store.ActiveCharges(ctx)
	if err != nil {
		return rating.Breakdown{}, err
	}

	subsidies, err := e.store.ActiveSubsidyRules(ctx, t.Code, conn, day)
	if err != nil {
		return rating.Breakdown{}, err
	}

	return rating.Compute(rating.Input{
		Tariff:         t,
		Slabs:          slabs,
		Units:          units,
		TariffCategory: tariffCategory,
		Charges:        charges,
		Subsidies:      subsidies,
	}), nil
}

func (e *Engine) priceAndCreate(
	ctx context.Context,
	acct *account.Account,
	r *reading.Reading,
	t *tariff.Tariff,
	today time.Time,
	actor string,
) (*bill.Bill, error) {
	units := r.Units()
	breakdown, err := e.price(ctx, t, acct.TariffCategory, acct.ConnectionType, units, today)
	if err != nil {
		return nil, err
	}
	currency := breakdown.Total.Currency
	if want := e.config.currency(); currency != want {
		return nil, detailed(ErrCurrencyMismatch, "billing: tariff %s is priced in %s, bills are issued in %s", t.Code, currency, want)
	}

	history, err := e.store.ListBillsByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	previousDue := bill.PreviousDue(history, currency)

	policies, err := e.store.ActiveLateFeePolicies(ctx, acct.ConnectionType, today)
	if err != nil {
		return nil, err
	}
	policy := latefee.Select(policies, today)
	lateFee := latefee.Accrue(policy, history, previousDue, e.config.fallbackLateFee(currency), today)

	period := types.InvoicePeriod(today)
	seq, err := e.store.NextInvoiceSequence(ctx, period)
	if err != nil {
		return nil, err
	}

	netPayable := types.Sum(breakdown.Total, previousDue, lateFee)
	b := &bill.Bill{
		Entity:          types.NewEntity(),
		ID:              id.NewBillID(),
		AccountID:       acct.ID,
		CustomerID:      acct.CustomerID,
		ReadingID:       r.ID,
		InvoiceNumber:   fmt.Sprintf("%s/%s/%05d", e.config.InvoicePrefix, period, seq),
		BillingMonth:    r.BillingMonth,
		BillDate:        today,
		DueDate:         latefee.DueDate(today, policy, e.config.DefaultDueDays),
		UnitsConsumed:   units,
		EnergyCharge:    breakdown.Energy,
		FixedCharge:     breakdown.Fixed,
		MeterRent:       breakdown.MeterRent,
		ElectricityDuty: breakdown.ElectricityDuty,
		OtherCharges:    breakdown.OtherCharges(),
		Subsidy:         breakdown.Subsidy,
		LateFee:         lateFee,
		TotalAmount:     breakdown.Total,
		PreviousDue:     previousDue,
		NetPayable:      netPayable,
		AmountPaid:      types.Zero(currency),
		Balance:         netPayable,
		Status:          bill.StatusUnpaid,
		GeneratedBy:     actor,
	}

	if err := e.store.CreateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// billGenerated emits the plugin hooks for a new bill and queues its
// documents and notification.
func (e *Engine) billGenerated(ctx context.Context, b *bill.Bill, adj *payment.Payment, actor string, batch bool) {
	snapshot := *b

	e.after(ctx, "render_bill_documents", func(ctx context.Context) error {
		return e.renderDocuments(ctx, &snapshot)
	})
	e.after(ctx, "notify_bill_generated", func(ctx context.Context) error {
		return e.notifier.NotifyBillGenerated(ctx, &snapshot)
	})
	e.emit(ctx, func(ctx context.Context) {
		e.plugins.EmitBillGenerated(ctx, &snapshot, actor, batch)
		if adj != nil {
			e.plugins.EmitAdvanceApplied(ctx, adj, &snapshot, actor, true)
		}
	})
}

func (e *Engine) renderDocuments(ctx context.Context, b *bill.Bill) error {
	docPath, err := e.renderer.RenderBillDocument(ctx, b)
	if err != nil {
		return fmt.Errorf("render bill document: %w", err)
	}
	qrPath, err := e.renderer.RenderPaymentQR(ctx, b)
	if err != nil {
		e.logger.Warn("payment QR rendering failed", "bill_id", b.ID, "error", err)
	}
	if docPath == "" && qrPath == "" {
		return nil
	}
	return e.store.SetBillDocuments(ctx, b.ID, docPath, qrPath)
}

func (e *Engine) generationFailed(ctx context.Context, readingID id.ReadingID, cause error) {
	e.logger.Warn("bill generation failed",
		"reading_id", readingID,
		"error", cause,
	)
	e.emit(ctx, func(ctx context.Context) {
		e.plugins.EmitBillGenerationFailed(ctx, readingID.String(), cause)
	})
}
