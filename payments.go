package billing

import (
	"context"
	"time"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

// RecordPayment posts an external payment against a bill.
//
// Standing advance credit is applied first. A non-positive amount is
// accepted only when that credit settled the bill, in which case the
// advance adjustment is returned. Amounts above the outstanding balance and
// unknown modes are rejected with ErrInvalidArgument, and nothing is
// persisted for a rejected request.
func (e *Engine) RecordPayment(ctx context.Context, req payment.Request, actor string) (*payment.Payment, error) {
	var (
		result  *payment.Payment
		adj     *payment.Payment
		settled *bill.Bill
	)

	err := e.store.Atomic(ctx, func(ctx context.Context) error {
		b, err := e.store.LockBill(ctx, req.BillID)
		if err != nil {
			return err
		}

		applied, err := e.reconcileWallet(ctx, b, actor, "Applied advance balance before payment")
		if err != nil {
			return err
		}

		outstanding := b.Balance
		amount := req.Amount
		if amount.Currency == "" {
			amount.Currency = outstanding.Currency
		}

		if !amount.IsPositive() {
			if outstanding.IsZero() && applied != nil {
				result, adj, settled = applied, applied, b
				return nil
			}
			return invalid("amount", "payment amount must be greater than zero")
		}
		if amount.Currency != outstanding.Currency {
			return invalid("amount", "currency %s does not match bill currency %s", amount.Currency, outstanding.Currency)
		}
		if amount.GreaterThan(outstanding) {
			return invalid("amount", "payment amount cannot exceed outstanding balance of %s", outstanding)
		}

		mode, ok := payment.ParseMode(req.Mode)
		if !ok {
			return invalid("mode", "unknown payment mode %q", req.Mode)
		}

		acct, err := e.store.GetAccount(ctx, b.AccountID)
		if err != nil {
			return err
		}
		rules, err := e.store.ActiveCharges(ctx)
		if err != nil {
			return err
		}
		fee := charge.ConvenienceFeeFor(rules, mode, acct.TariffCategory, amount)

		p := newPayment(b, req, mode, amount, fee, e.now(), actor)
		if err := e.store.CreatePayment(ctx, p); err != nil {
			return err
		}

		expected := b.Balance
		b.ApplyCredit(amount)
		if err := e.store.SettleBill(ctx, b, expected); err != nil {
			return err
		}

		result, adj, settled = p, applied, b
		return nil
	})
	if err != nil {
		e.logger.Warn("payment rejected",
			"bill_id", req.BillID,
			"amount", req.Amount.FormatMajor(),
			"error", err,
		)
		return nil, err
	}

	e.logger.Info("payment recorded",
		"payment_id", result.ID,
		"reference", result.Reference,
		"bill_id", settled.ID,
		"amount", result.Amount.FormatMajor(),
		"balance", settled.Balance.FormatMajor(),
		"status", settled.Status,
	)

	e.paymentRecorded(ctx, result, adj, settled, actor)
	return result, nil
}

func newPayment(b *bill.Bill, req payment.Request, mode payment.Mode, amount, fee types.Money, now time.Time, actor string) *payment.Payment {
	p := &payment.Payment{
		Entity:         types.NewEntity(),
		ID:             id.NewPaymentID(),
		BillID:         b.ID,
		AccountID:      b.AccountID,
		Reference:      payment.NewReference("PAY-", 8),
		Amount:         amount,
		ConvenienceFee: fee,
		NetAmount:      amount.Add(fee),
		Mode:           mode,
		Channel:        req.Channel,
		Status:         payment.StatusSuccess,
		TransactionID:  req.TransactionID,
		UPIReference:   req.UPIReference,
		ChequeNumber:   req.ChequeNumber,
		ChequeDate:     req.ChequeDate,
		BankName:       req.BankName,
		Remarks:        req.Remarks,
		PaidAt:         now,
		ProcessedBy:    actor,
	}
	if p.Channel == "" {
		p.Channel = string(mode)
	}
	if p.TransactionID == "" {
		p.TransactionID = payment.NewReference("TXN-", 8)
	}
	if mode == payment.ModeUPI && p.UPIReference == "" {
		p.UPIReference = payment.NewReference("UPI-", 10)
	}
	return p
}

// paymentRecorded emits the plugin hooks for a payment and queues its
// receipt.
func (e *Engine) paymentRecorded(ctx context.Context, p, adj *payment.Payment, b *bill.Bill, actor string) {
	snapshot := *b

	e.after(ctx, "notify_payment_receipt", func(ctx context.Context) error {
		return e.notifier.NotifyPaymentReceipt(ctx, p, &snapshot)
	})
	e.emit(ctx, func(ctx context.Context) {
		if adj != nil {
			e.plugins.EmitAdvanceApplied(ctx, adj, &snapshot, actor, false)
		}
		if !p.IsAdvanceAdjustment() {
			e.plugins.EmitPaymentRecorded(ctx, p, &snapshot, actor)
		}
	})
}
