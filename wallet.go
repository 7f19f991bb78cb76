package billing

import (
	"context"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

// reconcileWallet moves the customer's advance balance onto b, up to the
// bill's balance, and records the move as an ADVANCE_ADJUSTMENT payment.
// It must run inside a unit of work. It returns nil when nothing was
// applied, which makes it a no-op on a settled bill or an empty wallet.
func (e *Engine) reconcileWallet(ctx context.Context, b *bill.Bill, actor, remarks string) (*payment.Payment, error) {
	if !b.Balance.IsPositive() {
		return nil, nil //nolint:nilnil // nothing owed, nothing applied
	}

	c, err := e.store.LockCustomer(ctx, b.CustomerID)
	if err != nil {
		return nil, err
	}
	if !c.AdvanceBalance.IsPositive() {
		return nil, nil //nolint:nilnil // empty wallet
	}

	applied := c.AdvanceBalance.Min(b.Balance)
	if _, err := e.store.AdjustAdvance(ctx, c.ID, types.Zero(applied.Currency).Subtract(applied)); err != nil {
		return nil, err
	}

	expected := b.Balance
	b.ApplyCredit(applied)
	if err := e.store.SettleBill(ctx, b, expected); err != nil {
		return nil, err
	}

	p := &payment.Payment{
		Entity:         types.NewEntity(),
		ID:             id.NewPaymentID(),
		BillID:         b.ID,
		AccountID:      b.AccountID,
		Reference:      payment.NewReference("ADV-", 8),
		Amount:         applied,
		ConvenienceFee: types.Zero(applied.Currency),
		NetAmount:      applied,
		Mode:           payment.ModeCash,
		Channel:        payment.ChannelAdvanceAdjustment,
		Status:         payment.StatusSuccess,
		TransactionID:  payment.NewReference("ADVANCE-ADJ-", 8),
		Remarks:        remarks,
		PaidAt:         e.now(),
		ProcessedBy:    actor,
	}
	if err := e.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	e.logger.Info("advance applied",
		"bill_id", b.ID,
		"customer_id", c.ID,
		"applied", applied.FormatMajor(),
		"balance", b.Balance.FormatMajor(),
	)
	return p, nil
}

// AddAdvance deposits amount into the customer's advance balance and
// returns the updated customer. The deposit is applied to bills the next
// time one is generated or paid.
func (e *Engine) AddAdvance(ctx context.Context, customerID id.CustomerID, amount types.Money, actor string) (*account.Customer, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "advance amount must be greater than zero")
	}

	var c *account.Customer
	err := e.store.Atomic(ctx, func(ctx context.Context) error {
		locked, err := e.store.LockCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if amount.Currency != locked.AdvanceBalance.Currency {
			return invalid("amount", "currency %s does not match wallet currency %s", amount.Currency, locked.AdvanceBalance.Currency)
		}

		balance, err := e.store.AdjustAdvance(ctx, customerID, amount)
		if err != nil {
			return err
		}
		locked.AdvanceBalance = balance
		c = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("advance deposited",
		"customer_id", c.ID,
		"amount", amount.FormatMajor(),
		"advance_balance", c.AdvanceBalance.FormatMajor(),
	)

	snapshot := *c
	e.emit(ctx, func(ctx context.Context) {
		e.plugins.EmitAdvanceDeposited(ctx, &snapshot, amount, actor)
	})
	return c, nil
}
