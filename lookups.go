package billing

import (
	"context"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
)

// GetBill retrieves a bill by ID.
func (e *Engine) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return e.store.GetBill(ctx, billID)
}

// ListBillsByAccount returns an account's bills, newest first.
func (e *Engine) ListBillsByAccount(ctx context.Context, accountID id.AccountID) ([]*bill.Bill, error) {
	return e.store.ListBillsByAccount(ctx, accountID)
}

// ListPaymentsByBill returns every payment posted against a bill,
// advance adjustments included.
func (e *Engine) ListPaymentsByBill(ctx context.Context, billID id.BillID) ([]*payment.Payment, error) {
	return e.store.ListPaymentsByBill(ctx, billID)
}

// GetCustomer retrieves a customer, including the advance balance.
func (e *Engine) GetCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	return e.store.GetCustomer(ctx, customerID)
}
