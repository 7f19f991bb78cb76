package payment

import (
	"context"

	"github.com/xraph/billing/id"
)

// Store persists payments. There is no update or delete: payments are
// the audit trail of how a bill's balance moved.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*Payment, error)
	// ListPaymentsByBill returns payments oldest first.
	ListPaymentsByBill(ctx context.Context, billID id.BillID) ([]*Payment, error)
}
