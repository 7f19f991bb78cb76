package billing

import (
	"context"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
)

// Notifier delivers customer notifications. Calls happen after the
// triggering change has committed; errors are logged and never returned to
// the caller of the engine operation.
type Notifier interface {
	NotifyBillGenerated(ctx context.Context, b *bill.Bill) error
	NotifyPaymentReceipt(ctx context.Context, p *payment.Payment, b *bill.Bill) error
	NotifyReminder(ctx context.Context, b *bill.Bill, overdue bool) error
}

// Renderer produces the printable bill and its payment QR code and returns
// where each was stored.
type Renderer interface {
	RenderBillDocument(ctx context.Context, b *bill.Bill) (string, error)
	RenderPaymentQR(ctx context.Context, b *bill.Bill) (string, error)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) NotifyBillGenerated(context.Context, *bill.Bill) error { return nil }

func (NopNotifier) NotifyPaymentReceipt(context.Context, *payment.Payment, *bill.Bill) error {
	return nil
}

func (NopNotifier) NotifyReminder(context.Context, *bill.Bill, bool) error { return nil }

// NopRenderer renders nothing and returns empty paths.
type NopRenderer struct{}

func (NopRenderer) RenderBillDocument(context.Context, *bill.Bill) (string, error) { return "", nil }

func (NopRenderer) RenderPaymentQR(context.Context, *bill.Bill) (string, error) { return "", nil }
