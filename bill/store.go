package bill

import (
	"context"
	"time"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type Store interface {
	// CreateBill fails with ErrBillAlreadyExists when the account already
	// has a bill for the month, and ErrAlreadyExists on a duplicate invoice
	// number.
	CreateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, billID id.BillID) (*Bill, error)
	// LockBill reads the bill and holds its row until the surrounding unit
	// of work ends.
	LockBill(ctx context.Context, billID id.BillID) (*Bill, error)
	GetBillByAccountMonth(ctx context.Context, accountID id.AccountID, billingMonth string) (*Bill, error)
	// ListBillsByAccount returns the account's bills, newest bill date first.
	ListBillsByAccount(ctx context.Context, accountID id.AccountID) ([]*Bill, error)
	ListBills(ctx context.Context, opts ListOpts) ([]*Bill, error)
	// SettleBill writes AmountPaid, Balance and Status. It fails with
	// ErrConcurrentUpdate when the stored balance no longer equals
	// expectedBalance.
	SettleBill(ctx context.Context, b *Bill, expectedBalance types.Money) error
	SetBillDocuments(ctx context.Context, billID id.BillID, documentPath, qrCodePath string) error
	// NextInvoiceSequence advances and returns the invoice counter for
	// period ("2024/01"). The first call for a period returns 1.
	NextInvoiceSequence(ctx context.Context, period string) (int64, error)
}

// ListOpts filters ListBills. Zero values mean no filter.
type ListOpts struct {
	DueFrom  time.Time
	DueTo    time.Time
	Statuses []Status
	Limit    int
}
