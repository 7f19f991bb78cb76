package bill

import (
	"time"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	// StatusOverdue is set by an external sweep, never by the engine.
	StatusOverdue Status = "OVERDUE"
)

// Bill is the invoice for one account and billing month.
// Balance is always NetPayable minus AmountPaid, floored at zero.
type Bill struct {
	types.Entity
	ID              id.BillID     `json:"id"`
	AccountID       id.AccountID  `json:"account_id"`
	CustomerID      id.CustomerID `json:"customer_id"`
	ReadingID       id.ReadingID  `json:"reading_id"`
	InvoiceNumber   string        `json:"invoice_number"`
	BillingMonth    string        `json:"billing_month"`
	BillDate        time.Time     `json:"bill_date"`
	DueDate         time.Time     `json:"due_date"`
	UnitsConsumed   int64         `json:"units_consumed"`
	EnergyCharge    types.Money   `json:"energy_charge"`
	FixedCharge     types.Money   `json:"fixed_charge"`
	MeterRent       types.Money   `json:"meter_rent"`
	ElectricityDuty types.Money   `json:"electricity_duty"`
	OtherCharges    types.Money   `json:"other_charges"`
	Subsidy         types.Money   `json:"subsidy_amount"`
	LateFee         types.Money   `json:"late_fee"`
	TotalAmount     types.Money   `json:"total_amount"`
	PreviousDue     types.Money   `json:"previous_due"`
	NetPayable      types.Money   `json:"net_payable"`
	AmountPaid      types.Money   `json:"amount_paid"`
	Balance         types.Money   `json:"balance_amount"`
	Status          Status        `json:"status"`
	DocumentPath    string        `json:"document_path,omitempty"`
	QRCodePath      string        `json:"qr_code_path,omitempty"`
	GeneratedBy     string        `json:"generated_by,omitempty"`
}

// Settled reports whether nothing is owed on the bill.
func (b *Bill) Settled() bool {
	return b.Status == StatusPaid
}

// Accruing reports whether the bill still accrues late fees.
func (b *Bill) Accruing() bool {
	return b.Status == StatusUnpaid || b.Status == StatusPartiallyPaid
}

// ApplyCredit moves amount from the balance into AmountPaid and derives
// the status from the remaining balance.
func (b *Bill) ApplyCredit(amount types.Money) {
	b.AmountPaid = b.AmountPaid.Add(amount)
	b.Balance = b.Balance.Subtract(amount).ClampZero()
	if b.Balance.IsPositive() {
		b.Status = StatusPartiallyPaid
	} else {
		b.Status = StatusPaid
	}
}

// PreviousDue sums the balances of every bill that is not PAID.
func PreviousDue(bills []*Bill, currency string) types.Money {
	due := types.Zero(currency)
	for _, b := range bills {
		if b.Settled() {
			continue
		}
		due = due.Add(b.Balance)
	}
	return due
}
