package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type Mode string

const (
	ModeOnline Mode = "ONLINE"
	ModeCash   Mode = "CASH"
	ModeCheque Mode = "CHEQUE"
	ModeUPI    Mode = "UPI"
)

// ParseMode accepts any casing of a known payment mode.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModeOnline, ModeCash, ModeCheque, ModeUPI:
		return m, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)

// ChannelAdvanceAdjustment tags payments created by applying a customer's
// advance balance. Their mode is CASH only as a placeholder.
const ChannelAdvanceAdjustment = "ADVANCE_ADJUSTMENT"

// Payment is an append-only ledger entry against a bill.
type Payment struct {
	types.Entity
	ID             id.PaymentID `json:"id"`
	BillID         id.BillID    `json:"bill_id"`
	AccountID      id.AccountID `json:"account_id"`
	Reference      string       `json:"reference"`
	Amount         types.Money  `json:"amount"`
	ConvenienceFee types.Money  `json:"convenience_fee"`
	NetAmount      types.Money  `json:"net_amount"`
	Mode           Mode         `json:"mode"`
	Channel        string       `json:"channel"`
	Status         Status       `json:"status"`
	TransactionID  string       `json:"transaction_id,omitempty"`
	UPIReference   string       `json:"upi_reference,omitempty"`
	ChequeNumber   string       `json:"cheque_number,omitempty"`
	ChequeDate     *time.Time   `json:"cheque_date,omitempty"`
	BankName       string       `json:"bank_name,omitempty"`
	Remarks        string       `json:"remarks,omitempty"`
	PaidAt         time.Time    `json:"paid_at"`
	ProcessedBy    string       `json:"processed_by"`
}

// IsAdvanceAdjustment reports whether the payment came from the wallet.
func (p *Payment) IsAdvanceAdjustment() bool {
	return p.Channel == ChannelAdvanceAdjustment
}

// Request is an external payment to post against a bill.
type Request struct {
	BillID        id.BillID   `json:"bill_id"`
	Amount        types.Money `json:"amount"`
	Mode          string      `json:"mode"`
	Channel       string      `json:"channel,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	UPIReference  string      `json:"upi_reference,omitempty"`
	ChequeNumber  string      `json:"cheque_number,omitempty"`
	ChequeDate    *time.Time  `json:"cheque_date,omitempty"`
	BankName      string      `json:"bank_name,omitempty"`
	Remarks       string      `json:"remarks,omitempty"`
}

// NewReference returns prefix followed by n uppercase hex characters of a
// random UUID, e.g. "PAY-3F2A9C1B".
func NewReference(prefix string, n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(raw) {
		n = len(raw)
	}
	return prefix + strings.ToUpper(raw[:n])
}
