package reading

import (
	"strings"
	"time"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type Type string

const (
	TypeActual    Type = "ACTUAL"
	TypeEstimated Type = "ESTIMATED"
)

// ParseType maps free-form input onto a reading type, defaulting to ACTUAL.
func ParseType(s string) Type {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeEstimated:
		return t
	default:
		return TypeActual
	}
}

// Reading is one meter reading for an account and billing month. It is
// never modified once a bill references it.
type Reading struct {
	types.Entity
	ID              id.ReadingID `json:"id"`
	AccountID       id.AccountID `json:"account_id"`
	ReadingDate     time.Time    `json:"reading_date"`
	BillingMonth    string       `json:"billing_month"`
	PreviousReading int64        `json:"previous_reading"`
	CurrentReading  int64        `json:"current_reading"`
	UnitsConsumed   *int64       `json:"units_consumed,omitempty"`
	Type            Type         `json:"reading_type"`
	RecordedBy      string       `json:"recorded_by,omitempty"`
	Remarks         string       `json:"remarks,omitempty"`
}

// Units returns the supplied units consumed, or current minus previous
// floored at zero.
func (r *Reading) Units() int64 {
	if r.UnitsConsumed != nil {
		return *r.UnitsConsumed
	}
	return max(0, r.CurrentReading-r.PreviousReading)
}
