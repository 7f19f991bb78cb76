package account

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type ConnectionType string

const (
	Residential  ConnectionType = "RESIDENTIAL"
	Commercial   ConnectionType = "COMMERCIAL"
	Industrial   ConnectionType = "INDUSTRIAL"
	Agricultural ConnectionType = "AGRICULTURAL"
)

// ParseConnectionType accepts any casing of a known connection type.
func ParseConnectionType(s string) (ConnectionType, bool) {
	ct := ConnectionType(strings.ToUpper(strings.TrimSpace(s)))
	switch ct {
	case Residential, Commercial, Industrial, Agricultural:
		return ct, true
	default:
		return "", false
	}
}

// Customer owns one or more accounts and holds the advance wallet.
// AdvanceBalance never goes negative.
type Customer struct {
	types.Entity
	ID             id.CustomerID `json:"id"`
	Name           string        `json:"name"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	AdvanceBalance types.Money   `json:"advance_balance"`
}

// Account is a metered service connection.
type Account struct {
	types.Entity
	ID             id.AccountID    `json:"id"`
	CustomerID     id.CustomerID   `json:"customer_id"`
	AccountNumber  string          `json:"account_number"`
	MeterNumber    string          `json:"meter_number"`
	ConnectionType ConnectionType  `json:"connection_type"`
	SanctionedLoad decimal.Decimal `json:"sanctioned_load"`
	TariffCategory string          `json:"tariff_category"`
	Active         bool            `json:"active"`
}
