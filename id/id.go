// Package id defines TypeID-based identifiers for billing entities.
//
// All entities share one ID struct whose prefix names the entity type
// ("bill_01h2xcejqtf2nbrexx3vqjhp41"). IDs are UUIDv7 based, so two IDs of
// the same prefix order by creation time; rule resolution relies on that
// for its tie-break.
package id

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all billing entity types.
const (
	PrefixCustomer      Prefix = "cust" // Utility customer
	PrefixAccount       Prefix = "acct" // Service connection account
	PrefixTariff        Prefix = "trf"  // Tariff definition
	PrefixSlab          Prefix = "slab" // Tariff consumption slab
	PrefixCharge        Prefix = "chg"  // Additional charge rule
	PrefixSubsidy       Prefix = "sbsd" // Subsidy rule
	PrefixLateFeePolicy Prefix = "lfp"  // Late fee policy
	PrefixReading       Prefix = "rdg"  // Meter reading
	PrefixBill          Prefix = "bill" // Bill
	PrefixPayment       Prefix = "pay"  // Payment record
)

// ID is the identifier type shared by every billing entity.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "bill_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// CustomerID is a type-safe identifier for customers (prefix: "cust").
type CustomerID = ID

// AccountID is a type-safe identifier for accounts (prefix: "acct").
type AccountID = ID

// TariffID is a type-safe identifier for tariffs (prefix: "trf").
type TariffID = ID

// SlabID is a type-safe identifier for slabs (prefix: "slab").
type SlabID = ID

// ChargeID is a type-safe identifier for charge rules (prefix: "chg").
type ChargeID = ID

// SubsidyID is a type-safe identifier for subsidy rules (prefix: "sbsd").
type SubsidyID = ID

// LateFeePolicyID is a type-safe identifier for late fee policys (prefix: "lfp").
type LateFeePolicyID = ID

// ReadingID is a type-safe identifier for meter readings (prefix: "rdg").
type ReadingID = ID

// BillID is a type-safe identifier for bills (prefix: "bill").
type BillID = ID

// PaymentID is a type-safe identifier for payments (prefix: "pay").
type PaymentID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewCustomerID generates a new unique customer ID.
func NewCustomerID() ID { return New(PrefixCustomer) }

// NewAccountID generates a new unique account ID.
func NewAccountID() ID { return New(PrefixAccount) }

// NewTariffID generates a new unique tariff ID.
func NewTariffID() ID { return New(PrefixTariff) }

// NewSlabID generates a new unique slab ID.
func NewSlabID() ID { return New(PrefixSlab) }

// NewChargeID generates a new unique charge rule ID.
func NewChargeID() ID { return New(PrefixCharge) }

// NewSubsidyID generates a new unique subsidy rule ID.
func NewSubsidyID() ID { return New(PrefixSubsidy) }

// NewLateFeePolicyID generates a new unique late fee policy ID.
func NewLateFeePolicyID() ID { return New(PrefixLateFeePolicy) }

// NewReadingID generates a new unique meter reading ID.
func NewReadingID() ID { return New(PrefixReading) }

// NewBillID generates a new unique bill ID.
func NewBillID() ID { return New(PrefixBill) }

// NewPaymentID generates a new unique payment ID.
func NewPaymentID() ID { return New(PrefixPayment) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseCustomerID parses a string and validates the "cust" prefix.
func ParseCustomerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCustomer) }

// ParseAccountID parses a string and validates the "acct" prefix.
func ParseAccountID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAccount) }

// ParseTariffID parses a string and validates the "trf" prefix.
func ParseTariffID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTariff) }

// ParseSlabID parses a string and validates the "slab" prefix.
func ParseSlabID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSlab) }

// ParseChargeID parses a string and validates the "chg" prefix.
func ParseChargeID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCharge) }

// ParseSubsidyID parses a string and validates the "sbsd" prefix.
func ParseSubsidyID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSubsidy) }

// ParseLateFeePolicyID parses a string and validates the "lfp" prefix.
func ParseLateFeePolicyID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLateFeePolicy) }

// ParseReadingID parses a string and validates the "rdg" prefix.
func ParseReadingID(s string) (ID, error) { return ParseWithPrefix(s, PrefixReading) }

// ParseBillID parses a string and validates the "bill" prefix.
func ParseBillID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBill) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

// Compare orders two IDs by their string form. For IDs of the same prefix
// this is creation order.
func (i ID) Compare(other ID) int {
	return strings.Compare(i.String(), other.String())
}
