package id_test

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/billing/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CustomerID", id.NewCustomerID, "cust_"},
		{"AccountID", id.NewAccountID, "acct_"},
		{"TariffID", id.NewTariffID, "trf_"},
		{"SlabID", id.NewSlabID, "slab_"},
		{"ChargeID", id.NewChargeID, "chg_"},
		{"SubsidyID", id.NewSubsidyID, "sbsd_"},
		{"LateFeePolicyID", id.NewLateFeePolicyID, "lfp_"},
		{"ReadingID", id.NewReadingID, "rdg_"},
		{"BillID", id.NewBillID, "bill_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CustomerID", id.NewCustomerID, id.ParseCustomerID},
		{"AccountID", id.NewAccountID, id.ParseAccountID},
		{"TariffID", id.NewTariffID, id.ParseTariffID},
		{"SlabID", id.NewSlabID, id.ParseSlabID},
		{"ChargeID", id.NewChargeID, id.ParseChargeID},
		{"SubsidyID", id.NewSubsidyID, id.ParseSubsidyID},
		{"LateFeePolicyID", id.NewLateFeePolicyID, id.ParseLateFeePolicyID},
		{"ReadingID", id.NewReadingID, id.ParseReadingID},
		{"BillID", id.NewBillID, id.ParseBillID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseCustomerID rejects acct_", id.NewAccountID().String(), id.ParseCustomerID},
		{"ParseAccountID rejects trf_", id.NewTariffID().String(), id.ParseAccountID},
		{"ParseTariffID rejects slab_", id.NewSlabID().String(), id.ParseTariffID},
		{"ParseSlabID rejects chg_", id.NewChargeID().String(), id.ParseSlabID},
		{"ParseChargeID rejects sbsd_", id.NewSubsidyID().String(), id.ParseChargeID},
		{"ParseSubsidyID rejects lfp_", id.NewLateFeePolicyID().String(), id.ParseSubsidyID},
		{"ParseLateFeePolicyID rejects rdg_", id.NewReadingID().String(), id.ParseLateFeePolicyID},
		{"ParseReadingID rejects bill_", id.NewBillID().String(), id.ParseReadingID},
		{"ParseBillID rejects pay_", id.NewPaymentID().String(), id.ParseBillID},
		{"ParsePaymentID rejects cust_", id.NewCustomerID().String(), id.ParsePaymentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewBillID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}
}

func TestCompareFollowsCreationOrder(t *testing.T) {
	a := id.NewLateFeePolicyID()
	time.Sleep(2 * time.Millisecond)
	b := id.NewLateFeePolicyID()
	if a.Compare(b) >= 0 {
		t.Errorf("expected %q to sort before %q", a, b)
	}
	if a.Compare(a) != 0 {
		t.Error("expected an ID to compare equal to itself")
	}
}
