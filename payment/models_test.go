package payment_test

import (
	"regexp"
	"testing"

	"github.com/xraph/billing/payment"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want payment.Mode
		ok   bool
	}{
		{"UPI", payment.ModeUPI, true},
		{" online ", payment.ModeOnline, true},
		{"cheque", payment.ModeCheque, true},
		{"Cash", payment.ModeCash, true},
		{"BITCOIN", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := payment.ParseMode(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewReference(t *testing.T) {
	pattern := regexp.MustCompile(`^PAY-[0-9A-F]{8}$`)
	ref := payment.NewReference("PAY-", 8)
	if !pattern.MatchString(ref) {
		t.Errorf("reference %q does not match %s", ref, pattern)
	}

	upi := payment.NewReference("UPI-", 10)
	if len(upi) != len("UPI-")+10 {
		t.Errorf("expected 14 characters, got %q", upi)
	}

	if payment.NewReference("PAY-", 8) == ref {
		t.Error("two references should differ")
	}
}
