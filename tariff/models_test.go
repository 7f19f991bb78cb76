package tariff_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xraph/billing/tariff"
)

func TestSortSlabs(t *testing.T) {
	rate := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	tests := []struct {
		name  string
		slabs []tariff.Slab
		want  []string
	}{
		{"empty", nil, nil},
		{
			name: "out of order",
			slabs: []tariff.Slab{
				{Number: 3, RatePerUnit: rate("7.00")},
				{Number: 1, RatePerUnit: rate("3.50")},
				{Number: 2, RatePerUnit: rate("5.20")},
			},
			want: []string{"3.5", "5.2", "7"},
		},
		{
			name: "equal numbers keep input order",
			slabs: []tariff.Slab{
				{Number: 2, RatePerUnit: rate("5.20")},
				{Number: 1, RatePerUnit: rate("3.50")},
				{Number: 2, RatePerUnit: rate("6.00")},
			},
			want: []string{"3.5", "5.2", "6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariff.SortSlabs(tt.slabs)
			if len(tt.slabs) != len(tt.want) {
				t.Fatalf("got %d slabs, want %d", len(tt.slabs), len(tt.want))
			}
			for i, s := range tt.slabs {
				if got := s.RatePerUnit.String(); got != tt.want[i] {
					t.Errorf("slab %d rate = %s, want %s", i, got, tt.want[i])
				}
			}
		})
	}
}
