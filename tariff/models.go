package tariff

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

// Tariff is one effective-dated rate schedule for a tariff code.
type Tariff struct {
	types.Entity
	ID             id.TariffID            `json:"id"`
	Code           string                 `json:"code"`
	Name           string                 `json:"name"`
	ConnectionType account.ConnectionType `json:"connection_type"`
	FixedCharge    types.Money            `json:"fixed_charge"`
	MeterRent      types.Money            `json:"meter_rent"`
	EffectiveFrom  time.Time              `json:"effective_from"`
	EffectiveTo    *time.Time             `json:"effective_to,omitempty"`
	Active         bool                   `json:"active"`
	Slabs          []Slab                 `json:"slabs,omitempty"`
}

// Slab is a consumption band. MaxUnits is nil for the unbounded top slab.
type Slab struct {
	ID          id.SlabID       `json:"id"`
	TariffID    id.TariffID     `json:"tariff_id"`
	Number      int             `json:"slab_number"`
	MinUnits    int64           `json:"min_units"`
	MaxUnits    *int64          `json:"max_units,omitempty"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit"`
}

// Width returns the number of units the slab spans and whether it is
// bounded.
func (s Slab) Width() (int64, bool) {
	if s.MaxUnits == nil {
		return 0, false
	}
	return *s.MaxUnits - s.MinUnits + 1, true
}

// AppliesOn reports whether the tariff is active and in effect on day.
func (t *Tariff) AppliesOn(day time.Time) bool {
	return t.Active && types.Within(day, t.EffectiveFrom, t.EffectiveTo)
}

// SortSlabs orders slabs by slab number.
func SortSlabs(slabs []Slab) {
	slices.SortStableFunc(slabs, func(a, b Slab) int { return cmp.Compare(a.Number, b.Number) })
}

// Select picks the tariff in effect on day: latest EffectiveFrom wins and
// ties go to the greater ID.
func Select(candidates []*Tariff, day time.Time) (*Tariff, bool) {
	inEffect := lo.Filter(candidates, func(t *Tariff, _ int) bool { return t.AppliesOn(day) })
	if len(inEffect) == 0 {
		return nil, false
	}

	return lo.MaxBy(inEffect, func(a, b *Tariff) bool {
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.After(b.EffectiveFrom)
		}
		return a.ID.Compare(b.ID) > 0
	}), true
}
