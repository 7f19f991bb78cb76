package billing

import (
	"context"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/rating"
)

// PreviewCharges prices units on a tariff without touching any ledger
// state. Subsidies in effect today for the tariff's code and connection
// type are included.
func (e *Engine) PreviewCharges(ctx context.Context, tariffID id.TariffID, units int64) (*rating.Breakdown, error) {
	if units < 0 {
		return nil, invalid("units", "units must not be negative, got %d", units)
	}

	t, err := e.store.GetTariff(ctx, tariffID)
	if err != nil {
		return nil, err
	}

	breakdown, err := e.price(ctx, t, t.Code, t.ConnectionType, units, e.today())
	if err != nil {
		return nil, err
	}
	return &breakdown, nil
}
