package tariff

import (
	"context"
	"time"

	"github.com/xraph/billing/id"
)

type Store interface {
	// CreateTariff stores the tariff together with its slabs.
	CreateTariff(ctx context.Context, t *Tariff) error
	GetTariff(ctx context.Context, tariffID id.TariffID) (*Tariff, error)
	// ActiveTariffs returns active tariffs for code whose effective window
	// contains on. Callers pick one with Select.
	ActiveTariffs(ctx context.Context, code string, on time.Time) ([]*Tariff, error)
	// ListSlabs returns the tariff's slabs ordered by slab number.
	ListSlabs(ctx context.Context, tariffID id.TariffID) ([]Slab, error)
}
