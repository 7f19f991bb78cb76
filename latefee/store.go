package latefee

import (
	"context"
	"time"

	"github.com/xraph/billing/account"
)

type Store interface {
	CreateLateFeePolicy(ctx context.Context, p *Policy) error
	// ActiveLateFeePolicies returns active policies for conn whose
	// effective window contains on. Callers pick one with Select.
	ActiveLateFeePolicies(ctx context.Context, conn account.ConnectionType, on time.Time) ([]*Policy, error)
}
