package charge

import "context"

type Store interface {
	// CreateCharge normalizes and stores a rule.
	CreateCharge(ctx context.Context, r *Rule) error
	// ActiveCharges returns all active rules ordered by ID.
	ActiveCharges(ctx context.Context) ([]*Rule, error)
}
