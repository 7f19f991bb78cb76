package subsidy

import (
	"context"
	"time"

	"github.com/xraph/billing/account"
)

type Store interface {
	CreateSubsidyRule(ctx context.Context, r *Rule) error
	// ActiveSubsidyRules returns every active rule for the tariff code and
	// connection type whose effective window contains on.
	ActiveSubsidyRules(ctx context.Context, tariffCode string, conn account.ConnectionType, on time.Time) ([]*Rule, error)
}
