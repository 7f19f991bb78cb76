package reading

import (
	"context"

	"github.com/xraph/billing/id"
)

type Store interface {
	// CreateReading fails with ErrReadingAlreadyExists when the account
	// already has a reading for the billing month.
	CreateReading(ctx context.Context, r *Reading) error
	GetReading(ctx context.Context, readingID id.ReadingID) (*Reading, error)
	// LatestReadingBefore returns the account's reading for the latest
	// billing month strictly before billingMonth, or ErrReadingNotFound.
	LatestReadingBefore(ctx context.Context, accountID id.AccountID, billingMonth string) (*Reading, error)
	// ListReadingsByMonth returns the month's readings ordered by ID.
	ListReadingsByMonth(ctx context.Context, billingMonth string) ([]*Reading, error)
}
