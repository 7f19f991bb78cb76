package account

import (
	"context"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/types"
)

type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	// LockCustomer reads the customer and holds its row until the
	// surrounding unit of work ends.
	LockCustomer(ctx context.Context, customerID id.CustomerID) (*Customer, error)
	// AdjustAdvance adds delta to the advance balance and returns the new
	// balance. A delta that would take the balance below zero fails with
	// ErrInsufficientAdvance and changes nothing.
	AdjustAdvance(ctx context.Context, customerID id.CustomerID, delta types.Money) (types.Money, error)

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*Account, error)
}
