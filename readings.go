package billing

import (
	"context"
	"errors"

	"github.com/xraph/billing/id"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/types"
)

// ReadingInput is a meter reading as captured in the field.
type ReadingInput struct {
	AccountID      id.AccountID `json:"account_id"`
	BillingMonth   string       `json:"billing_month"`
	CurrentReading int64        `json:"current_reading"`
	// UnitsConsumed overrides current minus previous when set.
	UnitsConsumed *int64 `json:"units_consumed,omitempty"`
	Type          string `json:"reading_type,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
}

// RecordReading stores a meter reading for an account and month. The
// previous reading is the account's latest reading for an earlier month,
// or zero when there is none. A second reading for the same account and
// month is a conflict.
func (e *Engine) RecordReading(ctx context.Context, in ReadingInput, actor string) (*reading.Reading, error) {
	var errs MultiError
	if in.AccountID.IsNil() {
		errs.Add(invalid("account_id", "account is required"))
	}
	if _, err := types.ParseMonth(in.BillingMonth); err != nil {
		errs.Add(invalid("billing_month", "billing month %q must be YYYY-MM", in.BillingMonth))
	}
	if in.CurrentReading < 0 {
		errs.Add(invalid("current_reading", "current reading must not be negative, got %d", in.CurrentReading))
	}
	if in.UnitsConsumed != nil && *in.UnitsConsumed < 0 {
		errs.Add(invalid("units_consumed", "units consumed must not be negative, got %d", *in.UnitsConsumed))
	}
	if errs.HasErrors() {
		return nil, errs
	}

	var r *reading.Reading
	err := e.store.Atomic(ctx, func(ctx context.Context) error {
		if _, err := e.store.GetAccount(ctx, in.AccountID); err != nil {
			return err
		}

		var previous int64
		last, err := e.store.LatestReadingBefore(ctx, in.AccountID, in.BillingMonth)
		switch {
		case err == nil:
			previous = last.CurrentReading
		case !errors.Is(err, ErrReadingNotFound):
			return err
		}

		r = &reading.Reading{
			Entity:          types.NewEntity(),
			ID:              id.NewReadingID(),
			AccountID:       in.AccountID,
			ReadingDate:     e.now(),
			BillingMonth:    in.BillingMonth,
			PreviousReading: previous,
			CurrentReading:  in.CurrentReading,
			UnitsConsumed:   in.UnitsConsumed,
			Type:            reading.ParseType(in.Type),
			RecordedBy:      actor,
			Remarks:         in.Remarks,
		}
		if err := e.store.CreateReading(ctx, r); err != nil {
			if errors.Is(err, ErrReadingAlreadyExists) {
				return duplicateReading(in.BillingMonth)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("meter reading recorded",
		"reading_id", r.ID,
		"account_id", r.AccountID,
		"billing_month", r.BillingMonth,
		"units", r.Units(),
	)
	return r, nil
}

func duplicateReading(month string) error {
	return detailed(ErrReadingAlreadyExists, "billing: a meter reading for %s already exists", month)
}
