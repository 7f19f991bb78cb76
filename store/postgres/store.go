// Package postgres is the PostgreSQL Store, built on the grove pgdriver.
// Units of work are pgdriver transactions carried in the context, and
// LockCustomer / LockBill take row locks with SELECT ... FOR UPDATE.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/billing"
	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	billingstore "github.com/xraph/billing/store"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

// compile-time interface check
var _ billingstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// Open connects a pgdriver pool to dsn and returns a Store over it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("billing/postgres: connect: %w", err)
	}
	return &Store{pg: pg}, nil
}

// DB returns the underlying grove database, or nil when the store was
// built by Open.
func (s *Store) DB() *grove.DB { return s.db }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.db != nil {
		return s.db.Ping(ctx)
	}
	return s.pg.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return s.pg.Close()
}

// ==================== Units of work ====================

type txKey struct{}

// querier is the query-builder surface shared by *pgdriver.PgDB and
// *pgdriver.PgTx.
type querier interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewRaw(query string, args ...any) *pgdriver.RawQuery
}

// q returns the transaction bound to ctx, or the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*pgdriver.PgTx); ok {
		return tx
	}
	return s.pg
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*pgdriver.PgTx); ok {
		return fn(ctx)
	}

	tx, err := s.pg.BeginTxQuery(ctx, &driver.TxOptions{IsolationLevel: driver.LevelReadCommitted})
	if err != nil {
		return errors.Join(billing.ErrTransactionFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the fn error wins
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return errors.Join(billing.ErrTransactionFailed, mapError(err))
	}
	return nil
}

// mapError translates constraint violations and serialization failures
// into billing sentinels. Other errors pass through.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case "billing_bills_account_month_key":
			return billing.ErrBillAlreadyExists
		case "billing_meter_readings_account_month_key":
			return billing.ErrReadingAlreadyExists
		default:
			return billing.ErrAlreadyExists
		}
	case "23514":
		if pgErr.ConstraintName == "billing_customers_advance_balance_check" {
			return billing.ErrInsufficientAdvance
		}
	case "40001", "40P01":
		return billing.ErrConcurrentUpdate
	}
	return err
}

// isNoRows checks for the standard sql.ErrNoRows sentinel and its pgx
// counterpart.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func now() time.Time {
	return time.Now().UTC()
}

// ==================== Account Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *account.Customer) error {
	m := toCustomerModel(c)
	c.AdvanceBalance.Currency = m.Currency
	_, err := s.q(ctx).NewInsert(m).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	return s.customer(ctx, customerID, false)
}

func (s *Store) LockCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	return s.customer(ctx, customerID, true)
}

func (s *Store) customer(ctx context.Context, customerID id.CustomerID, lock bool) (*account.Customer, error) {
	m := new(customerModel)
	q := s.q(ctx).NewSelect(m).Where("id = $1", customerID.String())
	if lock {
		q = q.ForUpdate()
	}
	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) AdjustAdvance(ctx context.Context, customerID id.CustomerID, delta types.Money) (types.Money, error) {
	var (
		balance  int64
		currency string
	)
	err := s.q(ctx).NewRaw(`
UPDATE billing_customers
SET advance_balance = advance_balance + $2, updated_at = $3
WHERE id = $1 AND advance_balance + $2 >= 0
RETURNING advance_balance, currency`,
		customerID.String(), delta.Amount, now()).Scan(ctx, &balance, &currency)
	if err == nil {
		return types.Money{Amount: balance, Currency: currency}, nil
	}
	if !isNoRows(err) {
		return types.Money{}, mapError(err)
	}

	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return types.Money{}, err
	}
	return types.Money{}, billing.ErrInsufficientAdvance
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	_, err := s.q(ctx).NewInsert(toAccountModel(a)).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.q(ctx).NewSelect(m).Where("id = $1", accountID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

// ==================== Tariff Store ====================

func (s *Store) CreateTariff(ctx context.Context, t *tariff.Tariff) error {
	return s.Atomic(ctx, func(ctx context.Context) error {
		if _, err := s.q(ctx).NewInsert(toTariffModel(t)).Exec(ctx); err != nil {
			return err
		}
		for i := range t.Slabs {
			sl := &t.Slabs[i]
			if sl.ID.IsNil() {
				sl.ID = id.NewSlabID()
			}
			sl.TariffID = t.ID
			if _, err := s.q(ctx).NewInsert(toSlabModel(sl)).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetTariff(ctx context.Context, tariffID id.TariffID) (*tariff.Tariff, error) {
	m := new(tariffModel)
	err := s.q(ctx).NewSelect(m).Where("id = $1", tariffID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrTariffNotFound
		}
		return nil, err
	}
	t, err := fromTariffModel(m)
	if err != nil {
		return nil, err
	}
	if t.Slabs, err = s.ListSlabs(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ActiveTariffs(ctx context.Context, code string, on time.Time) ([]*tariff.Tariff, error) {
	var models []tariffModel
	err := s.q(ctx).NewSelect(&models).
		Where("code = $1", code).
		Where("active").
		Where("effective_from <= $2", types.Day(on)).
		Where("(effective_to IS NULL OR effective_to >= $3)", types.Day(on)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*tariff.Tariff, len(models))
	for i := range models {
		t, err := fromTariffModel(&models[i])
		if err != nil {
			return nil, err
		}
		if t.Slabs, err = s.ListSlabs(ctx, t.ID); err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) ListSlabs(ctx context.Context, tariffID id.TariffID) ([]tariff.Slab, error) {
	var models []slabModel
	err := s.q(ctx).NewSelect(&models).
		Where("tariff_id = $1", tariffID.String()).
		OrderExpr("slab_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	slabs := make([]tariff.Slab, len(models))
	for i := range models {
		sl, err := fromSlabModel(&models[i])
		if err != nil {
			return nil, err
		}
		slabs[i] = sl
	}
	return slabs, nil
}

// ==================== Charge Store ====================

func (s *Store) CreateCharge(ctx context.Context, r *charge.Rule) error {
	r.Normalize()
	_, err := s.q(ctx).NewInsert(toChargeModel(r)).Exec(ctx)
	return mapError(err)
}

func (s *Store) ActiveCharges(ctx context.Context) ([]*charge.Rule, error) {
	var models []chargeModel
	err := s.q(ctx).NewSelect(&models).Where("active").OrderExpr("id ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*charge.Rule, len(models))
	for i := range models {
		r, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Subsidy Store ====================

func (s *Store) CreateSubsidyRule(ctx context.Context, r *subsidy.Rule) error {
	_, err := s.q(ctx).NewInsert(toSubsidyModel(r)).Exec(ctx)
	return mapError(err)
}

func (s *Store) ActiveSubsidyRules(ctx context.Context, tariffCode string, conn account.ConnectionType, on time.Time) ([]*subsidy.Rule, error) {
	var models []subsidyModel
	err := s.q(ctx).NewSelect(&models).
		Where("tariff_code = $1", tariffCode).
		Where("connection_type = $2", string(conn)).
		Where("active").
		Where("effective_from <= $3", types.Day(on)).
		Where("(effective_to IS NULL OR effective_to >= $4)", types.Day(on)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*subsidy.Rule, len(models))
	for i := range models {
		r, err := fromSubsidyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Late Fee Store ====================

func (s *Store) CreateLateFeePolicy(ctx context.Context, p *latefee.Policy) error {
	_, err := s.q(ctx).NewInsert(toPolicyModel(p)).Exec(ctx)
	return mapError(err)
}

func (s *Store) ActiveLateFeePolicies(ctx context.Context, conn account.ConnectionType, on time.Time) ([]*latefee.Policy, error) {
	var models []policyModel
	err := s.q(ctx).NewSelect(&models).
		Where("connection_type = $1", string(conn)).
		Where("active").
		Where("effective_from <= $2", types.Day(on)).
		Where("(effective_to IS NULL OR effective_to >= $3)", types.Day(on)).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*latefee.Policy, len(models))
	for i := range models {
		p, err := fromPolicyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Reading Store ====================

func (s *Store) CreateReading(ctx context.Context, r *reading.Reading) error {
	_, err := s.q(ctx).NewInsert(toReadingModel(r)).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetReading(ctx context.Context, readingID id.ReadingID) (*reading.Reading, error) {
	m := new(readingModel)
	err := s.q(ctx).NewSelect(m).Where("id = $1", readingID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrReadingNotFound
		}
		return nil, err
	}
	return fromReadingModel(m)
}

func (s *Store) LatestReadingBefore(ctx context.Context, accountID id.AccountID, billingMonth string) (*reading.Reading, error) {
	m := new(readingModel)
	err := s.q(ctx).NewSelect(m).
		Where("account_id = $1", accountID.String()).
		Where("billing_month < $2", billingMonth).
		OrderExpr("billing_month DESC, reading_date DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrReadingNotFound
		}
		return nil, err
	}
	return fromReadingModel(m)
}

func (s *Store) ListReadingsByMonth(ctx context.Context, billingMonth string) ([]*reading.Reading, error) {
	var models []readingModel
	err := s.q(ctx).NewSelect(&models).
		Where("billing_month = $1", billingMonth).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*reading.Reading, len(models))
	for i := range models {
		r, err := fromReadingModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Bill Store ====================

func (s *Store) CreateBill(ctx context.Context, b *bill.Bill) error {
	_, err := s.q(ctx).NewInsert(toBillModel(b)).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return s.bill(ctx, billID, false)
}

func (s *Store) LockBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return s.bill(ctx, billID, true)
}

func (s *Store) bill(ctx context.Context, billID id.BillID, lock bool) (*bill.Bill, error) {
	m := new(billModel)
	q := s.q(ctx).NewSelect(m).Where("id = $1", billID.String())
	if lock {
		q = q.ForUpdate()
	}
	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, billing.ErrBillNotFound
		}
		return nil, err
	}
	return fromBillModel(m)
}

func (s *Store) GetBillByAccountMonth(ctx context.Context, accountID id.AccountID, billingMonth string) (*bill.Bill, error) {
	m := new(billModel)
	err := s.q(ctx).NewSelect(m).
		Where("account_id = $1", accountID.String()).
		Where("billing_month = $2", billingMonth).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrBillNotFound
		}
		return nil, err
	}
	return fromBillModel(m)
}

func (s *Store) ListBillsByAccount(ctx context.Context, accountID id.AccountID) ([]*bill.Bill, error) {
	var models []billModel
	err := s.q(ctx).NewSelect(&models).
		Where("account_id = $1", accountID.String()).
		OrderExpr("bill_date DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromBillModels(models)
}

func (s *Store) ListBills(ctx context.Context, opts bill.ListOpts) ([]*bill.Bill, error) {
	var models []billModel
	q := s.q(ctx).NewSelect(&models)

	argIdx := 0
	if !opts.DueFrom.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("due_date >= $%d", argIdx), types.Day(opts.DueFrom))
	}
	if !opts.DueTo.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("due_date <= $%d", argIdx), types.Day(opts.DueTo))
	}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		argIdx++
		q = q.Where(fmt.Sprintf("status = ANY($%d)", argIdx), statuses)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("due_date ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromBillModels(models)
}

func fromBillModels(models []billModel) ([]*bill.Bill, error) {
	result := make([]*bill.Bill, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

func (s *Store) SettleBill(ctx context.Context, b *bill.Bill, expectedBalance types.Money) error {
	t := now()
	res, err := s.q(ctx).NewUpdate((*billModel)(nil)).
		Set("amount_paid = $1", b.AmountPaid.Amount).
		Set("balance_amount = $2", b.Balance.Amount).
		Set("status = $3", string(b.Status)).
		Set("updated_at = $4", t).
		Where("id = $5", b.ID.String()).
		Where("balance_amount = $6", expectedBalance.Amount).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetBill(ctx, b.ID); err != nil {
			return err
		}
		return billing.ErrConcurrentUpdate
	}
	b.UpdatedAt = t
	return nil
}

func (s *Store) SetBillDocuments(ctx context.Context, billID id.BillID, documentPath, qrCodePath string) error {
	res, err := s.q(ctx).NewUpdate((*billModel)(nil)).
		Set("document_path = $1", documentPath).
		Set("qr_code_path = $2", qrCodePath).
		Set("updated_at = $3", now()).
		Where("id = $4", billID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return billing.ErrBillNotFound
	}
	return nil
}

// NextInvoiceSequence increments the period's counter in place. The row
// lock taken by the upsert is held until the unit of work ends, so
// concurrent generators for one period serialize here.
func (s *Store) NextInvoiceSequence(ctx context.Context, period string) (int64, error) {
	var seq int64
	err := s.q(ctx).NewRaw(`
INSERT INTO billing_invoice_sequences (period, last_value) VALUES ($1, 1)
ON CONFLICT (period) DO UPDATE SET last_value = billing_invoice_sequences.last_value + 1
RETURNING last_value`, period).Scan(ctx, &seq)
	if err != nil {
		return 0, mapError(err)
	}
	return seq, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.q(ctx).NewInsert(toPaymentModel(p)).Exec(ctx)
	return mapError(err)
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := s.q(ctx).NewSelect(m).Where("id = $1", paymentID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, billing.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) ListPaymentsByBill(ctx context.Context, billID id.BillID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := s.q(ctx).NewSelect(&models).
		Where("bill_id = $1", billID.String()).
		OrderExpr("paid_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}
