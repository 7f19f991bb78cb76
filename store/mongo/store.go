// Package mongo is the MongoDB Store, built on Grove's mongo driver.
// Units of work are multi-document transactions, so the server must run
// as a replica set. Slabs are embedded in their tariff document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colCustomers = "billing_customers"
	colAccounts  = "billing_accounts"
	colTariffs   = "billing_tariffs"
	colCharges   = "billing_charges"
	colSubsidies = "billing_subsidy_rules"
	colPolicies  = "billing_late_fee_policies"
	colReadings  = "billing_meter_readings"
	colBills     = "billing_bills"
	colSequences = "billing_invoice_sequences"
	colPayments  = "billing_payments"
)

// Unique index names. Duplicate key errors are mapped by index name.
const (
	idxAccountNumber     = "billing_accounts_number_key"
	idxReadingAccountMon = "billing_meter_readings_account_month_key"
	idxBillAccountMonth  = "billing_bills_account_month_key"
	idxBillInvoiceNumber = "billing_bills_invoice_number_key"
	idxPaymentReference  = "billing_payments_reference_key"
)

const (
	codeWriteConflict         = 112
	labelTransientTransaction = "TransientTransactionError"
)

// compile-time interface check
var _ billingstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects a mongodriver client to uri, which names the database,
// and returns a Store over it.
func Open(ctx context.Context, uri string) (*Store, error) {
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri); err != nil {
		return nil, fmt.Errorf("billing/mongo: connect: %w", err)
	}
	return &Store{mdb: mdb}, nil
}

// DB returns the underlying grove database, or nil when the store was
// built by Open.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all billing collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("billing/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.db != nil {
		return s.db.Ping(ctx)
	}
	return s.mdb.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return s.mdb.Close()
}

// ==================== Units of work ====================

func (s *Store) client() *mongo.Client {
	return s.mdb.Collection(colBills).Database().Client()
}

func inTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

// Atomic runs fn inside a snapshot transaction. The session travels in
// the context, so grove queries issued with it join the transaction.
// Write conflicts surface as ErrConcurrentUpdate and are not retried here.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	sess, err := s.client().StartSession()
	if err != nil {
		return errors.Join(billing.ErrTransactionFailed, err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txOpts); err != nil {
		return errors.Join(billing.ErrTransactionFailed, err)
	}

	if err := fn(mongo.NewSessionContext(ctx, sess)); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(ctx)) //nolint:errcheck // the fn error wins
		return mapError(err)
	}
	if err := sess.CommitTransaction(ctx); err != nil {
		return errors.Join(billing.ErrTransactionFailed, mapError(err))
	}
	return nil
}

// mapError translates duplicate keys and write conflicts into billing
// sentinels. Other errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, idxBillAccountMonth):
			return billing.ErrBillAlreadyExists
		case strings.Contains(msg, idxReadingAccountMon):
			return billing.ErrReadingAlreadyExists
		default:
			return billing.ErrAlreadyExists
		}
	}

	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel(labelTransientTransaction)) {
		return billing.ErrConcurrentUpdate
	}
	return err
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// activeOn matches documents whose effective window contains day.
func activeOn(filter bson.M, day time.Time) bson.M {
	day = types.Day(day)
	filter["active"] = true
	filter["effective_from"] = bson.M{"$lte": day}
	filter["$or"] = bson.A{
		bson.M{"effective_to": nil},
		bson.M{"effective_to": bson.M{"$gte": day}},
	}
	return filter
}

// convert maps decoded models onto domain values, stopping at the first
// malformed document.
func convert[M any, T any](models []M, from func(*M) (T, error)) ([]T, error) {
	result := make([]T, len(models))
	for i := range models {
		v, err := from(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// ==================== Account Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *account.Customer) error {
	m := toCustomerModel(c)
	c.AdvanceBalance.Currency = m.Currency
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create customer: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	var m customerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": customerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get customer: %w", err)
	}
	return fromCustomerModel(&m)
}

// LockCustomer touches the customer document inside the transaction so a
// concurrent writer fails with a write conflict instead of interleaving.
func (s *Store) LockCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	if !inTransaction(ctx) {
		return s.GetCustomer(ctx, customerID)
	}

	var m customerModel
	err := s.mdb.Collection(colCustomers).FindOneAndUpdate(ctx,
		bson.M{"_id": customerID.String()},
		bson.M{"$set": bson.M{"locked_at": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("billing/mongo: lock customer: %w", mapError(err))
	}
	return fromCustomerModel(&m)
}

func (s *Store) AdjustAdvance(ctx context.Context, customerID id.CustomerID, delta types.Money) (types.Money, error) {
	var m customerModel
	err := s.mdb.Collection(colCustomers).FindOneAndUpdate(ctx,
		bson.M{
			"_id":             customerID.String(),
			"advance_balance": bson.M{"$gte": -delta.Amount},
		},
		bson.M{
			"$inc": bson.M{"advance_balance": delta.Amount},
			"$set": bson.M{"updated_at": now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return types.Money{Amount: m.AdvanceBalance, Currency: m.Currency}, nil
	}
	if !isNoDocuments(err) {
		return types.Money{}, fmt.Errorf("billing/mongo: adjust advance: %w", mapError(err))
	}

	if _, err := s.GetCustomer(ctx, customerID); err != nil {
		return types.Money{}, err
	}
	return types.Money{}, billing.ErrInsufficientAdvance
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	if _, err := s.mdb.NewInsert(toAccountModel(a)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create account: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrAccountNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

// ==================== Tariff Store ====================

func (s *Store) CreateTariff(ctx context.Context, t *tariff.Tariff) error {
	for i := range t.Slabs {
		sl := &t.Slabs[i]
		if sl.ID.IsNil() {
			sl.ID = id.NewSlabID()
		}
		sl.TariffID = t.ID
	}
	if _, err := s.mdb.NewInsert(toTariffModel(t)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create tariff: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetTariff(ctx context.Context, tariffID id.TariffID) (*tariff.Tariff, error) {
	var m tariffModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tariffID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrTariffNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get tariff: %w", err)
	}
	return fromTariffModel(&m)
}

func (s *Store) ActiveTariffs(ctx context.Context, code string, on time.Time) ([]*tariff.Tariff, error) {
	var models []tariffModel
	err := s.mdb.NewFind(&models).
		Filter(activeOn(bson.M{"code": code}, on)).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: active tariffs: %w", err)
	}
	return convert(models, fromTariffModel)
}

func (s *Store) ListSlabs(ctx context.Context, tariffID id.TariffID) ([]tariff.Slab, error) {
	t, err := s.GetTariff(ctx, tariffID)
	if err != nil {
		return nil, err
	}
	return t.Slabs, nil
}

// ==================== Charge Store ====================

func (s *Store) CreateCharge(ctx context.Context, r *charge.Rule) error {
	r.Normalize()
	if _, err := s.mdb.NewInsert(toChargeModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create charge: %w", mapError(err))
	}
	return nil
}

func (s *Store) ActiveCharges(ctx context.Context) ([]*charge.Rule, error) {
	var models []chargeModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"active": true}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: active charges: %w", err)
	}
	return convert(models, fromChargeModel)
}

// ==================== Subsidy Store ====================

func (s *Store) CreateSubsidyRule(ctx context.Context, r *subsidy.Rule) error {
	if _, err := s.mdb.NewInsert(toSubsidyModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create subsidy rule: %w", mapError(err))
	}
	return nil
}

func (s *Store) ActiveSubsidyRules(ctx context.Context, tariffCode string, conn account.ConnectionType, on time.Time) ([]*subsidy.Rule, error) {
	var models []subsidyModel
	err := s.mdb.NewFind(&models).
		Filter(activeOn(bson.M{"tariff_code": tariffCode, "connection_type": string(conn)}, on)).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: active subsidy rules: %w", err)
	}
	return convert(models, fromSubsidyModel)
}

// ==================== Late Fee Store ====================

func (s *Store) CreateLateFeePolicy(ctx context.Context, p *latefee.Policy) error {
	if _, err := s.mdb.NewInsert(toPolicyModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create late fee policy: %w", mapError(err))
	}
	return nil
}

func (s *Store) ActiveLateFeePolicies(ctx context.Context, conn account.ConnectionType, on time.Time) ([]*latefee.Policy, error) {
	var models []policyModel
	err := s.mdb.NewFind(&models).
		Filter(activeOn(bson.M{"connection_type": string(conn)}, on)).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: active late fee policies: %w", err)
	}
	return convert(models, fromPolicyModel)
}

// ==================== Reading Store ====================

func (s *Store) CreateReading(ctx context.Context, r *reading.Reading) error {
	if _, err := s.mdb.NewInsert(toReadingModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create reading: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetReading(ctx context.Context, readingID id.ReadingID) (*reading.Reading, error) {
	var m readingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": readingID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrReadingNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get reading: %w", err)
	}
	return fromReadingModel(&m)
}

func (s *Store) LatestReadingBefore(ctx context.Context, accountID id.AccountID, billingMonth string) (*reading.Reading, error) {
	var models []readingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"account_id":    accountID.String(),
			"billing_month": bson.M{"$lt": billingMonth},
		}).
		Sort(bson.D{
			{Key: "billing_month", Value: -1},
			{Key: "reading_date", Value: -1},
			{Key: "_id", Value: -1},
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: latest reading: %w", err)
	}
	if len(models) == 0 {
		return nil, billing.ErrReadingNotFound
	}
	return fromReadingModel(&models[0])
}

func (s *Store) ListReadingsByMonth(ctx context.Context, billingMonth string) ([]*reading.Reading, error) {
	var models []readingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"billing_month": billingMonth}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: list readings: %w", err)
	}
	return convert(models, fromReadingModel)
}

// ==================== Bill Store ====================

func (s *Store) CreateBill(ctx context.Context, b *bill.Bill) error {
	if _, err := s.mdb.NewInsert(toBillModel(b)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create bill: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return s.findBill(ctx, bson.M{"_id": billID.String()})
}

// LockBill touches the bill document inside the transaction so a
// concurrent settlement fails with a write conflict.
func (s *Store) LockBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	if !inTransaction(ctx) {
		return s.GetBill(ctx, billID)
	}

	var m billModel
	err := s.mdb.Collection(colBills).FindOneAndUpdate(ctx,
		bson.M{"_id": billID.String()},
		bson.M{"$set": bson.M{"locked_at": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrBillNotFound
		}
		return nil, fmt.Errorf("billing/mongo: lock bill: %w", mapError(err))
	}
	return fromBillModel(&m)
}

func (s *Store) GetBillByAccountMonth(ctx context.Context, accountID id.AccountID, billingMonth string) (*bill.Bill, error) {
	return s.findBill(ctx, bson.M{"account_id": accountID.String(), "billing_month": billingMonth})
}

func (s *Store) findBill(ctx context.Context, filter bson.M) (*bill.Bill, error) {
	var m billModel
	err := s.mdb.NewFind(&m).
		Filter(filter).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrBillNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get bill: %w", err)
	}
	return fromBillModel(&m)
}

func (s *Store) ListBillsByAccount(ctx context.Context, accountID id.AccountID) ([]*bill.Bill, error) {
	var models []billModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"account_id": accountID.String()}).
		Sort(bson.D{{Key: "bill_date", Value: -1}, {Key: "_id", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: list account bills: %w", err)
	}
	return convert(models, fromBillModel)
}

func (s *Store) ListBills(ctx context.Context, opts bill.ListOpts) ([]*bill.Bill, error) {
	filter := bson.M{}
	due := bson.M{}
	if !opts.DueFrom.IsZero() {
		due["$gte"] = types.Day(opts.DueFrom)
	}
	if !opts.DueTo.IsZero() {
		due["$lte"] = types.Day(opts.DueTo)
	}
	if len(due) > 0 {
		filter["due_date"] = due
	}
	if len(opts.Statuses) > 0 {
		statuses := make(bson.A, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}

	var models []billModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("billing/mongo: list bills: %w", err)
	}
	return convert(models, fromBillModel)
}

func (s *Store) SettleBill(ctx context.Context, b *bill.Bill, expectedBalance types.Money) error {
	t := now()
	res, err := s.mdb.NewUpdate((*billModel)(nil)).
		Filter(bson.M{"_id": b.ID.String(), "balance_amount": expectedBalance.Amount}).
		Set("amount_paid", b.AmountPaid.Amount).
		Set("balance_amount", b.Balance.Amount).
		Set("status", string(b.Status)).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("billing/mongo: settle bill: %w", mapError(err))
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetBill(ctx, b.ID); err != nil {
			return err
		}
		return billing.ErrConcurrentUpdate
	}
	b.UpdatedAt = t
	return nil
}

func (s *Store) SetBillDocuments(ctx context.Context, billID id.BillID, documentPath, qrCodePath string) error {
	res, err := s.mdb.NewUpdate((*billModel)(nil)).
		Filter(bson.M{"_id": billID.String()}).
		Set("document_path", documentPath).
		Set("qr_code_path", qrCodePath).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("billing/mongo: set bill documents: %w", err)
	}
	if res.MatchedCount() == 0 {
		return billing.ErrBillNotFound
	}
	return nil
}

// NextInvoiceSequence increments the period's counter with an upsert. Two
// transactions drawing from one period conflict on the counter document.
func (s *Store) NextInvoiceSequence(ctx context.Context, period string) (int64, error) {
	var m sequenceModel
	err := s.mdb.Collection(colSequences).FindOneAndUpdate(ctx,
		bson.M{"_id": period},
		bson.M{"$inc": bson.M{"last_value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("billing/mongo: next invoice sequence: %w", mapError(err))
	}
	return m.LastValue, nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	if _, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("billing/mongo: create payment: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": paymentID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, billing.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("billing/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPaymentsByBill(ctx context.Context, billID id.BillID) ([]*payment.Payment, error) {
	var models []paymentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"bill_id": billID.String()}).
		Sort(bson.D{{Key: "paid_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing/mongo: list payments: %w", err)
	}
	return convert(models, fromPaymentModel)
}

// ==================== Indexes ====================

// migrationIndexes returns the index definitions for all billing collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	unique := func(name string) *options.IndexOptionsBuilder {
		return options.Index().SetUnique(true).SetName(name)
	}
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "account_number", Value: 1}}, Options: unique(idxAccountNumber)},
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		colTariffs: {
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "effective_from", Value: -1}}},
		},
		colSubsidies: {
			{Keys: bson.D{{Key: "tariff_code", Value: 1}, {Key: "connection_type", Value: 1}}},
		},
		colPolicies: {
			{Keys: bson.D{{Key: "connection_type", Value: 1}, {Key: "effective_from", Value: -1}}},
		},
		colReadings: {
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "billing_month", Value: 1}},
				Options: unique(idxReadingAccountMon),
			},
			{Keys: bson.D{{Key: "billing_month", Value: 1}}},
		},
		colBills: {
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "billing_month", Value: 1}},
				Options: unique(idxBillAccountMonth),
			},
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: unique(idxBillInvoiceNumber)},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "bill_date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: unique(idxPaymentReference)},
			{Keys: bson.D{{Key: "bill_id", Value: 1}, {Key: "paid_at", Value: 1}}},
		},
	}
}
