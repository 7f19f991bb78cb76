// Package memory is an in-process Store for tests and single-node use.
//
// Units of work run one at a time. Each takes a snapshot of every table on
// entry and restores it if the unit fails, so a rolled-back unit leaves no
// trace. Writes made outside Atomic while a unit is running can be lost if
// that unit rolls back.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/xraph/billing"
	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/store"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	customers map[string]account.Customer
	accounts  map[string]account.Account
	tariffs   map[string]tariff.Tariff
	charges   map[string]charge.Rule
	subsidies map[string]subsidy.Rule
	policies  map[string]latefee.Policy
	readings  map[string]reading.Reading
	bills     map[string]bill.Bill
	payments  map[string]payment.Payment
	sequences map[string]int64
}

func New() *Store {
	return &Store{
		customers: make(map[string]account.Customer),
		accounts:  make(map[string]account.Account),
		tariffs:   make(map[string]tariff.Tariff),
		charges:   make(map[string]charge.Rule),
		subsidies: make(map[string]subsidy.Rule),
		policies:  make(map[string]latefee.Policy),
		readings:  make(map[string]reading.Reading),
		bills:     make(map[string]bill.Bill),
		payments:  make(map[string]payment.Payment),
		sequences: make(map[string]int64),
	}
}

// ──────────────────────────────────────────────────
// Units of work
// ──────────────────────────────────────────────────

type txKey struct{}

type snapshot struct {
	customers map[string]account.Customer
	bills     map[string]bill.Bill
	payments  map[string]payment.Payment
	readings  map[string]reading.Reading
	sequences map[string]int64
}

func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// snapshot copies the tables a unit of work can mutate. Stored values are
// structs, so a shallow map copy is a full copy.
func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return snapshot{
		customers: maps.Clone(s.customers),
		bills:     maps.Clone(s.bills),
		payments:  maps.Clone(s.payments),
		readings:  maps.Clone(s.readings),
		sequences: maps.Clone(s.sequences),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers = snap.customers
	s.bills = snap.bills
	s.payments = snap.payments
	s.readings = snap.readings
	s.sequences = snap.sequences
}

// ──────────────────────────────────────────────────
// Account Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateCustomer(_ context.Context, c *account.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[c.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	if c.AdvanceBalance.Currency == "" {
		c.AdvanceBalance.Currency = types.DefaultCurrency
	}
	s.customers[c.ID.String()] = *c
	return nil
}

func (s *Store) GetCustomer(_ context.Context, customerID id.CustomerID) (*account.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.customers[customerID.String()]; ok {
		return &c, nil
	}
	return nil, billing.ErrCustomerNotFound
}

// LockCustomer is a plain read: units of work are already serialized.
func (s *Store) LockCustomer(ctx context.Context, customerID id.CustomerID) (*account.Customer, error) {
	return s.GetCustomer(ctx, customerID)
}

func (s *Store) AdjustAdvance(_ context.Context, customerID id.CustomerID, delta types.Money) (types.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID.String()]
	if !ok {
		return types.Money{}, billing.ErrCustomerNotFound
	}

	next := c.AdvanceBalance.Add(delta)
	if next.IsNegative() {
		return c.AdvanceBalance, billing.ErrInsufficientAdvance
	}

	c.AdvanceBalance = next
	c.Touch()
	s.customers[customerID.String()] = c
	return next, nil
}

func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	s.accounts[a.ID.String()] = *a
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		return &a, nil
	}
	return nil, billing.ErrAccountNotFound
}

// ──────────────────────────────────────────────────
// Reference data
// ──────────────────────────────────────────────────

func (s *Store) CreateTariff(_ context.Context, t *tariff.Tariff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tariffs[t.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	stored := *t
	stored.Slabs = slices.Clone(t.Slabs)
	for i := range stored.Slabs {
		if stored.Slabs[i].ID.IsNil() {
			stored.Slabs[i].ID = id.NewSlabID()
		}
		stored.Slabs[i].TariffID = t.ID
	}
	tariff.SortSlabs(stored.Slabs)
	s.tariffs[t.ID.String()] = stored
	return nil
}

func (s *Store) GetTariff(_ context.Context, tariffID id.TariffID) (*tariff.Tariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tariffs[tariffID.String()]
	if !ok {
		return nil, billing.ErrTariffNotFound
	}
	t.Slabs = slices.Clone(t.Slabs)
	return &t, nil
}

func (s *Store) ActiveTariffs(_ context.Context, code string, on time.Time) ([]*tariff.Tariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*tariff.Tariff
	for _, t := range s.tariffs {
		if t.Code == code && t.AppliesOn(on) {
			t.Slabs = slices.Clone(t.Slabs)
			result = append(result, &t)
		}
	}
	slices.SortFunc(result, func(a, b *tariff.Tariff) int { return a.ID.Compare(b.ID) })
	return result, nil
}

func (s *Store) ListSlabs(_ context.Context, tariffID id.TariffID) ([]tariff.Slab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tariffs[tariffID.String()]
	if !ok {
		return nil, billing.ErrTariffNotFound
	}
	return slices.Clone(t.Slabs), nil
}

func (s *Store) CreateCharge(_ context.Context, r *charge.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.charges[r.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	r.Normalize()
	stored := *r
	stored.ApplicableTo = slices.Clone(r.ApplicableTo)
	s.charges[r.ID.String()] = stored
	return nil
}

func (s *Store) ActiveCharges(_ context.Context) ([]*charge.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*charge.Rule
	for _, r := range s.charges {
		if r.Active {
			result = append(result, &r)
		}
	}
	slices.SortFunc(result, func(a, b *charge.Rule) int { return a.ID.Compare(b.ID) })
	return result, nil
}

func (s *Store) CreateSubsidyRule(_ context.Context, r *subsidy.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subsidies[r.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	s.subsidies[r.ID.String()] = *r
	return nil
}

func (s *Store) ActiveSubsidyRules(_ context.Context, tariffCode string, conn account.ConnectionType, on time.Time) ([]*subsidy.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subsidy.Rule
	for _, r := range s.subsidies {
		if r.Matches(tariffCode, conn, on) {
			result = append(result, &r)
		}
	}
	slices.SortFunc(result, func(a, b *subsidy.Rule) int { return a.ID.Compare(b.ID) })
	return result, nil
}

func (s *Store) CreateLateFeePolicy(_ context.Context, p *latefee.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	s.policies[p.ID.String()] = *p
	return nil
}

func (s *Store) ActiveLateFeePolicies(_ context.Context, conn account.ConnectionType, on time.Time) ([]*latefee.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*latefee.Policy
	for _, p := range s.policies {
		if p.ConnectionType == conn && p.AppliesOn(on) {
			result = append(result, &p)
		}
	}
	slices.SortFunc(result, func(a, b *latefee.Policy) int { return a.ID.Compare(b.ID) })
	return result, nil
}

// ──────────────────────────────────────────────────
// Reading Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateReading(_ context.Context, r *reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.readings[r.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	for _, existing := range s.readings {
		if existing.AccountID == r.AccountID && existing.BillingMonth == r.BillingMonth {
			return billing.ErrReadingAlreadyExists
		}
	}
	s.readings[r.ID.String()] = *r
	return nil
}

func (s *Store) GetReading(_ context.Context, readingID id.ReadingID) (*reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.readings[readingID.String()]; ok {
		return &r, nil
	}
	return nil, billing.ErrReadingNotFound
}

func (s *Store) LatestReadingBefore(_ context.Context, accountID id.AccountID, billingMonth string) (*reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *reading.Reading
	for _, r := range s.readings {
		if r.AccountID != accountID || r.BillingMonth >= billingMonth {
			continue
		}
		if latest == nil || cmp.Or(
			cmp.Compare(r.BillingMonth, latest.BillingMonth),
			r.ReadingDate.Compare(latest.ReadingDate),
			r.ID.Compare(latest.ID),
		) > 0 {
			latest = &r
		}
	}
	if latest == nil {
		return nil, billing.ErrReadingNotFound
	}
	return latest, nil
}

func (s *Store) ListReadingsByMonth(_ context.Context, billingMonth string) ([]*reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*reading.Reading
	for _, r := range s.readings {
		if r.BillingMonth == billingMonth {
			result = append(result, &r)
		}
	}
	slices.SortFunc(result, func(a, b *reading.Reading) int { return a.ID.Compare(b.ID) })
	return result, nil
}

// ──────────────────────────────────────────────────
// Bill Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateBill(_ context.Context, b *bill.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[b.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	for _, existing := range s.bills {
		if existing.AccountID == b.AccountID && existing.BillingMonth == b.BillingMonth {
			return billing.ErrBillAlreadyExists
		}
		if existing.InvoiceNumber == b.InvoiceNumber {
			return billing.ErrAlreadyExists
		}
	}
	s.bills[b.ID.String()] = *b
	return nil
}

func (s *Store) GetBill(_ context.Context, billID id.BillID) (*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.bills[billID.String()]; ok {
		return &b, nil
	}
	return nil, billing.ErrBillNotFound
}

// LockBill is a plain read: units of work are already serialized.
func (s *Store) LockBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	return s.GetBill(ctx, billID)
}

func (s *Store) GetBillByAccountMonth(_ context.Context, accountID id.AccountID, billingMonth string) (*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.AccountID == accountID && b.BillingMonth == billingMonth {
			return &b, nil
		}
	}
	return nil, billing.ErrBillNotFound
}

func (s *Store) ListBillsByAccount(_ context.Context, accountID id.AccountID) ([]*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*bill.Bill
	for _, b := range s.bills {
		if b.AccountID == accountID {
			result = append(result, &b)
		}
	}
	slices.SortFunc(result, func(a, b *bill.Bill) int {
		return cmp.Or(b.BillDate.Compare(a.BillDate), b.ID.Compare(a.ID))
	})
	return result, nil
}

func (s *Store) ListBills(_ context.Context, opts bill.ListOpts) ([]*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*bill.Bill
	for _, b := range s.bills {
		if !opts.DueFrom.IsZero() && b.DueDate.Before(opts.DueFrom) {
			continue
		}
		if !opts.DueTo.IsZero() && b.DueDate.After(opts.DueTo) {
			continue
		}
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, b.Status) {
			continue
		}
		result = append(result, &b)
	}
	slices.SortFunc(result, func(a, b *bill.Bill) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), a.ID.Compare(b.ID))
	})
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) SettleBill(_ context.Context, b *bill.Bill, expectedBalance types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bills[b.ID.String()]
	if !ok {
		return billing.ErrBillNotFound
	}
	if !existing.Balance.Equal(expectedBalance) {
		return billing.ErrConcurrentUpdate
	}

	existing.AmountPaid = b.AmountPaid
	existing.Balance = b.Balance
	existing.Status = b.Status
	existing.Touch()
	s.bills[b.ID.String()] = existing
	b.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *Store) SetBillDocuments(_ context.Context, billID id.BillID, documentPath, qrCodePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[billID.String()]
	if !ok {
		return billing.ErrBillNotFound
	}
	b.DocumentPath = documentPath
	b.QRCodePath = qrCodePath
	b.Touch()
	s.bills[billID.String()] = b
	return nil
}

func (s *Store) NextInvoiceSequence(_ context.Context, period string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[period]++
	return s.sequences[period], nil
}

// ──────────────────────────────────────────────────
// Payment Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID.String()]; exists {
		return billing.ErrAlreadyExists
	}
	for _, existing := range s.payments {
		if existing.Reference == p.Reference {
			return billing.ErrAlreadyExists
		}
	}
	s.payments[p.ID.String()] = *p
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[paymentID.String()]; ok {
		return &p, nil
	}
	return nil, billing.ErrPaymentNotFound
}

func (s *Store) ListPaymentsByBill(_ context.Context, billID id.BillID) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*payment.Payment
	for _, p := range s.payments {
		if p.BillID == billID {
			result = append(result, &p)
		}
	}
	slices.SortFunc(result, func(a, b *payment.Payment) int { return a.ID.Compare(b.ID) })
	return result, nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
