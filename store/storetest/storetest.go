// Package storetest is a conformance suite every store.Store backend runs
// from its own tests. Fixtures use fresh IDs and codes so the suite can
// run repeatedly against a shared database.
package storetest

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

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

// Run exercises s against the store.Store contract. s must already be
// migrated.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CustomerAdvance", testCustomerAdvance},
		{"Account", testAccount},
		{"Tariff", testTariff},
		{"Charges", testCharges},
		{"SubsidyRules", testSubsidyRules},
		{"LateFeePolicies", testLateFeePolicies},
		{"Readings", testReadings},
		{"Bills", testBills},
		{"SettleBill", testSettleBill},
		{"ListBills", testListBills},
		{"InvoiceSequence", testInvoiceSequence},
		{"Payments", testPayments},
		{"ConcurrentPayments", testConcurrentPayments},
		{"AtomicRollback", testAtomicRollback},
		{"AtomicCommit", testAtomicCommit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.fn(t, s) })
	}
}

// unique returns a short suffix that differs per call and per run.
func unique() string {
	return id.NewBillID().String()[len("bill_"):]
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("got error %v, want %v", err, target)
	}
}

func newCustomer(t *testing.T, s store.Store, advance int64) *account.Customer {
	t.Helper()
	c := &account.Customer{
		Entity:         types.NewEntity(),
		ID:             id.NewCustomerID(),
		Name:           "Ravi Kumar",
		Email:          "ravi@example.com",
		AdvanceBalance: types.INR(advance),
	}
	must(t, s.CreateCustomer(context.Background(), c))
	return c
}

func newAccount(t *testing.T, s store.Store, c *account.Customer) *account.Account {
	t.Helper()
	a := &account.Account{
		Entity:         types.NewEntity(),
		ID:             id.NewAccountID(),
		CustomerID:     c.ID,
		AccountNumber:  "ACC-" + unique(),
		MeterNumber:    "MTR-7",
		ConnectionType: account.Residential,
		SanctionedLoad: decimal.RequireFromString("3.5"),
		TariffCategory: "LT-I",
		Active:         true,
	}
	must(t, s.CreateAccount(context.Background(), a))
	return a
}

func newReading(t *testing.T, s store.Store, a *account.Account, month string, day time.Time) *reading.Reading {
	t.Helper()
	r := &reading.Reading{
		Entity:          types.NewEntity(),
		ID:              id.NewReadingID(),
		AccountID:       a.ID,
		ReadingDate:     day,
		BillingMonth:    month,
		PreviousReading: 100,
		CurrentReading:  350,
		Type:            reading.TypeActual,
		RecordedBy:      "meter-reader",
	}
	must(t, s.CreateReading(context.Background(), r))
	return r
}

func newBill(a *account.Account, r *reading.Reading, due time.Time, netPayable int64) *bill.Bill {
	return &bill.Bill{
		Entity:        types.NewEntity(),
		ID:            id.NewBillID(),
		AccountID:     a.ID,
		CustomerID:    a.CustomerID,
		ReadingID:     r.ID,
		InvoiceNumber: "VIT/" + unique(),
		BillingMonth:  r.BillingMonth,
		BillDate:      due.AddDate(0, 0, -15),
		DueDate:       due,
		UnitsConsumed: r.Units(),
		EnergyCharge:  types.INR(netPayable - 7000),
		FixedCharge:   types.INR(5000),
		MeterRent:     types.INR(2000),
		TotalAmount:   types.INR(netPayable),
		NetPayable:    types.INR(netPayable),
		AmountPaid:    types.INR(0),
		Balance:       types.INR(netPayable),
		Status:        bill.StatusUnpaid,
		GeneratedBy:   "clerk",
	}
}

func testCustomerAdvance(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCustomer(t, s, 0)

	got, err := s.GetCustomer(ctx, c.ID)
	must(t, err)
	if got.Name != c.Name || got.Email != c.Email || !got.AdvanceBalance.Equal(types.INR(0)) {
		t.Fatalf("GetCustomer = %+v", got)
	}

	steps := []struct {
		delta   int64
		want    int64
		wantErr error
	}{
		{delta: 50000, want: 50000},
		{delta: -70000, want: 50000, wantErr: billing.ErrInsufficientAdvance},
		{delta: -50000, want: 0},
		{delta: -1, want: 0, wantErr: billing.ErrInsufficientAdvance},
	}
	for _, st := range steps {
		balance, err := s.AdjustAdvance(ctx, c.ID, types.INR(st.delta))
		if st.wantErr != nil {
			wantErr(t, err, st.wantErr)
		} else {
			must(t, err)
			if !balance.Equal(types.INR(st.want)) {
				t.Fatalf("AdjustAdvance(%d) = %v, want %v", st.delta, balance, types.INR(st.want))
			}
		}
		stored, err := s.GetCustomer(ctx, c.ID)
		must(t, err)
		if !stored.AdvanceBalance.Equal(types.INR(st.want)) {
			t.Fatalf("after AdjustAdvance(%d) stored %v, want %v", st.delta, stored.AdvanceBalance, types.INR(st.want))
		}
	}

	_, err = s.AdjustAdvance(ctx, id.NewCustomerID(), types.INR(100))
	wantErr(t, err, billing.ErrCustomerNotFound)
	_, err = s.GetCustomer(ctx, id.NewCustomerID())
	wantErr(t, err, billing.ErrCustomerNotFound)
}

func testAccount(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))

	got, err := s.GetAccount(ctx, a.ID)
	must(t, err)
	if got.CustomerID != a.CustomerID || got.AccountNumber != a.AccountNumber ||
		got.ConnectionType != account.Residential || got.TariffCategory != "LT-I" || !got.Active ||
		!got.SanctionedLoad.Equal(a.SanctionedLoad) {
		t.Fatalf("GetAccount = %+v, want %+v", got, a)
	}

	_, err = s.GetAccount(ctx, id.NewAccountID())
	wantErr(t, err, billing.ErrAccountNotFound)
}

func testTariff(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := "LT-" + unique()
	upTo := int64(100)
	ended := types.Date(2023, time.December, 31)

	current := &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           code,
		Name:           "Residential",
		ConnectionType: account.Residential,
		FixedCharge:    types.INR(5000),
		MeterRent:      types.INR(2000),
		EffectiveFrom:  types.Date(2024, time.January, 1),
		Active:         true,
		Slabs: []tariff.Slab{
			{Number: 2, MinUnits: 101, RatePerUnit: decimal.RequireFromString("5.20")},
			{Number: 1, MinUnits: 1, MaxUnits: &upTo, RatePerUnit: decimal.RequireFromString("3.50")},
		},
	}
	expired := &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           code,
		ConnectionType: account.Residential,
		FixedCharge:    types.INR(4000),
		EffectiveFrom:  types.Date(2023, time.January, 1),
		EffectiveTo:    &ended,
		Active:         true,
	}
	inactive := &tariff.Tariff{
		Entity:         types.NewEntity(),
		ID:             id.NewTariffID(),
		Code:           code,
		ConnectionType: account.Residential,
		EffectiveFrom:  types.Date(2024, time.January, 1),
	}
	for _, tr := range []*tariff.Tariff{current, expired, inactive} {
		must(t, s.CreateTariff(ctx, tr))
	}

	got, err := s.GetTariff(ctx, current.ID)
	must(t, err)
	if got.Code != code || !got.FixedCharge.Equal(types.INR(5000)) || !got.MeterRent.Equal(types.INR(2000)) {
		t.Fatalf("GetTariff = %+v", got)
	}
	if len(got.Slabs) != 2 || got.Slabs[0].Number != 1 || got.Slabs[1].Number != 2 {
		t.Fatalf("slabs not ordered by number: %+v", got.Slabs)
	}
	if got.Slabs[0].MaxUnits == nil || *got.Slabs[0].MaxUnits != 100 || got.Slabs[1].MaxUnits != nil {
		t.Fatalf("slab bounds = %+v", got.Slabs)
	}
	if !got.Slabs[1].RatePerUnit.Equal(decimal.RequireFromString("5.2")) {
		t.Fatalf("slab rate = %s", got.Slabs[1].RatePerUnit)
	}

	slabs, err := s.ListSlabs(ctx, current.ID)
	must(t, err)
	if len(slabs) != 2 || slabs[0].TariffID != current.ID {
		t.Fatalf("ListSlabs = %+v", slabs)
	}

	cases := []struct {
		on   time.Time
		want []id.TariffID
	}{
		{types.Date(2024, time.March, 10), []id.TariffID{current.ID}},
		{types.Date(2023, time.December, 31), []id.TariffID{expired.ID}},
		{types.Date(2022, time.June, 1), nil},
	}
	for _, tc := range cases {
		active, err := s.ActiveTariffs(ctx, code, tc.on)
		must(t, err)
		ids := make([]id.TariffID, len(active))
		for i, a := range active {
			ids[i] = a.ID
		}
		if !slices.Equal(ids, tc.want) {
			t.Errorf("ActiveTariffs(%s) = %v, want %v", tc.on.Format(types.DateLayout), ids, tc.want)
		}
	}

	_, err = s.GetTariff(ctx, id.NewTariffID())
	wantErr(t, err, billing.ErrTariffNotFound)
}

func testCharges(t *testing.T, s store.Store) {
	ctx := context.Background()
	duty := &charge.Rule{
		Entity:       types.NewEntity(),
		ID:           id.NewChargeID(),
		Name:         "Electricity Duty",
		Type:         charge.TypePercentage,
		Value:        decimal.RequireFromString("6"),
		ApplicableTo: []string{"LT-I", "LT-II"},
		Active:       true,
	}
	upiFee := &charge.Rule{
		Entity: types.NewEntity(),
		ID:     id.NewChargeID(),
		Name:   "Convenience Fee UPI",
		Type:   charge.TypeFixed,
		Value:  decimal.RequireFromString("5"),
		Active: true,
	}
	retired := &charge.Rule{
		Entity: types.NewEntity(),
		ID:     id.NewChargeID(),
		Name:   "Wheeling Charges",
		Type:   charge.TypeFixed,
		Value:  decimal.RequireFromString("1"),
	}
	for _, r := range []*charge.Rule{duty, upiFee, retired} {
		must(t, s.CreateCharge(ctx, r))
	}

	rules, err := s.ActiveCharges(ctx)
	must(t, err)
	byID := make(map[id.ChargeID]*charge.Rule)
	for _, r := range rules {
		byID[r.ID] = r
	}

	gotDuty, ok := byID[duty.ID]
	if !ok {
		t.Fatal("active duty rule missing")
	}
	if gotDuty.Category != charge.ElectricityDuty || !slices.Equal(gotDuty.ApplicableTo, []string{"LT-I", "LT-II"}) ||
		!gotDuty.Value.Equal(decimal.NewFromInt(6)) {
		t.Errorf("duty rule = %+v", gotDuty)
	}
	gotFee, ok := byID[upiFee.ID]
	if !ok {
		t.Fatal("active convenience fee rule missing")
	}
	if gotFee.Category != charge.ConvenienceFee || gotFee.Mode != payment.ModeUPI ||
		!slices.Equal(gotFee.ApplicableTo, []string{charge.ApplicableToAll}) {
		t.Errorf("fee rule = %+v", gotFee)
	}
	if _, ok := byID[retired.ID]; ok {
		t.Error("inactive rule returned")
	}
	if !slices.IsSortedFunc(rules, func(a, b *charge.Rule) int { return a.ID.Compare(b.ID) }) {
		t.Error("rules not ordered by ID")
	}
}

func testSubsidyRules(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := "LT-" + unique()
	cap100 := int64(100)

	lifeline := &subsidy.Rule{
		Entity:         types.NewEntity(),
		ID:             id.NewSubsidyID(),
		Name:           "Lifeline",
		TariffCode:     code,
		ConnectionType: account.Residential,
		MaxUnits:       &cap100,
		PerUnitAmount:  decimal.RequireFromString("1.25"),
		MaxBenefit:     types.INR(10000),
		EffectiveFrom:  types.Date(2024, time.January, 1),
		Active:         true,
	}
	commercial := &subsidy.Rule{
		Entity:         types.NewEntity(),
		ID:             id.NewSubsidyID(),
		Name:           "Shops",
		TariffCode:     code,
		ConnectionType: account.Commercial,
		Percentage:     decimal.RequireFromString("5"),
		EffectiveFrom:  types.Date(2024, time.January, 1),
		Active:         true,
	}
	for _, r := range []*subsidy.Rule{lifeline, commercial} {
		must(t, s.CreateSubsidyRule(ctx, r))
	}

	rules, err := s.ActiveSubsidyRules(ctx, code, account.Residential, types.Date(2024, time.February, 1))
	must(t, err)
	if len(rules) != 1 || rules[0].ID != lifeline.ID {
		t.Fatalf("ActiveSubsidyRules = %+v", rules)
	}
	got := rules[0]
	if got.MaxUnits == nil || *got.MaxUnits != 100 || !got.PerUnitAmount.Equal(decimal.RequireFromString("1.25")) ||
		!got.MaxBenefit.Equal(types.INR(10000)) || !got.FixedAmount.IsZero() {
		t.Errorf("rule = %+v", got)
	}

	early, err := s.ActiveSubsidyRules(ctx, code, account.Residential, types.Date(2023, time.December, 31))
	must(t, err)
	if len(early) != 0 {
		t.Errorf("rules before effective date: %+v", early)
	}
}

func testLateFeePolicies(t *testing.T, s store.Store) {
	ctx := context.Background()
	until := types.Date(2024, time.June, 30)
	p := &latefee.Policy{
		Entity:           types.NewEntity(),
		ID:               id.NewLateFeePolicyID(),
		ConnectionType:   account.Agricultural,
		StandardDueDays:  21,
		GracePeriodDays:  5,
		DailyRatePercent: decimal.RequireFromString("0.05"),
		FlatFee:          types.INR(2500),
		MaxLateFee:       types.INR(50000),
		EffectiveFrom:    types.Date(2024, time.January, 1),
		EffectiveTo:      &until,
		Active:           true,
	}
	must(t, s.CreateLateFeePolicy(ctx, p))

	find := func(on time.Time) *latefee.Policy {
		t.Helper()
		policies, err := s.ActiveLateFeePolicies(ctx, account.Agricultural, on)
		must(t, err)
		for _, got := range policies {
			if got.ID == p.ID {
				return got
			}
		}
		return nil
	}

	got := find(types.Date(2024, time.June, 30))
	if got == nil {
		t.Fatal("policy missing on its last effective day")
	}
	if got.StandardDueDays != 21 || got.GracePeriodDays != 5 || !got.DailyRatePercent.Equal(decimal.RequireFromString("0.05")) ||
		!got.FlatFee.Equal(types.INR(2500)) || !got.MaxLateFee.Equal(types.INR(50000)) {
		t.Errorf("policy = %+v", got)
	}
	if got.EffectiveTo == nil || !got.EffectiveTo.Equal(until) {
		t.Errorf("effective to = %v, want %v", got.EffectiveTo, until)
	}
	if find(types.Date(2024, time.July, 1)) != nil {
		t.Error("policy returned after its effective window")
	}
}

func testReadings(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))

	jan := newReading(t, s, a, "2024-01", types.Date(2024, time.January, 31))
	feb := newReading(t, s, a, "2024-02", types.Date(2024, time.February, 29))

	dup := &reading.Reading{
		Entity:       types.NewEntity(),
		ID:           id.NewReadingID(),
		AccountID:    a.ID,
		ReadingDate:  types.Date(2024, time.February, 28),
		BillingMonth: "2024-02",
		Type:         reading.TypeEstimated,
	}
	wantErr(t, s.CreateReading(ctx, dup), billing.ErrReadingAlreadyExists)

	got, err := s.GetReading(ctx, jan.ID)
	must(t, err)
	if got.AccountID != a.ID || got.BillingMonth != "2024-01" || got.Units() != 250 ||
		got.UnitsConsumed != nil || got.Type != reading.TypeActual ||
		!got.ReadingDate.Equal(types.Date(2024, time.January, 31)) {
		t.Fatalf("GetReading = %+v", got)
	}

	latest, err := s.LatestReadingBefore(ctx, a.ID, "2024-03")
	must(t, err)
	if latest.ID != feb.ID {
		t.Errorf("LatestReadingBefore(2024-03) = %s, want %s", latest.BillingMonth, feb.BillingMonth)
	}
	before, err := s.LatestReadingBefore(ctx, a.ID, "2024-02")
	must(t, err)
	if before.ID != jan.ID {
		t.Errorf("LatestReadingBefore(2024-02) = %s, want %s", before.BillingMonth, jan.BillingMonth)
	}
	_, err = s.LatestReadingBefore(ctx, a.ID, "2024-01")
	wantErr(t, err, billing.ErrReadingNotFound)

	month, err := s.ListReadingsByMonth(ctx, "2024-01")
	must(t, err)
	if !slices.ContainsFunc(month, func(r *reading.Reading) bool { return r.ID == jan.ID }) {
		t.Error("ListReadingsByMonth missing January reading")
	}
	if slices.ContainsFunc(month, func(r *reading.Reading) bool { return r.ID == feb.ID }) {
		t.Error("ListReadingsByMonth returned another month")
	}

	_, err = s.LatestReadingBefore(ctx, id.NewAccountID(), "2024-03")
	wantErr(t, err, billing.ErrReadingNotFound)
	_, err = s.GetReading(ctx, id.NewReadingID())
	wantErr(t, err, billing.ErrReadingNotFound)
}

func testBills(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))
	jan := newReading(t, s, a, "2024-01", types.Date(2024, time.January, 31))
	feb := newReading(t, s, a, "2024-02", types.Date(2024, time.February, 29))

	first := newBill(a, jan, types.Date(2024, time.February, 15), 120000)
	must(t, s.CreateBill(ctx, first))
	second := newBill(a, feb, types.Date(2024, time.March, 15), 98000)
	must(t, s.CreateBill(ctx, second))

	again := newBill(a, jan, types.Date(2024, time.February, 15), 1000)
	wantErr(t, s.CreateBill(ctx, again), billing.ErrBillAlreadyExists)

	other := newAccount(t, s, newCustomer(t, s, 0))
	otherReading := newReading(t, s, other, "2024-01", types.Date(2024, time.January, 31))
	sameInvoice := newBill(other, otherReading, types.Date(2024, time.February, 15), 1000)
	sameInvoice.InvoiceNumber = first.InvoiceNumber
	err := s.CreateBill(ctx, sameInvoice)
	if !errors.Is(err, billing.ErrAlreadyExists) || errors.Is(err, billing.ErrBillAlreadyExists) {
		t.Fatalf("duplicate invoice number: got %v, want %v", err, billing.ErrAlreadyExists)
	}

	got, err := s.GetBill(ctx, first.ID)
	must(t, err)
	if got.InvoiceNumber != first.InvoiceNumber || !got.NetPayable.Equal(types.INR(120000)) ||
		!got.Balance.Equal(types.INR(120000)) || got.Status != bill.StatusUnpaid ||
		!got.DueDate.Equal(types.Date(2024, time.February, 15)) || got.ReadingID != jan.ID {
		t.Fatalf("GetBill = %+v", got)
	}

	byMonth, err := s.GetBillByAccountMonth(ctx, a.ID, "2024-02")
	must(t, err)
	if byMonth.ID != second.ID {
		t.Errorf("GetBillByAccountMonth = %s, want %s", byMonth.ID, second.ID)
	}
	_, err = s.GetBillByAccountMonth(ctx, a.ID, "2023-12")
	wantErr(t, err, billing.ErrBillNotFound)

	list, err := s.ListBillsByAccount(ctx, a.ID)
	must(t, err)
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("ListBillsByAccount not newest first: %v", list)
	}

	must(t, s.SetBillDocuments(ctx, first.ID, "bills/a.pdf", "qr/a.png"))
	got, err = s.GetBill(ctx, first.ID)
	must(t, err)
	if got.DocumentPath != "bills/a.pdf" || got.QRCodePath != "qr/a.png" {
		t.Errorf("documents = %q, %q", got.DocumentPath, got.QRCodePath)
	}
	wantErr(t, s.SetBillDocuments(ctx, id.NewBillID(), "x", "y"), billing.ErrBillNotFound)

	_, err = s.GetBill(ctx, id.NewBillID())
	wantErr(t, err, billing.ErrBillNotFound)
}

func testSettleBill(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))
	r := newReading(t, s, a, "2024-01", types.Date(2024, time.January, 31))
	b := newBill(a, r, types.Date(2024, time.February, 15), 120000)
	must(t, s.CreateBill(ctx, b))

	locked, err := s.LockBill(ctx, b.ID)
	must(t, err)
	expected := locked.Balance
	locked.ApplyCredit(types.INR(20000))
	must(t, s.SettleBill(ctx, locked, expected))

	got, err := s.GetBill(ctx, b.ID)
	must(t, err)
	if !got.AmountPaid.Equal(types.INR(20000)) || !got.Balance.Equal(types.INR(100000)) ||
		got.Status != bill.StatusPartiallyPaid {
		t.Fatalf("after settle: paid %v balance %v status %s", got.AmountPaid, got.Balance, got.Status)
	}

	stale := *got
	stale.ApplyCredit(types.INR(100000))
	wantErr(t, s.SettleBill(ctx, &stale, types.INR(120000)), billing.ErrConcurrentUpdate)

	got, err = s.GetBill(ctx, b.ID)
	must(t, err)
	if !got.Balance.Equal(types.INR(100000)) {
		t.Errorf("stale settle changed balance to %v", got.Balance)
	}

	missing := newBill(a, r, types.Date(2024, time.February, 15), 1000)
	wantErr(t, s.SettleBill(ctx, missing, missing.Balance), billing.ErrBillNotFound)
}

func testListBills(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))
	due := types.Date(2031, time.May, 10)

	open := newBill(a, newReading(t, s, a, "2031-03", types.Date(2031, time.March, 31)), due, 50000)
	paid := newBill(a, newReading(t, s, a, "2031-04", types.Date(2031, time.April, 30)), due, 40000)
	paid.ApplyCredit(types.INR(40000))
	later := newBill(a, newReading(t, s, a, "2031-05", types.Date(2031, time.May, 31)), due.AddDate(0, 1, 0), 30000)
	for _, b := range []*bill.Bill{open, paid, later} {
		must(t, s.CreateBill(ctx, b))
	}

	list, err := s.ListBills(ctx, bill.ListOpts{
		DueFrom:  due,
		DueTo:    due,
		Statuses: []bill.Status{bill.StatusUnpaid, bill.StatusPartiallyPaid, bill.StatusOverdue},
	})
	must(t, err)
	ids := make([]id.BillID, 0, len(list))
	for _, b := range list {
		if b.AccountID == a.ID {
			ids = append(ids, b.ID)
		}
	}
	if !slices.Equal(ids, []id.BillID{open.ID}) {
		t.Errorf("ListBills = %v, want [%s]", ids, open.ID)
	}

	limited, err := s.ListBills(ctx, bill.ListOpts{DueFrom: due, DueTo: due.AddDate(0, 1, 0), Limit: 1})
	must(t, err)
	if len(limited) != 1 {
		t.Errorf("ListBills with limit 1 returned %d bills", len(limited))
	}
}

func testInvoiceSequence(t *testing.T, s store.Store) {
	ctx := context.Background()
	period := "T" + unique()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextInvoiceSequence(ctx, period)
		must(t, err)
		if got != want {
			t.Fatalf("NextInvoiceSequence = %d, want %d", got, want)
		}
	}

	got, err := s.NextInvoiceSequence(ctx, "U"+unique())
	must(t, err)
	if got != 1 {
		t.Errorf("new period started at %d", got)
	}
}

func testPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))
	b := newBill(a, newReading(t, s, a, "2024-01", types.Date(2024, time.January, 31)), types.Date(2024, time.February, 15), 120000)
	must(t, s.CreateBill(ctx, b))

	chequeDate := types.Date(2024, time.February, 3)
	paidAt := time.Date(2024, time.February, 5, 11, 30, 0, 0, time.UTC)
	cheque := &payment.Payment{
		Entity:         types.NewEntity(),
		ID:             id.NewPaymentID(),
		BillID:         b.ID,
		AccountID:      a.ID,
		Reference:      payment.NewReference("PAY-", 8),
		Amount:         types.INR(50000),
		ConvenienceFee: types.INR(0),
		NetAmount:      types.INR(50000),
		Mode:           payment.ModeCheque,
		Channel:        "COUNTER",
		Status:         payment.StatusSuccess,
		ChequeNumber:   "004512",
		ChequeDate:     &chequeDate,
		BankName:       "State Bank",
		PaidAt:         paidAt,
		ProcessedBy:    "cashier",
	}
	upi := &payment.Payment{
		Entity:         types.NewEntity(),
		ID:             id.NewPaymentID(),
		BillID:         b.ID,
		AccountID:      a.ID,
		Reference:      payment.NewReference("PAY-", 8),
		Amount:         types.INR(20000),
		ConvenienceFee: types.INR(500),
		NetAmount:      types.INR(20500),
		Mode:           payment.ModeUPI,
		Channel:        "UPI",
		Status:         payment.StatusSuccess,
		UPIReference:   payment.NewReference("UPI-", 12),
		PaidAt:         paidAt.Add(time.Hour),
		ProcessedBy:    "cashier",
	}
	// Inserted newest first to check ordering.
	must(t, s.CreatePayment(ctx, upi))
	must(t, s.CreatePayment(ctx, cheque))

	got, err := s.GetPayment(ctx, cheque.ID)
	must(t, err)
	if got.Reference != cheque.Reference || !got.Amount.Equal(types.INR(50000)) || got.Mode != payment.ModeCheque ||
		got.ChequeDate == nil || !got.ChequeDate.Equal(chequeDate) || !got.PaidAt.Equal(paidAt) {
		t.Fatalf("GetPayment = %+v", got)
	}

	list, err := s.ListPaymentsByBill(ctx, b.ID)
	must(t, err)
	if len(list) != 2 || list[0].ID != cheque.ID || list[1].ID != upi.ID {
		t.Fatalf("ListPaymentsByBill not oldest first: %v", list)
	}
	if !list[1].ConvenienceFee.Equal(types.INR(500)) || !list[1].NetAmount.Equal(types.INR(20500)) {
		t.Errorf("upi amounts = %v + %v", list[1].ConvenienceFee, list[1].NetAmount)
	}

	_, err = s.GetPayment(ctx, id.NewPaymentID())
	wantErr(t, err, billing.ErrPaymentNotFound)
}

// testConcurrentPayments races full-balance payments through the engine.
// The bill lock must let exactly one of them through.
func testConcurrentPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAccount(t, s, newCustomer(t, s, 0))
	b := newBill(a, newReading(t, s, a, "2024-01", types.Date(2024, time.January, 31)), types.Date(2024, time.February, 15), 120000)
	must(t, s.CreateBill(ctx, b))

	// Never started, so Stop would only close the caller's store.
	eng := billing.New(s, billing.WithoutMigrate())

	const attempts = 8
	var paid, rejected atomic.Int32
	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			_, err := eng.RecordPayment(ctx, payment.Request{BillID: b.ID, Amount: types.INR(120000), Mode: "CASH"}, "cashier")
			switch {
			case err == nil:
				paid.Add(1)
			case billing.IsInvalidArgument(err), billing.IsConflict(err):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if paid.Load() != 1 || rejected.Load() != attempts-1 {
		t.Errorf("paid %d, rejected %d", paid.Load(), rejected.Load())
	}
	list, err := s.ListPaymentsByBill(ctx, b.ID)
	must(t, err)
	if len(list) != 1 {
		t.Errorf("expected 1 payment row, got %d", len(list))
	}
	got, err := s.GetBill(ctx, b.ID)
	must(t, err)
	if got.Status != bill.StatusPaid || !got.Balance.IsZero() || !got.AmountPaid.Equal(types.INR(120000)) {
		t.Errorf("bill after race: status %s, paid %v, balance %v", got.Status, got.AmountPaid, got.Balance)
	}
}

var errAbort = errors.New("abort")

func testAtomicRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCustomer(t, s, 10000)
	a := newAccount(t, s, c)
	period := "R" + unique()

	var readingID id.ReadingID
	err := s.Atomic(ctx, func(ctx context.Context) error {
		if _, err := s.LockCustomer(ctx, c.ID); err != nil {
			return err
		}
		if _, err := s.AdjustAdvance(ctx, c.ID, types.INR(-4000)); err != nil {
			return err
		}
		if _, err := s.NextInvoiceSequence(ctx, period); err != nil {
			return err
		}
		r := &reading.Reading{
			Entity:       types.NewEntity(),
			ID:           id.NewReadingID(),
			AccountID:    a.ID,
			ReadingDate:  types.Date(2024, time.January, 31),
			BillingMonth: "2024-01",
			Type:         reading.TypeActual,
		}
		readingID = r.ID
		if err := s.CreateReading(ctx, r); err != nil {
			return err
		}
		return errAbort
	})
	wantErr(t, err, errAbort)

	got, err := s.GetCustomer(ctx, c.ID)
	must(t, err)
	if !got.AdvanceBalance.Equal(types.INR(10000)) {
		t.Errorf("advance after rollback = %v", got.AdvanceBalance)
	}
	_, err = s.GetReading(ctx, readingID)
	wantErr(t, err, billing.ErrReadingNotFound)

	seq, err := s.NextInvoiceSequence(ctx, period)
	must(t, err)
	if seq != 1 {
		t.Errorf("sequence after rollback = %d, want 1", seq)
	}
}

func testAtomicCommit(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCustomer(t, s, 0)

	err := s.Atomic(ctx, func(ctx context.Context) error {
		if _, err := s.AdjustAdvance(ctx, c.ID, types.INR(2500)); err != nil {
			return err
		}
		// Nested units join the outer one.
		return s.Atomic(ctx, func(ctx context.Context) error {
			_, err := s.AdjustAdvance(ctx, c.ID, types.INR(500))
			return err
		})
	})
	must(t, err)

	got, err := s.GetCustomer(ctx, c.ID)
	must(t, err)
	if !got.AdvanceBalance.Equal(types.INR(3000)) {
		t.Errorf("advance after commit = %v, want %v", got.AdvanceBalance, types.INR(3000))
	}
}
