package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/grove"

	"github.com/xraph/billing/account"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/charge"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/latefee"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/reading"
	"github.com/xraph/billing/subsidy"
	"github.com/xraph/billing/tariff"
	"github.com/xraph/billing/types"
)

// Amounts are stored in minor units with one currency field per document.
// Decimal rates are stored as strings so they round-trip exactly.

// ==================== Customer / Account models ====================

type customerModel struct {
	grove.BaseModel `grove:"table:billing_customers"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	Name           string    `grove:"name"            bson:"name"`
	Email          string    `grove:"email"           bson:"email,omitempty"`
	Phone          string    `grove:"phone"           bson:"phone,omitempty"`
	AdvanceBalance int64     `grove:"advance_balance" bson:"advance_balance"`
	Currency       string    `grove:"currency"        bson:"currency"`
	LockedAt       time.Time `grove:"locked_at"       bson:"locked_at,omitempty"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toCustomerModel(c *account.Customer) *customerModel {
	return &customerModel{
		ID:             c.ID.String(),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		AdvanceBalance: c.AdvanceBalance.Amount,
		Currency:       currencyOf(c.AdvanceBalance),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromCustomerModel(m *customerModel) (*account.Customer, error) {
	customerID, err := id.ParseCustomerID(m.ID)
	if err != nil {
		return nil, err
	}
	return &account.Customer{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             customerID,
		Name:           m.Name,
		Email:          m.Email,
		Phone:          m.Phone,
		AdvanceBalance: types.Money{Amount: m.AdvanceBalance, Currency: m.Currency},
	}, nil
}

type accountModel struct {
	grove.BaseModel `grove:"table:billing_accounts"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	CustomerID     string    `grove:"customer_id"     bson:"customer_id"`
	AccountNumber  string    `grove:"account_number"  bson:"account_number"`
	MeterNumber    string    `grove:"meter_number"    bson:"meter_number"`
	ConnectionType string    `grove:"connection_type" bson:"connection_type"`
	SanctionedLoad string    `grove:"sanctioned_load" bson:"sanctioned_load"`
	TariffCategory string    `grove:"tariff_category" bson:"tariff_category"`
	Active         bool      `grove:"active"          bson:"active"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:             a.ID.String(),
		CustomerID:     a.CustomerID.String(),
		AccountNumber:  a.AccountNumber,
		MeterNumber:    a.MeterNumber,
		ConnectionType: string(a.ConnectionType),
		SanctionedLoad: a.SanctionedLoad.String(),
		TariffCategory: a.TariffCategory,
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	load, err := parseDecimal(m.SanctionedLoad)
	if err != nil {
		return nil, fmt.Errorf("sanctioned load: %w", err)
	}
	return &account.Account{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             accountID,
		CustomerID:     customerID,
		AccountNumber:  m.AccountNumber,
		MeterNumber:    m.MeterNumber,
		ConnectionType: account.ConnectionType(m.ConnectionType),
		SanctionedLoad: load,
		TariffCategory: m.TariffCategory,
		Active:         m.Active,
	}, nil
}

// ==================== Tariff models ====================

// Slabs are embedded in their tariff document.
type tariffModel struct {
	grove.BaseModel `grove:"table:billing_tariffs"`

	ID             string      `grove:"id,pk"           bson:"_id"`
	Code           string      `grove:"code"            bson:"code"`
	Name           string      `grove:"name"            bson:"name"`
	ConnectionType string      `grove:"connection_type" bson:"connection_type"`
	FixedCharge    int64       `grove:"fixed_charge"    bson:"fixed_charge"`
	MeterRent      int64       `grove:"meter_rent"      bson:"meter_rent"`
	Currency       string      `grove:"currency"        bson:"currency"`
	EffectiveFrom  time.Time   `grove:"effective_from"  bson:"effective_from"`
	EffectiveTo    *time.Time  `grove:"effective_to"    bson:"effective_to,omitempty"`
	Active         bool        `grove:"active"          bson:"active"`
	Slabs          []slabModel `grove:"slabs"           bson:"slabs"`
	CreatedAt      time.Time   `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time   `grove:"updated_at"      bson:"updated_at"`
}

type slabModel struct {
	ID          string `bson:"id"`
	Number      int    `bson:"slab_number"`
	MinUnits    int64  `bson:"min_units"`
	MaxUnits    *int64 `bson:"max_units,omitempty"`
	RatePerUnit string `bson:"rate_per_unit"`
}

func toTariffModel(t *tariff.Tariff) *tariffModel {
	slabs := make([]slabModel, len(t.Slabs))
	for i, s := range t.Slabs {
		slabs[i] = slabModel{
			ID:          s.ID.String(),
			Number:      s.Number,
			MinUnits:    s.MinUnits,
			MaxUnits:    s.MaxUnits,
			RatePerUnit: s.RatePerUnit.String(),
		}
	}
	return &tariffModel{
		ID:             t.ID.String(),
		Code:           t.Code,
		Name:           t.Name,
		ConnectionType: string(t.ConnectionType),
		FixedCharge:    t.FixedCharge.Amount,
		MeterRent:      t.MeterRent.Amount,
		Currency:       currencyOf(t.FixedCharge, t.MeterRent),
		EffectiveFrom:  types.Day(t.EffectiveFrom),
		EffectiveTo:    optionalDay(t.EffectiveTo),
		Active:         t.Active,
		Slabs:          slabs,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTariffModel(m *tariffModel) (*tariff.Tariff, error) {
	tariffID, err := id.ParseTariffID(m.ID)
	if err != nil {
		return nil, err
	}

	slabs := make([]tariff.Slab, len(m.Slabs))
	for i, s := range m.Slabs {
		slabID, err := id.ParseSlabID(s.ID)
		if err != nil {
			return nil, err
		}
		rate, err := parseDecimal(s.RatePerUnit)
		if err != nil {
			return nil, fmt.Errorf("slab %d rate: %w", s.Number, err)
		}
		slabs[i] = tariff.Slab{
			ID:          slabID,
			TariffID:    tariffID,
			Number:      s.Number,
			MinUnits:    s.MinUnits,
			MaxUnits:    s.MaxUnits,
			RatePerUnit: rate,
		}
	}
	tariff.SortSlabs(slabs)

	return &tariff.Tariff{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             tariffID,
		Code:           m.Code,
		Name:           m.Name,
		ConnectionType: account.ConnectionType(m.ConnectionType),
		FixedCharge:    types.Money{Amount: m.FixedCharge, Currency: m.Currency},
		MeterRent:      types.Money{Amount: m.MeterRent, Currency: m.Currency},
		EffectiveFrom:  utc(m.EffectiveFrom),
		EffectiveTo:    optionalDay(m.EffectiveTo),
		Active:         m.Active,
		Slabs:          slabs,
	}, nil
}

// ==================== Charge models ====================

type chargeModel struct {
	grove.BaseModel `grove:"table:billing_charges"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	Name         string    `grove:"name"          bson:"name"`
	Category     string    `grove:"category"      bson:"category"`
	Mode         string    `grove:"mode"          bson:"mode,omitempty"`
	Type         string    `grove:"charge_type"   bson:"charge_type"`
	Value        string    `grove:"value"         bson:"value"`
	ApplicableTo []string  `grove:"applicable_to" bson:"applicable_to"`
	Active       bool      `grove:"active"        bson:"active"`
	CreatedAt    time.Time `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"    bson:"updated_at"`
}

func toChargeModel(r *charge.Rule) *chargeModel {
	return &chargeModel{
		ID:           r.ID.String(),
		Name:         r.Name,
		Category:     string(r.Category),
		Mode:         string(r.Mode),
		Type:         string(r.Type),
		Value:        r.Value.String(),
		ApplicableTo: r.ApplicableTo,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromChargeModel(m *chargeModel) (*charge.Rule, error) {
	chargeID, err := id.ParseChargeID(m.ID)
	if err != nil {
		return nil, err
	}
	value, err := parseDecimal(m.Value)
	if err != nil {
		return nil, fmt.Errorf("charge %s value: %w", m.Name, err)
	}
	r := &charge.Rule{
		Entity:       entity(m.CreatedAt, m.UpdatedAt),
		ID:           chargeID,
		Name:         m.Name,
		Category:     charge.Category(m.Category),
		Mode:         payment.Mode(m.Mode),
		Type:         charge.Type(m.Type),
		Value:        value,
		ApplicableTo: m.ApplicableTo,
		Active:       m.Active,
	}
	r.Normalize()
	return r, nil
}

// ==================== Subsidy models ====================

type subsidyModel struct {
	grove.BaseModel `grove:"table:billing_subsidy_rules"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	Name           string     `grove:"name"            bson:"name"`
	TariffCode     string     `grove:"tariff_code"     bson:"tariff_code"`
	ConnectionType string     `grove:"connection_type" bson:"connection_type"`
	MaxUnits       *int64     `grove:"max_units"       bson:"max_units,omitempty"`
	PerUnitAmount  string     `grove:"per_unit_amount" bson:"per_unit_amount"`
	Percentage     string     `grove:"percentage"      bson:"percentage"`
	FixedAmount    int64      `grove:"fixed_amount"    bson:"fixed_amount"`
	MaxBenefit     int64      `grove:"max_benefit"     bson:"max_benefit"`
	Currency       string     `grove:"currency"        bson:"currency"`
	EffectiveFrom  time.Time  `grove:"effective_from"  bson:"effective_from"`
	EffectiveTo    *time.Time `grove:"effective_to"    bson:"effective_to,omitempty"`
	Active         bool       `grove:"active"          bson:"active"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toSubsidyModel(r *subsidy.Rule) *subsidyModel {
	return &subsidyModel{
		ID:             r.ID.String(),
		Name:           r.Name,
		TariffCode:     r.TariffCode,
		ConnectionType: string(r.ConnectionType),
		MaxUnits:       r.MaxUnits,
		PerUnitAmount:  r.PerUnitAmount.String(),
		Percentage:     r.Percentage.String(),
		FixedAmount:    r.FixedAmount.Amount,
		MaxBenefit:     r.MaxBenefit.Amount,
		Currency:       currencyOf(r.MaxBenefit, r.FixedAmount),
		EffectiveFrom:  types.Day(r.EffectiveFrom),
		EffectiveTo:    optionalDay(r.EffectiveTo),
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromSubsidyModel(m *subsidyModel) (*subsidy.Rule, error) {
	ruleID, err := id.ParseSubsidyID(m.ID)
	if err != nil {
		return nil, err
	}
	perUnit, err := parseDecimal(m.PerUnitAmount)
	if err != nil {
		return nil, fmt.Errorf("subsidy %s per unit amount: %w", m.Name, err)
	}
	pct, err := parseDecimal(m.Percentage)
	if err != nil {
		return nil, fmt.Errorf("subsidy %s percentage: %w", m.Name, err)
	}
	return &subsidy.Rule{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             ruleID,
		Name:           m.Name,
		TariffCode:     m.TariffCode,
		ConnectionType: account.ConnectionType(m.ConnectionType),
		MaxUnits:       m.MaxUnits,
		PerUnitAmount:  perUnit,
		Percentage:     pct,
		FixedAmount:    types.Money{Amount: m.FixedAmount, Currency: m.Currency},
		MaxBenefit:     types.Money{Amount: m.MaxBenefit, Currency: m.Currency},
		EffectiveFrom:  utc(m.EffectiveFrom),
		EffectiveTo:    optionalDay(m.EffectiveTo),
		Active:         m.Active,
	}, nil
}

// ==================== Late fee policy models ====================

type policyModel struct {
	grove.BaseModel `grove:"table:billing_late_fee_policies"`

	ID               string     `grove:"id,pk"              bson:"_id"`
	ConnectionType   string     `grove:"connection_type"    bson:"connection_type"`
	StandardDueDays  int        `grove:"standard_due_days"  bson:"standard_due_days"`
	GracePeriodDays  int        `grove:"grace_period_days"  bson:"grace_period_days"`
	DailyRatePercent string     `grove:"daily_rate_percent" bson:"daily_rate_percent"`
	FlatFee          int64      `grove:"flat_fee"           bson:"flat_fee"`
	MaxLateFee       int64      `grove:"max_late_fee"       bson:"max_late_fee"`
	Currency         string     `grove:"currency"           bson:"currency"`
	EffectiveFrom    time.Time  `grove:"effective_from"     bson:"effective_from"`
	EffectiveTo      *time.Time `grove:"effective_to"       bson:"effective_to,omitempty"`
	Active           bool       `grove:"active"             bson:"active"`
	CreatedAt        time.Time  `grove:"created_at"         bson:"created_at"`
	UpdatedAt        time.Time  `grove:"updated_at"         bson:"updated_at"`
}

func toPolicyModel(p *latefee.Policy) *policyModel {
	return &policyModel{
		ID:               p.ID.String(),
		ConnectionType:   string(p.ConnectionType),
		StandardDueDays:  p.StandardDueDays,
		GracePeriodDays:  p.GracePeriodDays,
		DailyRatePercent: p.DailyRatePercent.String(),
		FlatFee:          p.FlatFee.Amount,
		MaxLateFee:       p.MaxLateFee.Amount,
		Currency:         currencyOf(p.FlatFee, p.MaxLateFee),
		EffectiveFrom:    types.Day(p.EffectiveFrom),
		EffectiveTo:      optionalDay(p.EffectiveTo),
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromPolicyModel(m *policyModel) (*latefee.Policy, error) {
	policyID, err := id.ParseLateFeePolicyID(m.ID)
	if err != nil {
		return nil, err
	}
	rate, err := parseDecimal(m.DailyRatePercent)
	if err != nil {
		return nil, fmt.Errorf("late fee policy daily rate: %w", err)
	}
	return &latefee.Policy{
		Entity:           entity(m.CreatedAt, m.UpdatedAt),
		ID:               policyID,
		ConnectionType:   account.ConnectionType(m.ConnectionType),
		StandardDueDays:  m.StandardDueDays,
		GracePeriodDays:  m.GracePeriodDays,
		DailyRatePercent: rate,
		FlatFee:          types.Money{Amount: m.FlatFee, Currency: m.Currency},
		MaxLateFee:       types.Money{Amount: m.MaxLateFee, Currency: m.Currency},
		EffectiveFrom:    utc(m.EffectiveFrom),
		EffectiveTo:      optionalDay(m.EffectiveTo),
		Active:           m.Active,
	}, nil
}

// ==================== Reading models ====================

type readingModel struct {
	grove.BaseModel `grove:"table:billing_meter_readings"`

	ID              string    `grove:"id,pk"            bson:"_id"`
	AccountID       string    `grove:"account_id"       bson:"account_id"`
	ReadingDate     time.Time `grove:"reading_date"     bson:"reading_date"`
	BillingMonth    string    `grove:"billing_month"    bson:"billing_month"`
	PreviousReading int64     `grove:"previous_reading" bson:"previous_reading"`
	CurrentReading  int64     `grove:"current_reading"  bson:"current_reading"`
	UnitsConsumed   *int64    `grove:"units_consumed"   bson:"units_consumed,omitempty"`
	Type            string    `grove:"reading_type"     bson:"reading_type"`
	RecordedBy      string    `grove:"recorded_by"      bson:"recorded_by,omitempty"`
	Remarks         string    `grove:"remarks"          bson:"remarks,omitempty"`
	CreatedAt       time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toReadingModel(r *reading.Reading) *readingModel {
	return &readingModel{
		ID:              r.ID.String(),
		AccountID:       r.AccountID.String(),
		ReadingDate:     types.Day(r.ReadingDate),
		BillingMonth:    r.BillingMonth,
		PreviousReading: r.PreviousReading,
		CurrentReading:  r.CurrentReading,
		UnitsConsumed:   r.UnitsConsumed,
		Type:            string(r.Type),
		RecordedBy:      r.RecordedBy,
		Remarks:         r.Remarks,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromReadingModel(m *readingModel) (*reading.Reading, error) {
	readingID, err := id.ParseReadingID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &reading.Reading{
		Entity:          entity(m.CreatedAt, m.UpdatedAt),
		ID:              readingID,
		AccountID:       accountID,
		ReadingDate:     utc(m.ReadingDate),
		BillingMonth:    m.BillingMonth,
		PreviousReading: m.PreviousReading,
		CurrentReading:  m.CurrentReading,
		UnitsConsumed:   m.UnitsConsumed,
		Type:            reading.Type(m.Type),
		RecordedBy:      m.RecordedBy,
		Remarks:         m.Remarks,
	}, nil
}

// ==================== Bill models ====================

type billModel struct {
	grove.BaseModel `grove:"table:billing_bills"`

	ID              string    `grove:"id,pk"            bson:"_id"`
	AccountID       string    `grove:"account_id"       bson:"account_id"`
	CustomerID      string    `grove:"customer_id"      bson:"customer_id"`
	ReadingID       string    `grove:"reading_id"       bson:"reading_id"`
	InvoiceNumber   string    `grove:"invoice_number"   bson:"invoice_number"`
	BillingMonth    string    `grove:"billing_month"    bson:"billing_month"`
	BillDate        time.Time `grove:"bill_date"        bson:"bill_date"`
	DueDate         time.Time `grove:"due_date"         bson:"due_date"`
	UnitsConsumed   int64     `grove:"units_consumed"   bson:"units_consumed"`
	EnergyCharge    int64     `grove:"energy_charge"    bson:"energy_charge"`
	FixedCharge     int64     `grove:"fixed_charge"     bson:"fixed_charge"`
	MeterRent       int64     `grove:"meter_rent"       bson:"meter_rent"`
	ElectricityDuty int64     `grove:"electricity_duty" bson:"electricity_duty"`
	OtherCharges    int64     `grove:"other_charges"    bson:"other_charges"`
	Subsidy         int64     `grove:"subsidy_amount"   bson:"subsidy_amount"`
	LateFee         int64     `grove:"late_fee"         bson:"late_fee"`
	TotalAmount     int64     `grove:"total_amount"     bson:"total_amount"`
	PreviousDue     int64     `grove:"previous_due"     bson:"previous_due"`
	NetPayable      int64     `grove:"net_payable"      bson:"net_payable"`
	AmountPaid      int64     `grove:"amount_paid"      bson:"amount_paid"`
	Balance         int64     `grove:"balance_amount"   bson:"balance_amount"`
	Currency        string    `grove:"currency"         bson:"currency"`
	Status          string    `grove:"status"           bson:"status"`
	DocumentPath    string    `grove:"document_path"    bson:"document_path,omitempty"`
	QRCodePath      string    `grove:"qr_code_path"     bson:"qr_code_path,omitempty"`
	GeneratedBy     string    `grove:"generated_by"     bson:"generated_by,omitempty"`
	LockedAt        time.Time `grove:"locked_at"        bson:"locked_at,omitempty"`
	CreatedAt       time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toBillModel(b *bill.Bill) *billModel {
	return &billModel{
		ID:              b.ID.String(),
		AccountID:       b.AccountID.String(),
		CustomerID:      b.CustomerID.String(),
		ReadingID:       b.ReadingID.String(),
		InvoiceNumber:   b.InvoiceNumber,
		BillingMonth:    b.BillingMonth,
		BillDate:        types.Day(b.BillDate),
		DueDate:         types.Day(b.DueDate),
		UnitsConsumed:   b.UnitsConsumed,
		EnergyCharge:    b.EnergyCharge.Amount,
		FixedCharge:     b.FixedCharge.Amount,
		MeterRent:       b.MeterRent.Amount,
		ElectricityDuty: b.ElectricityDuty.Amount,
		OtherCharges:    b.OtherCharges.Amount,
		Subsidy:         b.Subsidy.Amount,
		LateFee:         b.LateFee.Amount,
		TotalAmount:     b.TotalAmount.Amount,
		PreviousDue:     b.PreviousDue.Amount,
		NetPayable:      b.NetPayable.Amount,
		AmountPaid:      b.AmountPaid.Amount,
		Balance:         b.Balance.Amount,
		Currency:        b.NetPayable.Currency,
		Status:          string(b.Status),
		DocumentPath:    b.DocumentPath,
		QRCodePath:      b.QRCodePath,
		GeneratedBy:     b.GeneratedBy,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func fromBillModel(m *billModel) (*bill.Bill, error) {
	billID, err := id.ParseBillID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	customerID, err := id.ParseCustomerID(m.CustomerID)
	if err != nil {
		return nil, err
	}
	readingID, err := id.ParseReadingID(m.ReadingID)
	if err != nil {
		return nil, err
	}

	money := func(amount int64) types.Money { return types.Money{Amount: amount, Currency: m.Currency} }
	return &bill.Bill{
		Entity:          entity(m.CreatedAt, m.UpdatedAt),
		ID:              billID,
		AccountID:       accountID,
		CustomerID:      customerID,
		ReadingID:       readingID,
		InvoiceNumber:   m.InvoiceNumber,
		BillingMonth:    m.BillingMonth,
		BillDate:        utc(m.BillDate),
		DueDate:         utc(m.DueDate),
		UnitsConsumed:   m.UnitsConsumed,
		EnergyCharge:    money(m.EnergyCharge),
		FixedCharge:     money(m.FixedCharge),
		MeterRent:       money(m.MeterRent),
		ElectricityDuty: money(m.ElectricityDuty),
		OtherCharges:    money(m.OtherCharges),
		Subsidy:         money(m.Subsidy),
		LateFee:         money(m.LateFee),
		TotalAmount:     money(m.TotalAmount),
		PreviousDue:     money(m.PreviousDue),
		NetPayable:      money(m.NetPayable),
		AmountPaid:      money(m.AmountPaid),
		Balance:         money(m.Balance),
		Status:          bill.Status(m.Status),
		DocumentPath:    m.DocumentPath,
		QRCodePath:      m.QRCodePath,
		GeneratedBy:     m.GeneratedBy,
	}, nil
}

// sequenceModel is one invoice counter per period ("2024/01").
type sequenceModel struct {
	Period    string `bson:"_id"`
	LastValue int64  `bson:"last_value"`
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:billing_payments"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	BillID         string     `grove:"bill_id"         bson:"bill_id"`
	AccountID      string     `grove:"account_id"      bson:"account_id"`
	Reference      string     `grove:"reference"       bson:"reference"`
	Amount         int64      `grove:"amount"          bson:"amount"`
	ConvenienceFee int64      `grove:"convenience_fee" bson:"convenience_fee"`
	NetAmount      int64      `grove:"net_amount"      bson:"net_amount"`
	Currency       string     `grove:"currency"        bson:"currency"`
	Mode           string     `grove:"mode"            bson:"mode"`
	Channel        string     `grove:"channel"         bson:"channel"`
	Status         string     `grove:"status"          bson:"status"`
	TransactionID  string     `grove:"transaction_id"  bson:"transaction_id,omitempty"`
	UPIReference   string     `grove:"upi_reference"   bson:"upi_reference,omitempty"`
	ChequeNumber   string     `grove:"cheque_number"   bson:"cheque_number,omitempty"`
	ChequeDate     *time.Time `grove:"cheque_date"     bson:"cheque_date,omitempty"`
	BankName       string     `grove:"bank_name"       bson:"bank_name,omitempty"`
	Remarks        string     `grove:"remarks"         bson:"remarks,omitempty"`
	PaidAt         time.Time  `grove:"paid_at"         bson:"paid_at"`
	ProcessedBy    string     `grove:"processed_by"    bson:"processed_by"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:             p.ID.String(),
		BillID:         p.BillID.String(),
		AccountID:      p.AccountID.String(),
		Reference:      p.Reference,
		Amount:         p.Amount.Amount,
		ConvenienceFee: p.ConvenienceFee.Amount,
		NetAmount:      p.NetAmount.Amount,
		Currency:       p.Amount.Currency,
		Mode:           string(p.Mode),
		Channel:        p.Channel,
		Status:         string(p.Status),
		TransactionID:  p.TransactionID,
		UPIReference:   p.UPIReference,
		ChequeNumber:   p.ChequeNumber,
		ChequeDate:     optionalDay(p.ChequeDate),
		BankName:       p.BankName,
		Remarks:        p.Remarks,
		PaidAt:         p.PaidAt,
		ProcessedBy:    p.ProcessedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	billID, err := id.ParseBillID(m.BillID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		Entity:         entity(m.CreatedAt, m.UpdatedAt),
		ID:             paymentID,
		BillID:         billID,
		AccountID:      accountID,
		Reference:      m.Reference,
		Amount:         types.Money{Amount: m.Amount, Currency: m.Currency},
		ConvenienceFee: types.Money{Amount: m.ConvenienceFee, Currency: m.Currency},
		NetAmount:      types.Money{Amount: m.NetAmount, Currency: m.Currency},
		Mode:           payment.Mode(m.Mode),
		Channel:        m.Channel,
		Status:         payment.Status(m.Status),
		TransactionID:  m.TransactionID,
		UPIReference:   m.UPIReference,
		ChequeNumber:   m.ChequeNumber,
		ChequeDate:     optionalDay(m.ChequeDate),
		BankName:       m.BankName,
		Remarks:        m.Remarks,
		PaidAt:         utc(m.PaidAt),
		ProcessedBy:    m.ProcessedBy,
	}, nil
}

// ==================== Helpers ====================

func entity(createdAt, updatedAt time.Time) types.Entity {
	return types.Entity{CreatedAt: utc(createdAt), UpdatedAt: utc(updatedAt)}
}

// utc pins decoded BSON datetimes to UTC.
func utc(t time.Time) time.Time { return t.UTC() }

func optionalDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := types.Day(*t)
	return &d
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func currencyOf(amounts ...types.Money) string {
	for _, m := range amounts {
		if m.Currency != "" {
			return m.Currency
		}
	}
	return types.DefaultCurrency
}
