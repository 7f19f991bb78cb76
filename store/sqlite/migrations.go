package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the billing store (SQLite).
var Migrations = migrate.NewGroup("billing")

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	orch := migrate.NewOrchestrator(sqlitemigrate.New(s.sdb), Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("billing/sqlite: migration failed: %w", err)
	}
	return nil
}

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_billing_customers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_customers (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    phone           TEXT NOT NULL DEFAULT '',
    advance_balance INTEGER NOT NULL DEFAULT 0 CHECK (advance_balance >= 0),
    currency        TEXT NOT NULL DEFAULT 'inr',
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_customers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_accounts",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_accounts (
    id              TEXT PRIMARY KEY,
    customer_id     TEXT NOT NULL REFERENCES billing_customers (id),
    account_number  TEXT NOT NULL,
    meter_number    TEXT NOT NULL DEFAULT '',
    connection_type TEXT NOT NULL,
    sanctioned_load TEXT NOT NULL DEFAULT '0',
    tariff_category TEXT NOT NULL,
    active          INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT billing_accounts_number_key UNIQUE (account_number)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_tariffs",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_tariffs (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    connection_type TEXT NOT NULL,
    fixed_charge    INTEGER NOT NULL DEFAULT 0,
    meter_rent      INTEGER NOT NULL DEFAULT 0,
    currency        TEXT NOT NULL DEFAULT 'inr',
    effective_from  TEXT NOT NULL,
    effective_to    TEXT,
    active          INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_billing_tariffs_code ON billing_tariffs (code, active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_tariffs`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_tariff_slabs",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_tariff_slabs (
    id            TEXT PRIMARY KEY,
    tariff_id     TEXT NOT NULL REFERENCES billing_tariffs (id) ON DELETE CASCADE,
    slab_number   INTEGER NOT NULL,
    min_units     INTEGER NOT NULL,
    max_units     INTEGER,
    rate_per_unit TEXT NOT NULL,
    CONSTRAINT billing_tariff_slabs_number_key UNIQUE (tariff_id, slab_number)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_tariff_slabs`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_charges",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_charges (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    mode          TEXT NOT NULL DEFAULT '',
    charge_type   TEXT NOT NULL,
    value         TEXT NOT NULL,
    applicable_to TEXT NOT NULL DEFAULT 'ALL',
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_charges`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_subsidy_rules",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_subsidy_rules (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL DEFAULT '',
    tariff_code     TEXT NOT NULL,
    connection_type TEXT NOT NULL,
    max_units       INTEGER,
    per_unit_amount TEXT NOT NULL DEFAULT '0',
    percentage      TEXT NOT NULL DEFAULT '0',
    fixed_amount    INTEGER NOT NULL DEFAULT 0,
    max_benefit     INTEGER NOT NULL DEFAULT 0,
    currency        TEXT NOT NULL DEFAULT 'inr',
    effective_from  TEXT NOT NULL,
    effective_to    TEXT,
    active          INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_billing_subsidy_rules_tariff ON billing_subsidy_rules (tariff_code, connection_type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_subsidy_rules`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_late_fee_policies",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_late_fee_policies (
    id                 TEXT PRIMARY KEY,
    connection_type    TEXT NOT NULL,
    standard_due_days  INTEGER NOT NULL DEFAULT 15,
    grace_period_days  INTEGER NOT NULL DEFAULT 3,
    daily_rate_percent TEXT NOT NULL DEFAULT '0',
    flat_fee           INTEGER NOT NULL DEFAULT 0,
    max_late_fee       INTEGER NOT NULL DEFAULT 0,
    currency           TEXT NOT NULL DEFAULT 'inr',
    effective_from     TEXT NOT NULL,
    effective_to       TEXT,
    active             INTEGER NOT NULL DEFAULT 1,
    created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_late_fee_policies`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_meter_readings",
			Version: "20240101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_meter_readings (
    id               TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL REFERENCES billing_accounts (id),
    reading_date     TIMESTAMP NOT NULL,
    billing_month    TEXT NOT NULL,
    previous_reading INTEGER NOT NULL DEFAULT 0,
    current_reading  INTEGER NOT NULL,
    units_consumed   INTEGER,
    reading_type     TEXT NOT NULL DEFAULT 'ACTUAL',
    recorded_by      TEXT NOT NULL DEFAULT '',
    remarks          TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT billing_meter_readings_account_month_key UNIQUE (account_id, billing_month)
);

CREATE INDEX IF NOT EXISTS idx_billing_meter_readings_month ON billing_meter_readings (billing_month);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_meter_readings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_bills",
			Version: "20240101000009",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_bills (
    id               TEXT PRIMARY KEY,
    account_id       TEXT NOT NULL REFERENCES billing_accounts (id),
    customer_id      TEXT NOT NULL REFERENCES billing_customers (id),
    reading_id       TEXT NOT NULL REFERENCES billing_meter_readings (id),
    invoice_number   TEXT NOT NULL,
    billing_month    TEXT NOT NULL,
    bill_date        TEXT NOT NULL,
    due_date         TEXT NOT NULL,
    units_consumed   INTEGER NOT NULL DEFAULT 0,
    energy_charge    INTEGER NOT NULL DEFAULT 0,
    fixed_charge     INTEGER NOT NULL DEFAULT 0,
    meter_rent       INTEGER NOT NULL DEFAULT 0,
    electricity_duty INTEGER NOT NULL DEFAULT 0,
    other_charges    INTEGER NOT NULL DEFAULT 0,
    subsidy_amount   INTEGER NOT NULL DEFAULT 0,
    late_fee         INTEGER NOT NULL DEFAULT 0,
    total_amount     INTEGER NOT NULL DEFAULT 0,
    previous_due     INTEGER NOT NULL DEFAULT 0,
    net_payable      INTEGER NOT NULL DEFAULT 0,
    amount_paid      INTEGER NOT NULL DEFAULT 0,
    balance_amount   INTEGER NOT NULL DEFAULT 0 CHECK (balance_amount >= 0),
    currency         TEXT NOT NULL DEFAULT 'inr',
    status           TEXT NOT NULL DEFAULT 'UNPAID',
    document_path    TEXT NOT NULL DEFAULT '',
    qr_code_path     TEXT NOT NULL DEFAULT '',
    generated_by     TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT billing_bills_account_month_key UNIQUE (account_id, billing_month),
    CONSTRAINT billing_bills_invoice_number_key UNIQUE (invoice_number)
);

CREATE INDEX IF NOT EXISTS idx_billing_bills_due ON billing_bills (due_date, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_bills`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_invoice_sequences",
			Version: "20240101000010",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_invoice_sequences (
    period     TEXT PRIMARY KEY,
    last_value INTEGER NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_invoice_sequences`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_billing_payments",
			Version: "20240101000011",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS billing_payments (
    id              TEXT PRIMARY KEY,
    bill_id         TEXT NOT NULL REFERENCES billing_bills (id),
    account_id      TEXT NOT NULL REFERENCES billing_accounts (id),
    reference       TEXT NOT NULL,
    amount          INTEGER NOT NULL CHECK (amount > 0),
    convenience_fee INTEGER NOT NULL DEFAULT 0,
    net_amount      INTEGER NOT NULL,
    currency        TEXT NOT NULL DEFAULT 'inr',
    mode            TEXT NOT NULL,
    channel         TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'SUCCESS',
    transaction_id  TEXT NOT NULL DEFAULT '',
    upi_reference   TEXT NOT NULL DEFAULT '',
    cheque_number   TEXT NOT NULL DEFAULT '',
    cheque_date     TEXT,
    bank_name       TEXT NOT NULL DEFAULT '',
    remarks         TEXT NOT NULL DEFAULT '',
    paid_at         TIMESTAMP NOT NULL,
    processed_by    TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT billing_payments_reference_key UNIQUE (reference)
);

CREATE INDEX IF NOT EXISTS idx_billing_payments_bill ON billing_payments (bill_id, paid_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS billing_payments`)
				return err
			},
		},
	)
}
