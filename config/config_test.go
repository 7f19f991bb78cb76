package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/billing"
	"github.com/xraph/billing/config"
)

const sampleYAML = `
billing:
  invoice_prefix: EBL
  fallback_late_fee: "75.00"
  reminder_interval: 6h
store:
  driver: postgres
  dsn: postgres://billing@localhost/billing
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: utility-billing
  required_acks: leader
logging:
  level: debug
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	f, err := config.Load(writeFile(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}

	if f.Billing.InvoicePrefix != "EBL" || f.Billing.FallbackLateFee != "75.00" {
		t.Errorf("billing = %+v", f.Billing)
	}
	if f.Billing.ReminderInterval != 6*time.Hour {
		t.Errorf("reminder_interval = %v", f.Billing.ReminderInterval)
	}
	// Unset keys keep their defaults.
	if f.Billing.DefaultDueDays != billing.DefaultConfig().DefaultDueDays {
		t.Errorf("default_due_days = %d", f.Billing.DefaultDueDays)
	}
	if f.Store.Driver != config.DriverPostgres {
		t.Errorf("driver = %q", f.Store.Driver)
	}
	if !f.Kafka.Enabled() || len(f.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", f.Kafka.Brokers)
	}
	p := f.Kafka.Producer()
	if p.RequiredAcks != "leader" || p.ClientID != "billingctl" || p.RetryMax != 5 {
		t.Errorf("producer = %+v", p)
	}
	if f.Logging.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", f.Logging.SlogLevel())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BILLING_STORE_DRIVER", "memory")
	t.Setenv("BILLING_BILLING_INVOICE_PREFIX", "ENV")
	t.Setenv("BILLING_KAFKA_BROKERS", "a:9092,b:9092")

	f, err := config.Load(writeFile(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if f.Store.Driver != config.DriverMemory {
		t.Errorf("driver = %q", f.Store.Driver)
	}
	if f.Billing.InvoicePrefix != "ENV" {
		t.Errorf("invoice_prefix = %q", f.Billing.InvoicePrefix)
	}
	if len(f.Kafka.Brokers) != 2 || f.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("brokers = %v", f.Kafka.Brokers)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr int
	}{
		{name: "memory store", yaml: "store:\n  driver: memory\n"},
		{name: "unknown driver", yaml: "store:\n  driver: mysql\n", wantErr: 1},
		{name: "postgres without dsn", yaml: "store:\n  driver: postgres\n  dsn: \"\"\n", wantErr: 1},
		{name: "mongo without dsn", yaml: "store:\n  driver: mongo\n  dsn: \"\"\n", wantErr: 1},
		{name: "mongo store", yaml: "store:\n  driver: mongo\n  dsn: mongodb://localhost:27017/billing?replicaSet=rs0\n"},
		{
			name:    "several problems",
			yaml:    "billing:\n  fallback_late_fee: abc\n  default_due_days: -1\nstore:\n  driver: nope\n",
			wantErr: 3,
		},
		{name: "metrics without addr", yaml: "metrics:\n  enabled: true\n  addr: \"\"\n", wantErr: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.yaml))
			if tt.wantErr == 0 {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			var me billing.MultiError
			if !errors.As(err, &me) {
				t.Fatalf("got %v, want MultiError", err)
			}
			if len(me.Errors) != tt.wantErr {
				t.Errorf("got %d errors: %v", len(me.Errors), me)
			}
			if !billing.IsInvalidArgument(err) {
				t.Error("expected invalid argument")
			}
		})
	}
}
