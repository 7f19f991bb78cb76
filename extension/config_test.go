package extension

import (
	"testing"
	"time"

	"github.com/xraph/billing"
	"github.com/xraph/billing/store/memory"
)

func TestMergeConfigurations(t *testing.T) {
	yamlCfg := Config{Engine: billing.Config{InvoicePrefix: "EBL", ReminderInterval: time.Hour}}
	programmatic := Config{
		DisableMigrate: true,
		Engine:         billing.Config{InvoicePrefix: "PRG", FallbackLateFee: "20.00"},
	}

	got := mergeConfigurations(yamlCfg, programmatic)

	if got.Engine.InvoicePrefix != "EBL" {
		t.Errorf("invoice_prefix = %q, file value should win", got.Engine.InvoicePrefix)
	}
	if got.Engine.FallbackLateFee != "20.00" {
		t.Errorf("fallback_late_fee = %q, programmatic value should fill the gap", got.Engine.FallbackLateFee)
	}
	if !got.DisableMigrate {
		t.Error("programmatic DisableMigrate should stick")
	}
	if got.Engine.ReminderInterval != time.Hour {
		t.Errorf("reminder_interval = %v", got.Engine.ReminderInterval)
	}
	if got.Engine.DefaultDueDays != billing.DefaultConfig().DefaultDueDays {
		t.Errorf("default_due_days = %d, want default", got.Engine.DefaultDueDays)
	}
}

func TestOptions(t *testing.T) {
	s := memory.New()
	e := New(WithStore(s), WithInvoicePrefix("ABC"), WithDisableMigrate())

	if e.store != s {
		t.Fatal("store not set")
	}
	if e.config.Engine.InvoicePrefix != "ABC" || !e.config.DisableMigrate {
		t.Fatalf("config = %+v", e.config)
	}

	e.config = mergeWithDefaults(e.config)
	eng := billing.New(e.store, e.buildEngineOpts()...)
	if eng.Config().InvoicePrefix != "ABC" {
		t.Errorf("engine prefix = %q", eng.Config().InvoicePrefix)
	}
}
