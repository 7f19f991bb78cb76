package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/id"
	"github.com/xraph/billing/payment"
	"github.com/xraph/billing/types"
)

var fixedNow = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func testBill() *bill.Bill {
	return &bill.Bill{
		Entity:        types.NewEntity(),
		ID:            id.NewBillID(),
		AccountID:     id.NewAccountID(),
		CustomerID:    id.NewCustomerID(),
		ReadingID:     id.NewReadingID(),
		InvoiceNumber: "VIT/2024/02/00001",
		BillingMonth:  "2024-02",
		BillDate:      types.Date(2024, time.February, 1),
		DueDate:       types.Date(2024, time.February, 16),
		NetPayable:    types.INR(120000),
		Balance:       types.INR(120000),
		Status:        bill.StatusUnpaid,
	}
}

// expectEvent registers a send expectation that decodes the message and
// hands it to check.
func expectEvent(sp *mocks.SyncProducer, wantKey string, check func(Event) error) {
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "billing-events" {
			return fmt.Errorf("topic %q", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != wantKey {
			return fmt.Errorf("key %q, want %q", key, wantKey)
		}
		body, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return err
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != ev.Type {
			return fmt.Errorf("headers %v", msg.Headers)
		}
		return check(ev)
	})
}

func newTestNotifier(t *testing.T) (*Notifier, *mocks.SyncProducer) {
	t.Helper()
	sp := mocks.NewSyncProducer(t, nil)
	t.Cleanup(func() {
		if err := sp.Close(); err != nil {
			t.Errorf("close producer: %v", err)
		}
	})
	n := NewNotifier(sp, "billing-events")
	n.clock = func() time.Time { return fixedNow }
	return n, sp
}

func TestNotifyBillGenerated(t *testing.T) {
	n, sp := newTestNotifier(t)
	b := testBill()

	expectEvent(sp, b.AccountID.String(), func(ev Event) error {
		if ev.Type != EventBillGenerated || !ev.OccurredAt.Equal(fixedNow) {
			return fmt.Errorf("event %s at %v", ev.Type, ev.OccurredAt)
		}
		if ev.Bill == nil || ev.Bill.InvoiceNumber != b.InvoiceNumber || !ev.Bill.NetPayable.Equal(types.INR(120000)) {
			return fmt.Errorf("bill %+v", ev.Bill)
		}
		if ev.Payment != nil {
			return errors.New("unexpected payment")
		}
		return nil
	})

	if err := n.NotifyBillGenerated(context.Background(), b); err != nil {
		t.Fatal(err)
	}
}

func TestNotifyPaymentReceipt(t *testing.T) {
	n, sp := newTestNotifier(t)
	b := testBill()
	p := &payment.Payment{
		ID:        id.NewPaymentID(),
		BillID:    b.ID,
		AccountID: b.AccountID,
		Reference: "PAY-3F2A9C1B",
		Amount:    types.INR(50000),
		NetAmount: types.INR(50000),
		Mode:      payment.ModeUPI,
		Status:    payment.StatusSuccess,
	}

	expectEvent(sp, b.AccountID.String(), func(ev Event) error {
		if ev.Type != EventPaymentReceipt {
			return fmt.Errorf("type %s", ev.Type)
		}
		if ev.Payment == nil || ev.Payment.Reference != "PAY-3F2A9C1B" || !ev.Payment.Amount.Equal(types.INR(50000)) {
			return fmt.Errorf("payment %+v", ev.Payment)
		}
		return nil
	})

	if err := n.NotifyPaymentReceipt(context.Background(), p, b); err != nil {
		t.Fatal(err)
	}
}

func TestNotifyReminder(t *testing.T) {
	n, sp := newTestNotifier(t)
	b := testBill()

	for _, overdue := range []bool{false, true} {
		expectEvent(sp, b.AccountID.String(), func(ev Event) error {
			if ev.Type != EventBillReminder || ev.Overdue != overdue {
				return fmt.Errorf("type %s overdue %v", ev.Type, ev.Overdue)
			}
			return nil
		})
		if err := n.NotifyReminder(context.Background(), b, overdue); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPublishFailure(t *testing.T) {
	n, sp := newTestNotifier(t)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := n.NotifyBillGenerated(context.Background(), testBill())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("got %v, want %v", err, sarama.ErrOutOfBrokers)
	}
}

func TestPublishCanceledContext(t *testing.T) {
	n, _ := newTestNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.NotifyBillGenerated(ctx, testBill()); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestSaramaConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ProducerConfig
		wantAcks    sarama.RequiredAcks
		wantCodec   sarama.CompressionCodec
		idempotent  bool
		expectError bool
	}{
		{name: "defaults", cfg: ProducerConfig{}, wantAcks: sarama.WaitForAll, wantCodec: sarama.CompressionNone, idempotent: true},
		{name: "leader snappy", cfg: ProducerConfig{RequiredAcks: "leader", Compression: "snappy"}, wantAcks: sarama.WaitForLocal, wantCodec: sarama.CompressionSnappy},
		{name: "zstd", cfg: ProducerConfig{RequiredAcks: "ALL", Compression: "zstd"}, wantAcks: sarama.WaitForAll, wantCodec: sarama.CompressionZSTD, idempotent: true},
		{name: "bad acks", cfg: ProducerConfig{RequiredAcks: "most"}, expectError: true},
		{name: "bad codec", cfg: ProducerConfig{Compression: "brotli"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := saramaConfig(tt.cfg)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if sc.Producer.RequiredAcks != tt.wantAcks || sc.Producer.Compression != tt.wantCodec {
				t.Errorf("acks %v codec %v", sc.Producer.RequiredAcks, sc.Producer.Compression)
			}
			if !sc.Producer.Return.Successes {
				t.Error("sync producer needs Return.Successes")
			}
			if sc.Producer.Idempotent != tt.idempotent {
				t.Errorf("idempotent = %v", sc.Producer.Idempotent)
			}
			if err := sc.Validate(); err != nil {
				t.Errorf("invalid config: %v", err)
			}
		})
	}
}

func TestNewSyncProducerRequiresBrokers(t *testing.T) {
	if _, err := NewSyncProducer(ProducerConfig{}); err == nil {
		t.Fatal("expected error without brokers")
	}
}
