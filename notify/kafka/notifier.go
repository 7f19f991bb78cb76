// Package kafka publishes billing notifications to a Kafka topic. Each
// notification is one JSON event keyed by account ID, so every event for
// an account lands on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/xraph/billing"
	"github.com/xraph/billing/bill"
	"github.com/xraph/billing/payment"
)

// Event types.
const (
	EventBillGenerated  = "bill.generated"
	EventPaymentReceipt = "payment.receipt"
	EventBillReminder   = "bill.reminder"
)

var _ billing.Notifier = (*Notifier)(nil)

// Event is the message body.
type Event struct {
	Type       string           `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	AccountID  string           `json:"account_id"`
	Bill       *bill.Bill       `json:"bill"`
	Payment    *payment.Payment `json:"payment,omitempty"`
	Overdue    bool             `json:"overdue,omitempty"`
}

// Notifier implements billing.Notifier over a sarama SyncProducer.
type Notifier struct {
	producer sarama.SyncProducer
	topic    string
	clock    func() time.Time
}

// NewNotifier publishes to topic through producer. The caller owns the
// producer and closes it.
func NewNotifier(producer sarama.SyncProducer, topic string) *Notifier {
	return &Notifier{
		producer: producer,
		topic:    topic,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (n *Notifier) NotifyBillGenerated(ctx context.Context, b *bill.Bill) error {
	return n.publish(ctx, Event{Type: EventBillGenerated, AccountID: b.AccountID.String(), Bill: b})
}

func (n *Notifier) NotifyPaymentReceipt(ctx context.Context, p *payment.Payment, b *bill.Bill) error {
	return n.publish(ctx, Event{Type: EventPaymentReceipt, AccountID: p.AccountID.String(), Bill: b, Payment: p})
}

func (n *Notifier) NotifyReminder(ctx context.Context, b *bill.Bill, overdue bool) error {
	return n.publish(ctx, Event{Type: EventBillReminder, AccountID: b.AccountID.String(), Bill: b, Overdue: overdue})
}

func (n *Notifier) publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev.OccurredAt = n.clock()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("billing/kafka: encode %s: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(ev.AccountID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	}
	if _, _, err := n.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("billing/kafka: publish %s: %w", ev.Type, err)
	}
	return nil
}

// ProducerConfig is the subset of producer settings the billing service
// exposes in its configuration file.
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	RequiredAcks string
	Compression  string
	RetryMax     int
	RetryBackoff time.Duration
}

// NewSyncProducer builds a SyncProducer from cfg.
func NewSyncProducer(cfg ProducerConfig) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("billing/kafka: no brokers configured")
	}
	sc, err := saramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("billing/kafka: create producer: %w", err)
	}
	return producer, nil
}

func saramaConfig(cfg ProducerConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}

	acks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	sc.Producer.RequiredAcks = acks

	codec, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	sc.Producer.Compression = codec

	if cfg.RetryMax > 0 {
		sc.Producer.Retry.Max = cfg.RetryMax
	}
	if cfg.RetryBackoff > 0 {
		sc.Producer.Retry.Backoff = cfg.RetryBackoff
	}
	// SyncProducer requires both.
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Idempotent = acks == sarama.WaitForAll
	if sc.Producer.Idempotent {
		sc.Net.MaxOpenRequests = 1
	}
	return sc, nil
}

func parseRequiredAcks(v string) (sarama.RequiredAcks, error) {
	switch strings.ToLower(v) {
	case "", "all", "wait_for_all", "-1":
		return sarama.WaitForAll, nil
	case "leader", "local", "wait_for_local", "1":
		return sarama.WaitForLocal, nil
	case "none", "no_response", "0":
		return sarama.NoResponse, nil
	default:
		return sarama.WaitForAll, fmt.Errorf("billing/kafka: invalid required acks %q", v)
	}
}

func parseCompression(v string) (sarama.CompressionCodec, error) {
	switch strings.ToLower(v) {
	case "", "none":
		return sarama.CompressionNone, nil
	case "gzip":
		return sarama.CompressionGZIP, nil
	case "snappy":
		return sarama.CompressionSnappy, nil
	case "lz4":
		return sarama.CompressionLZ4, nil
	case "zstd":
		return sarama.CompressionZSTD, nil
	default:
		return sarama.CompressionNone, fmt.Errorf("billing/kafka: invalid compression codec %q", v)
	}
}
