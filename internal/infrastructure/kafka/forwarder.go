package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	peerKafka    = "kafka"
	writeTimeout = 10 * time.Second
)

// MessageWriter is the part of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Envelope is the JSON value written for every event.
type Envelope struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Forwarder copies every bus event to a Kafka topic. Delivery is best
// effort: a failed write is logged and counted, the bus keeps going.
type Forwarder struct {
	writer MessageWriter
	source string
	log    observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewWriter(brokers, topic string) *kafkago.Writer {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewForwarder(writer MessageWriter, source string, tel observability.Observability) *Forwarder {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Forwarder{
		writer:       writer,
		source:       source,
		log:          tel.Logger().With(observability.F("component", "kafka-forwarder")),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

// Attach subscribes the forwarder to every event on the bus.
func (f *Forwarder) Attach(sub domoutbox.Subscriber) {
	sub.Subscribe(outbox.Wildcard, f.Handle)
}

func (f *Forwarder) Handle(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, f.log)
	msg, err := f.message(e)
	if err != nil {
		logger.Error("kafka_encode_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	start := time.Now()
	err = f.writer.WriteMessages(wctx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.extCounter.Add(1,
		observability.L("peer", peerKafka),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	f.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peerKafka),
		observability.L("endpoint", e.EventName()),
	)
	if err != nil {
		logger.Warn("kafka_write_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
		return fmt.Errorf("kafka: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (f *Forwarder) message(e domoutbox.Event) (kafkago.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Name:       e.EventName(),
		Source:     f.source,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode envelope: %w", err)
	}
	key := env.ID
	if k, ok := e.(domoutbox.Keyed); ok && k.PartitionKey() != "" {
		key = k.PartitionKey()
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event", Value: []byte(env.Name)},
		},
	}, nil
}

func (f *Forwarder) Close() error {
	if f.writer == nil {
		return nil
	}
	return f.writer.Close()
}
