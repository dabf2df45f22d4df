// Package publish feeds resolved tickets to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/compass/internal/config"
	"github.com/UnknownOlympus/compass/internal/models"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher delivers a snapshot of resolved tickets.
type Publisher interface {
	PublishTickets(ctx context.Context, tickets []models.ResolvedTicket) error
	Close() error
}

// messageWriter is the part of kafka-go's Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces one message per resolved ticket, keyed by ticket ID.
type KafkaPublisher struct {
	writer messageWriter
	log    *slog.Logger
}

// New returns a Kafka publisher, or a no-op publisher when no brokers are configured.
func New(cfg config.KafkaConfig, log *slog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("Kafka brokers not configured, resolved tickets feed disabled")
		return Noop{}
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return NewKafkaPublisher(w, log)
}

// NewKafkaPublisher wraps an existing writer.
func NewKafkaPublisher(writer messageWriter, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

// PublishTickets writes the whole snapshot in a single WriteMessages call.
func (p *KafkaPublisher) PublishTickets(ctx context.Context, tickets []models.ResolvedTicket) error {
	if len(tickets) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(tickets))
	for i := range tickets {
		msg, err := serializeToMessage(tickets[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish resolved tickets: %w", err)
	}

	p.log.DebugContext(ctx, "Resolved tickets published", "count", len(msgs))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a resolved ticket into a Kafka message.
func serializeToMessage(ticket models.ResolvedTicket) (kafkago.Message, error) {
	data, err := json.Marshal(ticket)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolved ticket: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ticket.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "zone", Value: []byte(ticket.Zone)},
			{Key: "location_state", Value: []byte(ticket.State)},
			{Key: "updated_at", Value: []byte(ticket.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}

// Noop discards everything.
type Noop struct{}

func (Noop) PublishTickets(context.Context, []models.ResolvedTicket) error { return nil }

func (Noop) Close() error { return nil }
