// Package events publishes committed ledger entries to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// TypeTransactionRecorded is the type of events emitted after a deposit or a withdrawal commits.
const TypeTransactionRecorded = "ledger.transaction.recorded"

// TransactionRecorded describes a committed balance change.
type TransactionRecorded struct {
	ID          uuid.UUID          `json:"id"`
	Type        string             `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Owner       string             `json:"owner"`
	Currency    string             `json:"currency"`
	Transaction domain.Transaction `json:"transaction"`
}

// NewTransactionRecorded returns the event for a committed ledger entry.
func NewTransactionRecorded(result domain.LedgerEntryResult) TransactionRecorded {
	return TransactionRecorded{
		ID:          uuid.New(),
		Type:        TypeTransactionRecorded,
		OccurredAt:  result.Transaction.CreatedAt,
		Owner:       result.Account.Owner,
		Currency:    result.Account.Currency,
		Transaction: result.Transaction,
	}
}

func message(result domain.LedgerEntryResult) (kafka.Message, error) {
	event := NewTransactionRecorded(result)

	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		// Entries of one account land on one partition and keep their order.
		Key:   []byte(strconv.Itoa(int(result.Account.ID))),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

// KafkaPublisher writes ledger events to a Kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns KafkaPublisher writing to topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes the event for the committed ledger entry.
func (p *KafkaPublisher) Publish(ctx context.Context, result domain.LedgerEntryResult) error {
	msg, err := message(result)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. It is used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, domain.LedgerEntryResult) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
