// Package events publishes job lifecycle notifications for downstream
// consumers such as workbench live-update fan-out.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"editorcore/internal/domain"
)

// TypeJobResolved is the event type emitted when a job reaches a terminal state.
const TypeJobResolved = "job.resolved"

// JobEvent is the message body.
type JobEvent struct {
	Type        string           `json:"type"`
	JobID       string           `json:"job_id"`
	RunID       string           `json:"run_id"`
	Kind        domain.JobKind   `json:"kind"`
	Status      domain.JobStatus `json:"status"`
	WorkbenchID string           `json:"workbench_id,omitempty"`
	ResultURL   string           `json:"result_url,omitempty"`
	Error       string           `json:"error,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// Resolved builds the event for a job that was just resolved.
func Resolved(job *domain.GenerationJob) JobEvent {
	return JobEvent{
		Type:        TypeJobResolved,
		JobID:       job.ID,
		RunID:       job.RunID,
		Kind:        job.Kind,
		Status:      job.Status,
		WorkbenchID: job.WorkbenchID,
		ResultURL:   job.ResultURL,
		Error:       job.Error,
		OccurredAt:  job.UpdatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event JobEvent) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, JobEvent) error { return nil }
func (Nop) Close() error                            { return nil }

// Kafka publishes events keyed by run id so all events for one job land on
// the same partition.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka dials brokers with a synchronous, fully acknowledged producer.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaWithProducer(p, topic), nil
}

func NewKafkaWithProducer(p sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: p, topic: topic}
}

func (k *Kafka) Publish(_ context.Context, event JobEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.RunID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
