// Package events publishes journey-delay alerts to a Kafka-compatible
// broker. The whole package is optional wiring: when no brokers are
// configured the backend runs without it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TopicJourneyAlerts carries one event per currently-delayed patient,
// keyed by patient ID.
const TopicJourneyAlerts = "journey.alerts"

// Alert event types and statuses.
const (
	AlertStagingToTreatment = "STAGING_TO_TREATMENT"
	AlertStatusOpen         = "OPEN"
)

// Alert is a journey-delay event.
type Alert struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	DaysOverdue int       `json:"days_overdue"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAlert builds an open staging-to-treatment alert for a patient.
func NewAlert(patientID string, daysOverdue int) Alert {
	return Alert{
		ID:          uuid.New().String(),
		PatientID:   patientID,
		Type:        AlertStagingToTreatment,
		Status:      AlertStatusOpen,
		DaysOverdue: daysOverdue,
		CreatedAt:   time.Now().UTC(),
	}
}

// Publisher produces alert events.
type Publisher struct {
	client *kgo.Client
	logger *zap.Logger
	tracer trace.Tracer
}

// NewPublisher connects to the broker. Durability over throughput: alerts
// are low-volume, so every send waits for all in-sync replicas.
func NewPublisher(brokers []string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(3),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Publisher{
		client: client,
		logger: logger,
		tracer: otel.Tracer("alert-publisher"),
	}, nil
}

// EnsureTopic creates the alerts topic if it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context) error {
	admin := kadm.NewClient(p.client)

	retention := "2592000000" // 30 days
	configs := map[string]*string{
		"retention.ms":   &retention,
		"cleanup.policy": strPtr("delete"),
	}

	resp, err := admin.CreateTopics(ctx, 3, 1, configs, TopicJourneyAlerts)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", TopicJourneyAlerts, err)
	}
	for _, r := range resp {
		if r.Err != nil {
			if r.Err.Error() == "TOPIC_ALREADY_EXISTS" {
				p.logger.Info("topic already exists", zap.String("topic", r.Topic))
				continue
			}
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
		p.logger.Info("topic created", zap.String("topic", r.Topic))
	}
	return nil
}

// Publish sends one alert, waiting for the broker acknowledgment.
func (p *Publisher) Publish(ctx context.Context, alert Alert) error {
	ctx, span := p.tracer.Start(ctx, "publish_alert",
		trace.WithAttributes(
			attribute.String("patient_id", alert.PatientID),
			attribute.String("alert_type", alert.Type),
		))
	defer span.End()

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	record := &kgo.Record{
		Topic: TopicJourneyAlerts,
		Key:   []byte(alert.PatientID),
		Value: value,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish alert",
			zap.String("patient_id", alert.PatientID),
			zap.Error(err))
		return err
	}

	p.logger.Debug("alert published",
		zap.String("patient_id", alert.PatientID),
		zap.Int("days_overdue", alert.DaysOverdue))
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("error flushing on close", zap.Error(err))
	}
	p.client.Close()
}

func strPtr(s string) *string { return &s }
