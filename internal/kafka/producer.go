package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
)

// BookingEvent is the payload written to the booking events topic.
type BookingEvent struct {
	Type           string    `json:"type"`
	Reference      string    `json:"reference"`
	BookingID      string    `json:"booking_id"`
	ExperienceID   string    `json:"experience_id"`
	TimeSlotID     string    `json:"time_slot_id"`
	Email          string    `json:"email"`
	NumberOfGuests int       `json:"number_of_guests"`
	Status         string    `json:"status"`
	FinalAmount    int64     `json:"final_amount"`
	Currency       string    `json:"currency"`
	PromoCode      string    `json:"promo_code,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots b for publication.
func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	event := BookingEvent{
		Type:           eventType,
		Reference:      b.Reference,
		BookingID:      b.ID,
		ExperienceID:   b.ExperienceID,
		TimeSlotID:     b.TimeSlotID,
		Email:          b.Customer.Email,
		NumberOfGuests: b.NumberOfGuests,
		Status:         string(b.Status),
		FinalAmount:    b.Pricing.FinalAmount,
		Currency:       b.Pricing.Currency,
		OccurredAt:     at,
	}
	if b.AppliedPromo != nil {
		event.PromoCode = b.AppliedPromo.Code
	}
	if b.Cancellation != nil {
		event.Reason = b.Cancellation.Reason
	}
	return event
}

const (
	writeAttempts = 2
	writeTimeout  = 2 * time.Second
)

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	logger  *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		MaxAttempts:  writeAttempts,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

// Publish writes payload as JSON. Messages with the same key land on the
// same partition, so events of one booking stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("published event", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		p.logger.Warn("publish attempt failed",
			zap.String("topic", topic), zap.String("key", key), zap.Int("attempt", i+1), zap.Error(err))

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	p.logger.Info("connected to kafka", zap.Int("partitions", len(partitions)))
	return nil
}

// RetryingProducer routes Publish through PublishWithRetry.
type RetryingProducer struct {
	*Producer
	MaxRetries int
}

func (r RetryingProducer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return r.PublishWithRetry(ctx, topic, key, payload, r.MaxRetries)
}
