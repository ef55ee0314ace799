package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/bootstrap"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/logger"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := bootstrap.NewServices(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("wire services", zap.Error(err))
	}
	defer func() { _ = svcs.Close() }()

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic, lg.Named("kafka"))
		defer consumer.Close()

		audit := lg.Named("audit")
		go func() {
			err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
				event, err := kafka.DecodeBookingEvent(msg)
				if err != nil {
					audit.Warn("skipping undecodable event", zap.Error(err))
					return nil
				}
				audit.Info(event.Type,
					zap.String("booking_reference", event.Reference),
					zap.String("experience_id", event.ExperienceID),
					zap.String("time_slot_id", event.TimeSlotID),
					zap.Int("guests", event.NumberOfGuests),
					zap.String("status", event.Status),
					zap.Int64("final_amount", event.FinalAmount),
					zap.Time("occurred_at", event.OccurredAt),
				)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				audit.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	sweep := time.NewTicker(time.Duration(cfg.Worker.CompletionSweepMinutes) * time.Minute)
	defer sweep.Stop()

	lg.Info("worker started", zap.Int("sweep_minutes", cfg.Worker.CompletionSweepMinutes))
	for {
		select {
		case <-sweep.C:
			completed, err := svcs.Bookings.CompleteFinishedBookings(ctx)
			if err != nil {
				lg.Error("complete finished bookings", zap.Error(err))
				continue
			}
			if len(completed) > 0 {
				lg.Info("completed finished bookings", zap.Int("count", len(completed)))
			}
		case <-ctx.Done():
			lg.Info("worker shutting down")
			return
		}
	}
}
