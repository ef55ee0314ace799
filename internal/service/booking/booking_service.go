package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/clock"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/kafka"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/inventory"
	"github.com/Domenick1991/tripbooking/internal/service/pricing"
	"github.com/Domenick1991/tripbooking/internal/service/promo"
	"github.com/Domenick1991/tripbooking/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxReferenceAttempts  = 5
	defaultPublishTimeout = 3 * time.Second
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error)
	ListBookingsByEmail(ctx context.Context, input ListBookingsInput) (*BookingPage, error)
	CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error)
	CompleteFinishedBookings(ctx context.Context) ([]domain.Booking, error)
}

type ExperienceFinder interface {
	GetExperience(ctx context.Context, id string) (*domain.Experience, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	store        repository.Store
	experiences  ExperienceFinder
	inventory    *inventory.Inventory
	ledger       *promo.Ledger
	producer     Producer
	bookingTopic string
	pubTimeout   time.Duration
	clock        clock.Clock
	taxRate      decimal.Decimal
	currency     string
	references   *ReferenceGenerator
	validate     *validator.Validate
	logger       *zap.Logger
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

type CreateBookingInput struct {
	ExperienceID   string        `json:"experienceId" validate:"required"`
	TimeSlotID     string        `json:"timeSlotId" validate:"required"`
	Customer       CustomerInput `json:"customer"`
	NumberOfGuests int           `json:"numberOfGuests" validate:"min=1,max=20"`
	PromoCode      string        `json:"promoCode" validate:"omitempty,max=64"`
}

func (in *CreateBookingInput) normalize() {
	in.ExperienceID = strings.TrimSpace(in.ExperienceID)
	in.TimeSlotID = strings.TrimSpace(in.TimeSlotID)
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = domain.NormalizeEmail(in.Customer.Email)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.Customer.Notes = strings.TrimSpace(in.Customer.Notes)
	in.PromoCode = domain.NormalizeCode(in.PromoCode)
}

type BookingServiceOption func(*BookingService)

// WithProducer enables booking events on topic.
func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = topic
	}
}

// WithPublishTimeout bounds how long a committed request waits on its event.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.pubTimeout = d
		}
	}
}

func WithClock(c clock.Clock) BookingServiceOption {
	return func(s *BookingService) { s.clock = c }
}

func WithTaxRate(rate decimal.Decimal) BookingServiceOption {
	return func(s *BookingService) { s.taxRate = rate }
}

// WithCurrency sets the currency used when an experience has none.
func WithCurrency(currency string) BookingServiceOption {
	return func(s *BookingService) { s.currency = currency }
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithReferenceGenerator(g *ReferenceGenerator) BookingServiceOption {
	return func(s *BookingService) { s.references = g }
}

func NewBookingService(
	store repository.Store,
	experiences ExperienceFinder,
	inv *inventory.Inventory,
	ledger *promo.Ledger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		store:       store,
		experiences: experiences,
		inventory:   inv,
		ledger:      ledger,
		clock:       clock.System{},
		taxRate:     pricing.DefaultTaxRate,
		currency:    "USD",
		pubTimeout:  defaultPublishTimeout,
		references:  NewReferenceGenerator(),
		validate:    validation.New(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking reserves capacity, redeems the optional promo code and
// persists a confirmed booking in one transaction. Nothing is written when
// any step fails.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	input.normalize()
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}

	exp, err := s.experiences.GetExperience(ctx, input.ExperienceID)
	if err != nil {
		return nil, s.classify("create booking", err, zap.String("experience_id", input.ExperienceID))
	}
	if !exp.Active {
		return nil, apperror.NotFound(fmt.Sprintf("experience %s is not available", exp.ID))
	}

	var created *domain.Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := s.createInTx(ctx, tx, exp, input)
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, s.classify("create booking", err,
			zap.String("experience_id", input.ExperienceID),
			zap.String("slot_id", input.TimeSlotID),
			zap.String("promo_code", input.PromoCode))
	}

	s.logger.Info("booking created",
		zap.String("booking_reference", created.Reference),
		zap.String("slot_id", created.TimeSlotID),
		zap.Int("guests", created.NumberOfGuests),
		zap.Int64("final_amount", created.Pricing.FinalAmount))
	s.publish(ctx, kafka.EventBookingCreated, created)
	return created, nil
}

func (s *BookingService) createInTx(ctx context.Context, tx repository.Tx, exp *domain.Experience, input CreateBookingInput) (*domain.Booking, error) {
	slot, err := s.inventory.Lock(ctx, tx, input.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if slot.ExperienceID != exp.ID {
		return nil, apperror.NotFound(fmt.Sprintf("slot %s not found for experience %s", slot.ID, exp.ID))
	}
	if err := s.inventory.Reserve(ctx, tx, slot.ID, input.NumberOfGuests); err != nil {
		return nil, err
	}

	unitPrice := slot.UnitPrice(exp)
	orderValue := unitPrice * int64(input.NumberOfGuests)

	var (
		applied  *domain.AppliedPromo
		discount int64
	)
	if input.PromoCode != "" {
		applied, err = s.applyPromo(ctx, tx, exp, input, orderValue)
		if err != nil {
			return nil, err
		}
		discount = applied.DiscountAmount
	}

	summary := pricing.ComputePrice(unitPrice, input.NumberOfGuests, discount, s.taxRate)
	if applied != nil {
		applied.DiscountAmount = summary.Discount
	}

	reference, err := s.uniqueReference(ctx, tx)
	if err != nil {
		return nil, err
	}

	currency := exp.Currency
	if currency == "" {
		currency = s.currency
	}
	b := &domain.Booking{
		ID:              uuid.NewString(),
		Reference:       reference,
		ExperienceID:    exp.ID,
		ExperienceTitle: exp.Title,
		TimeSlotID:      slot.ID,
		SlotStartsAt:    slot.StartsAt,
		SlotEndsAt:      slot.EndsAt,
		Customer: domain.Customer{
			Name:  input.Customer.Name,
			Email: input.Customer.Email,
			Phone: input.Customer.Phone,
			Notes: input.Customer.Notes,
		},
		NumberOfGuests: input.NumberOfGuests,
		Pricing: domain.Pricing{
			BasePrice:      summary.BasePrice,
			TotalAmount:    summary.Subtotal,
			DiscountAmount: summary.Discount,
			TaxAmount:      summary.Tax,
			FinalAmount:    summary.Total,
			Currency:       currency,
		},
		AppliedPromo: applied,
		Status:       domain.BookingStatusConfirmed,
	}

	if err := tx.InsertBooking(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			// A concurrent insert took the reference; rerun the transaction.
			return nil, fmt.Errorf("%w: %w", repository.ErrConflict, err)
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

// applyPromo validates the locked code against this order and redeems it.
func (s *BookingService) applyPromo(ctx context.Context, tx repository.Tx, exp *domain.Experience, input CreateBookingInput, orderValue int64) (*domain.AppliedPromo, error) {
	email := input.Customer.Email
	p, err := s.ledger.Lock(ctx, tx, input.PromoCode, email)
	if err != nil {
		return nil, err
	}

	outcome := s.ledger.Validate(p, promo.ValidationInput{
		Email:        email,
		OrderValue:   orderValue,
		ExperienceID: exp.ID,
		Category:     exp.Category,
	})
	if !outcome.Valid {
		return nil, outcome.Err()
	}

	discount := promo.CalculateDiscount(p, orderValue)
	if err := s.ledger.Redeem(ctx, tx, p.Code, email); err != nil {
		return nil, err
	}
	return &domain.AppliedPromo{
		Code:           p.Code,
		DiscountType:   p.DiscountType,
		DiscountValue:  p.DiscountValue,
		DiscountAmount: discount,
	}, nil
}

func (s *BookingService) uniqueReference(ctx context.Context, tx repository.Tx) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		ref := s.references.Next(s.clock.Now())
		exists, err := tx.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("check reference: %w", err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("no free booking reference after %d attempts", maxReferenceAttempts)
}

func (s *BookingService) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperror.Validation("bookingReference is required")
	}
	b, err := s.store.GetBookingByReference(ctx, reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("booking %s not found", reference))
	}
	if err != nil {
		return nil, s.classify("get booking", err, zap.String("booking_reference", reference))
	}
	return b, nil
}

type ListBookingsInput struct {
	Email    string `json:"email" validate:"required,email"`
	Page     int    `json:"page" validate:"min=1"`
	PageSize int    `json:"pageSize" validate:"min=1,max=100"`
	Status   string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed refunded"`
}

type BookingPage struct {
	Bookings   []domain.Booking
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// ListBookingsByEmail returns one page of the customer's bookings, newest
// first.
func (s *BookingService) ListBookingsByEmail(ctx context.Context, input ListBookingsInput) (*BookingPage, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if err := validation.Struct(s.validate, input); err != nil {
		return nil, err
	}

	bookings, total, err := s.store.ListBookingsByEmail(ctx, repository.BookingFilter{
		Email:    input.Email,
		Status:   domain.BookingStatus(input.Status),
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, s.classify("list bookings", err)
	}
	return &BookingPage{
		Bookings:   bookings,
		Page:       input.Page,
		PageSize:   input.PageSize,
		Total:      total,
		TotalPages: (total + input.PageSize - 1) / input.PageSize,
	}, nil
}

// CompleteFinishedBookings marks confirmed bookings whose slot has ended as
// completed.
func (s *BookingService) CompleteFinishedBookings(ctx context.Context) ([]domain.Booking, error) {
	completed, err := s.store.CompleteBookingsEndedBefore(ctx, s.clock.Now())
	if err != nil {
		return nil, s.classify("complete bookings", err)
	}
	for i := range completed {
		s.publish(ctx, kafka.EventBookingCompleted, &completed[i])
	}
	if len(completed) > 0 {
		s.logger.Info("bookings completed", zap.Int("count", len(completed)))
	}
	return completed, nil
}

// classify keeps business errors as they are and turns everything else into
// a StorageConflict or InternalError.
func (s *BookingService) classify(op string, err error, fields ...zap.Field) error {
	if e, ok := apperror.As(err); ok {
		if e.Kind == apperror.KindInternal {
			s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Info(op+" rejected", append(fields, zap.String("code", string(e.Code)), zap.Error(err))...)
		}
		return err
	}
	if repository.IsConflict(err) {
		s.logger.Warn(op+" hit a storage conflict", append(fields, zap.Error(err))...)
		return apperror.Wrap(apperror.CodeStorageConflict, err, "the request conflicted with concurrent updates, please retry")
	}
	s.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return apperror.Internal(fmt.Errorf("%s: %w", op, err))
}

// publish runs after commit, so it is detached from the caller's
// cancellation and bounded by pubTimeout instead.
func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pubTimeout)
	defer cancel()

	event := kafka.NewBookingEvent(eventType, b, s.clock.Now())
	if err := s.producer.Publish(ctx, s.bookingTopic, b.Reference, event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("event", eventType),
			zap.String("booking_reference", b.Reference),
			zap.Error(err))
	}
}

var _ BookingUseCase = (*BookingService)(nil)
