package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/validation"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ExperienceFinder interface {
	GetExperience(ctx context.Context, id string) (*domain.Experience, error)
}

type PreviewInput struct {
	Code         string `json:"code" validate:"required,max=64"`
	Email        string `json:"userEmail" validate:"required,email"`
	OrderValue   int64  `json:"orderValue" validate:"gte=0"`
	ExperienceID string `json:"experienceId"`
}

// Preview is what a valid code would take off an order. Amounts exclude tax.
type Preview struct {
	Code           string
	DiscountType   domain.DiscountType
	OrderValue     int64
	DiscountAmount int64
	FinalAmount    int64
}

// Service answers read-only promo questions outside any booking.
type Service struct {
	promos      repository.PromoRepository
	experiences ExperienceFinder
	ledger      *Ledger
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewService(promos repository.PromoRepository, experiences ExperienceFinder, ledger *Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		promos:      promos,
		experiences: experiences,
		ledger:      ledger,
		validate:    validation.New(),
		logger:      logger,
	}
}

// ValidatePromo previews a code without redeeming it. The result is advisory;
// usage is checked again when a booking redeems the code.
func (s *Service) ValidatePromo(ctx context.Context, in PreviewInput) (*Preview, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	code := domain.NormalizeCode(in.Code)

	p, err := s.promos.GetPromo(ctx, code, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("promo code %s not found", code))
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get promo %s: %w", code, err))
	}

	check := ValidationInput{Email: in.Email, OrderValue: in.OrderValue, ExperienceID: in.ExperienceID}
	if in.ExperienceID != "" {
		exp, err := s.experiences.GetExperience(ctx, in.ExperienceID)
		if err != nil {
			return nil, err
		}
		check.Category = exp.Category
	}

	outcome := s.ledger.Validate(p, check)
	if !outcome.Valid {
		s.logger.Info("promo preview rejected",
			zap.String("promo_code", code), zap.Strings("reasons", outcome.Reasons))
		return nil, outcome.Err()
	}

	discount := CalculateDiscount(p, in.OrderValue)
	return &Preview{
		Code:           code,
		DiscountType:   p.DiscountType,
		OrderValue:     in.OrderValue,
		DiscountAmount: discount,
		FinalAmount:    in.OrderValue - discount,
	}, nil
}
