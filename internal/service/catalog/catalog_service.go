package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/Domenick1991/tripbooking/internal/clock"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/inventory"
	"go.uber.org/zap"
)

type CatalogUseCase interface {
	GetExperience(ctx context.Context, id string) (*domain.Experience, error)
	ListSlots(ctx context.Context, experienceID string) ([]SlotView, error)
}

// Cache holds experience records only. A miss is (nil, nil).
type Cache interface {
	GetExperience(ctx context.Context, id string) (*domain.Experience, error)
	SetExperience(ctx context.Context, exp *domain.Experience) error
}

// SlotView pairs a slot with its availability at read time.
type SlotView struct {
	Slot         domain.TimeSlot
	Availability inventory.Availability
}

type CatalogService struct {
	repo   repository.CatalogRepository
	cache  Cache
	clock  clock.Clock
	logger *zap.Logger
}

// NewCatalogService accepts a nil cache.
func NewCatalogService(repo repository.CatalogRepository, cache Cache, c clock.Clock, logger *zap.Logger) *CatalogService {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, clock: c, logger: logger}
}

func (s *CatalogService) GetExperience(ctx context.Context, id string) (*domain.Experience, error) {
	if s.cache != nil {
		cached, err := s.cache.GetExperience(ctx, id)
		if err != nil {
			s.logger.Warn("experience cache read failed", zap.String("experience_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	exp, err := s.repo.GetExperience(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound(fmt.Sprintf("experience %s not found", id))
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get experience %s: %w", id, err))
	}

	if s.cache != nil {
		if err := s.cache.SetExperience(ctx, exp); err != nil {
			s.logger.Warn("experience cache write failed", zap.String("experience_id", id), zap.Error(err))
		}
	}
	return exp, nil
}

// ListSlots reads committed slot rows every time; counters are never cached.
func (s *CatalogService) ListSlots(ctx context.Context, experienceID string) ([]SlotView, error) {
	if _, err := s.GetExperience(ctx, experienceID); err != nil {
		return nil, err
	}
	slots, err := s.repo.ListSlots(ctx, experienceID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list slots of %s: %w", experienceID, err))
	}

	now := s.clock.Now()
	views := make([]SlotView, 0, len(slots))
	for i := range slots {
		views = append(views, SlotView{Slot: slots[i], Availability: inventory.AvailabilityOf(&slots[i], now)})
	}
	return views, nil
}

var _ CatalogUseCase = (*CatalogService)(nil)
