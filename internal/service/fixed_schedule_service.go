package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/util"
)

// FixedScheduleService handles fixed schedule business logic
type FixedScheduleService struct {
	fixedRepo    domain.FixedScheduleRepository
	categoryRepo domain.CategoryRepository
}

// NewFixedScheduleService creates a new FixedScheduleService
func NewFixedScheduleService(fixedRepo domain.FixedScheduleRepository, categoryRepo domain.CategoryRepository) *FixedScheduleService {
	return &FixedScheduleService{
		fixedRepo:    fixedRepo,
		categoryRepo: categoryRepo,
	}
}

// CreateFixedScheduleInput holds the input for creating a fixed schedule
type CreateFixedScheduleInput struct {
	Name       string
	Amount     decimal.Decimal
	Currency   string
	Type       domain.TransactionType
	CategoryID *uuid.UUID
	DayOfMonth int32
	StartDate  time.Time
	EndDate    *time.Time
}

// CreateFixedSchedule creates an active fixed schedule
func (s *FixedScheduleService) CreateFixedSchedule(scope domain.Scope, input CreateFixedScheduleInput) (*domain.FixedSchedule, error) {
	schedule := &domain.FixedSchedule{
		Name:       strings.TrimSpace(input.Name),
		Amount:     input.Amount,
		Currency:   strings.ToUpper(strings.TrimSpace(input.Currency)),
		Type:       input.Type,
		CategoryID: input.CategoryID,
		DayOfMonth: input.DayOfMonth,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		IsActive:   true,
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, schedule.CategoryID, schedule.Type); err != nil {
		return nil, err
	}
	return s.fixedRepo.Create(scope, schedule)
}

// GetFixedSchedule retrieves a fixed schedule by ID
func (s *FixedScheduleService) GetFixedSchedule(scope domain.Scope, id uuid.UUID) (*domain.FixedSchedule, error) {
	return s.fixedRepo.GetByID(scope, id)
}

// ListFixedSchedules retrieves the fixed schedules in scope
func (s *FixedScheduleService) ListFixedSchedules(scope domain.Scope, activeOnly bool) ([]*domain.FixedSchedule, error) {
	return s.fixedRepo.List(scope, activeOnly)
}

// UpdateFixedScheduleInput holds the input for updating a fixed schedule
type UpdateFixedScheduleInput struct {
	Name       string
	Amount     decimal.Decimal
	Currency   string
	Type       domain.TransactionType
	CategoryID *uuid.UUID
	DayOfMonth int32
	StartDate  time.Time
	EndDate    *time.Time
}

// UpdateFixedSchedule updates a fixed schedule
func (s *FixedScheduleService) UpdateFixedSchedule(scope domain.Scope, id uuid.UUID, input UpdateFixedScheduleInput) (*domain.FixedSchedule, error) {
	existing, err := s.fixedRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Amount = input.Amount
	existing.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	existing.Type = input.Type
	existing.CategoryID = input.CategoryID
	existing.DayOfMonth = input.DayOfMonth
	existing.StartDate = input.StartDate
	existing.EndDate = input.EndDate

	if err := existing.Validate(); err != nil {
		return nil, err
	}
	if err := checkCategoryForType(s.categoryRepo, scope, existing.CategoryID, existing.Type); err != nil {
		return nil, err
	}
	return s.fixedRepo.Update(scope, existing)
}

// PauseFixedSchedule stops a schedule from producing occurrences. Pausing an
// already paused schedule is an error.
func (s *FixedScheduleService) PauseFixedSchedule(scope domain.Scope, id uuid.UUID) (*domain.FixedSchedule, error) {
	schedule, err := s.fixedRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	if !schedule.IsActive {
		return nil, domain.ErrScheduleAlreadyPaused
	}
	now := util.Today()
	schedule.IsActive = false
	schedule.PausedAt = &now
	return s.fixedRepo.Update(scope, schedule)
}

// ResumeFixedSchedule reactivates a paused schedule
func (s *FixedScheduleService) ResumeFixedSchedule(scope domain.Scope, id uuid.UUID) (*domain.FixedSchedule, error) {
	schedule, err := s.fixedRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}
	if schedule.IsActive {
		return nil, domain.ErrScheduleNotPaused
	}
	now := util.Today()
	schedule.IsActive = true
	schedule.ResumedAt = &now
	return s.fixedRepo.Update(scope, schedule)
}

// DeleteFixedSchedule deletes a fixed schedule. Transactions already
// materialised from it keep their provenance link.
func (s *FixedScheduleService) DeleteFixedSchedule(scope domain.Scope, id uuid.UUID) error {
	return s.fixedRepo.Delete(scope, id)
}
