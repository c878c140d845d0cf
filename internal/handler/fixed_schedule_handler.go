package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// FixedScheduleHandler handles fixed schedule related HTTP requests
type FixedScheduleHandler struct {
	scheduleService *service.FixedScheduleService
}

// NewFixedScheduleHandler creates a new FixedScheduleHandler
func NewFixedScheduleHandler(scheduleService *service.FixedScheduleService) *FixedScheduleHandler {
	return &FixedScheduleHandler{scheduleService: scheduleService}
}

// FixedScheduleRequest is the JSON request for creating or updating a fixed schedule
type FixedScheduleRequest struct {
	Name       string     `json:"name"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	Type       string     `json:"type"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	DayOfMonth int32      `json:"dayOfMonth"`
	StartDate  string     `json:"startDate"`
	EndDate    string     `json:"endDate,omitempty"`
}

// Create creates a monthly fixed schedule
// @Summary Create fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules [post]
func (h *FixedScheduleHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req FixedScheduleRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return schemaError(c, "Invalid startDate (expected YYYY-MM-DD)", "body", "startDate")
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return schemaError(c, "Invalid endDate (expected YYYY-MM-DD)", "body", "endDate")
	}

	schedule, err := h.scheduleService.CreateFixedSchedule(dc.Scope(), service.CreateFixedScheduleInput{
		Name:       req.Name,
		Amount:     amount,
		Currency:   req.Currency,
		Type:       domain.TransactionType(req.Type),
		CategoryID: req.CategoryID,
		DayOfMonth: req.DayOfMonth,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		return fixedScheduleError(c, err, "Failed to create fixed schedule")
	}
	return c.JSON(http.StatusCreated, schedule)
}

// List lists the scope's fixed schedules
// @Summary List fixed schedules
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules [get]
func (h *FixedScheduleHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	activeOnly := c.QueryParam("activeOnly") == "true"
	schedules, err := h.scheduleService.ListFixedSchedules(dc.Scope(), activeOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list fixed schedules")
		return NewInternalError(c, "Failed to list fixed schedules")
	}
	return c.JSON(http.StatusOK, schedules)
}

// Get retrieves a fixed schedule
// @Summary Get fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules/{id} [get]
func (h *FixedScheduleHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid fixed schedule ID", "path", "id")
	}

	schedule, err := h.scheduleService.GetFixedSchedule(dc.Scope(), id)
	if err != nil {
		return fixedScheduleError(c, err, "Failed to get fixed schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// Update updates a fixed schedule
// @Summary Update fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules/{id} [put]
func (h *FixedScheduleHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid fixed schedule ID", "path", "id")
	}

	var req FixedScheduleRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return schemaError(c, "Invalid amount format", "body", "amount")
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return schemaError(c, "Invalid startDate (expected YYYY-MM-DD)", "body", "startDate")
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return schemaError(c, "Invalid endDate (expected YYYY-MM-DD)", "body", "endDate")
	}

	schedule, err := h.scheduleService.UpdateFixedSchedule(dc.Scope(), id, service.UpdateFixedScheduleInput{
		Name:       req.Name,
		Amount:     amount,
		Currency:   req.Currency,
		Type:       domain.TransactionType(req.Type),
		CategoryID: req.CategoryID,
		DayOfMonth: req.DayOfMonth,
		StartDate:  startDate,
		EndDate:    endDate,
	})
	if err != nil {
		return fixedScheduleError(c, err, "Failed to update fixed schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// Pause pauses a fixed schedule
// @Summary Pause fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules/{id}/pause [post]
func (h *FixedScheduleHandler) Pause(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid fixed schedule ID", "path", "id")
	}

	schedule, err := h.scheduleService.PauseFixedSchedule(dc.Scope(), id)
	if err != nil {
		return fixedScheduleError(c, err, "Failed to pause fixed schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// Resume resumes a paused fixed schedule
// @Summary Resume fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules/{id}/resume [post]
func (h *FixedScheduleHandler) Resume(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid fixed schedule ID", "path", "id")
	}

	schedule, err := h.scheduleService.ResumeFixedSchedule(dc.Scope(), id)
	if err != nil {
		return fixedScheduleError(c, err, "Failed to resume fixed schedule")
	}
	return c.JSON(http.StatusOK, schedule)
}

// Delete deletes a fixed schedule
// @Summary Delete fixed schedule
// @Tags fixed-schedules
// @Security BearerAuth
// @Router /fixed-schedules/{id} [delete]
func (h *FixedScheduleHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid fixed schedule ID", "path", "id")
	}

	if err := h.scheduleService.DeleteFixedSchedule(dc.Scope(), id); err != nil {
		return fixedScheduleError(c, err, "Failed to delete fixed schedule")
	}
	return c.NoContent(http.StatusNoContent)
}

func fixedScheduleError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrFixedScheduleNotFound):
		return NewNotFoundError(c, "Fixed schedule not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrScheduleAlreadyPaused):
		return NewConflictError(c, "Schedule is already paused")
	case errors.Is(err, domain.ErrScheduleNotPaused):
		return NewConflictError(c, "Schedule is not paused")
	case errors.Is(err, domain.ErrCategoryArchived):
		return NewConflictError(c, "Category is archived")
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrAmountTooPrecise),
		errors.Is(err, domain.ErrAmountTooLarge):
		return NewValidationError(c, "Invalid amount")
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return NewValidationError(c, "Invalid schedule type")
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Invalid currency")
	case errors.Is(err, domain.ErrDayOfMonthInvalid):
		return NewValidationError(c, "Day of month must be between 1 and 31")
	case errors.Is(err, domain.ErrEndBeforeStart):
		return NewValidationError(c, "End date must not be before start date")
	case errors.Is(err, domain.ErrCategoryTypeMismatch):
		return NewValidationError(c, "Category type does not match the schedule type")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid schedule name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}
