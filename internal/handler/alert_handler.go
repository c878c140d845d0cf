package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// AlertHandler handles alert related HTTP requests
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// MarkAllReadResponse reports how many alerts were marked read
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// Generate recomputes forecast and entity alerts for the scope
// @Summary Generate alerts
// @Tags alerts
// @Security BearerAuth
// @Router /alerts/generate [post]
func (h *AlertHandler) Generate(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	months, err := queryInt(c, "months", 6)
	if err != nil {
		return schemaError(c, "Invalid months", "query", "months")
	}

	alerts, err := h.alertService.Generate(dc.Scope(), months)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Months must be between 1 and 24")
		}
		log.Error().Err(err).Msg("Failed to generate alerts")
		return NewInternalError(c, "Failed to generate alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// List lists the scope's alerts
// @Summary List alerts
// @Tags alerts
// @Security BearerAuth
// @Router /alerts [get]
func (h *AlertHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	unreadOnly := c.QueryParam("unread") == "true"
	alerts, err := h.alertService.ListAlerts(dc.Scope(), unreadOnly)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list alerts")
		return NewInternalError(c, "Failed to list alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

// MarkRead marks a single alert as read
// @Summary Mark alert read
// @Tags alerts
// @Security BearerAuth
// @Router /alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid alert ID", "path", "id")
	}

	alert, err := h.alertService.MarkAlertRead(dc.Scope(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NewNotFoundError(c, "Alert not found")
		}
		log.Error().Err(err).Msg("Failed to mark alert read")
		return NewInternalError(c, "Failed to mark alert read")
	}
	return c.JSON(http.StatusOK, alert)
}

// MarkAllRead marks every unread alert in the scope as read
// @Summary Mark all alerts read
// @Tags alerts
// @Security BearerAuth
// @Router /alerts/read-all [post]
func (h *AlertHandler) MarkAllRead(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	updated, err := h.alertService.MarkAllAlertsRead(dc.Scope())
	if err != nil {
		log.Error().Err(err).Msg("Failed to mark alerts read")
		return NewInternalError(c, "Failed to mark alerts read")
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// Dismiss dismisses an alert so regeneration does not resurrect it
// @Summary Dismiss alert
// @Tags alerts
// @Security BearerAuth
// @Router /alerts/{id} [delete]
func (h *AlertHandler) Dismiss(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid alert ID", "path", "id")
	}

	alert, err := h.alertService.DismissAlert(dc.Scope(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NewNotFoundError(c, "Alert not found")
		}
		log.Error().Err(err).Msg("Failed to dismiss alert")
		return NewInternalError(c, "Failed to dismiss alert")
	}
	return c.JSON(http.StatusOK, alert)
}
