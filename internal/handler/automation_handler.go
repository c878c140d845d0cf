package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// AutomationHandler handles recurring charge automation HTTP requests
type AutomationHandler struct {
	automationService *service.AutomationService
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(automationService *service.AutomationService) *AutomationHandler {
	return &AutomationHandler{automationService: automationService}
}

// Run charges all due loans, fixed schedules and installments for today
// @Summary Run recurring automation
// @Tags automation
// @Security BearerAuth
// @Router /automation/run [post]
func (h *AutomationHandler) Run(c echo.Context) error {
	return h.process(c, false)
}

// Preview reports what the automation run would charge without writing
// @Summary Preview recurring automation
// @Tags automation
// @Security BearerAuth
// @Router /automation/preview [post]
func (h *AutomationHandler) Preview(c echo.Context) error {
	return h.process(c, true)
}

func (h *AutomationHandler) process(c echo.Context, preview bool) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	refDate := time.Now().UTC()
	if s := c.QueryParam("date"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			return schemaError(c, "Invalid date (expected YYYY-MM-DD)", "query", "date")
		}
		refDate = parsed
	}

	result, err := h.automationService.ProcessRecurring(dc.Scope(), refDate, preview)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process recurring charges")
		return NewInternalError(c, "Failed to process recurring charges")
	}
	return c.JSON(http.StatusOK, result)
}
