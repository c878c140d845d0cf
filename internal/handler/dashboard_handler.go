package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// DashboardHandler handles dashboard aggregate HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Summary returns the current-month dashboard summary
// @Summary Dashboard summary
// @Tags dashboard
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	summary, err := h.dashboardService.Summary(dc.Scope(), time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute dashboard summary")
		return NewInternalError(c, "Failed to compute dashboard summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// Series returns income and expense totals per period
// @Summary Dashboard period series
// @Tags dashboard
// @Security BearerAuth
// @Router /dashboard/series [get]
func (h *DashboardHandler) Series(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	granularity := domain.PeriodMonthly
	if s := c.QueryParam("granularity"); s != "" {
		granularity = domain.PeriodGranularity(s)
	}

	series, err := h.dashboardService.PeriodSeries(dc.Scope(), granularity, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Invalid granularity")
		}
		log.Error().Err(err).Msg("Failed to compute dashboard series")
		return NewInternalError(c, "Failed to compute dashboard series")
	}
	return c.JSON(http.StatusOK, series)
}

// Breakdown returns the current-month expense breakdown by category
// @Summary Dashboard category breakdown
// @Tags dashboard
// @Security BearerAuth
// @Router /dashboard/breakdown [get]
func (h *DashboardHandler) Breakdown(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	breakdown, err := h.dashboardService.CategoryBreakdown(dc.Scope(), time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute category breakdown")
		return NewInternalError(c, "Failed to compute category breakdown")
	}
	return c.JSON(http.StatusOK, breakdown)
}

// Upcoming returns scheduled payments due within the window
// @Summary Upcoming payments
// @Tags dashboard
// @Security BearerAuth
// @Router /dashboard/upcoming [get]
func (h *DashboardHandler) Upcoming(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	days, err := queryInt(c, "days", 30)
	if err != nil {
		return schemaError(c, "Invalid days", "query", "days")
	}

	payments, err := h.dashboardService.UpcomingPayments(dc.Scope(), time.Now().UTC(), days)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Days must be between 1 and 90")
		}
		log.Error().Err(err).Msg("Failed to list upcoming payments")
		return NewInternalError(c, "Failed to list upcoming payments")
	}
	return c.JSON(http.StatusOK, payments)
}

// Health returns the financial health score
// @Summary Financial health score
// @Tags dashboard
// @Security BearerAuth
// @Router /dashboard/health [get]
func (h *DashboardHandler) Health(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	score, err := h.dashboardService.HealthScore(dc.Scope(), time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute health score")
		return NewInternalError(c, "Failed to compute health score")
	}
	return c.JSON(http.StatusOK, score)
}
