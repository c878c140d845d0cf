package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// ForecastHandler handles cash-flow forecast HTTP requests
type ForecastHandler struct {
	forecastService *service.ForecastService
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecastService *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// Monthly returns the monthly cash-flow forecast
// @Summary Monthly forecast
// @Tags forecast
// @Security BearerAuth
// @Router /forecast/monthly [get]
func (h *ForecastHandler) Monthly(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	months, err := queryInt(c, "months", 6)
	if err != nil {
		return schemaError(c, "Invalid months", "query", "months")
	}

	forecast, err := h.forecastService.Monthly(dc.Scope(), months)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Months must be between 1 and 24")
		}
		log.Error().Err(err).Msg("Failed to compute monthly forecast")
		return NewInternalError(c, "Failed to compute monthly forecast")
	}
	return c.JSON(http.StatusOK, forecast)
}

// Weekly returns the weekly cash-flow forecast
// @Summary Weekly forecast
// @Tags forecast
// @Security BearerAuth
// @Router /forecast/weekly [get]
func (h *ForecastHandler) Weekly(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	weeks, err := queryInt(c, "weeks", 8)
	if err != nil {
		return schemaError(c, "Invalid weeks", "query", "weeks")
	}

	forecast, err := h.forecastService.Weekly(dc.Scope(), weeks)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Weeks must be between 1 and 52")
		}
		log.Error().Err(err).Msg("Failed to compute weekly forecast")
		return NewInternalError(c, "Failed to compute weekly forecast")
	}
	return c.JSON(http.StatusOK, forecast)
}

// queryInt parses an optional integer query parameter with a default
func queryInt(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
