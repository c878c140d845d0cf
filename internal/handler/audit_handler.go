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

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditLogResponse is a page of audit entries with the total count
type AuditLogResponse struct {
	Entries  []*domain.AuditLogEntry `json:"entries"`
	Total    int64                   `json:"total"`
	Page     int32                   `json:"page"`
	PageSize int32                   `json:"pageSize"`
}

// List returns a page of the organization's audit log
// @Summary List audit log
// @Tags audit
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	page, err := queryInt32(c, "page", 1)
	if err != nil {
		return schemaError(c, "Invalid page", "query", "page")
	}
	pageSize, err := queryInt32(c, "pageSize", 50)
	if err != nil {
		return schemaError(c, "Invalid pageSize", "query", "pageSize")
	}

	entries, total, err := h.auditService.ListAuditLog(dc, page, pageSize)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return NewForbiddenError(c, "Organization context and admin role required")
		}
		log.Error().Err(err).Msg("Failed to list audit log")
		return NewInternalError(c, "Failed to list audit log")
	}
	return c.JSON(http.StatusOK, AuditLogResponse{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// queryInt32 parses an optional int32 query parameter with a default
func queryInt32(c echo.Context, name string, def int32) (int32, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
