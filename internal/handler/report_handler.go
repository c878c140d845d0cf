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

// ReportHandler handles CSV report export HTTP requests
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GenerateReportRequest is the JSON request for generating a report
type GenerateReportRequest struct {
	Kind string `json:"kind"`
}

// DownloadLinkResponse carries a presigned download URL
type DownloadLinkResponse struct {
	URL string `json:"url"`
}

// Generate builds a CSV report and stores it in object storage
// @Summary Generate report
// @Tags reports
// @Security BearerAuth
// @Router /reports [post]
func (h *ReportHandler) Generate(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req GenerateReportRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	report, err := h.reportService.GenerateReport(dc.Scope(), domain.ReportKind(req.Kind))
	if err != nil {
		return reportError(c, err, "Failed to generate report")
	}
	return c.JSON(http.StatusCreated, report)
}

// List lists the scope's generated reports
// @Summary List reports
// @Tags reports
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	reports, err := h.reportService.ListReports(dc.Scope())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list reports")
		return NewInternalError(c, "Failed to list reports")
	}
	return c.JSON(http.StatusOK, reports)
}

// Download returns a presigned URL for fetching the report file
// @Summary Get report download link
// @Tags reports
// @Security BearerAuth
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid report ID", "path", "id")
	}

	url, err := h.reportService.DownloadLink(dc.Scope(), id)
	if err != nil {
		return reportError(c, err, "Failed to create download link")
	}
	return c.JSON(http.StatusOK, DownloadLinkResponse{URL: url})
}

// Delete removes a report and its stored file
// @Summary Delete report
// @Tags reports
// @Security BearerAuth
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid report ID", "path", "id")
	}

	if err := h.reportService.DeleteReport(dc.Scope(), id); err != nil {
		return reportError(c, err, "Failed to delete report")
	}
	return c.NoContent(http.StatusNoContent)
}

func reportError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		return NewNotFoundError(c, "Report not found")
	case errors.Is(err, domain.ErrReportKindInvalid):
		return NewValidationError(c, "Invalid report kind")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}
