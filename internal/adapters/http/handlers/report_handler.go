package handlers

import (
	"errors"

	"libfraga/internal/core/services"
	"libfraga/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Dashboard handles the library dashboard
// @Summary Library dashboard
// @Description Catalog, loan and fine totals at a glance
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	data, err := h.reportService.GetDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// OverdueLoans handles the overdue report
// @Summary Overdue loans report
// @Description All loans past due and not yet returned, oldest first
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /reports/overdue [get]
func (h *ReportHandler) OverdueLoans(c *fiber.Ctx) error {
	rows, err := h.reportService.GetOverdueLoans(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load overdue report")
	}

	return response.Success(c, "Overdue loans retrieved successfully", fiber.Map{
		"loans": rows,
		"count": len(rows),
	})
}

// PopularBooks handles the popularity ranking
// @Summary Popular books report
// @Description Books ranked by all-time loan count
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries (default 10, max 50)"
// @Success 200 {object} response.Response
// @Router /reports/popular [get]
func (h *ReportHandler) PopularBooks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	rows, err := h.reportService.GetPopularBooks(c.Context(), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load popular books")
	}

	return response.Success(c, "Popular books retrieved successfully", fiber.Map{
		"books": rows,
	})
}

// StudentStats handles per-borrower statistics
// @Summary Student loan statistics
// @Description Loan and fine totals for one borrower
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reports/students/{id} [get]
func (h *ReportHandler) StudentStats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid user ID")
	}

	stats, err := h.reportService.GetStudentStats(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFoundSvc) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load student statistics")
	}

	return response.Success(c, "Student statistics retrieved successfully", stats)
}
