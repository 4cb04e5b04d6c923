package handler

import (
	"bytes"
	"strconv"
	"time"

	"go-stock-resi/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
	reports service.ReportService
}

func NewDashboardHandler(s service.DashboardService, reports service.ReportService) *DashboardHandler {
	return &DashboardHandler{service: s, reports: reports}
}

// GetStockMovement returns stock movement data for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	daysStr := c.Query("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 || days > 366 {
		days = 7
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   h.service.GetStockMovement(days, time.Now()),
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	return c.JSON(h.service.GetDashboardStats(time.Now()))
}

// ExportMovements streams the movement report as a PDF download.
func (h *DashboardHandler) ExportMovements(c *fiber.Ctx) error {
	now := time.Now()
	var buf bytes.Buffer
	if err := h.reports.ExportMovements(&buf, now); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Attachment(h.reports.FileName(now, "pdf"))
	return c.Send(buf.Bytes())
}

// ExportWorkbook streams the movement report as an Excel download.
func (h *DashboardHandler) ExportWorkbook(c *fiber.Ctx) error {
	now := time.Now()
	var buf bytes.Buffer
	if err := h.reports.ExportWorkbook(&buf, now); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(h.reports.FileName(now, "xlsx"))
	return c.Send(buf.Bytes())
}
