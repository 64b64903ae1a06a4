package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/events"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/mw"
)

// GetReports handles GET /api/reports with optional status and mine=true
// filters. Regular users typically ask for their own submissions; the triage
// board asks for status=open.
func (h *Handler) GetReports(c *gin.Context) {
	status := c.Query("status")
	mine := c.Query("mine") == "true"

	rows, err := h.store.List(c.Request.Context(), model.TableReports)
	if err != nil {
		h.fail(c, err)
		return
	}

	reports := make([]model.Report, 0, len(rows))
	for _, row := range rows {
		report, err := model.ReportFromFields(row.Fields)
		if err != nil {
			h.logger.Printf("skipping malformed report row %d: %v", row.Number, err)
			continue
		}
		if status != "" && report.Status != status {
			continue
		}
		if mine && report.SubmittedBy != mw.ActorName(c) {
			continue
		}
		reports = append(reports, report)
	}

	c.JSON(http.StatusOK, reports)
}

type submitReportRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Priority    string `json:"priority" binding:"required"`
}

// SubmitReport handles POST /api/reports. Any authenticated user may file a
// report; it lands in the triage queue as open and unassigned.
func (h *Handler) SubmitReport(c *gin.Context) {
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, description and priority are required"})
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), mw.ActorName(c), req.Title, req.Description, req.Priority)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeReportSubmitted, ID: report.ReportID, Actor: mw.ActorName(c), Data: report})
	c.JSON(http.StatusCreated, report)
}

type triageRequest struct {
	Status     string `json:"status" binding:"required"`
	Resolution string `json:"resolution"`
}

// TriageReport handles POST /api/reports/{id}/triage (technician only). The
// caller becomes the assignee: picking up a report and working it are the
// same gesture.
func (h *Handler) TriageReport(c *gin.Context) {
	var req triageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	report, err := h.reports.Triage(c.Request.Context(), c.Param("id"), req.Status, mw.ActorName(c), req.Resolution)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeReportUpdated, ID: report.ReportID, Actor: mw.ActorName(c), Data: report})
	c.JSON(http.StatusOK, report)
}
