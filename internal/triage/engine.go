package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
)

// Engine runs the report triage workflow: open → in_progress → resolved.
// Transitions are not strictly ordered (an open report may move straight to
// resolved), but every update records who made it and when.
type Engine struct {
	store record.Store

	// Injected for deterministic tests.
	now   func() time.Time
	newID func() string
}

// NewEngine creates a triage engine over the given record store.
func NewEngine(store record.Store) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
		newID: model.NewReportID,
	}
}

// Submit files a new report at status open, unassigned.
func (e *Engine) Submit(ctx context.Context, submitter, title, description, priority string) (model.Report, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return model.Report{}, model.Invalidf("title", "must not be empty")
	}
	if description == "" {
		return model.Report{}, model.Invalidf("description", "must not be empty")
	}
	if !model.ValidPriority(priority) {
		return model.Report{}, model.Invalidf("priority", "unknown value %q", priority)
	}

	report := model.Report{
		ReportID:    e.newID(),
		SubmittedBy: submitter,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      model.ReportOpen,
		CreatedAt:   model.FormatTime(e.now()),
	}
	if err := e.store.Append(ctx, model.TableReports, report.Fields()); err != nil {
		return model.Report{}, fmt.Errorf("failed to submit report: %w", err)
	}
	return report, nil
}

// Triage updates a report's status, assignee, resolution and updated_at as
// one logical write. The update is unconditional: triage is
// single-assignee-at-a-time by workflow convention, not enforced concurrency,
// so no precondition is stated.
func (e *Engine) Triage(ctx context.Context, reportID, newStatus, assignee, resolution string) (model.Report, error) {
	if !model.ValidReportStatus(newStatus) {
		return model.Report{}, model.Invalidf("status", "unknown value %q", newStatus)
	}

	row, err := e.store.Find(ctx, model.TableReports, "report_id", reportID)
	if err != nil {
		return model.Report{}, err
	}
	report, err := model.ReportFromFields(row.Fields)
	if err != nil {
		return model.Report{}, err
	}

	updates := map[string]string{
		"status":      newStatus,
		"assigned_to": assignee,
		"resolution":  resolution,
		"updated_at":  model.FormatTime(e.now()),
	}
	res, err := e.store.CompareAndUpdate(ctx, model.TableReports, "report_id", reportID, nil, updates)
	if err != nil {
		return model.Report{}, err
	}
	if res == record.NotFound {
		return model.Report{}, fmt.Errorf("report %s: %w", reportID, record.ErrNotFound)
	}

	report.Status = newStatus
	report.AssignedTo = assignee
	report.Resolution = resolution
	report.UpdatedAt = updates["updated_at"]
	return report, nil
}
