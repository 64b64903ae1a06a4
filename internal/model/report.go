package model

// Report is a submitted issue ticket routed through the triage workflow.
// AssignedTo, UpdatedAt and Resolution stay empty until triage touches them.
type Report struct {
	ReportID    string `json:"report_id"`
	SubmittedBy string `json:"submitted_by"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assigned_to"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	Resolution  string `json:"resolution"`
}

// ReportFromFields builds a Report from a raw table row, validating the
// status enum the triage engine depends on.
func ReportFromFields(f map[string]string) (Report, error) {
	r := Report{
		ReportID:    f["report_id"],
		SubmittedBy: f["submitted_by"],
		Title:       f["title"],
		Description: f["description"],
		Priority:    f["priority"],
		Status:      f["status"],
		AssignedTo:  f["assigned_to"],
		CreatedAt:   f["created_at"],
		UpdatedAt:   f["updated_at"],
		Resolution:  f["resolution"],
	}
	if r.ReportID == "" {
		return Report{}, Invalidf("report_id", "missing in stored row")
	}
	if !ValidReportStatus(r.Status) {
		return Report{}, Invalidf("status", "unknown value %q for report %s", r.Status, r.ReportID)
	}
	return r, nil
}

// Fields renders the report as a column-name keyed row for the record store.
func (r Report) Fields() map[string]string {
	return map[string]string{
		"report_id":    r.ReportID,
		"submitted_by": r.SubmittedBy,
		"title":        r.Title,
		"description":  r.Description,
		"priority":     r.Priority,
		"status":       r.Status,
		"assigned_to":  r.AssignedTo,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
		"resolution":   r.Resolution,
	}
}
