package model

// Item statuses. Transitions between them happen only through the inventory
// engine.
const (
	StatusAvailable   = "available"
	StatusInUse       = "in_use"
	StatusMaintenance = "maintenance"
)

// Usage log actions.
const (
	ActionCheckOut = "CHECK OUT"
	ActionReturn   = "RETURN"
)

// Report statuses.
const (
	ReportOpen       = "open"
	ReportInProgress = "in_progress"
	ReportResolved   = "resolved"
)

// Report priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// User roles. Technicians may register items, run checkouts/returns and
// triage reports; users may only submit and read.
const (
	RoleTechnician = "technician"
	RoleUser       = "user"
)

// Categories is the closed item category enumeration, in display order.
var Categories = []string{"Tools", "Equipment", "Consumable", "Safety", "Electrical", "Mechanical", "Other"}

// ValidItemStatus reports whether s is a recognized item status.
func ValidItemStatus(s string) bool {
	return s == StatusAvailable || s == StatusInUse || s == StatusMaintenance
}

// ValidCategory reports whether c is one of the closed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidReportStatus reports whether s is a recognized report status.
func ValidReportStatus(s string) bool {
	return s == ReportOpen || s == ReportInProgress || s == ReportResolved
}

// ValidPriority reports whether p is a recognized report priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidRole reports whether r is a recognized user role.
func ValidRole(r string) bool {
	return r == RoleTechnician || r == RoleUser
}
