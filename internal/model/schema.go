package model

// Table names in the remote tabular store.
const (
	TableItems         = "Items"
	TableUsageLog      = "Usage_Log"
	TableReports       = "Reports"
	TableUsers         = "Users"
	TableSubscriptions = "Subscriptions"
)

// schemas maps each table to its column order. The order matters: appended
// rows are positional, and the header row is written from this exact slice.
var schemas = map[string][]string{
	TableItems:         {"item_id", "name", "category", "location", "status", "registered_by", "registered_at", "notes"},
	TableUsageLog:      {"log_id", "item_id", "item_name", "technician", "action", "timestamp", "notes"},
	TableReports:       {"report_id", "submitted_by", "title", "description", "priority", "status", "assigned_to", "created_at", "updated_at", "resolution"},
	TableUsers:         {"user_id", "name", "role", "email"},
	TableSubscriptions: {"sub_id", "user_name", "endpoint", "p256dh", "auth", "item_id", "created_at", "active"},
}

// Columns returns the column order of a known table.
func Columns(table string) ([]string, bool) {
	cols, ok := schemas[table]
	return cols, ok
}

// Tables returns the names of all known tables, in bootstrap order.
func Tables() []string {
	return []string{TableItems, TableUsageLog, TableReports, TableUsers, TableSubscriptions}
}
