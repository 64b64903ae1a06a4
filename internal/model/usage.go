package model

// UsageEntry is one immutable audit record of a checkout or return. Entries
// are append-only: no component exposes an update or delete for them.
type UsageEntry struct {
	LogID      string `json:"log_id"`
	ItemID     string `json:"item_id"`
	ItemName   string `json:"item_name"`
	Technician string `json:"technician"`
	Action     string `json:"action"`
	Timestamp  string `json:"timestamp"`
	Notes      string `json:"notes"`
}

// UsageEntryFromFields builds a UsageEntry from a raw table row.
func UsageEntryFromFields(f map[string]string) UsageEntry {
	return UsageEntry{
		LogID:      f["log_id"],
		ItemID:     f["item_id"],
		ItemName:   f["item_name"],
		Technician: f["technician"],
		Action:     f["action"],
		Timestamp:  f["timestamp"],
		Notes:      f["notes"],
	}
}

// Fields renders the entry as a column-name keyed row for the record store.
func (u UsageEntry) Fields() map[string]string {
	return map[string]string{
		"log_id":     u.LogID,
		"item_id":    u.ItemID,
		"item_name":  u.ItemName,
		"technician": u.Technician,
		"action":     u.Action,
		"timestamp":  u.Timestamp,
		"notes":      u.Notes,
	}
}
