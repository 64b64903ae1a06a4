package model

// Item is a tracked physical asset with a status lifecycle.
type Item struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	Status       string `json:"status"`
	RegisteredBy string `json:"registered_by"`
	RegisteredAt string `json:"registered_at"`
	Notes        string `json:"notes"`
}

// ItemFromFields builds an Item from a raw table row. The status enum is
// validated here because the lifecycle engine depends on it; other fields
// pass through as stored.
func ItemFromFields(f map[string]string) (Item, error) {
	it := Item{
		ItemID:       f["item_id"],
		Name:         f["name"],
		Category:     f["category"],
		Location:     f["location"],
		Status:       f["status"],
		RegisteredBy: f["registered_by"],
		RegisteredAt: f["registered_at"],
		Notes:        f["notes"],
	}
	if it.ItemID == "" {
		return Item{}, Invalidf("item_id", "missing in stored row")
	}
	if !ValidItemStatus(it.Status) {
		return Item{}, Invalidf("status", "unknown value %q for item %s", it.Status, it.ItemID)
	}
	return it, nil
}

// Fields renders the item as a column-name keyed row for the record store.
func (i Item) Fields() map[string]string {
	return map[string]string{
		"item_id":       i.ItemID,
		"name":          i.Name,
		"category":      i.Category,
		"location":      i.Location,
		"status":        i.Status,
		"registered_by": i.RegisteredBy,
		"registered_at": i.RegisteredAt,
		"notes":         i.Notes,
	}
}

// Payload returns the identity payload encoded into the item's label.
func (i Item) Payload() LabelPayload {
	return LabelPayload{ItemID: i.ItemID, Name: i.Name, Category: i.Category}
}
