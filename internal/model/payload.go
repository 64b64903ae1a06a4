package model

// LabelPayload is the identity payload serialized into an item's scannable
// label: a small JSON object carrying just enough to address the item.
type LabelPayload struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Validate checks that a decoded payload is well formed.
func (p LabelPayload) Validate() error {
	if p.ItemID == "" {
		return Invalidf("item_id", "empty in label payload")
	}
	if p.Name == "" {
		return Invalidf("name", "empty in label payload")
	}
	return nil
}
