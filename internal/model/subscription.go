package model

// Subscription is a Web Push availability watch stored in the remote table.
// The store has no delete, so expired or revoked subscriptions are recorded
// by patching Active to "false".
type Subscription struct {
	SubID     string `json:"sub_id"`
	UserName  string `json:"user_name"`
	Endpoint  string `json:"endpoint"`
	P256DH    string `json:"p256dh"`
	Auth      string `json:"auth"`
	ItemID    string `json:"item_id"` // empty watches all items
	CreatedAt string `json:"created_at"`
	Active    string `json:"active"`
}

// SubscriptionFromFields builds a Subscription from a raw table row.
func SubscriptionFromFields(f map[string]string) Subscription {
	return Subscription{
		SubID:     f["sub_id"],
		UserName:  f["user_name"],
		Endpoint:  f["endpoint"],
		P256DH:    f["p256dh"],
		Auth:      f["auth"],
		ItemID:    f["item_id"],
		CreatedAt: f["created_at"],
		Active:    f["active"],
	}
}

// Fields renders the subscription as a column-name keyed row.
func (s Subscription) Fields() map[string]string {
	return map[string]string{
		"sub_id":     s.SubID,
		"user_name":  s.UserName,
		"endpoint":   s.Endpoint,
		"p256dh":     s.P256DH,
		"auth":       s.Auth,
		"item_id":    s.ItemID,
		"created_at": s.CreatedAt,
		"active":     s.Active,
	}
}

// IsActive reports whether the subscription should still receive pushes.
func (s Subscription) IsActive() bool {
	return s.Active == "true"
}

// Watches reports whether the subscription covers the given item.
func (s Subscription) Watches(itemID string) bool {
	return s.ItemID == "" || s.ItemID == itemID
}
