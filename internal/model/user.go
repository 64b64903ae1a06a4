package model

// User is a roster entry. The core reads it for identity and role only;
// account management is external.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// UserFromFields builds a User from a raw table row.
func UserFromFields(f map[string]string) User {
	return User{
		UserID: f["user_id"],
		Name:   f["name"],
		Role:   f["role"],
		Email:  f["email"],
	}
}

// Fields renders the user as a column-name keyed row for the record store.
func (u User) Fields() map[string]string {
	return map[string]string{
		"user_id": u.UserID,
		"name":    u.Name,
		"role":    u.Role,
		"email":   u.Email,
	}
}

// IsTechnician reports whether the user may run lifecycle and triage
// operations.
func (u User) IsTechnician() bool {
	return u.Role == RoleTechnician
}
