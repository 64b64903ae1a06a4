package roster

import (
	"context"
	"fmt"
	"strings"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
)

// Roster reads the Users table. The core never writes user accounts beyond
// the optional demo seed; account management belongs to whoever owns the
// spreadsheet.
type Roster struct {
	store record.Store
}

// New creates a roster over the given record store.
func New(store record.Store) *Roster {
	return &Roster{store: store}
}

// demoUsers is the starter roster written into an empty Users table so a
// fresh deployment is immediately usable.
var demoUsers = []model.User{
	{UserID: "U001", Name: "Ahmad Technician", Role: model.RoleTechnician, Email: "ahmad@tech.com"},
	{UserID: "U002", Name: "Siti Technician", Role: model.RoleTechnician, Email: "siti@tech.com"},
	{UserID: "U003", Name: "Ali User", Role: model.RoleUser, Email: "ali@user.com"},
	{UserID: "U004", Name: "Nurul User", Role: model.RoleUser, Email: "nurul@user.com"},
}

// Users returns all roster entries in storage order.
func (r *Roster) Users(ctx context.Context) ([]model.User, error) {
	rows, err := r.store.List(ctx, model.TableUsers)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, model.UserFromFields(row.Fields))
	}
	return users, nil
}

// FindByName resolves a login name to its roster entry. Matching ignores
// case and surrounding whitespace since names get typed by hand.
func (r *Roster) FindByName(ctx context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, model.Invalidf("name", "must not be empty")
	}

	users, err := r.Users(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(strings.TrimSpace(u.Name), name) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %q: %w", name, record.ErrNotFound)
}

// SeedDemo writes the demo roster when the Users table is empty and reports
// how many entries were added.
func (r *Roster) SeedDemo(ctx context.Context) (int, error) {
	rows, err := r.store.List(ctx, model.TableUsers)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 {
		return 0, nil
	}

	added := 0
	for _, u := range demoUsers {
		if err := r.store.Append(ctx, model.TableUsers, u.Fields()); err != nil {
			return added, fmt.Errorf("failed to seed user %s: %w", u.UserID, err)
		}
		added++
	}
	return added, nil
}
