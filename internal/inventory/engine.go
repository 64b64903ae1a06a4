package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
)

// Engine runs the item lifecycle state machine:
//
//	available -checkout-> in_use -return-> available
//
// with maintenance reachable from either state and excluding checkout until
// cleared. Every transition states its precondition through the record
// store's conditional update, so a competing actor's write is detected and
// refused instead of silently double-booking the item.
type Engine struct {
	store record.Store

	// Injected for deterministic tests.
	now       func() time.Time
	newItemID func() string
	newLogID  func() string
}

// NewEngine creates a lifecycle engine over the given record store.
func NewEngine(store record.Store) *Engine {
	return &Engine{
		store:     store,
		now:       time.Now,
		newItemID: model.NewItemID,
		newLogID:  model.NewLogID,
	}
}

// RegisterItem creates a new item at status available and returns it. The
// item's label payload is derivable from the returned value.
func (e *Engine) RegisterItem(ctx context.Context, name, category, location, notes, technician string) (model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Item{}, model.Invalidf("name", "must not be empty")
	}
	if !model.ValidCategory(category) {
		return model.Item{}, model.Invalidf("category", "unknown value %q", category)
	}

	item := model.Item{
		ItemID:       e.newItemID(),
		Name:         name,
		Category:     category,
		Location:     location,
		Status:       model.StatusAvailable,
		RegisteredBy: technician,
		RegisteredAt: model.FormatTime(e.now()),
		Notes:        notes,
	}
	if err := e.store.Append(ctx, model.TableItems, item.Fields()); err != nil {
		return model.Item{}, fmt.Errorf("failed to register item: %w", err)
	}
	return item, nil
}

// Checkout moves an available item to in_use and appends a CHECK OUT audit
// entry. Fails with InvalidTransitionError when the item is not available and
// with ContentionError when a concurrent actor won the race.
func (e *Engine) Checkout(ctx context.Context, itemID, technician, notes string) (model.Item, error) {
	return e.transition(ctx, itemID, technician, notes, "checkout",
		model.StatusAvailable, model.StatusInUse, model.ActionCheckOut)
}

// Return moves an in_use item back to available and appends a RETURN audit
// entry. Same contention semantics as Checkout.
func (e *Engine) Return(ctx context.Context, itemID, technician, notes string) (model.Item, error) {
	return e.transition(ctx, itemID, technician, notes, "return",
		model.StatusInUse, model.StatusAvailable, model.ActionReturn)
}

// transition performs one conditional state change plus its audit append.
// When the append fails after the status update already landed, the returned
// item reflects the new state and the error is a PartialFailureError.
func (e *Engine) transition(ctx context.Context, itemID, technician, notes, op, from, to, action string) (model.Item, error) {
	row, err := e.store.Find(ctx, model.TableItems, "item_id", itemID)
	if err != nil {
		return model.Item{}, err
	}
	item, err := model.ItemFromFields(row.Fields)
	if err != nil {
		return model.Item{}, err
	}
	if item.Status != from {
		return model.Item{}, &InvalidTransitionError{ItemID: itemID, Op: op, Status: item.Status}
	}

	res, err := e.store.CompareAndUpdate(ctx, model.TableItems, "item_id", itemID,
		map[string]string{"status": from},
		map[string]string{"status": to})
	if err != nil {
		return model.Item{}, err
	}
	switch res {
	case record.Conflict:
		return model.Item{}, &ContentionError{ItemID: itemID, Op: op}
	case record.NotFound:
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, record.ErrNotFound)
	}
	item.Status = to

	entry := model.UsageEntry{
		LogID:      e.newLogID(),
		ItemID:     item.ItemID,
		ItemName:   item.Name,
		Technician: technician,
		Action:     action,
		Timestamp:  model.FormatTime(e.now()),
		Notes:      notes,
	}
	if err := e.store.Append(ctx, model.TableUsageLog, entry.Fields()); err != nil {
		return item, &PartialFailureError{ItemID: itemID, Action: action, Err: err}
	}
	return item, nil
}

// MarkMaintenance takes an item out of circulation from whatever state it is
// in. Maintenance is not a usage event, so no audit entry is appended.
func (e *Engine) MarkMaintenance(ctx context.Context, itemID string) (model.Item, error) {
	row, err := e.store.Find(ctx, model.TableItems, "item_id", itemID)
	if err != nil {
		return model.Item{}, err
	}
	item, err := model.ItemFromFields(row.Fields)
	if err != nil {
		return model.Item{}, err
	}
	if item.Status == model.StatusMaintenance {
		return model.Item{}, &InvalidTransitionError{ItemID: itemID, Op: "maintain", Status: item.Status}
	}

	res, err := e.store.CompareAndUpdate(ctx, model.TableItems, "item_id", itemID,
		map[string]string{"status": item.Status},
		map[string]string{"status": model.StatusMaintenance})
	if err != nil {
		return model.Item{}, err
	}
	switch res {
	case record.Conflict:
		return model.Item{}, &ContentionError{ItemID: itemID, Op: "maintain"}
	case record.NotFound:
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, record.ErrNotFound)
	}
	item.Status = model.StatusMaintenance
	return item, nil
}

// ClearMaintenance puts a maintained item back in circulation as available.
func (e *Engine) ClearMaintenance(ctx context.Context, itemID string) (model.Item, error) {
	row, err := e.store.Find(ctx, model.TableItems, "item_id", itemID)
	if err != nil {
		return model.Item{}, err
	}
	item, err := model.ItemFromFields(row.Fields)
	if err != nil {
		return model.Item{}, err
	}
	if item.Status != model.StatusMaintenance {
		return model.Item{}, &InvalidTransitionError{ItemID: itemID, Op: "restore", Status: item.Status}
	}

	res, err := e.store.CompareAndUpdate(ctx, model.TableItems, "item_id", itemID,
		map[string]string{"status": model.StatusMaintenance},
		map[string]string{"status": model.StatusAvailable})
	if err != nil {
		return model.Item{}, err
	}
	switch res {
	case record.Conflict:
		return model.Item{}, &ContentionError{ItemID: itemID, Op: "restore"}
	case record.NotFound:
		return model.Item{}, fmt.Errorf("item %s: %w", itemID, record.ErrNotFound)
	}
	item.Status = model.StatusAvailable
	return item, nil
}
