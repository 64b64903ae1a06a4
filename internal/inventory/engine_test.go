package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/tabular"
)

// fakeStore is a mock implementation of the record.Store interface.
type fakeStore struct {
	findFunc   func(ctx context.Context, table, keyCol, key string) (tabular.Row, error)
	listFunc   func(ctx context.Context, table string) ([]tabular.Row, error)
	appendFunc func(ctx context.Context, table string, fields map[string]string) error
	cauFunc    func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error)
}

func (f *fakeStore) Find(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
	return f.findFunc(ctx, table, keyCol, key)
}

func (f *fakeStore) List(ctx context.Context, table string) ([]tabular.Row, error) {
	return f.listFunc(ctx, table)
}

func (f *fakeStore) Append(ctx context.Context, table string, fields map[string]string) error {
	return f.appendFunc(ctx, table, fields)
}

func (f *fakeStore) CompareAndUpdate(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
	return f.cauFunc(ctx, table, keyCol, key, expected, updates)
}

func (f *fakeStore) EnsureTables(ctx context.Context) error { return nil }

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

// testEngine builds an engine with a fixed clock and predictable ids.
func testEngine(store record.Store) *Engine {
	e := NewEngine(store)
	e.now = func() time.Time { return testNow }
	e.newItemID = func() string { return "ITM-TEST0001" }
	e.newLogID = func() string { return "LOG00001" }
	return e
}

func storedItem(status string) tabular.Row {
	return tabular.Row{Number: 2, Fields: map[string]string{
		"item_id": "ITM-A", "name": "Multimeter", "category": "Tools",
		"location": "Lab 2", "status": status,
		"registered_by": "Ahmad Technician", "registered_at": "2025-01-10 09:30", "notes": "",
	}}
}

func TestCheckout(t *testing.T) {
	var gotExpected, gotUpdates map[string]string
	var appended map[string]string

	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusAvailable), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			gotExpected, gotUpdates = expected, updates
			return record.Updated, nil
		},
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			assert.Equal(t, model.TableUsageLog, table)
			appended = fields
			return nil
		},
	}

	item, err := testEngine(store).Checkout(context.Background(), "ITM-A", "Ahmad Technician", "for line 3")
	require.NoError(t, err)

	assert.Equal(t, model.StatusInUse, item.Status)
	assert.Equal(t, map[string]string{"status": "available"}, gotExpected, "checkout states its precondition")
	assert.Equal(t, map[string]string{"status": "in_use"}, gotUpdates)

	require.NotNil(t, appended)
	assert.Equal(t, "LOG00001", appended["log_id"])
	assert.Equal(t, "ITM-A", appended["item_id"])
	assert.Equal(t, "Multimeter", appended["item_name"])
	assert.Equal(t, model.ActionCheckOut, appended["action"])
	assert.Equal(t, "Ahmad Technician", appended["technician"])
	assert.Equal(t, "2025-03-14 10:30", appended["timestamp"])
	assert.Equal(t, "for line 3", appended["notes"])
}

func TestCheckoutRequiresAvailable(t *testing.T) {
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusInUse), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			t.Fatal("an invalid transition must not reach the store")
			return 0, nil
		},
	}

	_, err := testEngine(store).Checkout(context.Background(), "ITM-A", "Siti Technician", "")

	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, model.StatusInUse, ite.Status)
	assert.Equal(t, "checkout", ite.Op)
}

func TestCheckoutContention(t *testing.T) {
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusAvailable), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			// Another technician won between our read and write.
			return record.Conflict, nil
		},
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			t.Fatal("a lost race must not append an audit entry")
			return nil
		},
	}

	_, err := testEngine(store).Checkout(context.Background(), "ITM-A", "Siti Technician", "")

	var ce *ContentionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "ITM-A", ce.ItemID)
}

func TestCheckoutUnknownItem(t *testing.T) {
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return tabular.Row{}, record.ErrNotFound
		},
	}

	_, err := testEngine(store).Checkout(context.Background(), "ITM-GONE", "Ahmad Technician", "")
	assert.True(t, errors.Is(err, record.ErrNotFound))
}

func TestCheckoutPartialFailure(t *testing.T) {
	appendErr := &tabular.TransportError{Op: "append", Table: model.TableUsageLog, Err: errors.New("connection reset")}
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusAvailable), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			return record.Updated, nil
		},
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			return appendErr
		},
	}

	item, err := testEngine(store).Checkout(context.Background(), "ITM-A", "Ahmad Technician", "")

	var pf *PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, model.ActionCheckOut, pf.Action)
	assert.True(t, errors.Is(err, appendErr), "the append cause stays reachable for reconciliation")
	assert.Equal(t, model.StatusInUse, item.Status, "the status change did land")
}

func TestReturn(t *testing.T) {
	var appended map[string]string
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusInUse), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			assert.Equal(t, map[string]string{"status": "in_use"}, expected)
			assert.Equal(t, map[string]string{"status": "available"}, updates)
			return record.Updated, nil
		},
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			appended = fields
			return nil
		},
	}

	item, err := testEngine(store).Return(context.Background(), "ITM-A", "Ahmad Technician", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, item.Status)
	assert.Equal(t, model.ActionReturn, appended["action"])
}

func TestReturnRequiresInUse(t *testing.T) {
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(model.StatusAvailable), nil
		},
	}

	_, err := testEngine(store).Return(context.Background(), "ITM-A", "Ahmad Technician", "")

	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, "return", ite.Op)
}

func TestRegisterItem(t *testing.T) {
	var appended map[string]string
	store := &fakeStore{
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			assert.Equal(t, model.TableItems, table)
			appended = fields
			return nil
		},
	}

	item, err := testEngine(store).RegisterItem(context.Background(), "  Multimeter ", "Tools", "Lab 2", "calibrated", "Ahmad Technician")
	require.NoError(t, err)

	assert.Equal(t, "ITM-TEST0001", item.ItemID)
	assert.Equal(t, "Multimeter", item.Name, "name is trimmed")
	assert.Equal(t, model.StatusAvailable, item.Status)
	assert.Equal(t, "2025-03-14 10:30", appended["registered_at"])
	assert.Equal(t, "Ahmad Technician", appended["registered_by"])

	payload := item.Payload()
	assert.Equal(t, model.LabelPayload{ItemID: "ITM-TEST0001", Name: "Multimeter", Category: "Tools"}, payload)
}

func TestRegisterItemValidation(t *testing.T) {
	store := &fakeStore{
		appendFunc: func(ctx context.Context, table string, fields map[string]string) error {
			t.Fatal("invalid input must not reach the store")
			return nil
		},
	}
	engine := testEngine(store)

	var verr *model.ValidationError

	_, err := engine.RegisterItem(context.Background(), "   ", "Tools", "", "", "Ahmad Technician")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	_, err = engine.RegisterItem(context.Background(), "Drill", "Gadgets", "", "", "Ahmad Technician")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "category", verr.Field)
}

func TestMaintenanceToggle(t *testing.T) {
	status := model.StatusInUse
	store := &fakeStore{
		findFunc: func(ctx context.Context, table, keyCol, key string) (tabular.Row, error) {
			return storedItem(status), nil
		},
		cauFunc: func(ctx context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
			// The precondition is whatever state the item was read in.
			assert.Equal(t, map[string]string{"status": status}, expected)
			return record.Updated, nil
		},
	}
	engine := testEngine(store)

	item, err := engine.MarkMaintenance(context.Background(), "ITM-A")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMaintenance, item.Status)

	// Checkout is excluded while under maintenance.
	status = model.StatusMaintenance
	_, err = engine.Checkout(context.Background(), "ITM-A", "Ahmad Technician", "")
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))

	item, err = engine.ClearMaintenance(context.Background(), "ITM-A")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, item.Status)

	// Restoring an item that is not under maintenance is refused.
	status = model.StatusAvailable
	_, err = engine.ClearMaintenance(context.Background(), "ITM-A")
	require.True(t, errors.As(err, &ite))
}
