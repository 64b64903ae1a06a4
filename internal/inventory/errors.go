package inventory

import "fmt"

// InvalidTransitionError reports a lifecycle operation attempted from a state
// that does not allow it. The store was not touched.
type InvalidTransitionError struct {
	ItemID string
	Op     string
	Status string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s item %s: status is %q", e.Op, e.ItemID, e.Status)
}

// ContentionError reports that a concurrent actor changed the item between
// this operation's read and its conditional write. The operation did not
// apply; the caller should re-read and decide whether to retry.
type ContentionError struct {
	ItemID string
	Op     string
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("%s of item %s rejected: someone else just changed this item, refresh and retry", e.Op, e.ItemID)
}

// PartialFailureError reports that the status change was applied but the
// audit log append failed afterwards. The store offers no multi-row
// transaction, so nothing is rolled back; the error is surfaced distinctly
// so operators can reconcile the missing log entry instead of silently
// losing the trail.
type PartialFailureError struct {
	ItemID string
	Action string
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("item %s status changed but %s audit entry was not recorded: %v", e.ItemID, e.Action, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
