package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/parse"
)

const defaultActivityLimit = 50

// GetActivity handles GET /api/activity with optional item_id and limit
// filters. The usage log is append-only, so the newest entries are the last
// rows; the response keeps newest-first order for display.
func (h *Handler) GetActivity(c *gin.Context) {
	itemID := c.Query("item_id")
	if itemID != "" {
		if id, err := parse.ItemRef(itemID); err == nil {
			itemID = id
		}
	}

	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	rows, err := h.store.List(c.Request.Context(), model.TableUsageLog)
	if err != nil {
		h.fail(c, err)
		return
	}

	entries := make([]model.UsageEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.UsageEntryFromFields(row.Fields)
		if itemID != "" && entry.ItemID != itemID {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	c.JSON(http.StatusOK, entries)
}
