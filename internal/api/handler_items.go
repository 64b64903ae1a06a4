package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/events"
	"techtrack-backend/internal/labels"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/mw"
	"techtrack-backend/internal/parse"
	"techtrack-backend/internal/qrtag"
)

// itemIDParam normalizes the :id path parameter. Accepting whatever form a
// technician typed or pasted (bare hex, lowercase, the full label payload)
// keeps the manual fallback path forgiving.
func itemIDParam(c *gin.Context) string {
	raw := c.Param("id")
	if id, err := parse.ItemRef(raw); err == nil {
		return id
	}
	return raw
}

// GetItems handles GET /api/items with optional status, category and free
// text filters. Query-only: this is a read view over the raw table.
func (h *Handler) GetItems(c *gin.Context) {
	status := c.Query("status")
	category := c.Query("category")
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	rows, err := h.store.List(c.Request.Context(), model.TableItems)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		item, err := model.ItemFromFields(row.Fields)
		if err != nil {
			h.logger.Printf("skipping malformed item row %d: %v", row.Number, err)
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(item.Name), q) &&
			!strings.Contains(strings.ToLower(item.Location), q) &&
			!strings.Contains(strings.ToLower(item.ItemID), q) {
			continue
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}

// GetItem handles GET /api/items/{id}.
func (h *Handler) GetItem(c *gin.Context) {
	row, err := h.store.Find(c.Request.Context(), model.TableItems, "item_id", itemIDParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	item, err := model.ItemFromFields(row.Fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type registerItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// RegisterItem handles POST /api/items (technician only). Responds with the
// new item and its label payload so the UI can offer the QR download
// immediately.
func (h *Handler) RegisterItem(c *gin.Context) {
	var req registerItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and category are required"})
		return
	}

	item, err := h.items.RegisterItem(c.Request.Context(), req.Name, req.Category, req.Location, req.Notes, mw.ActorName(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeItemRegistered, ID: item.ItemID, Actor: mw.ActorName(c), Data: item})
	c.JSON(http.StatusCreated, gin.H{"item": item, "payload": item.Payload()})
}

type lifecycleRequest struct {
	Notes string `json:"notes"`
}

// CheckoutItem handles POST /api/items/{id}/checkout (technician only).
func (h *Handler) CheckoutItem(c *gin.Context) {
	var req lifecycleRequest
	c.ShouldBindJSON(&req) // body is optional

	item, err := h.items.Checkout(c.Request.Context(), itemIDParam(c), mw.ActorName(c), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeItemCheckout, ID: item.ItemID, Actor: mw.ActorName(c), Data: item})
	c.JSON(http.StatusOK, item)
}

// ReturnItem handles POST /api/items/{id}/return (technician only). A
// successful return makes the item available again, which is the event
// availability watchers subscribed for.
func (h *Handler) ReturnItem(c *gin.Context) {
	var req lifecycleRequest
	c.ShouldBindJSON(&req) // body is optional

	item, err := h.items.Return(c.Request.Context(), itemIDParam(c), mw.ActorName(c), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeItemReturn, ID: item.ItemID, Actor: mw.ActorName(c), Data: item})
	h.pool.Dispatch(item.ItemID, item.Name)
	c.JSON(http.StatusOK, item)
}

// MaintenanceItem handles POST /api/items/{id}/maintenance (technician only).
func (h *Handler) MaintenanceItem(c *gin.Context) {
	item, err := h.items.MarkMaintenance(c.Request.Context(), itemIDParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeItemMaintenance, ID: item.ItemID, Actor: mw.ActorName(c), Data: item})
	c.JSON(http.StatusOK, item)
}

// RestoreItem handles POST /api/items/{id}/restore (technician only),
// putting a maintained item back in circulation.
func (h *Handler) RestoreItem(c *gin.Context) {
	item, err := h.items.ClearMaintenance(c.Request.Context(), itemIDParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.hub.Broadcast(events.Event{Type: events.TypeItemMaintenance, ID: item.ItemID, Actor: mw.ActorName(c), Data: item})
	h.pool.Dispatch(item.ItemID, item.Name)
	c.JSON(http.StatusOK, item)
}

// GetItemLabel handles GET /api/items/{id}/label: renders the item's QR
// label, archives the render, and streams the PNG for download or printing.
// Rendering is cheap, so the label is rebuilt from the live record on every
// request and a renamed item never ships a stale label.
func (h *Handler) GetItemLabel(c *gin.Context) {
	ctx := c.Request.Context()

	row, err := h.store.Find(ctx, model.TableItems, "item_id", itemIDParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	item, err := model.ItemFromFields(row.Fields)
	if err != nil {
		h.fail(c, err)
		return
	}

	png, err := qrtag.Encode(item.Payload())
	if err != nil {
		h.fail(c, err)
		return
	}

	if _, err := h.labels.Put(ctx, labels.Key(item.ItemID), png, "image/png"); err != nil {
		// Archival is best effort; the label itself still ships.
		h.logger.Printf("failed to archive label for %s: %v", item.ItemID, err)
	}

	c.Header("Content-Disposition", `attachment; filename="`+item.ItemID+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}
