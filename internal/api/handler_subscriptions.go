package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/model"
	"techtrack-backend/internal/mw"
	"techtrack-backend/internal/record"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
	ItemID   string `json:"item_id"` // empty watches all items
}

// PutSubscription handles PUT /api/subscriptions, creating or replacing an
// availability watch. The push endpoint is the identity: re-subscribing from
// the same browser updates the existing row instead of stacking duplicates,
// and reactivates it if a rejected push had marked it inactive.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint, p256dh and auth are required"})
		return
	}
	ctx := c.Request.Context()

	sub := model.Subscription{
		SubID:     model.NewSubID(),
		UserName:  mw.ActorName(c),
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		ItemID:    req.ItemID,
		CreatedAt: model.FormatTime(time.Now()),
		Active:    "true",
	}

	existing, err := h.store.Find(ctx, model.TableSubscriptions, "endpoint", req.Endpoint)
	switch {
	case err == nil:
		sub.SubID = existing.Fields["sub_id"]
		sub.CreatedAt = existing.Fields["created_at"]
		updates := map[string]string{
			"user_name": sub.UserName,
			"p256dh":    sub.P256DH,
			"auth":      sub.Auth,
			"item_id":   sub.ItemID,
			"active":    "true",
		}
		if _, err := h.store.CompareAndUpdate(ctx, model.TableSubscriptions, "endpoint", req.Endpoint, nil, updates); err != nil {
			h.fail(c, err)
			return
		}
	case errors.Is(err, record.ErrNotFound):
		if err := h.store.Append(ctx, model.TableSubscriptions, sub.Fields()); err != nil {
			h.fail(c, err)
			return
		}
	default:
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles DELETE /api/subscriptions. The store has no row
// delete, so the watch is retired by patching active to false. Deleting an
// unknown endpoint succeeds: the watch is gone either way.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	if _, err := h.store.CompareAndUpdate(c.Request.Context(), model.TableSubscriptions,
		"endpoint", req.Endpoint, nil, map[string]string{"active": "false"}); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscriptions handles GET /api/subscriptions, listing the caller's
// active watches so the UI can render current toggle state.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context(), model.TableSubscriptions)
	if err != nil {
		h.fail(c, err)
		return
	}

	subs := make([]model.Subscription, 0)
	for _, row := range rows {
		sub := model.SubscriptionFromFields(row.Fields)
		if sub.UserName != mw.ActorName(c) || !sub.IsActive() {
			continue
		}
		subs = append(subs, sub)
	}

	c.JSON(http.StatusOK, subs)
}
