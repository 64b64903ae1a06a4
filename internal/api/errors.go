package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/inventory"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/tabular"
)

// fail translates the error taxonomy into HTTP. Expected workflow outcomes
// (not found, invalid transition, contention) map to client-visible statuses
// with a machine-readable code; transport failures become 503 so the UI can
// offer "try again"; a partial failure is reported as 502 with enough detail
// for an operator to reconcile the audit log.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "code": "validation"})
		return
	}

	if errors.Is(err, record.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
		return
	}

	var ite *inventory.InvalidTransitionError
	if errors.As(err, &ite) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ite.Error(), "code": "invalid_transition", "status": ite.Status})
		return
	}

	var ce *inventory.ContentionError
	if errors.As(err, &ce) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ce.Error(), "code": "contention"})
		return
	}

	var pe *inventory.PartialFailureError
	if errors.As(err, &pe) {
		h.logger.Printf("partial failure: %v", pe)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"error":   pe.Error(),
			"code":    "partial_failure",
			"item_id": pe.ItemID,
			"action":  pe.Action,
		})
		return
	}

	if te, ok := tabular.IsTransport(err); ok {
		h.logger.Printf("upstream failure: %v", te)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream store unavailable, try again", "code": "transport"})
		return
	}

	h.logger.Printf("internal error: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}
