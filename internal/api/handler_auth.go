package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/record"
)

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

// Login resolves a roster name to a session token. There are no passwords:
// the roster is the access list, and anyone not on it is turned away.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	user, err := h.roster.FindByName(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		h.fail(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Printf("failed to issue token for %s: %v", user.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
