package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/model"
)

// GetUsers handles GET /api/users, returning the full roster. The login
// screen uses this to offer a name picker.
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.roster.Users(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetCategories handles GET /api/categories. The category set is a closed
// enumeration, so no store round trip is needed.
func (h *Handler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, model.Categories)
}
