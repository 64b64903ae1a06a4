package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"techtrack-backend/internal/imaging"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/qrtag"
	"techtrack-backend/internal/record"
)

// maxUploadBytes caps scan uploads. Phone photos stay well under this.
const maxUploadBytes = 10 << 20

// ScanLabel handles POST /api/scan: a multipart photo upload that either
// decodes to an item label or doesn't. An unreadable photo is a normal
// outcome (blur, glare, no label in frame), reported as 200 decoded:false so
// the client can fall back to manual entry without treating it as a fault.
func (h *Handler) ScanLabel(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'image' is required"})
		return
	}
	defer file.Close()

	img, err := imaging.Normalize(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := qrtag.DecodeImage(img)
	if err != nil {
		if errors.Is(err, qrtag.ErrDecodeFailure) {
			c.JSON(http.StatusOK, gin.H{"decoded": false})
			return
		}
		h.fail(c, err)
		return
	}

	resp := gin.H{"decoded": true, "payload": payload}

	// The label is only a pointer; the live record is authoritative. A label
	// printed against some other deployment's store still decodes, it just
	// resolves to nothing here.
	row, err := h.store.Find(c.Request.Context(), model.TableItems, "item_id", payload.ItemID)
	switch {
	case err == nil:
		if item, convErr := model.ItemFromFields(row.Fields); convErr == nil {
			resp["item"] = item
		}
	case errors.Is(err, record.ErrNotFound):
		resp["item"] = nil
	default:
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
