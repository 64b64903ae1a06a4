package tabled

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"techtrack-backend/config"
	"techtrack-backend/internal/mw"
	"techtrack-backend/internal/tabular"
)

// tableName keeps table names filesystem- and URL-safe. The service's own
// tables (Items, Usage_Log, ...) all fit; anything stranger is refused.
var tableName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]{0,63}$`)

type handler struct {
	store  *Store
	logger *log.Logger
}

// NewRouter creates and configures the reference backend's Gin router.
func NewRouter(cfg *config.Config, store *Store, logger *log.Logger) *gin.Engine {
	r := gin.Default()

	h := &handler{store: store, logger: logger}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader))
	v1.Use(requireToken(cfg.Upstream.Token))
	{
		v1.GET("/tables/:table/rows", h.listRows)
		v1.POST("/tables/:table/rows", h.appendRow)
		v1.PATCH("/tables/:table/rows/:number", h.patchRow)
		v1.PUT("/tables/:table/header", h.putHeader)
	}

	return r
}

// requireToken checks the bearer token. An empty configured token leaves the
// backend open, which is only sensible for local development.
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *handler) table(c *gin.Context) (string, bool) {
	table := c.Param("table")
	if !tableName.MatchString(table) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid table name"})
		return "", false
	}
	return table, true
}

func (h *handler) listRows(c *gin.Context) {
	table, ok := h.table(c)
	if !ok {
		return
	}

	header, rows, err := h.store.ListRows(c.Request.Context(), table)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tabular.ListResult{Header: header, Rows: rows})
}

func (h *handler) appendRow(c *gin.Context) {
	table, ok := h.table(c)
	if !ok {
		return
	}

	var req tabular.AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Cells == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cells are required"})
		return
	}

	number, err := h.store.Append(c.Request.Context(), table, req.Cells)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tabular.RowData{Number: number, Cells: req.Cells})
}

func (h *handler) patchRow(c *gin.Context) {
	table, ok := h.table(c)
	if !ok {
		return
	}

	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= headerRow {
		c.JSON(http.StatusBadRequest, gin.H{"error": "row number must be an integer greater than 1"})
		return
	}

	var req tabular.PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "updates are required"})
		return
	}

	if err := h.store.Patch(c.Request.Context(), table, number, req.Updates); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": number})
}

func (h *handler) putHeader(c *gin.Context) {
	table, ok := h.table(c)
	if !ok {
		return
	}

	var req tabular.HeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Header) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "header is required"})
		return
	}

	created, err := h.store.PutHeader(c.Request.Context(), table, req.Header)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"header": req.Header})
}

func (h *handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoHeader), errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrRowTooWide):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRowNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrHeaderMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
