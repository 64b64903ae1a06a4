package api

import (
	"log"

	"github.com/SherClockHolmes/webpush-go"

	"techtrack-backend/internal/auth"
	"techtrack-backend/internal/events"
	"techtrack-backend/internal/inventory"
	"techtrack-backend/internal/labels"
	"techtrack-backend/internal/notify"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/roster"
	"techtrack-backend/internal/triage"
)

// Deps are the collaborators the API layer serves. Engines own all lifecycle
// semantics; the store is used directly only for query-only read views.
type Deps struct {
	Logger  *log.Logger
	Store   record.Store
	Items   *inventory.Engine
	Reports *triage.Engine
	Roster  *roster.Roster
	Tokens  *auth.Tokens
	Labels  labels.Archive
	Hub     *events.Hub
	Pool    *notify.WorkerPool
	Webpush *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	logger  *log.Logger
	store   record.Store
	items   *inventory.Engine
	reports *triage.Engine
	roster  *roster.Roster
	tokens  *auth.Tokens
	labels  labels.Archive
	hub     *events.Hub
	pool    *notify.WorkerPool
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		logger:  d.Logger,
		store:   d.Store,
		items:   d.Items,
		reports: d.Reports,
		roster:  d.Roster,
		tokens:  d.Tokens,
		labels:  d.Labels,
		hub:     d.Hub,
		pool:    d.Pool,
		webpush: d.Webpush,
	}
}
