package overrides

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/pkg/handlers"
	"github.com/conduitworks/conduit/pkg/routes"
)

// Handler provides the HTTP endpoint for reprocess commands.
type Handler struct {
	controller *Controller
	logger     *slog.Logger
}

// NewHandler creates a Handler for the given controller.
func NewHandler(controller *Controller, logger *slog.Logger) *Handler {
	return &Handler{
		controller: controller,
		logger:     logger.With("handler", "overrides"),
	}
}

// Routes returns the route group definition for override endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/reprocess", Handler: h.Reprocess},
		},
	}
}

// ReprocessRequest names the stage to re-run: extract, classify, or route.
type ReprocessRequest struct {
	Target string `json:"target"`
}

// Reprocess resets a document to an earlier stage and schedules it.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, identity.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidRequest)
		return
	}

	var req ReprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidRequest)
		return
	}

	target, ok := documents.ParseTarget(req.Target)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidRequest)
		return
	}

	doc, err := h.controller.Reprocess(r.Context(), user, id, target)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, doc)
}
