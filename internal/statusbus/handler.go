package statusbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/pkg/handlers"
	"github.com/conduitworks/conduit/pkg/routes"
)

// Handler streams status events to dashboards over Server-Sent Events.
type Handler struct {
	bus    *Bus
	logger *slog.Logger
}

// NewHandler creates the status streaming handler.
func NewHandler(bus *Bus, logger *slog.Logger) *Handler {
	return &Handler{
		bus:    bus,
		logger: logger.With("handler", "status"),
	}
}

// Routes returns the route group definition for status endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/status",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/stream", Handler: h.Stream},
		},
	}
}

// Stream subscribes the authenticated owner and forwards events as SSE.
// New subscribers receive no historical events; dashboards fetch the
// document list as their baseline before connecting.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, identity.ErrUnauthenticated)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError,
			fmt.Errorf("streaming unsupported by connection"))
		return
	}

	sub := h.subscribe(user, r)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("status stream opened", "owner", user.ID)

	for {
		evt, err := sub.Next(r.Context())
		if err != nil {
			h.logger.Info("status stream closed", "owner", user.ID, "reason", err)
			return
		}

		data, err := json.Marshal(evt)
		if err != nil {
			h.logger.Error("marshal status event failed", "error", err)
			continue
		}

		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
		flusher.Flush()
	}
}

func (h *Handler) subscribe(user identity.User, r *http.Request) *Subscription {
	if raw := r.URL.Query().Get("document_id"); raw != "" {
		if docID, err := uuid.Parse(raw); err == nil {
			return h.bus.SubscribeDocument(user.ID, docID)
		}
	}
	return h.bus.Subscribe(user.ID)
}
