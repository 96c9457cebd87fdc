package scheduler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/pkg/handlers"
	"github.com/JaimeStill/tribunal/pkg/routes"
)

// Triggerer is the capability the handler needs from a Scheduler.
type Triggerer interface {
	Trigger(ctx context.Context, scheduleID, actor uuid.UUID) (*TriggerResult, error)
}

// Handler exposes manual schedule triggers.
type Handler struct {
	sched  Triggerer
	logger *slog.Logger
}

// NewHandler creates a trigger Handler.
func NewHandler(sched Triggerer, logger *slog.Logger) *Handler {
	return &Handler{
		sched:  sched,
		logger: logger.With("handler", "scheduler"),
	}
}

// Routes returns the trigger route under the schedules prefix.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/schedules",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/trigger", Handler: h.Trigger},
		},
	}
}

// Trigger starts a schedule run and answers 202 with the capture log id.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, schedules.ErrInvalidID)
		return
	}

	result, err := h.sched.Trigger(r.Context(), id, capturelogs.ActorFrom(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, result)
}
