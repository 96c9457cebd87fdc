package recovery

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/pkg/handlers"
	"github.com/JaimeStill/tribunal/pkg/pagination"
	"github.com/JaimeStill/tribunal/pkg/routes"
)

// Handler exposes raw log diagnosis and replay.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a recovery Handler.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "recovery"),
		pagination: pagination,
	}
}

// Routes returns the route group for recovery endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/recovery",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/aggregate", Handler: h.Aggregate},
			{Method: "GET", Pattern: "/{id}", Handler: h.Report},
			{Method: "POST", Pattern: "/{id}/reprocess", Handler: h.Reprocess},
		},
	}
}

// List returns raw logs without their payloads.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := rawlogs.FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Aggregate returns per-tribunal totals and gaps.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	filters := rawlogs.FiltersFromQuery(r.URL.Query())

	result, err := h.sys.Aggregate(r.Context(), filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Report returns one raw log. Gap analysis is on unless analyze_gaps=false;
// the payload is included only with include_payload=true.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := ReportOptions{
		AnalyzeGaps:    flag(q.Get("analyze_gaps"), true),
		IncludePayload: flag(q.Get("include_payload"), false),
	}

	result, err := h.sys.Report(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Reprocess replays the stored payload of one raw log.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Reprocess(r.Context(), r.PathValue("id"), capturelogs.ActorFrom(r))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func flag(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
