package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/JaimeStill/tribunal/pkg/handlers"
	"github.com/JaimeStill/tribunal/pkg/routes"
	"github.com/JaimeStill/tribunal/pkg/storage"
)

// documentsHandler streams captured document binaries by storage key, as
// recorded on pending filings and timeline items.
type documentsHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newDocumentsHandler(store storage.System, logger *slog.Logger) *documentsHandler {
	return &documentsHandler{
		store:  store,
		logger: logger.With("handler", "documents"),
	}
}

func (h *documentsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
		},
	}
}

func (h *documentsHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Get(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document stream interrupted", "key", key, "error", err)
	}
}
