package api

import (
	"net/http"

	"github.com/JaimeStill/tribunal/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	routes.Register(
		mux,
		domain.Schedules.Handler().Routes(),
		domain.Scheduler.Handler().Routes(),
		domain.CaptureLogs.Handler().Routes(),
		domain.Recovery.Handler().Routes(),
		newDocumentsHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
