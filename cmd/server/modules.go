package main

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/tribunal/internal/api"
	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/infrastructure"
	"github.com/JaimeStill/tribunal/pkg/handlers"
	"github.com/JaimeStill/tribunal/pkg/module"
)

const probeTimeout = 3 * time.Second

// Modules holds the HTTP modules mounted on the root router.
type Modules struct {
	API    *module.Module
	Domain *api.Domain
}

// NewModules builds the API module and its domain systems.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) *Modules {
	apiModule, domain := api.NewModule(cfg, infra)
	return &Modules{API: apiModule, Domain: domain}
}

// Mount registers every module on router.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, err := range infra.Lifecycle.Probe(ctx) {
			if err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		handlers.RespondJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": checks,
		})
	})

	router.HandleNative("GET "+cfg.API.MetricsPath, infra.Metrics.Handler().ServeHTTP)

	return router
}
