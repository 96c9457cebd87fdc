package api

import (
	"github.com/JaimeStill/tribunal/internal/config"
	"github.com/JaimeStill/tribunal/internal/infrastructure"
	"github.com/JaimeStill/tribunal/pkg/pagination"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

// Runtime extends Infrastructure with the settings the capture domain reads.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Retry      retry.Config
	Scheduler  config.SchedulerConfig
	Browser    config.BrowserConfig
	Guard      config.GuardConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		Retry:          cfg.Retry,
		Scheduler:      cfg.Scheduler,
		Browser:        cfg.Browser,
		Guard:          cfg.Guard,
	}
}
