package api

import (
	"fmt"

	"github.com/JaimeStill/tribunal/internal/capturelogs"
	"github.com/JaimeStill/tribunal/internal/captures"
	"github.com/JaimeStill/tribunal/internal/rawlogs"
	"github.com/JaimeStill/tribunal/internal/recovery"
	"github.com/JaimeStill/tribunal/internal/scheduler"
	"github.com/JaimeStill/tribunal/internal/schedules"
	"github.com/JaimeStill/tribunal/internal/session"
	"github.com/JaimeStill/tribunal/internal/tribunals"
	"github.com/JaimeStill/tribunal/pkg/lifecycle"
	"github.com/JaimeStill/tribunal/pkg/retry"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Tribunals   tribunals.System
	Schedules   schedules.System
	CaptureLogs capturelogs.System
	RawLogs     rawlogs.System
	Registry    *captures.Registry
	Browser     *session.BrowserTransport
	Sessions    *session.Provider
	Scheduler   *scheduler.Scheduler
	Recovery    recovery.System
}

// NewDomain creates all domain systems from the API runtime. The raw log
// store registers its indexes here, so NewDomain must run before the
// infrastructure starts.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	logger := runtime.Logger

	rawLogs := rawlogs.New(runtime.DocStore, logger, runtime.Pagination)

	registry := captures.NewRegistry(captures.Deps{
		Store:   captures.NewStore(db),
		Storage: runtime.Storage,
		Cache:   runtime.Cache,
		Retry:   retry.New(runtime.Retry),
		Metrics: runtime.Metrics,
		Logger:  logger,
	})

	browser := session.NewBrowserTransport(runtime.Browser, logger)
	guards := session.NewGuards(runtime.Guard, runtime.Metrics, logger)
	sessions := session.NewProvider(browser, guards, logger)

	d := &Domain{
		Tribunals:   tribunals.New(db, logger),
		Schedules:   schedules.New(db, logger, runtime.Pagination),
		CaptureLogs: capturelogs.New(db, logger, runtime.Pagination),
		RawLogs:     rawLogs,
		Registry:    registry,
		Browser:     browser,
		Sessions:    sessions,
	}

	d.Scheduler = scheduler.New(runtime.Scheduler, scheduler.Deps{
		Schedules: d.Schedules,
		Logs:      d.CaptureLogs,
		RawLogs:   d.RawLogs,
		Tribunals: d.Tribunals,
		Sessions:  sessions,
		Registry:  registry,
		Metrics:   runtime.Metrics,
		Logger:    logger,
	})

	d.Recovery = recovery.New(recovery.Deps{
		RawLogs:    d.RawLogs,
		Registry:   registry,
		Metrics:    runtime.Metrics,
		Logger:     logger,
		Pagination: runtime.Pagination,
	})

	return d
}

// Start registers the browser and scheduler with the lifecycle coordinator.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if err := d.Browser.Start(lc); err != nil {
		return fmt.Errorf("browser start failed: %w", err)
	}
	if err := d.Scheduler.Start(lc); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}
	return nil
}
