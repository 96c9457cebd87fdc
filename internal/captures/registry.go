package captures

import (
	"fmt"

	"github.com/JaimeStill/tribunal/internal/tribunals"
)

// Registry maps capture types to executors.
type Registry struct {
	executors map[tribunals.CaptureType]Executor
}

// NewRegistry builds every executor over the same dependencies.
func NewRegistry(d Deps) *Registry {
	return NewRegistryOf(
		NewDocket(d),
		NewHearings(d),
		NewPending(d),
		NewTimeline(d),
	)
}

// NewRegistryOf registers the given executors. A later executor replaces
// an earlier one of the same type.
func NewRegistryOf(executors ...Executor) *Registry {
	r := &Registry{executors: make(map[tribunals.CaptureType]Executor, len(executors))}
	for _, e := range executors {
		r.executors[e.Type()] = e
	}
	return r
}

// Get returns the executor for t.
func (r *Registry) Get(t tribunals.CaptureType) (Executor, error) {
	e, ok := r.executors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tribunals.ErrUnknownCaptureType, t)
	}
	return e, nil
}
