package capturelogs

import (
	"net/http"

	"github.com/google/uuid"
)

// ActorHeader carries the caller identity set by the upstream permission
// gate.
const ActorHeader = "X-Actor-ID"

// ActorFrom returns the caller identity of r, or uuid.Nil when the header is
// missing or malformed. Commands record uuid.Nil as SystemActor.
func ActorFrom(r *http.Request) uuid.UUID {
	actor, err := uuid.Parse(r.Header.Get(ActorHeader))
	if err != nil {
		return uuid.Nil
	}
	return actor
}
