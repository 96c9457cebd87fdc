package tribunals

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/tribunal/pkg/repository"
)

// System resolves credentials and portal endpoints.
type System interface {
	// Credential loads a credential by id. Inactive credentials return
	// ErrCredentialInactive.
	Credential(ctx context.Context, id uuid.UUID) (*Credential, error)
	// ResolveCredential finds the active credential of a lawyer for a tribunal and degree.
	ResolveCredential(ctx context.Context, lawyerID uuid.UUID, tribunal string, degree Degree) (*Credential, error)
	// Portal loads the endpoints of a tribunal at a degree.
	Portal(ctx context.Context, code string, degree Degree) (*Portal, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a read-only tribunal reference repository.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "tribunals"),
	}
}

const credentialColumns = `id, tribunal_code, degree, lawyer_id, username, login_secret, active`

func (r *repo) Credential(ctx context.Context, id uuid.UUID) (*Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	c, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanCredential)
	if err != nil {
		return nil, repository.MapError(err, ErrCredentialNotFound, err)
	}
	if !c.Active {
		return nil, fmt.Errorf("%w: %s", ErrCredentialInactive, id)
	}
	return &c, nil
}

func (r *repo) ResolveCredential(ctx context.Context, lawyerID uuid.UUID, tribunal string, degree Degree) (*Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM credentials
		WHERE lawyer_id = $1 AND tribunal_code = $2 AND degree = $3 AND active
		ORDER BY updated_at DESC
		LIMIT 1`

	c, err := repository.QueryOne(ctx, r.db, q, []any{lawyerID, tribunal, degree}, scanCredential)
	if err != nil {
		return nil, repository.MapError(err, ErrCredentialNotFound, err)
	}
	return &c, nil
}

func (r *repo) Portal(ctx context.Context, code string, degree Degree) (*Portal, error) {
	q := `SELECT code, degree, base_url, api_url, login_url
		FROM tribunal_configs WHERE code = $1 AND degree = $2`

	p, err := repository.QueryOne(ctx, r.db, q, []any{code, degree}, scanPortal)
	if err != nil {
		return nil, repository.MapError(err, ErrPortalNotFound, err)
	}
	return &p, nil
}

func scanCredential(s repository.Scanner) (Credential, error) {
	var c Credential
	err := s.Scan(&c.ID, &c.TribunalCode, &c.Degree, &c.LawyerID, &c.Username, &c.LoginSecret, &c.Active)
	return c, err
}

func scanPortal(s repository.Scanner) (Portal, error) {
	var p Portal
	err := s.Scan(&p.Code, &p.Degree, &p.BaseURL, &p.APIURL, &p.LoginURL)
	return p, err
}
