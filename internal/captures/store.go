package captures

import (
	"context"
	"database/sql"

	"github.com/JaimeStill/tribunal/pkg/repository"
)

// Store upserts normalized records. The conflict key of every table is the
// sole duplication guard, so each method is safe to repeat.
type Store interface {
	UpsertDocketEntry(ctx context.Context, e DocketEntry) error
	UpsertHearing(ctx context.Context, h Hearing) error
	UpsertPendingFiling(ctx context.Context, p PendingFiling) error
	// UpsertTimelineItem keeps previously stored document fields when the
	// incoming item carries none.
	UpsertTimelineItem(ctx context.Context, t TimelineItem) error
}

type pgStore struct {
	db *sql.DB
}

// NewStore creates a PostgreSQL-backed Store.
func NewStore(db *sql.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) UpsertDocketEntry(ctx context.Context, e DocketEntry) error {
	q := `
		INSERT INTO docket_entries(
			tribunal_code, degree, external_id, lawyer_id, process_number,
			class, court, plaintiff, defendant, confidential, filed_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tribunal_code, degree, external_id) DO UPDATE SET
			lawyer_id = EXCLUDED.lawyer_id,
			process_number = EXCLUDED.process_number,
			class = EXCLUDED.class,
			court = EXCLUDED.court,
			plaintiff = EXCLUDED.plaintiff,
			defendant = EXCLUDED.defendant,
			confidential = EXCLUDED.confidential,
			filed_at = EXCLUDED.filed_at,
			archived_at = EXCLUDED.archived_at,
			updated_at = NOW()`

	return repository.ExecExpectOne(ctx, s.db, q,
		e.TribunalCode, e.Degree, e.ExternalID, e.LawyerID, e.ProcessNumber,
		e.Class, e.Court, e.Plaintiff, e.Defendant, e.Confidential, e.FiledAt, e.ArchivedAt,
	)
}

func (s *pgStore) UpsertHearing(ctx context.Context, h Hearing) error {
	q := `
		INSERT INTO hearings(
			tribunal_code, degree, external_id, lawyer_id, process_external_id, process_number,
			starts_at, ends_at, status, room, kind, virtual, court)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tribunal_code, degree, external_id) DO UPDATE SET
			lawyer_id = EXCLUDED.lawyer_id,
			process_external_id = EXCLUDED.process_external_id,
			process_number = EXCLUDED.process_number,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			status = EXCLUDED.status,
			room = EXCLUDED.room,
			kind = EXCLUDED.kind,
			virtual = EXCLUDED.virtual,
			court = EXCLUDED.court,
			updated_at = NOW()`

	return repository.ExecExpectOne(ctx, s.db, q,
		h.TribunalCode, h.Degree, h.ExternalID, h.LawyerID, h.ProcessExternalID, h.ProcessNumber,
		h.StartsAt, h.EndsAt, h.Status, h.Room, h.Kind, h.Virtual, h.Court,
	)
}

func (s *pgStore) UpsertPendingFiling(ctx context.Context, p PendingFiling) error {
	q := `
		INSERT INTO pending_filings(
			tribunal_code, degree, external_id, lawyer_id, process_external_id, process_number,
			deadline_filter, document_id, notice_created_at, acknowledged_at, deadline_at, overdue,
			document_key, document_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tribunal_code, degree, external_id) DO UPDATE SET
			lawyer_id = EXCLUDED.lawyer_id,
			process_number = EXCLUDED.process_number,
			deadline_filter = EXCLUDED.deadline_filter,
			notice_created_at = EXCLUDED.notice_created_at,
			acknowledged_at = EXCLUDED.acknowledged_at,
			deadline_at = EXCLUDED.deadline_at,
			overdue = EXCLUDED.overdue,
			document_key = COALESCE(EXCLUDED.document_key, pending_filings.document_key),
			document_status = COALESCE(EXCLUDED.document_status, pending_filings.document_status),
			updated_at = NOW()`

	return repository.ExecExpectOne(ctx, s.db, q,
		p.TribunalCode, p.Degree, p.ExternalID, p.LawyerID, p.ProcessExternalID, p.ProcessNumber,
		p.DeadlineFilter, p.DocumentID, p.NoticeCreatedAt, p.AcknowledgedAt, p.DeadlineAt, p.Overdue,
		p.DocumentKey, p.DocumentStatus,
	)
}

func (s *pgStore) UpsertTimelineItem(ctx context.Context, t TimelineItem) error {
	q := `
		INSERT INTO timeline_items(
			tribunal_code, degree, process_id, external_id, title, kind, occurred_at, is_document,
			document_key, content_type, size_bytes, page_count, download_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tribunal_code, degree, process_id, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			kind = EXCLUDED.kind,
			occurred_at = EXCLUDED.occurred_at,
			is_document = EXCLUDED.is_document,
			document_key = COALESCE(EXCLUDED.document_key, timeline_items.document_key),
			content_type = COALESCE(EXCLUDED.content_type, timeline_items.content_type),
			size_bytes = COALESCE(EXCLUDED.size_bytes, timeline_items.size_bytes),
			page_count = COALESCE(EXCLUDED.page_count, timeline_items.page_count),
			download_status = COALESCE(EXCLUDED.download_status, timeline_items.download_status),
			updated_at = NOW()`

	return repository.ExecExpectOne(ctx, s.db, q,
		t.TribunalCode, t.Degree, t.ProcessID, t.ExternalID, t.Title, t.Kind, t.OccurredAt, t.IsDocument,
		t.DocumentKey, t.ContentType, t.SizeBytes, t.PageCount, t.DownloadStatus,
	)
}
