package rawlogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JaimeStill/tribunal/pkg/docstore"
	"github.com/JaimeStill/tribunal/pkg/pagination"
)

type repo struct {
	coll       *mongo.Collection
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a raw log repository over the document store and registers
// its indexes for startup.
func New(store docstore.System, logger *slog.Logger, pagination pagination.Config) System {
	store.RegisterIndexes(EnsureIndexes)

	return &repo{
		coll:       store.Database().Collection(Collection),
		logger:     logger.With("system", "rawlogs"),
		pagination: pagination,
	}
}

// EnsureIndexes creates the captureLogId unique index and the
// (captureType, createdAt) listing index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(Collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "captureLogId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("capture_log_unique"),
		},
		{
			Keys:    bson.D{{Key: "captureType", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("capture_type_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", Collection, err)
	}
	return nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	now := time.Now().UTC()
	doc := Document{
		ID:           uuid.NewString(),
		CaptureLogID: cmd.CaptureLogID.String(),
		CaptureType:  cmd.CaptureType,
		Status:       StatusInProgress,
		TribunalCode: cmd.TribunalCode,
		Degree:       cmd.Degree,
		LawyerID:     cmd.LawyerID.String(),
		CredentialID: cmd.CredentialID.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Request:      Verbatim(cmd.Request),
		Logs:         []LogEntry{},
		Reprocessing: []Reprocessing{},
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert raw log: %w", err)
	}

	r.logger.Debug("raw log created", "id", doc.ID, "capture_log_id", doc.CaptureLogID)
	return &doc, nil
}

func (r *repo) Complete(ctx context.Context, id string, out Outcome) error {
	return r.close(ctx, id, StatusCompleted, out)
}

func (r *repo) Fail(ctx context.Context, id string, out Outcome) error {
	return r.close(ctx, id, StatusFailed, out)
}

func (r *repo) close(ctx context.Context, id string, status Status, out Outcome) error {
	payload := Verbatim(out.Payload)

	set := bson.D{
		{Key: "status", Value: status},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if payload != nil {
		set = append(set, bson.E{Key: "rawPayload", Value: []byte(payload)})
	}
	if out.Result != nil {
		set = append(set, bson.E{Key: "resultProcessed", Value: out.Result})
	}
	if out.Error != nil {
		set = append(set, bson.E{Key: "errorDetail", Value: out.Error})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(out.Logs) > 0 {
		update = append(update, bson.E{Key: "$push", Value: bson.D{
			{Key: "logs", Value: bson.D{{Key: "$each", Value: out.Logs}}},
		}})
	}

	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: StatusCompleted}}},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("close raw log %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Find(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrImmutable, id)
	}

	r.logger.Debug("raw log closed", "id", id, "status", status, "payload", payload != nil)
	return nil
}

func (r *repo) AttachReprocessing(ctx context.Context, id string, rp Reprocessing) error {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "reprocessing", Value: rp}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
	}

	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("attach reprocessing to %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) Find(ctx context.Context, id string) (*Document, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *repo) FindByCaptureLog(ctx context.Context, captureLogID uuid.UUID) (*Document, error) {
	return r.findOne(ctx, bson.D{{Key: "captureLogId", Value: captureLogID.String()}})
}

func (r *repo) findOne(ctx context.Context, filter bson.D) (*Document, error) {
	var doc Document
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find raw log: %w", err)
	}
	return &doc, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)
	filter := filters.Document(page.Search)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count raw logs: %w", err)
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "rawPayload", Value: 0}}).
		SetSort(sortDocument(page.Sort)).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.PageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query raw logs: %w", err)
	}

	var docs []Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode raw logs: %w", err)
	}

	result := pagination.NewPageResult(docs, int(total), page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Summarize(ctx context.Context, filters Filters) ([]Summary, error) {
	isStatus := func(s Status) bson.D {
		return bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$status", s}}}, 1, 0,
		}}}
	}
	sum := func(path string) bson.D {
		return bson.D{{Key: "$sum", Value: "$resultProcessed." + path}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filters.Document(nil)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "tribunalCode", Value: "$tribunalCode"},
				{Key: "captureType", Value: "$captureType"},
			}},
			{Key: "runs", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "failed", Value: bson.D{{Key: "$sum", Value: isStatus(StatusFailed)}}},
			{Key: "withPayload", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: "$rawPayload"}}, "binData"}}}, 1, 0,
			}}}}}},
			{Key: "expected", Value: sum("totals.expected")},
			{Key: "captured", Value: sum("totals.captured")},
			{Key: "persisted", Value: sum("totals.persisted")},
			{Key: "documentsExpected", Value: sum("documents.expected")},
			{Key: "documentsCaptured", Value: sum("documents.captured")},
			{Key: "documentsFailed", Value: sum("documents.failed")},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "tribunalCode", Value: "$_id.tribunalCode"},
			{Key: "captureType", Value: "$_id.captureType"},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "tribunalCode", Value: 1}, {Key: "captureType", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate raw logs: %w", err)
	}

	var out []Summary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode raw log summary: %w", err)
	}
	return out, nil
}
