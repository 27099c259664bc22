package execution

import (
	"context"
	"fmt"
	"time"

	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrInvalidTransition is returned when a status change does not match the
// record's current state, e.g. completing an already cancelled run
var ErrInvalidTransition = fmt.Errorf("invalid execution status transition")

type CompletionResult struct {
	FilePath string
	FileSize int64
	RowCount int
}

type ExecutionRepository interface {
	Create(ctx context.Context, exec *Execution) error
	Get(ctx context.Context, id primitive.ObjectID) (*Execution, error)
	List(ctx context.Context, limit int64) ([]Execution, error)
	ListByReport(ctx context.Context, reportID primitive.ObjectID, limit int64) ([]Execution, error)

	// Guarded transitions. Each matches on the expected current status and
	// returns ErrInvalidTransition when the record moved on already.
	MarkRunning(ctx context.Context, id primitive.ObjectID) error
	MarkCompleted(ctx context.Context, id primitive.ObjectID, result CompletionResult) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
	MarkCancelled(ctx context.Context, id primitive.ObjectID) error

	UpdateEmailOutcome(ctx context.Context, id primitive.ObjectID, sent int, status EmailStatus) error

	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error

	// DeleteOlderThan purges terminal executions whose creation predates the
	// cutoff and returns their artifact paths for file cleanup
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type ExecutionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionRepository(db *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		Collection: db.DB.Collection("report_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Create(ctx context.Context, exec *Execution) error {
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	if exec.Status == "" {
		exec.Status = StatusPending
	}
	exec.CreatedAt = time.Now()
	exec.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, exec)
	return err
}

func (r *ExecutionRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Execution, error) {
	var exec Execution
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exec)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) List(ctx context.Context, limit int64) ([]Execution, error) {
	return r.find(ctx, bson.M{}, limit)
}

func (r *ExecutionRepositoryImpl) ListByReport(ctx context.Context, reportID primitive.ObjectID, limit int64) ([]Execution, error) {
	return r.find(ctx, bson.M{"report_id": reportID}, limit)
}

func (r *ExecutionRepositoryImpl) find(ctx context.Context, filter bson.M, limit int64) ([]Execution, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var execs []Execution
	if err := cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *ExecutionRepositoryImpl) MarkRunning(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	return r.transition(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"status": StatusRunning, "started_at": now, "updated_at": now},
	)
}

func (r *ExecutionRepositoryImpl) MarkCompleted(ctx context.Context, id primitive.ObjectID, result CompletionResult) error {
	now := time.Now()
	return r.transition(ctx,
		bson.M{"_id": id, "status": StatusRunning},
		bson.M{
			"status":       StatusCompleted,
			"completed_at": now,
			"file_path":    result.FilePath,
			"file_size":    result.FileSize,
			"row_count":    result.RowCount,
			"updated_at":   now,
		},
	)
}

func (r *ExecutionRepositoryImpl) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	now := time.Now()
	return r.transition(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []Status{StatusPending, StatusRunning}}},
		bson.M{
			"status":        StatusFailed,
			"completed_at":  now,
			"error_message": reason,
			"updated_at":    now,
		},
	)
}

func (r *ExecutionRepositoryImpl) MarkCancelled(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	return r.transition(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []Status{StatusPending, StatusRunning}}},
		bson.M{
			"status":       StatusCancelled,
			"completed_at": now,
			"updated_at":   now,
		},
	)
}

func (r *ExecutionRepositoryImpl) transition(ctx context.Context, filter, set bson.M) error {
	res, err := r.Collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *ExecutionRepositoryImpl) UpdateEmailOutcome(ctx context.Context, id primitive.ObjectID, sent int, status EmailStatus) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"emails_sent":  sent,
			"email_status": status,
			"updated_at":   time.Now(),
		},
	})
	return err
}

func (r *ExecutionRepositoryImpl) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"report_id": reportID})
	return err
}

func (r *ExecutionRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	filter := bson.M{
		"status":     bson.M{"$in": []Status{StatusCompleted, StatusFailed, StatusCancelled}},
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.Collection.Find(ctx, filter,
		options.Find().SetProjection(bson.M{"file_path": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		FilePath string `bson:"file_path"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.FilePath != "" {
			paths = append(paths, doc.FilePath)
		}
	}

	if _, err := r.Collection.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return paths, nil
}
