package report

import (
	"context"
	"time"

	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	Get(ctx context.Context, id primitive.ObjectID) (*Report, error)
	List(ctx context.Context) ([]Report, error)
	Update(ctx context.Context, report *Report) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// RecordExecution bumps the execution counter and last-executed stamp
	// after a run completes
	RecordExecution(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type ReportRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewReportRepository(db *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{
		Collection: db.DB.Collection("reports"),
	}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *Report) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	report.CreatedAt = time.Now()
	report.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, report)
	return err
}

func (r *ReportRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Report, error) {
	var report Report
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) List(ctx context.Context) ([]Report, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reports []Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, report *Report) error {
	report.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":              report.Name,
			"description":       report.Description,
			"table_refs":        report.TableRefs,
			"relationships":     report.Relationships,
			"fields":            report.Fields,
			"calculated_fields": report.CalculatedFields,
			"cte_definitions":   report.CTEDefinitions,
			"filters":           report.Filters,
			"format":            report.Format,
			"template":          report.Template,
			"layout":            report.Layout,
			"is_active":         report.IsActive,
			"updated_at":        report.UpdatedAt,
		},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": report.ID}, update)
	return err
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *ReportRepositoryImpl) RecordExecution(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"execution_count": 1},
		"$set": bson.M{"last_executed": at},
	})
	return err
}
