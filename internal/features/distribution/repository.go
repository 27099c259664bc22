package distribution

import (
	"context"
	"time"

	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DistributionRepository interface {
	// Upsert stores the one distribution config a report has
	Upsert(ctx context.Context, dist *Distribution) error
	GetByReport(ctx context.Context, reportID primitive.ObjectID) (*Distribution, error)
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error
}

type DistributionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDistributionRepository(db *database.MongodbDB) DistributionRepository {
	return &DistributionRepositoryImpl{
		Collection: db.DB.Collection("report_distributions"),
	}
}

func (r *DistributionRepositoryImpl) Upsert(ctx context.Context, dist *Distribution) error {
	now := time.Now()
	dist.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"is_enabled":       dist.IsEnabled,
			"subject_template": dist.SubjectTemplate,
			"body_template":    dist.BodyTemplate,
			"recipients":       dist.Recipients,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"report_id":  dist.ReportID,
			"created_at": now,
		},
	}

	_, err := r.Collection.UpdateOne(ctx,
		bson.M{"report_id": dist.ReportID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *DistributionRepositoryImpl) GetByReport(ctx context.Context, reportID primitive.ObjectID) (*Distribution, error) {
	var dist Distribution
	err := r.Collection.FindOne(ctx, bson.M{"report_id": reportID}).Decode(&dist)
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

func (r *DistributionRepositoryImpl) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"report_id": reportID})
	return err
}
