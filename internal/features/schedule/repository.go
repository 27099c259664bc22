package schedule

import (
	"context"
	"time"

	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *Schedule) error
	Get(ctx context.Context, id primitive.ObjectID) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]Schedule, error)
	Update(ctx context.Context, schedule *Schedule) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error

	// FindDue returns enabled schedules whose next execution is at or before
	// the given instant
	FindDue(ctx context.Context, now time.Time) ([]Schedule, error)

	// Claim atomically advances a schedule's next execution from the value
	// the caller observed. It returns false when another poller won the
	// race, so a due schedule fires exactly once.
	Claim(ctx context.Context, id primitive.ObjectID, observed, next, firedAt time.Time) (bool, error)

	Disable(ctx context.Context, id primitive.ObjectID) error
}

type ScheduleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewScheduleRepository(db *database.MongodbDB) ScheduleRepository {
	return &ScheduleRepositoryImpl{
		Collection: db.DB.Collection("report_schedules"),
	}
}

func (r *ScheduleRepositoryImpl) Create(ctx context.Context, schedule *Schedule) error {
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, schedule)
	return err
}

func (r *ScheduleRepositoryImpl) Get(ctx context.Context, id primitive.ObjectID) (*Schedule, error) {
	var schedule Schedule
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepositoryImpl) List(ctx context.Context) ([]Schedule, error) {
	return r.find(ctx, bson.M{})
}

func (r *ScheduleRepositoryImpl) ListByReport(ctx context.Context, reportID primitive.ObjectID) ([]Schedule, error) {
	return r.find(ctx, bson.M{"report_id": reportID})
}

func (r *ScheduleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Schedule, error) {
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var schedules []Schedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *ScheduleRepositoryImpl) Update(ctx context.Context, schedule *Schedule) error {
	schedule.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"frequency":      schedule.Frequency,
			"day_of_week":    schedule.DayOfWeek,
			"day_of_month":   schedule.DayOfMonth,
			"time_of_day":    schedule.TimeOfDay,
			"timezone":       schedule.Timezone,
			"start_date":     schedule.StartDate,
			"end_date":       schedule.EndDate,
			"is_enabled":     schedule.IsEnabled,
			"next_execution": schedule.NextExecution,
			"updated_at":     schedule.UpdatedAt,
		},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": schedule.ID}, update)
	return err
}

func (r *ScheduleRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *ScheduleRepositoryImpl) DeleteByReport(ctx context.Context, reportID primitive.ObjectID) error {
	_, err := r.Collection.DeleteMany(ctx, bson.M{"report_id": reportID})
	return err
}

func (r *ScheduleRepositoryImpl) FindDue(ctx context.Context, now time.Time) ([]Schedule, error) {
	return r.find(ctx, bson.M{
		"is_enabled":     true,
		"next_execution": bson.M{"$lte": now},
	})
}

func (r *ScheduleRepositoryImpl) Claim(ctx context.Context, id primitive.ObjectID, observed, next, firedAt time.Time) (bool, error) {
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "next_execution": observed},
		bson.M{"$set": bson.M{
			"next_execution": next,
			"last_execution": firedAt,
			"updated_at":     time.Now(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *ScheduleRepositoryImpl) Disable(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_enabled": false, "updated_at": time.Now()},
	})
	return err
}
