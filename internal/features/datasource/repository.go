package datasource

import (
	"context"
	"time"

	"go-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type DataSourceRepository interface {
	Create(ctx context.Context, ds *DataSource) error
	Get(ctx context.Context, id string) (*DataSource, error)
	List(ctx context.Context) ([]DataSource, error)
	Update(ctx context.Context, id string, ds *DataSource) error
	UpdateStatus(ctx context.Context, id string, status ConnectionStatus, testedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type DataSourceRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDataSourceRepository(db *database.MongodbDB) DataSourceRepository {
	return &DataSourceRepositoryImpl{
		Collection: db.DB.Collection("data_sources"),
	}
}

func (r *DataSourceRepositoryImpl) Create(ctx context.Context, ds *DataSource) error {
	if ds.ID.IsZero() {
		ds.ID = primitive.NewObjectID()
	}
	ds.CreatedAt = time.Now()
	ds.UpdatedAt = time.Now()
	if ds.ConnectionStatus == "" {
		ds.ConnectionStatus = StatusDisconnected
	}
	_, err := r.Collection.InsertOne(ctx, ds)
	return err
}

func (r *DataSourceRepositoryImpl) Get(ctx context.Context, id string) (*DataSource, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var ds DataSource
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&ds)
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (r *DataSourceRepositoryImpl) List(ctx context.Context) ([]DataSource, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sources []DataSource
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *DataSourceRepositoryImpl) Update(ctx context.Context, id string, ds *DataSource) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	ds.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":       ds.Name,
			"type":       ds.Type,
			"host":       ds.Host,
			"port":       ds.Port,
			"database":   ds.Database,
			"username":   ds.Username,
			"password":   ds.Password,
			"options":    ds.Options,
			"is_active":  ds.IsActive,
			"updated_at": ds.UpdatedAt,
		},
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *DataSourceRepositoryImpl) UpdateStatus(ctx context.Context, id string, status ConnectionStatus, testedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"connection_status": status,
			"last_tested":       testedAt,
		},
	})
	return err
}

func (r *DataSourceRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
