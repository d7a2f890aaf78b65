package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/chorely/chorely/internal/database"
	"github.com/chorely/chorely/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTaskRepository struct {
	tasks *mongodriver.Collection
}

func NewMongoTaskRepository(m *database.Mongo) *MongoTaskRepository {
	return &MongoTaskRepository{tasks: m.DB.Collection(database.TasksCollection)}
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Owner       string             `bson:"owner"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *taskDocument) toModel() *models.Task {
	return &models.Task{
		ID:          d.ID.Hex(),
		Owner:       d.Owner,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ownedFilter matches the task only for its owner. An id that is not an
// ObjectID can never match.
func ownedFilter(owner, id string) (bson.D, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "owner", Value: owner}}, true
}

func (r *MongoTaskRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.tasks.Find(ctx, bson.D{{Key: "owner", Value: owner}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", database.MapMongoError(err))
	}
	defer cur.Close(ctx)

	tasks := make([]*models.Task, 0)
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, owner, id string) (*models.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return nil, models.ErrNotFound
	}

	var doc taskDocument
	if err := r.tasks.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := mongoNow()
	doc := taskDocument{
		Owner:       task.Owner,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := r.tasks.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", database.MapMongoError(err))
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to create task: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid

	return doc.toModel(), nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return nil, models.ErrNotFound
	}

	set := bson.D{{Key: "updated_at", Value: mongoNow()}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *patch.Completed})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := r.tasks.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return doc.toModel(), nil
}

func (r *MongoTaskRepository) Delete(ctx context.Context, owner, id string) (*models.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return nil, models.ErrNotFound
	}

	var doc taskDocument
	if err := r.tasks.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return doc.toModel(), nil
}
