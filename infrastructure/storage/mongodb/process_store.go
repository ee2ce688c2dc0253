package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/goap/domain/process"
)

// processDocument is the MongoDB document representation of a process.
// Filterable fields are top level; the full record is kept as JSON.
type processDocument struct {
	ID        string     `bson:"_id"`
	Goal      string     `bson:"goal"`
	Status    string     `bson:"status"`
	CreatedAt time.Time  `bson:"created_at"`
	EndTime   *time.Time `bson:"end_time,omitempty"`
	Data      string     `bson:"data"`
}

// ProcessStore is a MongoDB-backed implementation of process.Store.
type ProcessStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewProcessStore creates a new MongoDB process store.
func NewProcessStore(client *Client, collectionName string) *ProcessStore {
	if collectionName == "" {
		collectionName = "processes"
	}
	return &ProcessStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
}

// EnsureIndexes creates the indexes used by List and Count.
func (s *ProcessStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "goal", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	})
	return s.wrapError(err)
}

// Save persists a new process.
func (s *ProcessStore) Save(ctx context.Context, p *process.Process) error {
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	doc, err := toDocument(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return process.ErrProcessExists
		}
		return s.wrapError(err)
	}
	return nil
}

// Get retrieves a process by ID.
func (s *ProcessStore) Get(ctx context.Context, id string) (*process.Process, error) {
	if id == "" {
		return nil, process.ErrInvalidProcessID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc processDocument
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, process.ErrProcessNotFound
		}
		return nil, s.wrapError(err)
	}
	return fromDocument(&doc)
}

// Update replaces an existing process.
func (s *ProcessStore) Update(ctx context.Context, p *process.Process) error {
	if p.ID == "" {
		return process.ErrInvalidProcessID
	}

	doc, err := toDocument(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc)
	if err != nil {
		return s.wrapError(err)
	}
	if result.MatchedCount == 0 {
		return process.ErrProcessNotFound
	}
	return nil
}

// Delete removes a process by ID.
func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return process.ErrInvalidProcessID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.wrapError(err)
	}
	if result.DeletedCount == 0 {
		return process.ErrProcessNotFound
	}
	return nil
}

// List returns processes matching the filter.
func (s *ProcessStore) List(ctx context.Context, filter process.ListFilter) ([]*process.Process, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, buildFilter(filter), buildFindOptions(filter))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	processes := make([]*process.Process, 0)
	for cursor.Next(ctx) {
		var doc processDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, s.wrapError(err)
		}
		p, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		processes = append(processes, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}
	return processes, nil
}

// Count returns the number of processes matching the filter.
func (s *ProcessStore) Count(ctx context.Context, filter process.ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, s.wrapError(err)
	}
	return count, nil
}

func buildFilter(filter process.ListFilter) bson.M {
	mongoFilter := bson.M{}

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			statuses[i] = string(status)
		}
		mongoFilter["status"] = bson.M{"$in": statuses}
	}
	if filter.Goal != "" {
		mongoFilter["goal"] = filter.Goal
	}

	window := bson.M{}
	if !filter.FromTime.IsZero() {
		window["$gte"] = filter.FromTime
	}
	if !filter.ToTime.IsZero() {
		window["$lt"] = filter.ToTime
	}
	if len(window) > 0 {
		mongoFilter["created_at"] = window
	}

	return mongoFilter
}

func buildFindOptions(filter process.ListFilter) *options.FindOptions {
	opts := options.Find()

	sortField := "created_at"
	switch filter.OrderBy {
	case process.OrderByEndTime:
		sortField = "end_time"
	case process.OrderByID:
		sortField = "_id"
	case process.OrderByStatus:
		sortField = "status"
	}

	sortDir := 1
	if filter.Descending {
		sortDir = -1
	}
	sort := bson.D{{Key: sortField, Value: sortDir}}
	if sortField != "_id" {
		sort = append(sort, bson.E{Key: "_id", Value: sortDir})
	}
	opts.SetSort(sort)

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	return opts
}

func toDocument(p *process.Process) (*processDocument, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	doc := &processDocument{
		ID:        p.ID,
		Goal:      p.Goal,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		Data:      string(data),
	}
	if !p.EndTime.IsZero() {
		end := p.EndTime
		doc.EndTime = &end
	}
	return doc, nil
}

func fromDocument(doc *processDocument) (*process.Process, error) {
	var p process.Process
	if err := json.Unmarshal([]byte(doc.Data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProcessStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(process.ErrOperationTimeout, err)
	}
	return errors.Join(process.ErrConnectionFailed, err)
}

var _ process.Store = (*ProcessStore)(nil)
