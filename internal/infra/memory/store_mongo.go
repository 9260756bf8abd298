package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"genui/internal/domain"
)

const mongoCloseTimeout = 5 * time.Second

// MongoStore maps each memory collection to a MongoDB collection. Ranking
// happens in process so that plain (non-Atlas) deployments work.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

type mongoMemoryDocument struct {
	ID        string    `bson:"_id"`
	Document  string    `bson:"document"`
	Metadata  string    `bson:"metadata"`
	Embedding []float64 `bson:"embedding,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (doc mongoMemoryDocument) toDomain() domain.MemoryDocument {
	return domain.MemoryDocument{
		ID:        doc.ID,
		Document:  doc.Document,
		Metadata:  decodeMetadata(doc.Metadata),
		Embedding: float32Embedding(doc.Embedding),
		CreatedAt: doc.CreatedAt,
	}
}

func (ms *MongoStore) EnsureCollection(ctx context.Context, name string) error {
	_, err := ms.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetName("created_at"),
	})
	return err
}

func (ms *MongoStore) Upsert(ctx context.Context, collection string, doc domain.MemoryDocument) error {
	metadataJSON, err := json.Marshal(nonNilMetadata(doc.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	record := mongoMemoryDocument{
		ID:        doc.ID,
		Document:  doc.Document,
		Metadata:  string(metadataJSON),
		Embedding: float64Embedding(doc.Embedding),
		CreatedAt: doc.CreatedAt.UTC(),
	}
	_, err = ms.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": doc.ID}, record, options.Replace().SetUpsert(true))
	return err
}

func (ms *MongoStore) Query(ctx context.Context, collection string, query Query) ([]domain.MemoryMatch, error) {
	docs, err := ms.List(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	return rankDocuments(docs, query), nil
}

func (ms *MongoStore) List(ctx context.Context, collection string, where map[string]any) ([]domain.MemoryDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := ms.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []domain.MemoryDocument
	for cursor.Next(ctx) {
		var doc mongoMemoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return filterDocuments(docs, where), nil
}

func (ms *MongoStore) Count(ctx context.Context, collection string) (int, error) {
	count, err := ms.db.Collection(collection).CountDocuments(ctx, bson.M{})
	return int(count), err
}

func (ms *MongoStore) DropCollection(ctx context.Context, name string) error {
	return ms.db.Collection(name).Drop(ctx)
}

func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
