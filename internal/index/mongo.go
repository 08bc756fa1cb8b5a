package index

import (
	"context"
	"fmt"
	"time"

	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// songDocument is the BSON shape of a record in the songs collection.
type songDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	FileName string             `bson:"file_name"`
	Title    string             `bson:"title"`
	Artist   string             `bson:"artist"`
	Album    string             `bson:"album"`
	Year     string             `bson:"year"`
	Genre    string             `bson:"genre"`
	Duration int                `bson:"duration"`
	FileSize int64              `bson:"file_size"`
	AddedAt  time.Time          `bson:"added_at"`
}

func (d songDocument) song() models.Song {
	return models.Song{
		ID:       d.ID.Hex(),
		FileName: d.FileName,
		Title:    d.Title,
		Artist:   d.Artist,
		Album:    d.Album,
		Year:     d.Year,
		Genre:    d.Genre,
		Duration: d.Duration,
		FileSize: d.FileSize,
		AddedAt:  d.AddedAt,
	}
}

// MongoIndex keeps records in a MongoDB collection; ids are ObjectID hex strings.
type MongoIndex struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *logrus.Logger
}

// NewMongoIndex connects to uri, verifies the server and ensures the unique
// file_name index on database.collection.
func NewMongoIndex(ctx context.Context, uri, database, collection string, timeout time.Duration, logger *logrus.Logger) (*MongoIndex, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: string(models.FieldFileName), Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create file_name index: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"database":   database,
		"collection": collection,
	}).Debug("MongoDB index initialized")

	return &MongoIndex{
		client:     client,
		collection: coll,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Insert stores a new document and returns its ObjectID in hex.
func (m *MongoIndex) Insert(ctx context.Context, song models.Song) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if song.AddedAt.IsZero() {
		song.AddedAt = time.Now()
	}
	doc := songDocument{
		FileName: song.FileName,
		Title:    song.Title,
		Artist:   song.Artist,
		Album:    song.Album,
		Year:     song.Year,
		Genre:    song.Genre,
		Duration: song.Duration,
		FileSize: song.FileSize,
		AddedAt:  song.AddedAt.UTC(),
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, song.FileName)
		}
		m.logger.WithError(err).WithField("file_name", song.FileName).Error("Failed to insert song")
		return "", err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// Find returns the documents matching filter in insertion order.
func (m *MongoIndex) Find(ctx context.Context, filter Filter) ([]models.Song, error) {
	if err := checkFields(filter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	query := bson.D{}
	for _, f := range filterOrder {
		if v, ok := filter[f]; ok {
			query = append(query, bson.E{Key: string(f), Value: v})
		}
	}

	cursor, err := m.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		m.logger.WithError(err).Error("Failed to query songs")
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []songDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(docs))
	for _, d := range docs {
		songs = append(songs, d.song())
	}
	return songs, nil
}

// UpdateFields applies a $set of the given fields to one document.
func (m *MongoIndex) UpdateFields(ctx context.Context, id string, fields Fields) error {
	if err := checkFields(fields); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	set := bson.D{}
	for _, f := range filterOrder {
		if v, ok := fields[f]; ok {
			set = append(set, bson.E{Key: string(f), Value: v})
		}
	}
	if len(set) == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	res, err := m.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, fields[models.FieldFileName])
		}
		m.logger.WithError(err).WithField("song_id", id).Error("Failed to update song")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one document by id.
func (m *MongoIndex) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		m.logger.WithError(err).WithField("song_id", id).Error("Failed to delete song")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (m *MongoIndex) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
