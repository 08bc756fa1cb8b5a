package index

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"songstorage/pkg/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	bleveSeqField      = "seq"
	bleveDurationField = "duration"
	bleveSizeField     = "file_size"
	bleveAddedField    = "added_at"
)

// BleveIndex keeps records as documents in a Bleve index. Text fields use the
// keyword analyzer so term queries are exact matches.
type BleveIndex struct {
	index  bleve.Index
	mu     sync.Mutex
	seq    int64
	logger *logrus.Logger
}

// NewBleveIndex opens the index directory at path, creating it when missing.
// An empty path creates a memory-only index.
func NewBleveIndex(path string, logger *logrus.Logger) (*BleveIndex, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	var idx bleve.Index
	var err error
	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(newSongMapping())
	default:
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			idx, err = bleve.New(path, newSongMapping())
		} else {
			idx, err = bleve.Open(path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	logger.WithField("index_path", path).Debug("Bleve index initialized")
	return &BleveIndex{index: idx, logger: logger}, nil
}

func newSongMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentStaticMapping()
	for _, f := range filterOrder {
		doc.AddFieldMappingsAt(string(f), bleve.NewKeywordFieldMapping())
	}
	doc.AddFieldMappingsAt(bleveSeqField, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(bleveDurationField, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(bleveSizeField, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(bleveAddedField, bleve.NewDateTimeFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// nextSeq returns a strictly increasing ordering key.
func (b *BleveIndex) nextSeq() int64 {
	now := time.Now().UnixMicro()
	if now <= b.seq {
		now = b.seq + 1
	}
	b.seq = now
	return now
}

// Insert indexes a new document under a fresh UUID.
func (b *BleveIndex) Insert(ctx context.Context, song models.Song) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.search(ctx, Filter{models.FieldFileName: song.FileName})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, song.FileName)
	}

	if song.AddedAt.IsZero() {
		song.AddedAt = time.Now()
	}
	id := uuid.New().String()
	doc := map[string]interface{}{
		bleveSeqField:      float64(b.nextSeq()),
		bleveDurationField: float64(song.Duration),
		bleveSizeField:     float64(song.FileSize),
		bleveAddedField:    song.AddedAt.UTC(),
	}
	for _, f := range filterOrder {
		doc[string(f)] = song.Get(f)
	}

	if err := b.index.Index(id, doc); err != nil {
		b.logger.WithError(err).WithField("file_name", song.FileName).Error("Failed to index song")
		return "", err
	}
	return id, nil
}

// Find returns the documents matching every term of filter in insertion order.
func (b *BleveIndex) Find(ctx context.Context, filter Filter) ([]models.Song, error) {
	if err := checkFields(filter); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.search(ctx, filter)
}

// UpdateFields re-indexes the document with fields merged in.
func (b *BleveIndex) UpdateFields(ctx context.Context, id string, fields Fields) error {
	if err := checkFields(fields); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.document(ctx, id)
	if err != nil {
		return err
	}
	if newName, ok := fields[models.FieldFileName]; ok && newName != doc[string(models.FieldFileName)] {
		clash, err := b.search(ctx, Filter{models.FieldFileName: newName})
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicate, newName)
		}
	}
	for f, v := range fields {
		doc[string(f)] = v
	}
	if err := b.index.Index(id, doc); err != nil {
		b.logger.WithError(err).WithField("song_id", id).Error("Failed to update song")
		return err
	}
	return nil
}

// Delete removes a document by id.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.document(ctx, id); err != nil {
		return err
	}
	if err := b.index.Delete(id); err != nil {
		b.logger.WithError(err).WithField("song_id", id).Error("Failed to delete song")
		return err
	}
	return nil
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func (b *BleveIndex) search(ctx context.Context, filter Filter) ([]models.Song, error) {
	var q bleveQuery.Query
	if len(filter) == 0 {
		q = bleve.NewMatchAllQuery()
	} else {
		terms := make([]bleveQuery.Query, 0, len(filter))
		for _, f := range filterOrder {
			v, ok := filter[f]
			if !ok {
				continue
			}
			tq := bleve.NewTermQuery(v)
			tq.SetField(string(f))
			terms = append(terms, tq)
		}
		q = bleve.NewConjunctionQuery(terms...)
	}

	hits, err := b.run(ctx, q)
	if err != nil {
		return nil, err
	}
	songs := make([]models.Song, 0, len(hits))
	for _, hit := range hits {
		songs = append(songs, songFromHit(hit))
	}
	return songs, nil
}

// document loads the stored fields of one document.
func (b *BleveIndex) document(ctx context.Context, id string) (map[string]interface{}, error) {
	hits, err := b.run(ctx, bleve.NewDocIDQuery([]string{id}))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}
	doc := make(map[string]interface{}, len(hits[0].Fields))
	for k, v := range hits[0].Fields {
		doc[k] = v
	}
	return doc, nil
}

func (b *BleveIndex) run(ctx context.Context, q bleveQuery.Query) (search.DocumentMatchCollection, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{bleveSeqField})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		b.logger.WithError(err).Error("Failed to search bleve index")
		return nil, err
	}
	return res.Hits, nil
}

func songFromHit(hit *search.DocumentMatch) models.Song {
	getStr := func(f string) string {
		if v, ok := hit.Fields[f].(string); ok {
			return v
		}
		return ""
	}
	getNum := func(f string) float64 {
		if v, ok := hit.Fields[f].(float64); ok {
			return v
		}
		return 0
	}

	song := models.Song{ID: hit.ID}
	for _, f := range filterOrder {
		song.Set(f, getStr(string(f)))
	}
	song.Duration = int(getNum(bleveDurationField))
	song.FileSize = int64(getNum(bleveSizeField))
	if t, err := time.Parse(time.RFC3339Nano, getStr(bleveAddedField)); err == nil {
		song.AddedAt = t
	}
	return song
}
