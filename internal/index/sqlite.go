package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"songstorage/pkg/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteIndex stores records in a single SQLite table. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type SQLiteIndex struct {
	conn   *sql.DB
	logger *logrus.Logger

	insertSongStmt *sql.Stmt
	deleteSongStmt *sql.Stmt
}

// NewSQLiteIndex opens (or creates) the database at dbPath and ensures the
// songs table and its indices exist. Caller should Close() it when finished.
func NewSQLiteIndex(dbPath string, logger *logrus.Logger) (*SQLiteIndex, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	idx := &SQLiteIndex{
		conn:   conn,
		logger: logger,
	}

	if err := idx.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := idx.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Debug("SQLite index initialized")
	return idx, nil
}

// createTables is idempotent and safe to call multiple times.
func (db *SQLiteIndex) createTables() error {
	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		year TEXT NOT NULL,
		genre TEXT NOT NULL,
		duration INTEGER DEFAULT 0,
		file_size INTEGER DEFAULT 0,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);",
		"CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);",
		"CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album);",
		"CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs(genre);",
	}

	if _, err := db.conn.Exec(songsTable); err != nil {
		return err
	}
	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}
	return nil
}

func (db *SQLiteIndex) prepareStatements() error {
	var err error

	db.insertSongStmt, err = db.conn.Prepare(`
		INSERT INTO songs (id, file_name, title, artist, album, year, genre, duration, file_size, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert song statement: %w", err)
	}

	db.deleteSongStmt, err = db.conn.Prepare(`DELETE FROM songs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete song statement: %w", err)
	}

	return nil
}

// Insert stores a new record under a fresh UUID and returns it.
func (db *SQLiteIndex) Insert(ctx context.Context, song models.Song) (string, error) {
	id := uuid.New().String()
	if song.AddedAt.IsZero() {
		song.AddedAt = time.Now()
	}

	_, err := db.insertSongStmt.ExecContext(ctx,
		id, song.FileName, song.Title, song.Artist, song.Album, song.Year, song.Genre,
		song.Duration, song.FileSize, song.AddedAt.UTC())
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, song.FileName)
		}
		db.logger.WithError(err).WithField("file_name", song.FileName).Error("Failed to insert song")
		return "", err
	}
	return id, nil
}

// Find returns the records matching every constraint of filter, oldest first.
func (db *SQLiteIndex) Find(ctx context.Context, filter Filter) ([]models.Song, error) {
	if err := checkFields(filter); err != nil {
		return nil, err
	}

	query := `
		SELECT id, file_name, title, artist, album, year, genre, duration, file_size, added_at
		FROM songs`
	var conds []string
	var args []interface{}
	for _, f := range filterOrder {
		if v, ok := filter[f]; ok {
			conds = append(conds, string(f)+" = ?")
			args = append(args, v)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		db.logger.WithError(err).Error("Failed to query songs")
		return nil, err
	}
	defer rows.Close()
	return scanSongRows(rows)
}

// UpdateFields merges fields into the record with the given id.
func (db *SQLiteIndex) UpdateFields(ctx context.Context, id string, fields Fields) error {
	if err := checkFields(fields); err != nil {
		return err
	}

	var sets []string
	var args []interface{}
	for _, f := range filterOrder {
		if v, ok := fields[f]; ok {
			sets = append(sets, string(f)+" = ?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		var count int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs WHERE id = ?", id).Scan(&count); err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}

	args = append(args, id)
	result, err := db.conn.ExecContext(ctx,
		"UPDATE songs SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrDuplicate, fields[models.FieldFileName])
		}
		db.logger.WithError(err).WithField("song_id", id).Error("Failed to update song")
		return err
	}
	return expectOneRow(result)
}

// Delete removes the record with the given id.
func (db *SQLiteIndex) Delete(ctx context.Context, id string) error {
	result, err := db.deleteSongStmt.ExecContext(ctx, id)
	if err != nil {
		db.logger.WithError(err).WithField("song_id", id).Error("Failed to delete song")
		return err
	}
	return expectOneRow(result)
}

// Close closes the prepared statements and the database connection.
func (db *SQLiteIndex) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertSongStmt, db.deleteSongStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// filterOrder fixes the column order of generated SQL.
var filterOrder = []models.Field{
	models.FieldFileName,
	models.FieldTitle,
	models.FieldArtist,
	models.FieldAlbum,
	models.FieldYear,
	models.FieldGenre,
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanSongRows scans song result sets. Callers must have already deferred
// rows.Close().
func scanSongRows(rows *sql.Rows) ([]models.Song, error) {
	var songs []models.Song
	for rows.Next() {
		var song models.Song
		var addedAt sql.NullTime
		if err := rows.Scan(&song.ID, &song.FileName, &song.Title, &song.Artist, &song.Album,
			&song.Year, &song.Genre, &song.Duration, &song.FileSize, &addedAt); err != nil {
			return nil, err
		}
		if addedAt.Valid {
			song.AddedAt = addedAt.Time
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
