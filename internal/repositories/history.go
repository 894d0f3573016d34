package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tidesweep/internal/models"
)

// HistoryRepository persists listening history records in the tracks table.
//
// Records are append-only; the cache grows with each incremental sync and is
// never rewritten, the date watermark makes re-runs cheap.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert stores a single history record.
func (r *HistoryRepository) Insert(record models.HistoryRecord) error {
	query := `
		INSERT INTO tracks (artist, album, name, date)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		record.Artist,
		record.Album,
		record.Name,
		record.Date.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

// Exists reports whether any record matches the artist and name exactly.
func (r *HistoryRepository) Exists(artist, name string) (bool, error) {
	query := `SELECT 1 FROM tracks WHERE artist = ? AND name = ? LIMIT 1`

	var one int
	err := r.db.QueryRow(query, artist, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query history record: %w", err)
	}

	return true, nil
}

// LatestDate returns the timestamp of the most recent record, or the zero
// time when the cache is empty.
func (r *HistoryRepository) LatestDate() (time.Time, error) {
	query := `SELECT date FROM tracks ORDER BY date DESC LIMIT 1`

	var raw string
	err := r.db.QueryRow(query).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest record: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored date %q: %w", raw, err)
	}

	return parsed, nil
}

// Count returns the number of cached history records.
func (r *HistoryRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return count, nil
}

// List returns every cached record ordered oldest first.
func (r *HistoryRepository) List() ([]models.HistoryRecord, error) {
	query := `SELECT artist, album, name, date FROM tracks ORDER BY date ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		record, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history records: %w", err)
	}

	return records, nil
}

func scanHistoryRow(rows *sql.Rows) (models.HistoryRecord, error) {
	var record models.HistoryRecord
	var raw string

	if err := rows.Scan(&record.Artist, &record.Album, &record.Name, &raw); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to scan history record: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to parse stored date %q: %w", raw, err)
	}
	record.Date = parsed

	return record, nil
}
