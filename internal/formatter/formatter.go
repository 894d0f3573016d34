// package formatter writes run report artifacts (listened, duplicates, history snapshots) as JSON files
package formatter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/shared"
)

const (
	ListenedReport   = "listened.json"
	DuplicatesReport = "duplicates.json"
	HistoryReport    = "lastfm.json"
)

// ReportWriter writes JSON report artifacts into a directory.
//
// Each run replaces the previous artifacts; a stale report from an earlier
// run must never survive next to fresh ones.
type ReportWriter struct {
	dir string
}

// NewReportWriter creates a ReportWriter rooted at dir.
func NewReportWriter(dir string) *ReportWriter {
	if dir == "" {
		dir = "."
	}
	return &ReportWriter{dir: dir}
}

// WriteTracks writes a track report envelope to the named artifact.
func (w *ReportWriter) WriteTracks(filename, runID string, tracks []models.NormalizedTrack) (string, error) {
	report := models.Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Count:       len(tracks),
		Tracks:      tracks,
	}
	return w.write(filename, report)
}

// WriteHistory writes the cached listening history snapshot.
func (w *ReportWriter) WriteHistory(filename string, records []models.HistoryRecord) (string, error) {
	return w.write(filename, records)
}

// Clean removes any report artifacts left over from a previous run.
func (w *ReportWriter) Clean() error {
	for _, name := range []string{ListenedReport, DuplicatesReport, HistoryReport} {
		if _, err := shared.DeleteFile(filepath.Join(w.dir, name)); err != nil {
			return fmt.Errorf("failed to remove stale report %s: %w", name, err)
		}
	}
	return nil
}

func (w *ReportWriter) write(filename string, payload any) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
