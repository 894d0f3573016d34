package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/services"
)

// HistorySyncResult summarizes one incremental history ingestion.
type HistorySyncResult struct {
	Pages    int  // Pages fetched from the API
	Fetched  int  // Scrobbles seen, excluding now-playing entries
	Inserted int  // New records written to the cache
	Skipped  int  // Records the cache already held
	Partial  bool // A page fetch failed after earlier pages succeeded
}

// SyncHistory pulls scrobbles newer than the cache watermark and appends
// them to the store, oldest first.
//
// A fetch failure after at least one successful page keeps what was
// collected and marks the result partial; the watermark guarantees the next
// run picks up the gap.
func (e *Engine) SyncHistory(ctx context.Context, progress chan<- ProgressUpdate) (*HistorySyncResult, error) {
	result := &HistorySyncResult{}

	var from int64
	latest, err := e.history.LatestDate()
	if err != nil {
		return nil, err
	}
	if !latest.IsZero() {
		from = latest.Unix() + 1
	}

	var scrobbles []services.Scrobble
	totalPages := 1
	for page := 1; ; page++ {
		e.sendProgress(progress, syncHistoryUpdate(page, totalPages))

		histPage, err := e.lastfm.RecentTracks(ctx, page, from)
		if err != nil {
			if result.Pages == 0 {
				return nil, err
			}
			e.logger.Warn("history fetch failed mid-sync, keeping collected pages", "page", page, "error", err)
			result.Partial = true
			break
		}
		result.Pages++
		totalPages = histPage.TotalPages

		for _, s := range histPage.Scrobbles {
			if s.NowPlaying {
				continue
			}
			scrobbles = append(scrobbles, s)
		}

		if len(histPage.Scrobbles) == 0 || histPage.Page >= histPage.TotalPages {
			break
		}
		// A page shorter than the applied limit is the last one even when
		// totalPages claims there are more.
		if histPage.PerPage > 0 && len(histPage.Scrobbles) < histPage.PerPage {
			break
		}
	}

	result.Fetched = len(scrobbles)

	// Pages arrive newest first; insert oldest first so the watermark
	// advances monotonically even if a later insert fails.
	slices.Reverse(scrobbles)

	for _, s := range scrobbles {
		record := models.HistoryRecord{
			Artist: models.NormalizeArtistCredit(s.Artist),
			Album:  s.Album,
			Name:   s.Name,
			Date:   s.Date,
		}

		exists, err := e.history.Exists(record.Artist, record.Name)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		if err := e.history.Insert(record); err != nil {
			return result, fmt.Errorf("failed to cache scrobble %q: %w", record.Name, err)
		}
		result.Inserted++
	}

	e.sendProgress(progress, historySyncedUpdate(result.Inserted, result.Skipped))
	return result, nil
}
