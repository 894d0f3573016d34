package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/services"
	"github.com/desertthunder/tidesweep/internal/shared"
)

// PlaylistService defines the Tidal operations the engine depends on.
// This abstraction allows for easier testing and decoupling from concrete implementation.
type PlaylistService interface {
	PlaylistItems(ctx context.Context, playlistID string) ([]services.PlaylistItem, error)
	ResolveTracks(ctx context.Context, trackIDs []string) ([]models.Track, error)
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int, error)
}

// HistoryService defines the Last.fm operations the engine depends on.
type HistoryService interface {
	RecentTracks(ctx context.Context, page int, from int64) (*services.HistoryPage, error)
}

// HistoryStore defines the persistence operations the engine depends on.
type HistoryStore interface {
	Insert(record models.HistoryRecord) error
	Exists(artist, name string) (bool, error)
	LatestDate() (time.Time, error)
	Count() (int, error)
	List() ([]models.HistoryRecord, error)
}

// EngineOpts bundles the dependencies and tuning knobs for an Engine.
type EngineOpts struct {
	Tidal      PlaylistService
	LastFM     HistoryService
	History    HistoryStore
	PlaylistID string
	Fuzzy      bool
	Threshold  float64
	Logger     *log.Logger
}

// Engine orchestrates history ingestion and playlist reconciliation.
type Engine struct {
	tidal      PlaylistService
	lastfm     HistoryService
	history    HistoryStore
	playlistID string
	fuzzy      bool
	threshold  float64
	logger     *log.Logger
}

// NewEngine creates an Engine from the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = 0.80
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Engine{
		tidal:      opts.Tidal,
		lastfm:     opts.LastFM,
		history:    opts.History,
		playlistID: opts.PlaylistID,
		fuzzy:      opts.Fuzzy,
		threshold:  opts.Threshold,
		logger:     opts.Logger,
	}
}

// RunOptions controls a full sync run.
type RunOptions struct {
	Purge  bool // Remove listened tracks from the playlist
	DryRun bool // Report what would be removed without mutating
}

// RunResult contains all data from a full sync run.
type RunResult struct {
	History      HistorySyncResult        // History ingestion outcome
	Playlist     []models.NormalizedTrack // Current playlist contents
	Listened     []models.NormalizedTrack // Playlist tracks found in history
	Duplicates   []models.NormalizedTrack // Exact repeats within the playlist
	Removed      int                      // Tracks removed when purging
	PurgeSkipped bool                     // Purge was requested but the playlist no longer matched
	DryRun       bool
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs a full sync: ingest new scrobbles, fetch and normalize the
// playlist, reconcile it against history, and optionally purge listened
// tracks.
//
// History ingestion failures degrade the run rather than aborting it; a
// partial cache still yields a useful, if conservative, reconciliation.
// Likewise a purge that no longer matches the playlist is skipped and
// recorded on the result, so report artifacts are still produced.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOptions) (*RunResult, error) {
	if e.tidal == nil {
		return nil, fmt.Errorf("%w: Tidal service not initialized", shared.ErrServiceUnavailable)
	}
	if e.lastfm == nil {
		return nil, fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}

	result := &RunResult{DryRun: opts.DryRun}

	historyResult, err := e.SyncHistory(ctx, progress)
	if err != nil {
		return nil, err
	}
	result.History = *historyResult

	playlist, err := e.FetchPlaylist(ctx, progress)
	if err != nil {
		return nil, err
	}
	result.Playlist = playlist

	reconciled, err := e.Reconcile(playlist)
	if err != nil {
		return nil, err
	}
	result.Listened = reconciled.Listened
	result.Duplicates = reconciled.Duplicates

	e.sendProgress(progress, reconcileUpdate(len(result.Listened), len(result.Duplicates)))

	if opts.Purge && len(result.Listened) > 0 {
		if opts.DryRun {
			e.logger.Info("dry run, skipping removal", "listened", len(result.Listened))
			return result, nil
		}

		removed, err := e.PurgeListened(ctx, result.Listened)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			result.PurgeSkipped = true
			e.logger.Warn("playlist changed since reconciliation, leaving it untouched", "error", err)
		case err != nil:
			return result, err
		case removed == 0:
			result.PurgeSkipped = true
		default:
			result.Removed = removed
			e.sendProgress(progress, purgeUpdate(removed))
		}
	}

	return result, nil
}

// PurgeListened removes the given tracks from the managed playlist.
func (e *Engine) PurgeListened(ctx context.Context, listened []models.NormalizedTrack) (int, error) {
	ids := make([]string, 0, len(listened))
	for _, track := range listened {
		if track.ID != "" {
			ids = append(ids, track.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed, err := e.tidal.RemoveTracks(ctx, e.playlistID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to purge listened tracks: %w", err)
	}

	return removed, nil
}
