package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidesweep/internal/models"
)

// FetchPlaylist resolves the managed playlist into normalized tracks.
//
// Membership references are fetched first, then track metadata in batches.
// Duplicate playlist positions collapse to one catalog ID for resolution but
// every position survives in the returned slice, duplicate detection needs
// the repeats.
func (e *Engine) FetchPlaylist(ctx context.Context, progress chan<- ProgressUpdate) ([]models.NormalizedTrack, error) {
	e.sendProgress(progress, fetchPlaylistUpdate())

	items, err := e.tidal.PlaylistItems(ctx, e.playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	unique := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.TrackID] {
			seen[item.TrackID] = true
			unique = append(unique, item.TrackID)
		}
	}

	e.sendProgress(progress, resolveTracksUpdate(len(unique)))

	resolved, err := e.tidal.ResolveTracks(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve playlist tracks: %w", err)
	}

	byID := make(map[string]models.NormalizedTrack, len(resolved))
	for _, track := range resolved {
		byID[track.ID] = models.Normalize(track)
	}

	playlist := make([]models.NormalizedTrack, 0, len(items))
	for _, item := range items {
		track, ok := byID[item.TrackID]
		if !ok {
			e.logger.Debug("playlist item missing from resolved metadata", "track_id", item.TrackID)
			continue
		}
		playlist = append(playlist, track)
	}

	return playlist, nil
}
