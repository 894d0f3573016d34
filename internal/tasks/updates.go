package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	SyncHistory Phase = iota
	FetchPlaylist
	ResolveTracks
	Reconcile
	Purge
	WriteReports
)

func (p Phase) String() string {
	switch p {
	case SyncHistory:
		return "sync_history"
	case FetchPlaylist:
		return "fetch_playlist"
	case ResolveTracks:
		return "resolve_tracks"
	case Reconcile:
		return "reconcile"
	case Purge:
		return "purge"
	case WriteReports:
		return "write_reports"
	default:
		return ""
	}
}

func syncHistoryUpdate(page, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncHistory,
		Step:    page,
		Total:   total,
		Message: fmt.Sprintf("Fetching listening history (page %d/%d)...", page, total),
	}
}

func historySyncedUpdate(inserted, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("History synced: %d new, %d already cached", inserted, skipped),
	}
}

func fetchPlaylistUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: "Fetching playlist items from Tidal...",
	}
}

func resolveTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving metadata for %d tracks...", count),
	}
}

func reconcileUpdate(listened, duplicates int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reconciled playlist: %d listened, %d duplicates", listened, duplicates),
	}
}

func purgeUpdate(removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Purge,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d tracks from playlist", removed),
	}
}
