package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/services"
	"github.com/desertthunder/tidesweep/internal/shared"
)

// fakeStore is an in-memory HistoryStore
type fakeStore struct {
	records []models.HistoryRecord
}

func (f *fakeStore) Insert(record models.HistoryRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStore) Exists(artist, name string) (bool, error) {
	for _, r := range f.records {
		if r.Artist == artist && r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) LatestDate() (time.Time, error) {
	var latest time.Time
	for _, r := range f.records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, nil
}

func (f *fakeStore) Count() (int, error) { return len(f.records), nil }

func (f *fakeStore) List() ([]models.HistoryRecord, error) { return f.records, nil }

// fakeLastFM serves canned history pages keyed by page number
type fakeLastFM struct {
	pages    map[int]*services.HistoryPage
	failPage int
	requests []int
	from     []int64
}

func (f *fakeLastFM) RecentTracks(ctx context.Context, page int, from int64) (*services.HistoryPage, error) {
	f.requests = append(f.requests, page)
	f.from = append(f.from, from)
	if f.failPage != 0 && page == f.failPage {
		return nil, errors.New("upstream unavailable")
	}
	p, ok := f.pages[page]
	if !ok {
		return &services.HistoryPage{Page: page, TotalPages: page}, nil
	}
	return p, nil
}

// fakeTidal serves a fixed playlist and records removals
type fakeTidal struct {
	items     []services.PlaylistItem
	tracks    map[string]models.Track
	removed   []string
	itemsErr  error
	removeErr error
}

func (f *fakeTidal) PlaylistItems(ctx context.Context, playlistID string) ([]services.PlaylistItem, error) {
	return f.items, f.itemsErr
}

func (f *fakeTidal) ResolveTracks(ctx context.Context, trackIDs []string) ([]models.Track, error) {
	var tracks []models.Track
	for _, id := range trackIDs {
		if t, ok := f.tracks[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (f *fakeTidal) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	f.removed = append(f.removed, trackIDs...)
	return len(trackIDs), nil
}

func scrobble(artist, name string, at time.Time) services.Scrobble {
	return services.Scrobble{Artist: artist, Album: "In Rainbows", Name: name, Date: at}
}

func newTestEngine(tidal *fakeTidal, lastfm *fakeLastFM, store *fakeStore, fuzzy bool) *Engine {
	return NewEngine(EngineOpts{
		Tidal:      tidal,
		LastFM:     lastfm,
		History:    store,
		PlaylistID: "pl-1",
		Fuzzy:      fuzzy,
	})
}

func TestSyncHistory(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ingests Pages Oldest First", func(t *testing.T) {
		store := &fakeStore{}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 2, Scrobbles: []services.Scrobble{
				scrobble("Radiohead", "Videotape", base.Add(2*time.Hour)),
				scrobble("Radiohead", "Reckoner", base.Add(time.Hour)),
			}},
			2: {Page: 2, TotalPages: 2, Scrobbles: []services.Scrobble{
				scrobble("Radiohead", "Nude", base),
			}},
		}}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Inserted != 3 || result.Pages != 2 {
			t.Errorf("expected 3 inserts over 2 pages, got %+v", result)
		}
		if store.records[0].Name != "Nude" {
			t.Errorf("expected oldest scrobble first, got %q", store.records[0].Name)
		}
		if store.records[0].Artist != "radiohead" {
			t.Errorf("expected normalized artist, got %q", store.records[0].Artist)
		}
	})

	t.Run("Drops Now Playing Entries", func(t *testing.T) {
		store := &fakeStore{}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 1, Scrobbles: []services.Scrobble{
				{Artist: "Radiohead", Name: "Reckoner", NowPlaying: true},
				scrobble("Radiohead", "Nude", base),
			}},
		}}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Fetched != 1 || result.Inserted != 1 {
			t.Errorf("expected the now-playing entry to be dropped, got %+v", result)
		}
	})

	t.Run("Uses Watermark For Incremental Sync", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "Nude", Date: base},
		}}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 1},
		}}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if lastfm.from[0] != base.Unix()+1 {
			t.Errorf("expected watermark %d, got %d", base.Unix()+1, lastfm.from[0])
		}
		if result.Inserted != 0 {
			t.Errorf("expected no inserts on an up-to-date cache, got %d", result.Inserted)
		}
	})

	t.Run("Skips Records Already Cached", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "Nude", Date: base.Add(-24 * time.Hour)},
		}}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 1, Scrobbles: []services.Scrobble{
				scrobble("Radiohead", "Nude", base),
				scrobble("Radiohead", "Reckoner", base.Add(time.Minute)),
			}},
		}}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inserted != 1 || result.Skipped != 1 {
			t.Errorf("expected 1 insert and 1 skip, got %+v", result)
		}
	})

	t.Run("Stops After A Short Page", func(t *testing.T) {
		store := &fakeStore{}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 3, PerPage: 2, Scrobbles: []services.Scrobble{
				scrobble("Radiohead", "Nude", base),
			}},
		}}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(lastfm.requests) != 1 {
			t.Errorf("expected a single page request despite the reported total, got %v", lastfm.requests)
		}
		if result.Pages != 1 || result.Inserted != 1 {
			t.Errorf("expected the short page to end the sync, got %+v", result)
		}
	})

	t.Run("Keeps Collected Pages On Mid Sync Failure", func(t *testing.T) {
		store := &fakeStore{}
		lastfm := &fakeLastFM{
			failPage: 2,
			pages: map[int]*services.HistoryPage{
				1: {Page: 1, TotalPages: 3, Scrobbles: []services.Scrobble{
					scrobble("Radiohead", "Nude", base),
				}},
			},
		}

		engine := newTestEngine(&fakeTidal{}, lastfm, store, false)
		result, err := engine.SyncHistory(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected degraded result, got error: %v", err)
		}
		if !result.Partial {
			t.Error("expected result to be marked partial")
		}
		if result.Inserted != 1 {
			t.Errorf("expected collected page to be kept, got %d inserts", result.Inserted)
		}
	})

	t.Run("Fails When First Page Fails", func(t *testing.T) {
		lastfm := &fakeLastFM{failPage: 1}
		engine := newTestEngine(&fakeTidal{}, lastfm, &fakeStore{}, false)

		if _, err := engine.SyncHistory(context.Background(), nil); err == nil {
			t.Fatal("expected error when no pages could be fetched")
		}
	})
}

func TestReconcile(t *testing.T) {
	track := func(id, name, artist string) models.NormalizedTrack {
		return models.NormalizedTrack{ID: id, Name: name, Artist: artist}
	}

	t.Run("Finds Exact Listens", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "Nude"},
		}}
		engine := newTestEngine(&fakeTidal{}, &fakeLastFM{}, store, false)

		result, err := engine.Reconcile([]models.NormalizedTrack{
			track("1", "Nude", "radiohead"),
			track("2", "Reckoner", "radiohead"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Listened) != 1 || result.Listened[0].ID != "1" {
			t.Errorf("expected only the scrobbled track, got %+v", result.Listened)
		}
	})

	t.Run("Ignores Title Case", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "NUDE"},
		}}
		engine := newTestEngine(&fakeTidal{}, &fakeLastFM{}, store, false)

		result, err := engine.Reconcile([]models.NormalizedTrack{track("1", "Nude", "radiohead")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Listened) != 1 {
			t.Error("expected case-insensitive title match")
		}
	})

	t.Run("Fuzzy Matches Version Suffixes", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "Nude"},
		}}
		engine := newTestEngine(&fakeTidal{}, &fakeLastFM{}, store, true)

		result, err := engine.Reconcile([]models.NormalizedTrack{
			track("1", "Nude (Live in Dublin)", "radiohead"),
			track("2", "Completely Different Song", "radiohead"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Listened) != 1 || result.Listened[0].ID != "1" {
			t.Errorf("expected only the suffixed variant to match, got %+v", result.Listened)
		}
	})

	t.Run("Fuzzy Never Crosses Artists", func(t *testing.T) {
		store := &fakeStore{records: []models.HistoryRecord{
			{Artist: "radiohead", Name: "Nude"},
		}}
		engine := newTestEngine(&fakeTidal{}, &fakeLastFM{}, store, true)

		result, err := engine.Reconcile([]models.NormalizedTrack{track("1", "Nude", "portishead")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Listened) != 0 {
			t.Errorf("expected no match across artists, got %+v", result.Listened)
		}
	})

	t.Run("Reports Later Duplicates Only", func(t *testing.T) {
		engine := newTestEngine(&fakeTidal{}, &fakeLastFM{}, &fakeStore{}, false)

		result, err := engine.Reconcile([]models.NormalizedTrack{
			track("1", "Nude", "radiohead"),
			track("2", "Reckoner", "radiohead"),
			track("3", "Nude", "radiohead"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Duplicates) != 1 || result.Duplicates[0].ID != "3" {
			t.Errorf("expected the second occurrence only, got %+v", result.Duplicates)
		}
	})
}

func TestRun(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newFixtures := func() (*fakeTidal, *fakeLastFM, *fakeStore) {
		tidal := &fakeTidal{
			items: []services.PlaylistItem{
				{TrackID: "1", ItemID: "i1"},
				{TrackID: "2", ItemID: "i2"},
			},
			tracks: map[string]models.Track{
				"1": {ID: "1", Name: "Nude", Artists: []string{"Radiohead"}},
				"2": {ID: "2", Name: "Reckoner", Artists: []string{"Radiohead"}},
			},
		}
		lastfm := &fakeLastFM{pages: map[int]*services.HistoryPage{
			1: {Page: 1, TotalPages: 1, Scrobbles: []services.Scrobble{
				scrobble("Radiohead", "Nude", base),
			}},
		}}
		return tidal, lastfm, &fakeStore{}
	}

	t.Run("Full Run Reconciles And Purges", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		engine := newTestEngine(tidal, lastfm, store, false)

		result, err := engine.Run(context.Background(), nil, RunOptions{Purge: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Playlist) != 2 {
			t.Errorf("expected 2 playlist tracks, got %d", len(result.Playlist))
		}
		if len(result.Listened) != 1 || result.Listened[0].ID != "1" {
			t.Errorf("expected track 1 listened, got %+v", result.Listened)
		}
		if result.Removed != 1 {
			t.Errorf("expected 1 removal, got %d", result.Removed)
		}
		if len(tidal.removed) != 1 || tidal.removed[0] != "1" {
			t.Errorf("expected track 1 removed, got %v", tidal.removed)
		}
	})

	t.Run("Dry Run Never Mutates", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		engine := newTestEngine(tidal, lastfm, store, false)

		result, err := engine.Run(context.Background(), nil, RunOptions{Purge: true, DryRun: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Removed != 0 {
			t.Errorf("expected no removals, got %d", result.Removed)
		}
		if len(tidal.removed) != 0 {
			t.Errorf("expected no mutation calls, got %v", tidal.removed)
		}
		if len(result.Listened) != 1 {
			t.Errorf("expected listened tracks to still be reported, got %+v", result.Listened)
		}
	})

	t.Run("Skips Removal When The Playlist Changed", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		tidal.removeErr = fmt.Errorf("%w: no playlist items matched the requested tracks", shared.ErrNotFound)
		engine := newTestEngine(tidal, lastfm, store, false)

		result, err := engine.Run(context.Background(), nil, RunOptions{Purge: true})
		if err != nil {
			t.Fatalf("expected degraded result, got error: %v", err)
		}

		if !result.PurgeSkipped {
			t.Error("expected the skipped purge to be recorded")
		}
		if result.Removed != 0 {
			t.Errorf("expected no removals, got %d", result.Removed)
		}
		if len(result.Listened) != 1 || len(result.Playlist) != 2 {
			t.Errorf("expected reconciliation results to survive the skip, got %+v", result)
		}
	})

	t.Run("Propagates Mutation Failures", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		tidal.removeErr = errors.New("delete rejected")
		engine := newTestEngine(tidal, lastfm, store, false)

		if _, err := engine.Run(context.Background(), nil, RunOptions{Purge: true}); err == nil {
			t.Fatal("expected the failed delete to surface")
		}
	})

	t.Run("Without Purge Only Reports", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		engine := newTestEngine(tidal, lastfm, store, false)

		result, err := engine.Run(context.Background(), nil, RunOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Removed != 0 || len(tidal.removed) != 0 {
			t.Error("expected no removal without purge")
		}
	})

	t.Run("Emits Progress Updates", func(t *testing.T) {
		tidal, lastfm, store := newFixtures()
		engine := newTestEngine(tidal, lastfm, store, false)

		progressCh := make(chan ProgressUpdate, 50)
		if _, err := engine.Run(context.Background(), progressCh, RunOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progressCh)

		var phases []string
		for update := range progressCh {
			phases = append(phases, update.Phase.String())
		}
		joined := strings.Join(phases, " ")
		for _, want := range []string{"sync_history", "fetch_playlist", "reconcile"} {
			if !strings.Contains(joined, want) {
				t.Errorf("expected a %s update, got %v", want, phases)
			}
		}
	})
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Nude (Live in Dublin)", "nude"},
		{"Track [Remastered 2009]", "track"},
		{"Weird  Fishes/Arpeggi", "weird fishesarpeggi"},
		{"15 Step", "15 step"},
		{"", ""},
	}

	for _, c := range cases {
		if got := cleanTitle(c.in); got != c.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
