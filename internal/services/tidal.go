// Tidal API client
//
// Response shapes follow the JSON:API documents served by
// https://openapi.tidal.com/v2; track metadata arrives separately from
// playlist membership, so resolving a playlist is a two-stage operation.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultTidalBaseURL = "https://openapi.tidal.com/v2"

	// The track detail endpoint accepts at most 20 IDs per filter.
	trackBatchSize = 20

	// Bound on cursor-following so a malformed next link cannot loop forever.
	maxPlaylistPages = 500

	countryCode = "US"
)

// PlaylistItem pairs a track's catalog identifier with its membership
// identifier. The same track can appear at several positions in a playlist,
// each with a distinct item identifier.
type PlaylistItem struct {
	TrackID string
	ItemID  string
}

type tidalResourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Meta struct {
		ItemID string `json:"itemId"`
	} `json:"meta"`
}

type tidalItemsPage struct {
	Data  []tidalResourceRef `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type tidalTracksDocument struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"attributes"`
		Relationships struct {
			Artists struct {
				Data []tidalResourceRef `json:"data"`
			} `json:"artists"`
		} `json:"relationships"`
	} `json:"data"`
	Included []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"included"`
}

// TidalService exposes playlist operations against the Tidal API.
type TidalService struct {
	baseURL string
	client  *PagedClient
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewTidalService creates a Tidal service.
//
// The limiter paces detail lookups between requests; nil defaults to one
// request per second.
func NewTidalService(baseURL string, client *PagedClient, limiter *rate.Limiter, logger *log.Logger) *TidalService {
	if baseURL == "" {
		baseURL = defaultTidalBaseURL
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(1), 1)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &TidalService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

func (t *TidalService) Name() string {
	return "Tidal"
}

// PlaylistItems pages through playlist membership following links.next
// cursors and collects every item reference.
//
// Iteration is an explicit loop bounded by a maximum page count; if the bound
// is reached the pages collected so far are returned with a warning rather
// than trusting the cursor any further.
func (t *TidalService) PlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s/relationships/items?countryCode=%s&locale=en-US", t.baseURL, playlistID, countryCode)

	var items []PlaylistItem
	for page := 1; ; page++ {
		if page > maxPlaylistPages {
			t.logger.Warn("playlist page bound reached, stopping cursor follow", "pages", maxPlaylistPages)
			return items, nil
		}

		data, err := t.client.Get(ctx, endpoint)
		if err != nil {
			return items, err
		}

		var doc tidalItemsPage
		if err := json.Unmarshal(data, &doc); err != nil {
			return items, fmt.Errorf("failed to decode playlist items page: %w", err)
		}

		for _, ref := range doc.Data {
			if ref.ID == "" {
				continue
			}
			items = append(items, PlaylistItem{TrackID: ref.ID, ItemID: ref.Meta.ItemID})
		}

		if doc.Links.Next == "" {
			return items, nil
		}
		endpoint = t.baseURL + doc.Links.Next
	}
}

// ResolveTracks batch-fetches track metadata with side-loaded artists and
// returns raw tracks ready for normalization.
//
// IDs are grouped into chunks of at most 20; one detail request is issued per
// chunk. An artist reference missing from the side-loaded list is silently
// dropped, a metadata gap degrades matching but never aborts the run.
func (t *TidalService) ResolveTracks(ctx context.Context, trackIDs []string) ([]models.Track, error) {
	var tracks []models.Track

	for start := 0; start < len(trackIDs); start += trackBatchSize {
		end := min(start+trackBatchSize, len(trackIDs))
		chunk := trackIDs[start:end]

		if err := t.limiter.Wait(ctx); err != nil {
			return tracks, err
		}

		endpoint := fmt.Sprintf("%s/tracks?countryCode=%s&include=artists&filter[id]=%s",
			t.baseURL, countryCode, url.QueryEscape(strings.Join(chunk, ",")))

		data, err := t.client.Get(ctx, endpoint)
		if err != nil {
			return tracks, err
		}

		var doc tidalTracksDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return tracks, fmt.Errorf("failed to decode tracks response: %w", err)
		}

		artistNames := make(map[string]string, len(doc.Included))
		for _, res := range doc.Included {
			if res.Type == "artists" && res.Attributes.Name != "" {
				artistNames[res.ID] = res.Attributes.Name
			}
		}

		for _, res := range doc.Data {
			title := res.Attributes.Title
			if res.Attributes.Version != "" {
				title = fmt.Sprintf("%s (%s)", title, res.Attributes.Version)
			}

			var artists []string
			for _, ref := range res.Relationships.Artists.Data {
				if name, ok := artistNames[ref.ID]; ok {
					artists = append(artists, name)
				}
			}
			if len(res.Relationships.Artists.Data) > len(artists) {
				t.logger.Debug("dropped unresolved artist references", "track", title)
			}

			tracks = append(tracks, models.Track{
				ID:      res.ID,
				Name:    title,
				Artists: artists,
			})
		}
	}

	return tracks, nil
}

// RemoveTracks deletes every playlist occurrence of the given track IDs.
//
// Membership is re-fetched to resolve each track ID to its current item
// identifiers, then a single batch delete carries all resolved items. If the
// re-fetch fails the mutation is skipped with zero removals, we never guess
// item identifiers; a zero-match re-fetch reports [shared.ErrNotFound] so
// callers can tell a stale reconciliation from a successful no-op.
func (t *TidalService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}

	items, err := t.PlaylistItems(ctx, playlistID)
	if err != nil {
		t.logger.Warn("membership re-fetch failed, leaving playlist untouched", "error", err)
		return 0, nil
	}

	wanted := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		wanted[id] = true
	}

	var refs []tidalResourceRef
	for _, item := range items {
		if wanted[item.TrackID] && item.ItemID != "" {
			ref := tidalResourceRef{ID: item.TrackID, Type: "tracks"}
			ref.Meta.ItemID = item.ItemID
			refs = append(refs, ref)
		}
	}

	if len(refs) == 0 {
		return 0, fmt.Errorf("%w: no playlist items matched the requested tracks", shared.ErrNotFound)
	}

	body, err := json.Marshal(struct {
		Data []tidalResourceRef `json:"data"`
	}{Data: refs})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal delete request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/playlists/%s/relationships/items", t.baseURL, playlistID)
	if _, err := t.client.Delete(ctx, endpoint, body); err != nil {
		return 0, err
	}

	return len(refs), nil
}
