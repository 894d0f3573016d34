package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/shared"
)

const (
	defaultLastFMBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// Maximum page size the recent tracks endpoint allows.
	lastFMPageLimit = 200

	userAgent = "tidesweep/1.0"
)

// Scrobble is one entry of a user's listening history.
type Scrobble struct {
	Artist     string
	Album      string
	Name       string
	Date       time.Time
	NowPlaying bool
}

// HistoryPage is one page of recent tracks with its position in the
// paginated result set. PerPage echoes the page size the server applied; a
// page holding fewer entries than that is the last one.
type HistoryPage struct {
	Scrobbles  []Scrobble
	Page       int
	TotalPages int
	PerPage    int
}

type lastFMText struct {
	Text string `json:"#text"`
}

type lastFMRecentTracks struct {
	RecentTracks struct {
		Track []struct {
			Artist lastFMText `json:"artist"`
			Album  lastFMText `json:"album"`
			Name   string     `json:"name"`
			Date   struct {
				UTS string `json:"uts"`
			} `json:"date"`
			Attr struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
		} `json:"track"`
		Attr struct {
			Page       string `json:"page"`
			TotalPages string `json:"totalPages"`
			PerPage    string `json:"perPage"`
		} `json:"@attr"`
	} `json:"recenttracks"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// LastFMService reads listening history from the Last.fm API.
type LastFMService struct {
	baseURL    string
	apiKey     string
	username   string
	httpClient *http.Client
	logger     *log.Logger
}

func NewLastFMService(cfg shared.LastFMConfig, client *http.Client, logger *log.Logger) *LastFMService {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = defaultLastFMBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &LastFMService{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		username:   cfg.Username,
		httpClient: client,
		logger:     logger,
	}
}

func (l *LastFMService) Name() string {
	return "Last.fm"
}

// RecentTracks fetches one page of the user's recent tracks. A non-zero from
// restricts results to scrobbles after that unix timestamp, which keeps
// incremental syncs from re-walking the whole history.
func (l *LastFMService) RecentTracks(ctx context.Context, page int, from int64) (*HistoryPage, error) {
	params := url.Values{}
	params.Set("method", "user.getrecenttracks")
	params.Set("user", l.username)
	params.Set("api_key", l.apiKey)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(lastFMPageLimit))
	params.Set("page", strconv.Itoa(page))
	if from > 0 {
		params.Set("from", strconv.FormatInt(from, 10))
	}

	endpoint := l.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: last.fm returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var doc lastFMRecentTracks
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode recent tracks: %w", err)
	}
	if doc.Error != 0 {
		return nil, fmt.Errorf("%w: last.fm error %d: %s", shared.ErrAPIRequest, doc.Error, doc.Message)
	}

	result := &HistoryPage{
		Page:       atoiOr(doc.RecentTracks.Attr.Page, page),
		TotalPages: atoiOr(doc.RecentTracks.Attr.TotalPages, 1),
		PerPage:    atoiOr(doc.RecentTracks.Attr.PerPage, lastFMPageLimit),
	}

	for _, t := range doc.RecentTracks.Track {
		s := Scrobble{
			Artist:     strings.TrimSpace(t.Artist.Text),
			Album:      strings.TrimSpace(t.Album.Text),
			Name:       strings.TrimSpace(t.Name),
			NowPlaying: t.Attr.NowPlaying == "true",
		}

		if uts, err := strconv.ParseInt(t.Date.UTS, 10, 64); err == nil {
			s.Date = time.Unix(uts, 0).UTC()
		} else if !s.NowPlaying {
			// A scrobble without a timestamp is rare but the record is
			// still worth keeping.
			s.Date = time.Now().UTC()
		}

		result.Scrobbles = append(result.Scrobbles, s)
	}

	return result, nil
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}
