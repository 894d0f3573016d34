package models

import "time"

// Track represents a music track from any source before normalization.
//
// Both upstreams produce these in different shapes: Tidal resolves a track to
// a list of artist names, Last.fm reports a single comma-joined credit.
type Track struct {
	ID      string   // Opaque upstream identifier, empty for history entries
	Name    string   // Display title, including any version suffix
	Artists []string // Raw artist credit, order as reported
	Album   string
}

// NormalizedTrack is the canonical comparison form of a Track.
//
// Artist holds the order-independent lowercase credit produced by
// [NormalizeArtistCredit]; two tracks with the same artists in any order and
// representation normalize to the same value.
type NormalizedTrack struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// HistoryRecord is one persisted listen from the scrobble history.
//
// Uniqueness is enforced on (Artist, Name) at insertion time: the cache is a
// listened-set, not a full play log.
type HistoryRecord struct {
	Artist string    `json:"artist"`
	Album  string    `json:"album"`
	Name   string    `json:"name"`
	Date   time.Time `json:"date"`
}

// Report is a generated run artifact wrapping a set of track records.
type Report struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Count       int               `json:"count"`
	Tracks      []NormalizedTrack `json:"tracks"`
}
