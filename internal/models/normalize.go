package models

import (
	"sort"
	"strings"
)

// UnknownArtist is the placeholder credit for tracks whose source reports no artist.
const UnknownArtist = "Unknown Artist"

// NormalizeArtistCredit collapses one or more raw artist strings into a
// canonical comparison key: split on "," and "&", trimmed, lowercased, sorted
// lexicographically, and rejoined with ", ".
//
// The result is deterministic and order-independent, so "B & A" and "A, B"
// normalize identically, and normalizing an already-normalized credit is a
// no-op.
func NormalizeArtistCredit(raw ...string) string {
	var parts []string
	for _, credit := range raw {
		for _, part := range strings.FieldsFunc(credit, func(r rune) bool {
			return r == ',' || r == '&'
		}) {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				parts = append(parts, part)
			}
		}
	}

	if len(parts) == 0 {
		return strings.ToLower(UnknownArtist)
	}

	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// Normalize converts a raw Track into its canonical comparison form.
func Normalize(t Track) NormalizedTrack {
	return NormalizedTrack{
		ID:     t.ID,
		Name:   t.Name,
		Artist: NormalizeArtistCredit(t.Artists...),
		Album:  t.Album,
	}
}

// NormalizeAll converts a slice of raw Tracks, preserving order.
func NormalizeAll(tracks []Track) []NormalizedTrack {
	normalized := make([]NormalizedTrack, len(tracks))
	for i, t := range tracks {
		normalized[i] = Normalize(t)
	}
	return normalized
}

// Key returns the exact-match grouping key for a normalized track:
// lowercased title joined with the canonical artist credit.
func (t NormalizedTrack) Key() string {
	return strings.ToLower(t.Name) + "|" + t.Artist
}
