package tasks

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/desertthunder/tidesweep/internal/models"
)

// ReconcileResult holds the outcome of comparing a playlist against history.
type ReconcileResult struct {
	Listened   []models.NormalizedTrack // Tracks present in listening history
	Duplicates []models.NormalizedTrack // Second and later exact repeats
}

// Reconcile compares normalized playlist tracks against the cached history.
//
// A track counts as listened when its artist credit matches a history record
// exactly and the titles match either case-insensitively or, with fuzzy
// matching enabled, by edit-distance similarity over cleaned titles.
// Duplicates are exact name-and-artist repeats within the playlist itself;
// the first occurrence stays, later ones are reported.
func (e *Engine) Reconcile(playlist []models.NormalizedTrack) (*ReconcileResult, error) {
	records, err := e.history.List()
	if err != nil {
		return nil, err
	}

	exact := make(map[string]bool, len(records))
	byArtist := make(map[string][]string)
	for _, record := range records {
		exact[strings.ToLower(record.Name)+"|"+record.Artist] = true
		if e.fuzzy {
			byArtist[record.Artist] = append(byArtist[record.Artist], cleanTitle(record.Name))
		}
	}

	result := &ReconcileResult{}
	seen := make(map[string]bool, len(playlist))

	for _, track := range playlist {
		key := track.Key()
		if seen[key] {
			result.Duplicates = append(result.Duplicates, track)
		}
		seen[key] = true

		if exact[key] {
			result.Listened = append(result.Listened, track)
			continue
		}

		if e.fuzzy && e.fuzzyListened(track, byArtist[track.Artist]) {
			result.Listened = append(result.Listened, track)
		}
	}

	return result, nil
}

func (e *Engine) fuzzyListened(track models.NormalizedTrack, candidates []string) bool {
	cleaned := cleanTitle(track.Name)
	if cleaned == "" {
		return false
	}

	for _, candidate := range candidates {
		if similarity(cleaned, candidate) >= e.threshold {
			return true
		}
	}
	return false
}

// cleanTitle strips bracketed segments and punctuation so that remix and
// edition suffixes do not defeat the similarity check.
func cleanTitle(title string) string {
	var b strings.Builder
	depth := 0
	for _, r := range title {
		switch {
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
				b.WriteRune(unicode.ToLower(r))
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity returns 1 - dist/maxLen over runes, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
