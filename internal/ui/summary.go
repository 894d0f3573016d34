package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}

func NewPalette(t, s, w, d string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		warn:  NewStyle(w),
		dim:   NewEm(d),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RenderRunSummary formats a completed sync run for terminal display.
func RenderRunSummary(result *tasks.RunResult) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Sync complete"))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("History: %d new scrobbles, %d already cached",
		result.History.Inserted, result.History.Skipped))
	if result.History.Partial {
		b.WriteString(" " + styles.warn.Render("(partial)"))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Playlist: %d tracks\n", len(result.Playlist)))
	b.WriteString(renderTrackLine("Listened", result.Listened))
	b.WriteString(renderTrackLine("Duplicates", result.Duplicates))

	switch {
	case result.DryRun && len(result.Listened) > 0:
		b.WriteString(styles.warn.Render(fmt.Sprintf("Dry run: %d tracks would be removed", len(result.Listened))))
		b.WriteString("\n")
	case result.PurgeSkipped:
		b.WriteString(styles.warn.Render("Purge skipped: playlist changed since it was fetched"))
		b.WriteString("\n")
	case result.Removed > 0:
		b.WriteString(styles.ok.Render(fmt.Sprintf("Removed %d tracks from playlist", result.Removed)))
		b.WriteString("\n")
	}

	return b.String()
}

func renderTrackLine(label string, tracks []models.NormalizedTrack) string {
	if len(tracks) == 0 {
		return fmt.Sprintf("%s: 0\n", label)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: %s\n", label, styles.ok.Render(fmt.Sprintf("%d", len(tracks)))))
	for _, track := range tracks {
		b.WriteString(styles.dim.Render(fmt.Sprintf("  %s - %s", track.Artist, track.Name)))
		b.WriteString("\n")
	}
	return b.String()
}
