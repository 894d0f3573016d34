// Package ui renders styled terminal output for sync runs.
//
// The tool runs non-interactively, so this is a one-shot summary renderer
// built on lipgloss styles rather than a full TUI.
package ui
