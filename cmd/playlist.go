package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidesweep/internal/models"
	"github.com/desertthunder/tidesweep/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistTracks lists the tracks of the managed (or a named) playlist.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	config, path, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	playlistID := cmd.String("id")
	if playlistID == "" {
		playlistID = config.Credentials.Tidal.PlaylistID
	}
	if playlistID == "" {
		return fmt.Errorf("%w: no playlist ID provided or configured", shared.ErrInvalidArgument)
	}

	tidal := r.newTidal(config, path)

	items, err := tidal.PlaylistItems(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return r.writePlain("Playlist is empty.\n")
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TrackID)
	}

	tracks, err := tidal.ResolveTracks(ctx, ids)
	if err != nil {
		return err
	}

	normalized := models.NormalizeAll(tracks)
	if cmd.Bool("json") {
		return r.writeJSON(normalized, true)
	}

	for i, track := range normalized {
		if err := r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Name); err != nil {
			return err
		}
	}
	return nil
}
