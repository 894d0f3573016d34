package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// AuthRefresh refreshes the Tidal access token and persists it to the config file.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	config, path, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	creds := r.newCredentials(config, path)
	if _, err := creds.Refresh(ctx); err != nil {
		return err
	}

	r.logger.Info("token refreshed", "config", path)
	return r.writePlain("Access token refreshed and saved to %s\n", path)
}
