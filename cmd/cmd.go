// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// syncCommand handles the full reconciliation run
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile the managed playlist against listening history",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Sync history, reconcile the playlist, and write reports",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "purge",
						Usage: "Remove listened tracks from the playlist",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be removed without mutating",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the run result as JSON",
					},
				},
				Action: r.SyncRun,
			},
		},
	}
}

// historyCommand handles listening history operations
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Last.fm listening history operations",
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Fetch new scrobbles into the local cache",
				Flags:  []cli.Flag{configFlag()},
				Action: r.HistorySync,
			},
			{
				Name:  "stats",
				Usage: "Show cache statistics",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryStats,
			},
		},
	}
}

// playlistCommand handles Tidal playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Tidal playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List the managed playlist's tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Playlist ID, defaults to the configured playlist",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistTracks,
			},
		},
	}
}

// authCommand handles Tidal token operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Tidal authentication operations",
		Commands: []*cli.Command{
			{
				Name:   "refresh",
				Usage:  "Refresh the Tidal access token and persist it",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthRefresh,
			},
		},
	}
}

// setupCommand handles first-run initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the history cache",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a config.toml from the embedded template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the history database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}
