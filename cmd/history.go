package main

import (
	"context"
	"time"

	"github.com/desertthunder/tidesweep/internal/repositories"
	"github.com/desertthunder/tidesweep/internal/tasks"
	"github.com/urfave/cli/v3"
)

// HistorySync fetches new scrobbles into the local cache.
func (r *Runner) HistorySync(ctx context.Context, cmd *cli.Command) error {
	config, path, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(config, path, db)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.SyncHistory(ctx, progressCh)
	close(progressCh)
	if err != nil {
		return err
	}

	if result.Partial {
		r.writePlain("Sync was interrupted; run again to fill the gap.\n")
	}
	return r.writePlain("Cached %d new scrobbles across %d pages (%d already present).\n",
		result.Inserted, result.Pages, result.Skipped)
}

type historyStats struct {
	Records    int    `json:"records"`
	LatestDate string `json:"latest_date,omitempty"`
}

// HistoryStats shows cache statistics.
func (r *Runner) HistoryStats(ctx context.Context, cmd *cli.Command) error {
	config, _, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewHistoryRepository(db)

	count, err := repo.Count()
	if err != nil {
		return err
	}
	latest, err := repo.LatestDate()
	if err != nil {
		return err
	}

	stats := historyStats{Records: count}
	if !latest.IsZero() {
		stats.LatestDate = latest.Format(time.RFC3339)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	if err := r.writePlain("Cached scrobbles: %d\n", stats.Records); err != nil {
		return err
	}
	if stats.LatestDate != "" {
		return r.writePlain("Most recent: %s\n", stats.LatestDate)
	}
	return nil
}
