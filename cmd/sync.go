package main

import (
	"context"

	"github.com/desertthunder/tidesweep/internal/formatter"
	"github.com/desertthunder/tidesweep/internal/repositories"
	"github.com/desertthunder/tidesweep/internal/shared"
	"github.com/desertthunder/tidesweep/internal/tasks"
	"github.com/desertthunder/tidesweep/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncRun performs a full reconciliation run and writes report artifacts.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
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

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.Run(ctx, progressCh, tasks.RunOptions{
		Purge:  cmd.Bool("purge"),
		DryRun: cmd.Bool("dry-run"),
	})
	close(progressCh)
	if err != nil {
		return err
	}

	if err := r.writeReports(config, repositories.NewHistoryRepository(db), result); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	return r.writePlain("%s", ui.RenderRunSummary(result))
}

// writeReports replaces the previous run's artifacts with fresh ones.
func (r *Runner) writeReports(config *shared.Config, repo *repositories.HistoryRepository, result *tasks.RunResult) error {
	writer := formatter.NewReportWriter(config.Reports.Dir)
	if err := writer.Clean(); err != nil {
		return err
	}

	runID := shared.GenerateID()

	listenedPath, err := writer.WriteTracks(formatter.ListenedReport, runID, result.Listened)
	if err != nil {
		return err
	}
	r.logger.Info("wrote report", "path", listenedPath, "tracks", len(result.Listened))

	duplicatesPath, err := writer.WriteTracks(formatter.DuplicatesReport, runID, result.Duplicates)
	if err != nil {
		return err
	}
	r.logger.Info("wrote report", "path", duplicatesPath, "tracks", len(result.Duplicates))

	records, err := repo.List()
	if err != nil {
		return err
	}
	historyPath, err := writer.WriteHistory(formatter.HistoryReport, records)
	if err != nil {
		return err
	}
	r.logger.Info("wrote report", "path", historyPath, "records", len(records))

	return nil
}
