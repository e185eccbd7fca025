package main

import (
	"context"

	"github.com/desertthunder/aura/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes the owner's lists to disk concurrently and prints progress as it goes.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	owner, err := r.owner(cmd)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		Lists:      cmd.StringSlice("list"),
	}

	r.logger.Info("starting export", "owner", owner, "format", opts.Format)
	r.writePlain("Exporting lists...\n")

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchItems, tasks.ExportList:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkExport(ctx, progressCh, owner, opts)
	close(progressCh)
	<-printed

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d lists\n", result.SuccessfulExports, result.TotalLists)

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d lists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.ListName, res.Error)
			}
		}
	}
	return nil
}
