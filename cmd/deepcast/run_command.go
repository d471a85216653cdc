package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"deepcast/internal/config"
	"deepcast/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var req config.Pipeline

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one episode through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			svc, err := ctx.newService(logger)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			workdir := req.ResolveWorkdir(cfg.Paths.WorkdirRoot)
			if err := os.MkdirAll(workdir, 0o755); err != nil {
				return fmt.Errorf("create workdir: %w", err)
			}

			// One run per episode workdir at a time; concurrent runs against
			// the same episode would race on the artifact files.
			lock := flock.New(filepath.Join(workdir, ".deepcast.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire workdir lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another deepcast run is active in %s", workdir)
			}
			defer func() { _ = lock.Unlock() }()

			reporter := newConsoleReporter(cmd.ErrOrStderr())
			defer reporter.close()

			start := time.Now()
			result, runErr := svc.Process(cmd.Context(), req, reporter)
			reporter.close()

			recordRun(cmd.Context(), ctx, logger, req.Label(), result)

			out := cmd.OutOrStdout()
			if runErr != nil {
				fmt.Fprintf(out, "Run failed after %s: %v\n", time.Since(start).Round(time.Second), runErr)
				printResult(out, result)
				return runErr
			}
			fmt.Fprintf(out, "Run completed in %s\n", time.Since(start).Round(time.Second))
			printResult(out, result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Show, "show", "", "Podcast show name (resolved via search)")
	flags.StringVar(&req.RSSURL, "rss", "", "Podcast RSS feed URL")
	flags.StringVar(&req.YouTubeURL, "youtube", "", "YouTube episode URL")
	flags.StringVar(&req.Date, "date", "", "Episode date (YYYY-MM-DD)")
	flags.StringVar(&req.TitleContains, "title-contains", "", "Substring to select the episode by title")
	flags.StringVar(&req.Workdir, "workdir", "", "Override the episode working directory")
	flags.StringVar(&req.Model, "model", "", "ASR model (default large-v3)")
	flags.StringVar(&req.Compute, "compute", "", "ASR compute type")
	flags.StringVar(&req.ASRProvider, "asr-provider", "", "ASR provider override")
	flags.StringVar(&req.Preset, "preset", "", "Transcode preset")
	flags.BoolVar(&req.Preprocess, "preprocess", false, "Clean the transcript before analysis")
	flags.BoolVar(&req.Restore, "restore", false, "Restore filler words during preprocessing")
	flags.BoolVar(&req.Align, "align", false, "Word-align the transcript")
	flags.BoolVar(&req.Diarize, "diarize", false, "Attribute speakers")
	flags.BoolVar(&req.Dual, "dual", false, "Run precision and recall tracks (requires --preprocess)")
	flags.BoolVar(&req.NoConsensus, "no-consensus", false, "Skip the consensus synthesis in dual mode")
	flags.BoolVar(&req.Deepcast, "deepcast", false, "Run map-reduce analysis on the transcript")
	flags.StringVar(&req.DeepcastModel, "deepcast-model", "", "LLM model for analysis")
	flags.Float64Var(&req.DeepcastTemp, "deepcast-temp", 0, "LLM sampling temperature (0-2)")
	flags.StringVar(&req.AnalysisType, "analysis-type", "", "Analysis style (default general)")

	return cmd
}

// recordRun appends the run to the journal; journal failures never fail the run.
func recordRun(ctx context.Context, cmdCtx *commandContext, logger *slog.Logger, episode string, result *pipeline.Result) {
	if result == nil {
		return
	}
	store, err := cmdCtx.openJournal()
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, episode, result); err != nil {
		logger.Warn("journal write failed", "error", err)
	}
}

func printResult(out io.Writer, result *pipeline.Result) {
	if result == nil {
		return
	}
	fmt.Fprintf(out, "Workdir: %s\n", result.Workdir)
	for _, step := range result.StepsCompleted {
		status := "done"
		if step.Resumed {
			status = "resumed"
		}
		fmt.Fprintf(out, "  %-28s %s\n", step.Step, status)
	}
	if path, ok := result.Artifacts["latest"]; ok {
		fmt.Fprintf(out, "Latest transcript: %s\n", path)
	}
}
