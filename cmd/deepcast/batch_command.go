package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"deepcast/internal/config"
	"deepcast/internal/pipeline"
)

// batchFile is the on-disk shape of a batch manifest: shared defaults plus
// one [[episodes]] table per run.
type batchFile struct {
	Defaults batchEpisode   `toml:"defaults"`
	Episodes []batchEpisode `toml:"episodes"`
}

type batchEpisode struct {
	Show          string  `toml:"show"`
	RSSURL        string  `toml:"rss_url"`
	YouTubeURL    string  `toml:"youtube_url"`
	Date          string  `toml:"date"`
	TitleContains string  `toml:"title_contains"`
	Model         string  `toml:"model"`
	Preset        string  `toml:"preset"`
	Preprocess    bool    `toml:"preprocess"`
	Restore       bool    `toml:"restore"`
	Align         bool    `toml:"align"`
	Diarize       bool    `toml:"diarize"`
	Dual          bool    `toml:"dual"`
	NoConsensus   bool    `toml:"no_consensus"`
	Deepcast      bool    `toml:"deepcast"`
	DeepcastModel string  `toml:"deepcast_model"`
	DeepcastTemp  float64 `toml:"deepcast_temp"`
	AnalysisType  string  `toml:"analysis_type"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var maxConcurrent int

	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Process multiple episodes from a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadBatchManifest(args[0])
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return fmt.Errorf("manifest %s lists no episodes", args[0])
			}

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
			limit := maxConcurrent
			if limit <= 0 {
				limit = cfg.Batch.MaxConcurrent
			}

			out := cmd.OutOrStdout()
			start := time.Now()
			results, err := svc.ProcessBatch(cmd.Context(), reqs, limit, func(index int, label, status string) {
				switch status {
				case "started", "completed", "failed":
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s: %s\n", index+1, len(reqs), label, status)
				}
			})
			if err != nil {
				return err
			}

			recordBatch(cmd.Context(), ctx, logger, reqs, results)
			fmt.Fprintln(out, renderBatchTable(reqs, results))
			fmt.Fprintf(out, "Batch finished in %s\n", time.Since(start).Round(time.Second))

			for _, result := range results {
				if result != nil && result.Failed() {
					return fmt.Errorf("%d of %d episodes failed", countFailed(results), len(results))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Concurrent episode ceiling (defaults to batch.max_concurrent)")
	return cmd
}

func loadBatchManifest(path string) ([]config.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest batchFile
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	reqs := make([]config.Pipeline, 0, len(manifest.Episodes))
	for _, ep := range manifest.Episodes {
		merged := mergeEpisode(manifest.Defaults, ep)
		reqs = append(reqs, config.Pipeline{
			Show:          merged.Show,
			RSSURL:        merged.RSSURL,
			YouTubeURL:    merged.YouTubeURL,
			Date:          merged.Date,
			TitleContains: merged.TitleContains,
			Model:         merged.Model,
			Preset:        merged.Preset,
			Preprocess:    merged.Preprocess,
			Restore:       merged.Restore,
			Align:         merged.Align,
			Diarize:       merged.Diarize,
			Dual:          merged.Dual,
			NoConsensus:   merged.NoConsensus,
			Deepcast:      merged.Deepcast,
			DeepcastModel: merged.DeepcastModel,
			DeepcastTemp:  merged.DeepcastTemp,
			AnalysisType:  merged.AnalysisType,
		})
	}
	return reqs, nil
}

// mergeEpisode layers one episode over the manifest defaults. String fields
// fall back to the default when empty; booleans OR together so defaults can
// switch features on for the whole batch.
func mergeEpisode(def, ep batchEpisode) batchEpisode {
	pick := func(value, fallback string) string {
		if value != "" {
			return value
		}
		return fallback
	}
	ep.Show = pick(ep.Show, def.Show)
	ep.RSSURL = pick(ep.RSSURL, def.RSSURL)
	ep.YouTubeURL = pick(ep.YouTubeURL, def.YouTubeURL)
	ep.Model = pick(ep.Model, def.Model)
	ep.Preset = pick(ep.Preset, def.Preset)
	ep.DeepcastModel = pick(ep.DeepcastModel, def.DeepcastModel)
	ep.AnalysisType = pick(ep.AnalysisType, def.AnalysisType)
	if ep.DeepcastTemp == 0 {
		ep.DeepcastTemp = def.DeepcastTemp
	}
	ep.Preprocess = ep.Preprocess || def.Preprocess
	ep.Restore = ep.Restore || def.Restore
	ep.Align = ep.Align || def.Align
	ep.Diarize = ep.Diarize || def.Diarize
	ep.Dual = ep.Dual || def.Dual
	ep.NoConsensus = ep.NoConsensus || def.NoConsensus
	ep.Deepcast = ep.Deepcast || def.Deepcast
	return ep
}

func renderBatchTable(reqs []config.Pipeline, results []*pipeline.Result) string {
	rows := make([]table.Row, 0, len(results))
	for i, result := range results {
		status := "ok"
		steps := 0
		duration := ""
		if result == nil {
			status = "skipped"
		} else {
			if result.Failed() {
				status = "failed"
			}
			steps = len(result.StepsCompleted)
			duration = (time.Duration(result.Duration * float64(time.Second))).Round(time.Second).String()
		}
		rows = append(rows, table.Row{i + 1, reqs[i].Label(), status, steps, duration})
	}
	return renderTable(
		table.Row{"#", "Episode", "Status", "Steps", "Duration"},
		rows, 1, 4, 5,
	)
}

// recordBatch journals every episode of the batch; journal failures are
// logged, never fatal.
func recordBatch(ctx context.Context, cmdCtx *commandContext, logger *slog.Logger, reqs []config.Pipeline, results []*pipeline.Result) {
	store, err := cmdCtx.openJournal()
	if err != nil {
		logger.Warn("journal unavailable", "error", err)
		return
	}
	defer store.Close()
	for i, result := range results {
		if result == nil {
			continue
		}
		if err := store.Record(ctx, reqs[i].Label(), result); err != nil {
			logger.Warn("journal write failed", "error", err)
		}
	}
}

func countFailed(results []*pipeline.Result) int {
	failed := 0
	for _, result := range results {
		if result != nil && result.Failed() {
			failed++
		}
	}
	return failed
}
