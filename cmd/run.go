package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/highlight-clipper/internal/align"
	"github.com/pable/highlight-clipper/internal/clipper"
	"github.com/pable/highlight-clipper/internal/config"
	"github.com/pable/highlight-clipper/internal/deadlock"
	"github.com/pable/highlight-clipper/internal/detect"
	"github.com/pable/highlight-clipper/internal/logger"
	"github.com/pable/highlight-clipper/internal/media"
	"github.com/pable/highlight-clipper/internal/metrics"
	"github.com/pable/highlight-clipper/internal/report"
	"github.com/pable/highlight-clipper/internal/storage"
	"github.com/pable/highlight-clipper/internal/twitch"
)

func runClipper(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := checkFlags(cmd, listOnly); err != nil {
		return err
	}
	cfg, err := loadConfig(listOnly)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}

	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if listOnly {
		clips, err := db.ListClips(ctx, channelID)
		if err != nil {
			return fmt.Errorf("list clips: %w", err)
		}
		report.PrintClipLedger(cmd.OutOrStdout(), clips)
		return nil
	}

	p, m, err := buildPipeline(cfg, db, log)
	if err != nil {
		return err
	}

	started := time.Now()
	sum, runErr := p.Run(ctx, channelID, steamID3)

	report.PrintRunSummary(cmd.OutOrStdout(), sum)
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn(ctx, "metrics not written", logger.Error(err))
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
			log.Warn(context.Background(), "interrupted by user")
			return nil
		}
		return runErr
	}
	log.Info(ctx, "run finished", logger.String("elapsed", time.Since(started).Round(time.Second).String()))
	return nil
}

// checkFlags enforces -s for clipping runs. Listing the ledger needs only -c.
func checkFlags(cmd *cobra.Command, list bool) error {
	if !list && !cmd.Flags().Changed("steam-id3") {
		return errors.New(`required flag(s) "steam-id3" not set`)
	}
	return nil
}

// loadConfig skips the Twitch credential check when only the ledger is read.
func loadConfig(list bool) (*config.Config, error) {
	if list {
		return config.LoadLocal()
	}
	return config.Load()
}

// buildPipeline wires the clients, tools and ledger described by cfg.
func buildPipeline(cfg *config.Config, db *storage.DB, log logger.Logger) (*clipper.Pipeline, *metrics.Manager, error) {
	kinds, err := cfg.Detectors()
	if err != nil {
		return nil, nil, err
	}
	params := detect.Params{
		MultiKill: detect.Grouping{
			Threshold: time.Duration(cfg.MultikillThresholdSeconds) * time.Second,
			MinSize:   cfg.MultikillMinKills,
		},
		TeamFight: detect.Grouping{
			Threshold: time.Duration(cfg.TeamFightsThresholdSeconds) * time.Second,
			MinSize:   cfg.TeamFightsMinKills,
		},
		TeamFightMaxY: cfg.TeamFightsMaxY,
	}

	extractor := media.NewYtDlpExtractor(cfg.YtDlpPath, cfg.FFmpegPath)
	frames := media.NewFFmpegFrameReader(cfg.FFmpegPath, cfg.FrameSampleInterval, media.NewTesseractOCR(cfg.TesseractPath))
	m := metrics.NewManager()

	p := clipper.New(clipper.Deps{
		Videos:    twitch.NewClient(cfg.TwitchAPIURL, cfg.TwitchClientID, cfg.TwitchAccessToken, cfg.APIRequestsPerMinute),
		Matches:   deadlock.NewClient(cfg.DeadlockAPIURL, cfg.APIRequestsPerMinute).WithStore(db),
		Detector:  detect.New(params, kinds...),
		Aligner:   align.New(extractor, frames, cfg.AlignmentMargin(), cfg.WorkDirectory, log),
		Extractor: extractor,
		Ledger:    db,
		Metrics:   m,
		Logger:    log,
	}, clipper.Options{
		OutputDir:     cfg.OutputDirectory,
		Padding:       cfg.ClipPadding(),
		MaxConcurrent: cfg.MaxConcurrentClips,
	})
	return p, m, nil
}
