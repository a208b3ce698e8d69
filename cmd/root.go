package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// root command flags.
var (
	// channelID is the Twitch user ID whose archived broadcasts are clipped.
	channelID string
	// steamID3 is the 32-bit Steam account ID of the tracked player.
	steamID3 int64
	// dbPath overrides DATABASE_PATH for the clip and offset ledger.
	dbPath string
	// listOnly prints the channel's clip ledger instead of running.
	listOnly bool
)

var rootCmd = &cobra.Command{
	Use:   "highlight-clipper",
	Short: "Cut Deadlock highlight clips out of Twitch VODs",
	Long: `Matches a player's Deadlock match history against a Twitch channel's
archived broadcasts, detects highlight events (multi-kills, team fights, ...)
and extracts one clip per event.

Clips already on disk are skipped, so re-running is cheap.

Examples:
  highlight-clipper -c 123456789 -s 987654321
  LOG_LEVEL=info ENABLED_DETECTORS=kill,multikill highlight-clipper -c 123456789 -s 987654321`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClipper,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run; an
// interrupted run exits 0.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, color.YellowString("interrupted by user"))
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
	stop()
	os.Exit(1)
}

func init() {
	rootCmd.Flags().StringVarP(&channelID, "channel-id", "c", "", "Twitch channel (user) ID (required)")
	rootCmd.Flags().Int64VarP(&steamID3, "steam-id3", "s", 0, "player's 32-bit Steam account ID (required unless --list)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite ledger (default $DATABASE_PATH or clipper.db)")
	rootCmd.Flags().BoolVar(&listOnly, "list", false, "print the clip ledger for the channel and exit (no Twitch credentials needed)")
	_ = rootCmd.MarkFlagRequired("channel-id")
}
