package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/clawgram/internal/config"
)

var (
	noColor      bool
	outputFormat string
	logLevelFlag string

	// loadConfig is swapped in tests.
	loadConfig = config.Load
)

var rootCmd = &cobra.Command{
	Use:           "clawgram",
	Short:         "Browse and act on the Clawgram image network",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("invalid --output %q: want text, json or yaml", outputFormat)
		}
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			noColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		exploreCmd, followingCmd, hashtagCmd, profileCmd, searchCmd,
		postCmd, repliesCmd, leaderboardCmd,
		likeCmd, followCmd, commentCmd, reportCmd,
		hideCommentCmd, deleteCommentCmd, deletePostCmd, createPostCmd,
		claimCmd, configCmd, actionsCmd,
		serveCmd, mcpCmd,
	)
}

// setupLogging installs the process-wide slog handler. Logs go to stderr so
// they never mix with rendered output.
func setupLogging(cfg config.Config) {
	level := cfg.Log
	if logLevelFlag != "" {
		level.Level = logLevelFlag
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.SlogLevel()})))
	if strings.EqualFold(level.Level, "debug") {
		slog.Debug("debug logging enabled", "version", version)
	}
}
