package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tastemap/internal/config"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	username   string
	localFile  string
	source     string
	savePath   string
	cache      bool
	verbose    bool
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tastemap",
		Short: "Rank your Spotify library by audio-feature similarity",
		Long: `tastemap builds a profile (mean and standard deviation per audio feature)
from your saved tracks or a playlist, then ranks tracks by how close they sit
to it. The library comes from the Spotify Web API, a JSON snapshot written
with --save-path, or the local SQLite cache.`,
		Version:       fmt.Sprintf("%s (%s)", version, gitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file path (default ./tastemap.yaml)")
	pf.StringVar(&opts.username, "spotify-username", "", "Spotify user whose library is fetched")
	pf.StringVar(&opts.localFile, "local-file", "", "read the library from a JSON snapshot instead of Spotify")
	pf.StringVar(&opts.source, "source", "", "library source: remote, file or sqlite")
	pf.StringVar(&opts.savePath, "save-path", "", "write the fetched library to this JSON snapshot")
	pf.BoolVar(&opts.cache, "cache", false, "write the library and playlists through to the SQLite cache")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("spotify-username", "local-file")

	cmd.AddCommand(
		favoritesCmd(opts),
		recommendCmd(opts),
		scoreCmd(opts),
		profileCmd(opts),
		fetchCmd(opts),
		graphCmd(opts),
		authRootCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	return cmd
}

// loadConfig layers the global flags over the file and environment
// configuration, validates the result and initializes logging.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("spotify-username") {
		cfg.Spotify.Username = opts.username
	}
	if opts.localFile != "" {
		cfg.Source.LocalFile = opts.localFile
		if !flags.Changed("source") {
			cfg.Source.Kind = config.SourceFile
		}
	}
	if flags.Changed("source") {
		cfg.Source.Kind = opts.source
	}
	if opts.savePath != "" {
		cfg.Source.SavePath = opts.savePath
	}
	if opts.cache {
		cfg.Cache.WriteThrough = true
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
		Output:    os.Stderr,
	})
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "tastemap %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Git commit: %s\n", gitCommit)
			return nil
		},
	}
}
