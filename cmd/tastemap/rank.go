package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tastemap/internal/adapters/render"
	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

// playlistFlags selects an optional reference playlist.
type playlistFlags struct {
	owner string
	id    string
}

func (p *playlistFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.owner, "playlist-owner", "", "owner of the reference playlist")
	cmd.Flags().StringVar(&p.id, "playlist-id", "", "reference playlist id, URI or URL (profile is built from it)")
}

func (p *playlistFlags) ref() (*domain.PlaylistRef, error) {
	if p.id == "" {
		if p.owner != "" {
			return nil, errors.New("playlist-owner requires playlist-id")
		}
		return nil, nil
	}
	ref, err := domain.ParsePlaylistRef(p.owner, p.id)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// printRanking prints the table and turns a shortfall into a warning.
func printRanking(cmd *cobra.Command, title string, res services.Ranking, err error) error {
	if err != nil && !errors.Is(err, ranking.ErrInsufficientItems) {
		return err
	}
	if err := render.NewPrinter(cmd.OutOrStdout()).Ranking(title, res.Items); err != nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: only %d of %d requested tracks available\n", len(res.Items), res.Requested)
	}
	return nil
}

func favoritesCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		farthest bool
		playlist playlistFlags
	)

	cmd := &cobra.Command{
		Use:   "get-favorites",
		Short: "List the library tracks closest to the profile",
		Long: `Rank the library by distance from the profile of the library, or of a
playlist when --playlist-id is given, and print the closest tracks.
With --farthest the least typical tracks are listed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := playlist.ref()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.analyzer.Favorites(cmd.Context(), services.FavoritesRequest{
				Limit:    limit,
				Playlist: ref,
				Farthest: farthest,
			})
			direction := "closest to"
			if farthest {
				direction = "farthest from"
			}
			title := fmt.Sprintf("Top %d tracks %s the %s profile", limit, direction, res.Source)
			return printRanking(cmd, title, res, err)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of tracks to list")
	cmd.Flags().BoolVar(&farthest, "farthest", false, "list the tracks farthest from the profile")
	playlist.register(cmd)
	return cmd
}

func recommendCmd(opts *rootOptions) *cobra.Command {
	var (
		artist   string
		limit    int
		playlist playlistFlags
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank an artist's top tracks against the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := playlist.ref()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.analyzer.Recommend(cmd.Context(), services.RecommendRequest{
				Artist:   artist,
				Limit:    limit,
				Playlist: ref,
			})
			title := fmt.Sprintf("%s tracks closest to the %s profile", artist, res.Source)
			return printRanking(cmd, title, res, err)
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of tracks to list")
	_ = cmd.MarkFlagRequired("artist")
	playlist.register(cmd)
	return cmd
}

func scoreCmd(opts *rootOptions) *cobra.Command {
	var (
		title    string
		artist   string
		playlist playlistFlags
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Explain one track's distance from the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := playlist.ref()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			score, err := a.analyzer.ScoreTrack(cmd.Context(), title, artist, ref)
			if err != nil {
				return err
			}
			return render.NewPrinter(cmd.OutOrStdout()).Breakdown(score.Track, score.Breakdown)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "track title")
	cmd.Flags().StringVar(&artist, "artist", "", "artist name")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("artist")
	playlist.register(cmd)
	return cmd
}

func profileCmd(opts *rootOptions) *cobra.Command {
	var playlist playlistFlags

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the per-feature mean and standard deviation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := playlist.ref()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.analyzer.Profile(cmd.Context(), ref)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("Profile of %s (%d tracks)", report.Source, report.Population)
			return render.NewPrinter(cmd.OutOrStdout()).Profile(title, report.Profile, report.Population)
		},
	}

	playlist.register(cmd)
	return cmd
}

func fetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Load the library, resolve audio features and save it",
		Long: `Fetch the library from the configured source, resolve missing audio
features and write it to --save-path and/or the SQLite cache (--cache).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Source.SavePath == "" && !cfg.Cache.WriteThrough {
				return errors.New("nothing to save to: pass --save-path or --cache")
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			lib, err := a.analyzer.LoadLibrary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d tracks (%d without audio features)\n", lib.Len(), len(lib.Unresolved()))
			return nil
		},
	}
}
