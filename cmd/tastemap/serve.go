package main

import (
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tastemap/internal/adapters/rest"
	"github.com/ewilliams-labs/tastemap/internal/logging"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rankings over HTTP",
		Long:  `Load the library once, then answer /favorites, /profile, /recommend and /score over HTTP until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
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
			logging.Info().
				Int("tracks", lib.Len()).
				Int("unresolved", len(lib.Unresolved())).
				Msg("library loaded")

			return rest.Serve(cmd.Context(), rest.ServerConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, rest.NewHandler(a.analyzer, version))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
