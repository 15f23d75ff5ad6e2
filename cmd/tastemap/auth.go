package main

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tastemap/internal/adapters/spotify"
)

// authRootCmd returns the "auth" command group for the Spotify OAuth token.
func authRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Spotify authorization",
		Long:  `Authorize tastemap to read your library. Tokens are stored per username in the user config directory.`,
	}

	cmd.AddCommand(authLoginCmd(opts))
	cmd.AddCommand(authStatusCmd(opts))
	cmd.AddCommand(authLogoutCmd(opts))
	return cmd
}

func authLoginCmd(opts *rootOptions) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize via the browser and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
			if cfg.Spotify.Username == "" {
				return errNoUsername
			}
			auth, err := newAuthenticator(cfg)
			if err != nil {
				return err
			}

			open := func(url string) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to authorize tastemap:\n\n  %s\n\n", url)
				if noBrowser {
					return nil
				}
				if err := openBrowser(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "(could not open a browser: %v)\n", err)
				}
				return nil
			}

			if err := auth.Login(cmd.Context(), cfg.Spotify.Username, open); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s\n", cfg.Spotify.Username)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL without opening a browser")
	return cmd
}

func authStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token for the username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Spotify.Username == "" {
				return errNoUsername
			}
			store, err := spotify.NewTokenStore(cfg.Spotify.TokenFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tok, err := store.Load(cfg.Spotify.Username)
			if errors.Is(err, spotify.ErrNotLoggedIn) {
				fmt.Fprintf(out, "%s: not logged in\n", cfg.Spotify.Username)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "User:       %s\n", cfg.Spotify.Username)
			fmt.Fprintf(out, "Stored in:  %s\n", store.Path())
			if !tok.Expiry.IsZero() {
				state := "valid"
				if time.Now().After(tok.Expiry) {
					state = "expired"
				}
				fmt.Fprintf(out, "Expires:    %s (%s)\n", tok.Expiry.Format(time.RFC3339), state)
			}
			if tok.RefreshToken != "" {
				fmt.Fprintln(out, "Refresh:    available")
			}
			return nil
		},
	}
}

func authLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token for the username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cfg.Spotify.Username == "" {
				return errNoUsername
			}
			store, err := spotify.NewTokenStore(cfg.Spotify.TokenFile)
			if err != nil {
				return err
			}
			if err := store.Delete(cfg.Spotify.Username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed token for %s\n", cfg.Spotify.Username)
			return nil
		},
	}
}

// openBrowser opens a URL in the user's default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
