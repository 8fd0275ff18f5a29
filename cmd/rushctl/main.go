package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rushweb/internal/config"
	"rushweb/internal/datefmt"
	"rushweb/internal/logging"
	"rushweb/internal/rushclient"
)

// App holds what every command needs.
type App struct {
	client *rushclient.Client
	dates  datefmt.Formatter
	logger *zap.Logger
	out    io.Writer
	token  string
	now    func() time.Time
}

// ctx carries the token. Rotated tokens are reported since the CLI cannot store them.
func (a *App) ctx(parent context.Context) context.Context {
	ctx := rushclient.WithToken(parent, a.token)
	return rushclient.WithTokenRotation(ctx, func(token string) {
		a.token = token
		a.logger.Info("backend rotated the session token; export RUSH_TOKEN to keep using it")
	})
}

type rootFlags struct {
	backend  string
	token    string
	timezone string
	env      string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		flags rootFlags
		app   = &App{out: out, now: time.Now}
	)

	rootCmd := &cobra.Command{
		Use:          "rushctl",
		Short:        "RU:SH CLI - sessions, attendance exports and QR codes",
		Long:         `A CLI over the RU:SH backend for exporting attendance and printing session QR codes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	defaults := config.Defaults()
	rootCmd.PersistentFlags().StringVar(&flags.backend, "backend", envOr("BACKEND_URL", defaults.BackendURL), "RU:SH backend URL")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("RUSH_TOKEN"), "session token (default $RUSH_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flags.timezone, "timezone", envOr("DISPLAY_TIMEZONE", defaults.DisplayTimezone), "display timezone")
	rootCmd.PersistentFlags().StringVarP(&flags.env, "env", "e", envOr("APP_ENV", "production"), "environment, selects the log format")

	rootCmd.AddCommand(sessionsCmd(app))
	rootCmd.AddCommand(whoamiCmd(app))
	rootCmd.AddCommand(exportAttendanceCmd(app))
	rootCmd.AddCommand(sessionQRCmd(app))
	return rootCmd
}

// initApp sets up logger and client
func initApp(app *App, flags rootFlags) error {
	app.logger = logging.NewTo(flags.env, os.Stderr)

	loc, err := time.LoadLocation(flags.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", flags.timezone, err)
	}
	app.dates = datefmt.New(loc)
	app.token = flags.token
	app.client = rushclient.New(flags.backend, config.Defaults().BackendTimeout, app.logger.Named("backend"))
	app.logger.Debug("client ready", zap.String("backend", app.client.BaseURL))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
