package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rushweb/internal/attendance"
	"rushweb/internal/qrcode"
	"rushweb/internal/rushclient"
)

var errNoToken = errors.New("a session token is required: pass --token or set RUSH_TOKEN")

func (a *App) requireToken() error {
	if a.token == "" {
		return errNoToken
	}
	return nil
}

func sessionsCmd(app *App) *cobra.Command {
	var (
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.ctx(cmd.Context())

			var (
				sessions []rushclient.Session
				hasNext  bool
			)
			if all {
				pager := rushclient.NewPager[rushclient.Session](app.client.ListSessions, pageSize)
				collected, err := rushclient.CollectAll(ctx, pager)
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				sessions = collected
			} else {
				result, err := app.client.ListSessions(ctx, rushclient.PageOffset(page, pageSize), pageSize)
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				sessions = result.Items
				hasNext = result.HasNext()
			}

			w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTS AT\tNAME\tSCORE\tATTENDANCE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, app.dates.SlashWithDay(s.StartsAt), s.Name, s.Score, s.AttendanceStatus)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if hasNext {
				fmt.Fprintf(app.out, "\nmore: --page %d\n", page+1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "sessions per page")
	cmd.Flags().BoolVar(&all, "all", false, "walk every page")
	return cmd
}

func whoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the session token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireToken(); err != nil {
				return err
			}
			ctx := app.ctx(cmd.Context())
			if err := app.client.CheckAuth(ctx); err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			userAuth, err := app.client.GetUserAuth(ctx)
			if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
			fmt.Fprintf(app.out, "user: %s\nrole: %s\n", userAuth.UserID, userAuth.Role)
			return nil
		},
	}
}

func exportAttendanceCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-attendance",
		Short: "Write the half-year attendance matrix to an .xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireToken(); err != nil {
				return err
			}
			half, err := app.client.GetHalfYearAttendances(app.ctx(cmd.Context()))
			if err != nil {
				return fmt.Errorf("failed to load attendance: %w", err)
			}
			m := attendance.BuildMatrix(half.Users, half.Sessions, half.Attendances)

			var buf bytes.Buffer
			if err := attendance.ExportXLSX(&buf, m, app.dates); err != nil {
				return err
			}
			if out == "" {
				out = attendance.ExportFileName(app.now(), app.dates)
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			app.logger.Info("attendance exported",
				zap.String("file", out),
				zap.Int("users", len(m.Rows)),
				zap.Int("sessions", len(m.Columns)),
			)
			fmt.Fprintln(app.out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default 출석_<now>.xlsx)")
	return cmd
}

func sessionQRCmd(app *App) *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "session-qr <session-id>",
		Short: "Write the attendance form QR of a session as a captioned PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.client.GetSession(app.ctx(cmd.Context()), args[0])
			if err != nil {
				return fmt.Errorf("failed to load session: %w", err)
			}
			if !session.HasForm() {
				return fmt.Errorf("session %s has no attendance form yet", session.ID)
			}
			img, err := qrcode.Compose(session.GoogleFormURI, size, app.dates.MonthOrdinal(session.StartsAt))
			if err != nil {
				return err
			}
			if out == "" {
				out = img.FileName
			}
			if err := os.WriteFile(out, img.PNG, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintln(app.out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <Month Nth>.png)")
	cmd.Flags().IntVar(&size, "size", qrcode.DownloadSize, "QR size in pixels")
	return cmd
}
