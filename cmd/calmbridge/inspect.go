package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/session"
)

func newInspectCmd(c *cli) *cobra.Command {
	var (
		dbPath    string
		sessionID string
		last      int
		jsonFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List stored sessions or the version history of one session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = c.cfg.Storage.Path
			}
			if dbPath == "" || dbPath == ":memory:" {
				return errors.New("--db is required: an in-memory store has no sessions to inspect")
			}
			a, err := openApp(c.cfg, c.logger, dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, out := cmd.Context(), cmd.OutOrStdout()
			if sessionID == "" {
				sessions, err := a.sessions.List(ctx, last)
				if err != nil {
					return err
				}
				if jsonFlag {
					return printJSON(out, sessions)
				}
				printSessions(out, sessions)
				return nil
			}

			versions, err := a.sessions.History(ctx, sessionID, last)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(out, versions)
			}
			printVersions(out, a.pipeline, versions)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to storage.path)")
	cmd.Flags().StringVar(&sessionID, "session", "", "show the history of this session")
	cmd.Flags().IntVar(&last, "last", 20, "number of rows to show")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output as JSON")
	return cmd
}

func printSessions(w io.Writer, sessions []session.Summary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return
	}
	fmt.Fprintf(w, "%-12s  %8s  %-12s  %-20s  %s\n", "Session", "Versions", "Active", "Created", "Updated")
	fmt.Fprintf(w, "%-12s+-%8s+-%-12s+-%-20s+-%s\n",
		strings.Repeat("-", 12), strings.Repeat("-", 8), strings.Repeat("-", 12),
		strings.Repeat("-", 20), strings.Repeat("-", 20))
	for _, s := range sessions {
		fmt.Fprintf(w, "%-12s  %8d  %-12s  %-20s  %s\n",
			shortID(s.SessionID), s.Versions, shortID(s.ActiveVersion),
			s.CreatedAt.Format(time.DateTime), s.UpdatedAt.Format(time.DateTime))
	}
}

// printVersions lists versions newest first and marks the active one.
func printVersions(w io.Writer, p *coach.Pipeline, versions []session.Version) {
	if len(versions) == 0 {
		fmt.Fprintln(w, "no versions")
		return
	}
	fmt.Fprintf(w, "  %-12s  %-12s  %-14s  %8s  %-7s  %-10s  %-10s  %s\n",
		"Version", "Parent", "Trigger", "Calmness", "Status", "Step", "Anchor", "Created")
	for _, v := range versions {
		marker := " "
		if v.Active {
			marker = "*"
		}
		anchor := v.State.AnchorKey
		if anchor == "" {
			anchor = "-"
		}
		fmt.Fprintf(w, "%s %-12s  %-12s  %-14s  %8d  %-7s  %-10s  %-10s  %s\n",
			marker, shortID(v.VersionID), shortID(v.ParentID), v.Trigger,
			v.State.Calmness, p.Narrate(v.State).Status, v.State.Step, anchor,
			v.CreatedAt.Format(time.DateTime))
	}
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
