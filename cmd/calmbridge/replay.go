package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/replay"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// errDiverged is returned when replayed frames do not match the fixture.
var errDiverged = errors.New("replay diverged from expected results")

func newReplayCmd(c *cli) *cobra.Command {
	var (
		fixturePath string
		dbPath      string
		sessionID   string
		exportPath  string
		jsonFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded session through the pipeline",
		Long: `replay runs a fixture (--fixture) or a stored session (--db with
--session) through the current scripts and thresholds and compares each
frame against the recorded expectation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				f   *replay.Fixture
				err error
			)
			switch {
			case fixturePath != "":
				f, err = replay.LoadFixture(fixturePath)
			case dbPath != "" && sessionID != "":
				f, err = exportSession(cmd, c, dbPath, sessionID)
			default:
				return errors.New("either --fixture or --db with --session is required")
			}
			if err != nil {
				return err
			}

			if exportPath != "" {
				if err := replay.WriteFixture(exportPath, f); err != nil {
					return err
				}
				c.logger.Info("fixture written", zap.String("path", exportPath), zap.Int("events", len(f.Events)))
			}

			catalog, err := loadCatalog(c.cfg)
			if err != nil {
				return err
			}
			pcfg := c.cfg.PipelineConfig()
			if f.Config != nil {
				pcfg = f.Config.ToPipelineConfig()
			}
			pipeline := coach.NewPipeline(pcfg, catalog)

			start := f.StartState.ToSessionState()
			results := replay.Replay(start, f.ToEvents(), pipeline)
			summary := replay.Summarize(results, start, pipeline)
			mismatches := f.Check(results)

			out := cmd.OutOrStdout()
			if jsonFlag {
				if err := printJSON(out, replayReport{Summary: summary, Mismatches: mismatches}); err != nil {
					return err
				}
			} else {
				printResults(out, f, results)
				printSummary(out, summary, mismatches)
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("%w: %d mismatches", errDiverged, len(mismatches))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to a JSON fixture")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to export the session from")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to replay from --db")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the replayed fixture to this path")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output as JSON")
	return cmd
}

type replayReport struct {
	Summary    replay.Summary    `json:"summary"`
	Mismatches []replay.Mismatch `json:"mismatches"`
}

func exportSession(cmd *cobra.Command, c *cli, dbPath, sessionID string) (*replay.Fixture, error) {
	a, err := openApp(c.cfg, c.logger, dbPath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	entries, err := a.sessions.Log(cmd.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	return replay.Export(sessionID, entries)
}

func printResults(w io.Writer, f *replay.Fixture, results []replay.Result) {
	fmt.Fprintf(w, "%-8s| %-14s| %-9s| %-9s| %6s| %s\n", "Event", "Action", "Expected", "Replayed", "RMSSD", "Match")
	fmt.Fprintf(w, "%-8s+%-15s+%-10s+%-10s+%7s+%s\n",
		strings.Repeat("-", 8), strings.Repeat("-", 15), strings.Repeat("-", 10),
		strings.Repeat("-", 10), strings.Repeat("-", 7), strings.Repeat("-", 6))

	for i, r := range results {
		exp := "-"
		if i < len(f.ExpectedResults) && f.ExpectedResults[i].Status != "" {
			exp = f.ExpectedResults[i].Status
		}
		got := string(r.Frame.Status)
		if !r.Applied {
			got = "rejected"
		}
		match := "ok"
		switch {
		case exp == "-":
			match = ""
		case exp != got:
			match = "DIVERGE"
		}
		fmt.Fprintf(w, "%-8s| %-14s| %-9s| %-9s| %6d| %s\n", r.ID, r.Action.Type, exp, got, r.Frame.RMSSD, match)
	}
}

func printSummary(w io.Writer, s replay.Summary, mismatches []replay.Mismatch) {
	fmt.Fprintf(w, "\nSummary: %d events, %d applied, %d rejected, %d undos, %d status changes\n",
		s.TotalEvents, s.Applied, s.Rejected, s.Undos, s.Transitions)
	fmt.Fprintf(w, "RMSSD range: %d-%d ms\n", s.MinRMSSD, s.MaxRMSSD)
	for _, st := range []triage.Status{triage.StatusRed, triage.StatusYellow, triage.StatusGreen} {
		fmt.Fprintf(w, "  %-7s %d\n", st, s.ByStatus[st])
	}
	fmt.Fprintf(w, "Final: %s\n", s.FinalFrame.StatusLabel)

	if len(mismatches) == 0 {
		return
	}
	fmt.Fprintf(w, "\nMismatches:\n")
	for _, m := range mismatches {
		fmt.Fprintf(w, "  %s\n", m)
	}
}
