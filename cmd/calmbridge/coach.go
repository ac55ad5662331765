package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/tui"
)

func newCoachCmd(c *cli) *cobra.Command {
	var (
		lang      string
		calmness  int
		step      string
		sessionID string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Open the terminal breathing coach",
		Long: `coach opens the interactive coach screen. Without --session a new
session is started; with it an existing session from --db is resumed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(c.cfg, c.logger, dbPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var view session.View
			if sessionID != "" {
				view, err = a.sessions.Get(ctx, sessionID)
			} else {
				in := session.StartInput{Language: lang}
				if in.Step, err = script.ParseStep(step); err != nil {
					return err
				}
				if cmd.Flags().Changed("calmness") {
					in.Calmness = &calmness
				}
				view, err = a.sessions.Start(ctx, in)
			}
			if err != nil {
				return err
			}
			return tui.Run(ctx, a.sessions, view)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "script language (defaults to scripts.default_language)")
	cmd.Flags().IntVar(&calmness, "calmness", 0, "starting calmness 0-100")
	cmd.Flags().StringVar(&step, "step", "", "starting step: IDLE, DRILL or INJECTION")
	cmd.Flags().StringVar(&sessionID, "session", "", "resume this session id")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	return cmd
}
