package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/calmbridge/internal/codec"
	"github.com/danielpatrickdp/calmbridge/internal/coach"
)

func newNarrateCmd(c *cli) *cobra.Command {
	var (
		q        coach.Query
		remote   string
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Print the coach frame for a calmness value",
		Example: `  calmbridge narrate --calmness 55 --step DRILL --anchor fox
  calmbridge narrate --calmness 20 --remote localhost:9090 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				frame coach.Frame
				err   error
			)
			if remote != "" {
				frame, err = narrateRemote(cmd, remote, q)
			} else {
				frame, err = narrateLocal(c, q)
			}
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(cmd.OutOrStdout(), frame)
			}
			printFrame(cmd.OutOrStdout(), frame)
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Calmness, "calmness", 40, "calmness 0-100 (clamped)")
	cmd.Flags().StringVar(&q.Step, "step", "", "procedure step: IDLE, DRILL or INJECTION")
	cmd.Flags().StringVar(&q.Anchor, "anchor", "", "anchor key chosen by the child")
	cmd.Flags().StringVar(&q.Language, "lang", "", "script language")
	cmd.Flags().BoolVar(&q.Muted, "muted", false, "omit the speech utterance")
	cmd.Flags().StringVar(&remote, "remote", "", "narrate through a calmbridge gRPC server at this address")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output as JSON")
	return cmd
}

func narrateLocal(c *cli, q coach.Query) (coach.Frame, error) {
	st, err := q.State()
	if err != nil {
		return coach.Frame{}, err
	}
	if q.Language == "" && c.cfg.Scripts.DefaultLanguage != "" {
		st.Language = c.cfg.Scripts.DefaultLanguage
	}
	catalog, err := loadCatalog(c.cfg)
	if err != nil {
		return coach.Frame{}, err
	}
	return coach.NewPipeline(c.cfg.PipelineConfig(), catalog).Narrate(st), nil
}

func narrateRemote(cmd *cobra.Command, addr string, q coach.Query) (coach.Frame, error) {
	client, err := codec.NewCoachClient(addr)
	if err != nil {
		return coach.Frame{}, err
	}
	defer client.Close()
	return client.Narrate(cmd.Context(), q)
}

func printFrame(w io.Writer, f coach.Frame) {
	fmt.Fprintf(w, "%s\n", f.StatusLabel)
	fmt.Fprintf(w, "Calmness:  %d\n", f.Calmness)
	fmt.Fprintf(w, "State:     %s\n", f.StateTag)
	fmt.Fprintf(w, "Step:      %s\n", f.Step)
	fmt.Fprintf(w, "Anchor:    %s\n", f.Anchor)
	fmt.Fprintf(w, "Breathing: %s in / %s out\n", f.Breathing.Inhale, f.Breathing.Exhale)
	if f.Utterance != nil {
		fmt.Fprintf(w, "Voice:     %s x%.2f\n", f.Utterance.Language, f.Utterance.Rate)
	} else {
		fmt.Fprintf(w, "Voice:     muted\n")
	}
	fmt.Fprintf(w, "\n%s\n", f.Text)
	for _, warn := range f.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
