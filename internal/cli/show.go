package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabla-transcriber/internal/export"
)

func NewShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show CSV",
		Short: "Print the rows of a transcripts.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := export.Read(args[0])
			if err != nil {
				return err
			}
			for i, r := range records {
				if i > 0 {
					fmt.Fprintln(deps.Out)
				}
				fmt.Fprintf(deps.Out, "%s  [participant %s, %s %s]\n", r.Filename, dash(r.ParticipantID), dash(r.Date), dash(r.Time))
				fmt.Fprintf(deps.Out, "  %s\n", r.Transcript)
			}
			fmt.Fprintf(deps.Out, "\n%d row(s)\n", len(records))
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
