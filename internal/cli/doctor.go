package cli

import (
	"github.com/spf13/cobra"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check ffmpeg, whisper.cpp, models, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(deps.Out)
			report := deps.Checker.Run(deps.Settings)
			for _, item := range report.Items {
				f.Check(item)
			}

			if report.HasFailures {
				f.Warning("Some prerequisites are missing.")
			} else {
				f.Success("All prerequisites met. Ready to transcribe!")
			}
			return nil
		},
	}
}
