package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fabla-transcriber/internal/models"
)

func NewModelsCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and download whisper.cpp models",
	}
	cmd.AddCommand(newModelsListCmd(deps), newModelsDownloadCmd(deps))
	return cmd
}

func newModelsListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available models and which are downloaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(deps.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIZE\tSTATUS\tDESCRIPTION")
			for _, m := range models.List(deps.Settings.ModelPath) {
				status := "-"
				if m.Downloaded {
					status = "downloaded"
				}
				if m.ID == deps.Settings.ModelName {
					status += " (selected)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.SizeLabel, status, m.Description)
			}
			return tw.Flush()
		},
	}
}

func newModelsDownloadCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:       "download ID",
		Short:     "Download a model and select it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: models.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(deps.Out)
			model, ok := models.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown model %q (try `fabla models list`)", args[0])
			}

			dir, err := models.DownloadDir(deps.Settings.ModelPath)
			if err != nil {
				return err
			}
			f.Info(fmt.Sprintf("Downloading %s (%s) to %s", model.Name, model.SizeLabel, dir))
			path, err := models.Download(cmd.Context(), deps.HTTPClient, model, dir)
			if err != nil {
				return err
			}

			settings := deps.Settings
			settings.ModelPath = dir
			settings.ModelName = model.ID
			if err := deps.Store.Save(settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			deps.Settings = settings
			f.Success("Model saved: " + path)
			return nil
		},
	}
}
