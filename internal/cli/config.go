package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"fabla-transcriber/internal/batch"
	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/logging"
)

func NewConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change saved settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print effective settings as TOML",
			RunE: func(cmd *cobra.Command, args []string) error {
				return toml.NewEncoder(deps.Out).Encode(deps.Settings)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(deps.Out, deps.Store.Path())
				return err
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one saved setting",
			Long: "Keys: engine, model, model_path, language, output_dir, delimiter, id_position,\n" +
				"date_position, time_position, extensions, ffmpeg_path, whisper_path, log_level, log_file.",
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				// Save only stored values; env overrides stay out of the file.
				stored, err := deps.Store.Load()
				if err != nil {
					return err
				}
				updated, err := setKey(stored, args[0], args[1])
				if err != nil {
					return err
				}
				if err := deps.Store.Save(updated); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				NewFormatter(deps.Out).Success(fmt.Sprintf("%s = %s", args[0], args[1]))
				return nil
			},
		},
	)
	return cmd
}

func setKey(s domain.Settings, key, value string) (domain.Settings, error) {
	position := func(dst *int) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		*dst = n
		return nil
	}

	var err error
	switch strings.ToLower(key) {
	case "engine":
		v := strings.ToLower(value)
		if v != domain.EngineWhisperCpp && v != domain.EngineOpenAI {
			return s, fmt.Errorf("engine must be %s or %s", domain.EngineWhisperCpp, domain.EngineOpenAI)
		}
		s.Engine = v
	case "model", "model_name":
		s.ModelName = value
	case "model_path":
		s.ModelPath = value
	case "language":
		s.Language = value
	case "output_dir":
		s.OutputDir = value
	case "delimiter":
		if value == "" {
			return s, fmt.Errorf("delimiter must not be empty")
		}
		s.Delimiter = value
	case "id_position":
		err = position(&s.IDPosition)
	case "date_position":
		err = position(&s.DatePosition)
	case "time_position":
		err = position(&s.TimePosition)
	case "extensions":
		exts, perr := batch.ParseExtensions(value)
		if perr != nil {
			return s, perr
		}
		s.Extensions = exts.Sorted()
	case "ffmpeg_path":
		s.FFmpegPath = value
	case "whisper_path":
		s.WhisperPath = value
	case "log_level":
		if _, err := logging.ParseLevel(value); err != nil {
			return s, err
		}
		s.LogLevel = value
	case "log_file":
		s.LogFile = value
	default:
		return s, fmt.Errorf("unknown setting %q", key)
	}
	return s, err
}
