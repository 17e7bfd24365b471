package cli

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fabla-transcriber/internal/config"
	"fabla-transcriber/internal/diagnostics"
	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/logging"
	"fabla-transcriber/internal/transcribe"
	"fabla-transcriber/internal/version"
)

// Dependencies are resolved once per invocation. Fields left nil are filled in
// by the root command before any subcommand runs.
type Dependencies struct {
	ConfigPath string
	Store      config.Store
	Settings   domain.Settings
	Logger     *slog.Logger
	Out        io.Writer
	NewEngine  func(domain.Settings, *slog.Logger) (transcribe.Engine, error)
	Checker    *diagnostics.Checker
	HTTPClient *http.Client
	HomeDir    func() (string, error)

	logLevel string
	noColor  bool
	log      *logging.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fabla",
		Short: "Batch-transcribe Fabla audio recordings into a CSV table",
		Long: "Transcribes every audio file in a folder with a speech-to-text model and writes one\n" +
			"transcripts.csv with filename, participant ID, date, time, and transcript columns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return deps.resolve()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return deps.log.Close()
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVar(&deps.ConfigPath, "config", "", "Settings file (.toml or .json; default ~/.fabla-transcriber/config.toml)")
	rootCmd.PersistentFlags().StringVar(&deps.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&deps.noColor, "no-color", false, "Disable colored log output")

	rootCmd.AddCommand(NewTranscribeCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewModelsCmd(deps))
	rootCmd.AddCommand(NewConfigCmd(deps))
	rootCmd.AddCommand(NewShowCmd(deps))

	return rootCmd
}

// resolve loads settings and builds the logger unless already provided.
func (d *Dependencies) resolve() error {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Store == nil {
		d.Store = config.OpenStore(d.ConfigPath)
	}
	settings, err := config.Resolve(d.Store)
	if err != nil {
		return err
	}
	d.Settings = settings

	if d.Logger == nil {
		raw := d.logLevel
		if strings.TrimSpace(raw) == "" {
			raw = settings.LogLevel
		}
		level, err := logging.ParseLevel(raw)
		if err != nil {
			return err
		}
		color := logging.ColorAuto
		if d.noColor {
			color = logging.ColorNever
		}
		l, err := logging.New(logging.Options{Level: level, Color: color, File: settings.LogFile})
		if err != nil {
			return err
		}
		d.log = l
		d.Logger = l.Logger
	}

	if d.NewEngine == nil {
		d.NewEngine = transcribe.NewEngine
	}
	if d.Checker == nil {
		d.Checker = diagnostics.NewChecker()
	}
	if d.HomeDir == nil {
		d.HomeDir = os.UserHomeDir
	}
	return nil
}
