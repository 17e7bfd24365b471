package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fabla-transcriber/internal/batch"
	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/export"
	"fabla-transcriber/internal/filename"
	"fabla-transcriber/internal/transcribe"
)

type transcribeOptions struct {
	output    string
	downloads bool
	delimiter string
	idPos     string
	datePos   string
	timePos   string
	types     string
	engine    string
	model     string
	language  string
}

func NewTranscribeCmd(deps *Dependencies) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe FOLDER",
		Short: "Transcribe every audio file in a folder into transcripts.csv",
		Long: "Transcribes the audio files directly inside FOLDER (subfolders are not searched) and\n" +
			"writes FOLDER/transcripts.csv. Participant ID, date, and time are taken from the\n" +
			"filename, split on the delimiter (default PARTICIPANT_DATE_TIME.ext).\n" +
			"A file given instead of a folder selects its parent folder.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, deps, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "Output CSV path (default FOLDER/transcripts.csv)")
	f.BoolVar(&opts.downloads, "downloads", false, "Write to ~/Downloads/<folder>_transcripts/transcripts.csv")
	f.StringVar(&opts.delimiter, "delimiter", "", "Filename delimiter (default \"_\")")
	f.StringVar(&opts.idPos, "id-pos", "", "Participant ID position (0-based, default 0)")
	f.StringVar(&opts.datePos, "date-pos", "", "Date position (0-based, default 1)")
	f.StringVar(&opts.timePos, "time-pos", "", "Time position (0-based, default 2)")
	f.StringVarP(&opts.types, "types", "t", "", "File types: "+strings.Join(batch.PresetNames(), ", ")+", or a list like \".wav,.m4a\"")
	f.StringVar(&opts.engine, "engine", "", "Speech-to-text engine: whispercpp or openai")
	f.StringVarP(&opts.model, "model", "m", "", "Model name (whisper.cpp size like base, or an OpenAI model)")
	f.StringVarP(&opts.language, "language", "l", "", "Spoken language code, or auto")

	return cmd
}

func runTranscribe(cmd *cobra.Command, deps *Dependencies, opts transcribeOptions, target string) error {
	out := NewFormatter(deps.Out)
	settings := deps.Settings
	if opts.engine != "" {
		settings.Engine = opts.engine
	}
	if opts.model != "" {
		settings.ModelName = opts.model
	}
	if opts.language != "" {
		settings.Language = opts.language
	}

	folder, err := batch.ResolveFolder(target)
	if err != nil {
		return err
	}

	exts := batch.NewExtensionSet(settings.Extensions...)
	if opts.types != "" || len(exts) == 0 {
		if exts, err = batch.ParseExtensions(opts.types); err != nil {
			return err
		}
	}

	layout, layoutErr := filename.ParseConfig(
		orDefault(opts.delimiter, settings.Delimiter),
		orDefault(opts.idPos, strconv.Itoa(settings.IDPosition)),
		orDefault(opts.datePos, strconv.Itoa(settings.DatePosition)),
		orDefault(opts.timePos, strconv.Itoa(settings.TimePosition)),
	)
	if layoutErr != nil {
		out.Warning(layoutErr.Error())
	}

	output := opts.output
	switch {
	case output != "":
	case opts.downloads:
		home, err := deps.HomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		if output, err = batch.DownloadsOutputPath(home, folder); err != nil {
			return err
		}
	default:
		output = batch.OutputPath(settings.OutputDir, folder)
	}

	logger := deps.Logger.With("run", uuid.NewString())
	engine, err := deps.NewEngine(settings, logger)
	if err != nil {
		return err
	}

	out.Info("Processing folder: " + folder)
	out.Info("File types: " + exts.String())

	orch := batch.New(engine, batch.WithLogger(logger))
	summary, err := orch.Run(cmd.Context(), batch.Request{
		Folder:     folder,
		Output:     output,
		ModelName:  transcribe.ModelRef(settings, logger),
		Filename:   layout,
		Extensions: exts,
		OnProgress: out.Progress,
		OnLog:      out.LogLine,
	})
	out.Failures(summary.Failures)

	if err != nil {
		var wErr *export.WriteError
		if errors.As(err, &wErr) && len(summary.Records) > 0 {
			out.Warning(fmt.Sprintf("%d transcript(s) were not saved; rerun with --output to choose another location", len(summary.Records)))
		}
		return err
	}
	if summary.Status == domain.BatchStatusCompletedEmpty {
		out.Warning("No transcripts written")
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
