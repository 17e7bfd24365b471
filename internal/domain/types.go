package domain

// BatchStatus tracks the lifecycle of one batch transcription run.
type BatchStatus string

const (
	BatchStatusIdle           BatchStatus = "idle"
	BatchStatusRunning        BatchStatus = "running"
	BatchStatusCompleted      BatchStatus = "completed"
	BatchStatusCompletedEmpty BatchStatus = "completed_empty"
	BatchStatusFailed         BatchStatus = "failed"
	BatchStatusCancelled      BatchStatus = "cancelled"
)

// Default filename layout for Fabla recordings: PARTICIPANT_DATE_TIME.ext.
const (
	DefaultDelimiter    = "_"
	DefaultIDPosition   = 0
	DefaultDatePosition = 1
	DefaultTimePosition = 2
)

// FilenameConfig describes how participant ID, date, and time are laid out in a filename stem.
type FilenameConfig struct {
	Delimiter    string `json:"delimiter" toml:"delimiter"`
	IDPosition   int    `json:"idPosition" toml:"id_position"`
	DatePosition int    `json:"datePosition" toml:"date_position"`
	TimePosition int    `json:"timePosition" toml:"time_position"`
}

// DefaultFilenameConfig returns the Fabla ID_date_time layout.
func DefaultFilenameConfig() FilenameConfig {
	return FilenameConfig{
		Delimiter:    DefaultDelimiter,
		IDPosition:   DefaultIDPosition,
		DatePosition: DefaultDatePosition,
		TimePosition: DefaultTimePosition,
	}
}

// Outcome is the result of transcribing a single file: Text on success, Err on failure.
type Outcome struct {
	Text string
	Err  error
}

// OK reports whether the transcription succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// TranscriptRecord is one row of the output table.
type TranscriptRecord struct {
	Filename      string `json:"filename"`
	ParticipantID string `json:"participantId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Transcript    string `json:"transcript"`
}

// FileFailure records a per-file transcription failure.
type FileFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Progress is a read-only snapshot published while a batch runs.
type Progress struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}

// Summary is the terminal report of a batch run.
type Summary struct {
	Status     BatchStatus        `json:"status"`
	Attempted  int                `json:"attempted"`
	Recorded   int                `json:"recorded"`
	OutputPath string             `json:"outputPath,omitempty"`
	Failures   []FileFailure      `json:"failures,omitempty"`
	Records    []TranscriptRecord `json:"-"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Engine       string   `json:"engine" toml:"engine"`
	ModelPath    string   `json:"modelPath" toml:"model_path"`
	ModelName    string   `json:"modelName" toml:"model_name"`
	Language     string   `json:"language" toml:"language"`
	OutputDir    string   `json:"outputDir" toml:"output_dir"`
	Delimiter    string   `json:"delimiter" toml:"delimiter"`
	IDPosition   int      `json:"idPosition" toml:"id_position"`
	DatePosition int      `json:"datePosition" toml:"date_position"`
	TimePosition int      `json:"timePosition" toml:"time_position"`
	Extensions   []string `json:"extensions" toml:"extensions"`
	FFmpegPath   string   `json:"ffmpegPath,omitempty" toml:"ffmpeg_path,omitempty"`
	WhisperPath  string   `json:"whisperPath,omitempty" toml:"whisper_path,omitempty"`
	LogLevel     string   `json:"logLevel,omitempty" toml:"log_level,omitempty"`
	LogFile      string   `json:"logFile,omitempty" toml:"log_file,omitempty"`
	OpenAIAPIKey string   `json:"-" toml:"-"`
}

// FilenameConfig extracts the filename layout from settings.
func (s Settings) FilenameConfig() FilenameConfig {
	return FilenameConfig{
		Delimiter:    s.Delimiter,
		IDPosition:   s.IDPosition,
		DatePosition: s.DatePosition,
		TimePosition: s.TimePosition,
	}
}

// Job stores the current batch identity and lifecycle status.
type Job struct {
	ID     string      `json:"id"`
	Folder string      `json:"folder,omitempty"`
	Status BatchStatus `json:"status"`
}

// Supported speech-to-text engines.
const (
	EngineWhisperCpp = "whispercpp"
	EngineOpenAI     = "openai"
)
