package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"fabla-transcriber/internal/domain"
)

// ErrMissingAPIKey is returned by the OpenAI engine when no key is configured.
var ErrMissingAPIKey = errors.New("openai api key not set: set OPENAI_API_KEY")

// transcriptionClient is the subset of the go-openai client used here.
type transcriptionClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// OpenAI transcribes through the OpenAI audio transcription API.
type OpenAI struct {
	apiKey   string
	language string
	client   transcriptionClient
	stat     func(name string) (os.FileInfo, error)
}

// NewOpenAI builds the API-backed engine.
func NewOpenAI(apiKey, language string) *OpenAI {
	o := &OpenAI{
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		stat:     os.Stat,
	}
	if o.apiKey != "" {
		o.client = openai.NewClient(o.apiKey)
	}
	return o
}

// Load validates credentials; name selects the API model and defaults to whisper-1.
func (o *OpenAI) Load(ctx context.Context, name string) (Model, error) {
	model := strings.TrimSpace(name)
	if model == "" {
		model = openai.Whisper1
	}
	if o.client == nil {
		return nil, &ModelLoadError{Engine: domain.EngineOpenAI, Model: model, Err: ErrMissingAPIKey}
	}
	return &openAIModel{engine: o, model: model}, nil
}

type openAIModel struct {
	engine *OpenAI
	model  string
}

func (m *openAIModel) Close() error {
	return nil
}

// Transcribe uploads one file and returns the recognized text.
func (m *openAIModel) Transcribe(ctx context.Context, path string) (string, error) {
	if _, err := m.engine.stat(path); err != nil {
		return "", fmt.Errorf("cannot access input audio: %w", err)
	}

	resp, err := m.engine.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.model,
		FilePath: path,
		Language: normalizeLanguage(m.engine.language),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// NewOpenAIForTests constructs the engine around a fake client.
func NewOpenAIForTests(client transcriptionClient, language string) *OpenAI {
	return &OpenAI{
		apiKey:   "test",
		language: language,
		client:   client,
		stat:     os.Stat,
	}
}
