package transcription

import (
	"bytes"
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperRecognizer sends audio to an OpenAI compatible transcription endpoint.
// Each returned segment becomes a result with a single alternative.
type WhisperRecognizer struct {
	client *openai.Client
	model  string
}

func NewWhisperRecognizer(apiKey, baseURL, model string) *WhisperRecognizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperRecognizer{client: openai.NewClientWithConfig(cfg), model: model}
}

func (w *WhisperRecognizer) Recognize(ctx context.Context, req RecognitionRequest) ([]RecognitionResult, error) {
	data, err := req.Audio.Bytes()
	if err != nil {
		return nil, err
	}
	name := req.Audio.Name
	if name == "" {
		name = "audio.wav"
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: name,
		Reader:   bytes.NewReader(data),
		Language: languageTag(req.Config.LanguageCode),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Segments) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return nil, nil
		}
		return []RecognitionResult{{Alternatives: []Alternative{{Transcript: strings.TrimSpace(resp.Text)}}}}, nil
	}
	results := make([]RecognitionResult, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		results = append(results, RecognitionResult{
			Alternatives: []Alternative{{Transcript: strings.TrimSpace(seg.Text)}},
		})
	}
	return results, nil
}

// languageTag reduces a BCP-47 code like en-US to the ISO-639-1 part.
func languageTag(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}
