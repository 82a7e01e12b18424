package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podcastrelay/internal/models"
)

var (
	ErrInvalidPrompt      = errors.New("invalid or missing prompt")
	ErrUnexpectedResponse = errors.New("unexpected response from model")
	ErrGenerationFailed   = errors.New("generation failed")
)

const podcastTemplate = `Write a podcast where two hosts (you can name the hosts) discuss the following topic: "%s". ` +
	`One of the hosts should be curious asking questions, and the other should be knowledgeable when answering. ` +
	`The conversation should feel natural and engaging. Do not include any asterisk.`

// Candidate holds the text parts of one model answer.
type Candidate struct {
	Parts []string
}

type Response struct {
	Candidates []Candidate
}

// Generator sends a prompt to a generative language model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (*Response, error)
}

type Service struct {
	model     string
	generator Generator
}

func NewService(model string, generator Generator) (*Service, error) {
	if model == "" {
		return nil, errors.New("model required")
	}
	if generator == nil {
		return nil, errors.New("generator required")
	}
	return &Service{model: model, generator: generator}, nil
}

// PodcastPrompt embeds topic verbatim in the two-host dialogue instruction.
func PodcastPrompt(topic string) string {
	return fmt.Sprintf(podcastTemplate, topic)
}

func (s *Service) GeneratePodcast(ctx context.Context, topic string) (*models.GenerationResult, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrInvalidPrompt
	}
	resp, err := s.generator.Generate(ctx, s.model, PodcastPrompt(topic))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return &models.GenerationResult{Topic: topic, Model: s.model, DialogueText: text}, nil
}

func extractText(resp *Response) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: no response", ErrUnexpectedResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrUnexpectedResponse)
	}
	parts := resp.Candidates[0].Parts
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: first candidate has no content parts", ErrUnexpectedResponse)
	}
	return strings.Join(parts, "\n"), nil
}
