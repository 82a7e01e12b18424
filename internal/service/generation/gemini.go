package generation

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string) (*Response, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}
	return responseFromGenai(resp), nil
}

// responseFromGenai keeps only text parts; thought summaries are dropped.
func responseFromGenai(resp *genai.GenerateContentResponse) *Response {
	if resp == nil {
		return nil
	}
	out := &Response{Candidates: make([]Candidate, 0, len(resp.Candidates))}
	for _, c := range resp.Candidates {
		var cand Candidate
		if c != nil && c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought || p.Text == "" {
					continue
				}
				cand.Parts = append(cand.Parts, p.Text)
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	return out
}
