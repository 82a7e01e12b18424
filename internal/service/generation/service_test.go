package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp   *Response
	err    error
	model  string
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (*Response, error) {
	f.model = model
	f.prompt = prompt
	return f.resp, f.err
}

func TestGeneratePodcast(t *testing.T) {
	gen := &fakeGenerator{resp: &Response{Candidates: []Candidate{{Parts: []string{"Host A: Welcome!", "Host B: Thanks."}}}}}
	svc, err := NewService("gemini-1.5-flash", gen)
	require.NoError(t, err)

	res, err := svc.GeneratePodcast(context.Background(), "coffee brewing")
	require.NoError(t, err)
	assert.Equal(t, "Host A: Welcome!\nHost B: Thanks.", res.DialogueText)
	assert.Equal(t, "gemini-1.5-flash", gen.model)
	assert.Contains(t, gen.prompt, `discuss the following topic: "coffee brewing".`)
	assert.True(t, strings.HasPrefix(gen.prompt, "Write a podcast where two hosts"))
	assert.True(t, strings.HasSuffix(gen.prompt, "Do not include any asterisk."))
}

func TestGeneratePodcastInvalidPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	svc, err := NewService("gemini-1.5-flash", gen)
	require.NoError(t, err)

	for _, topic := range []string{"", "   \n"} {
		_, err := svc.GeneratePodcast(context.Background(), topic)
		require.ErrorIs(t, err, ErrInvalidPrompt)
	}
	assert.Empty(t, gen.prompt, "model must not be called")
}

func TestGeneratePodcastUnexpectedShapes(t *testing.T) {
	cases := map[string]*Response{
		"nil response":  nil,
		"no candidates": {},
		"empty parts":   {Candidates: []Candidate{{}}},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			svc, err := NewService("gemini-1.5-flash", &fakeGenerator{resp: resp})
			require.NoError(t, err)
			res, err := svc.GeneratePodcast(context.Background(), "coffee brewing")
			require.ErrorIs(t, err, ErrUnexpectedResponse)
			assert.Nil(t, res)
		})
	}
}

func TestGeneratePodcastServiceError(t *testing.T) {
	boom := errors.New("503 overloaded")
	svc, err := NewService("gemini-1.5-flash", &fakeGenerator{err: boom})
	require.NoError(t, err)

	_, err = svc.GeneratePodcast(context.Background(), "coffee brewing")
	require.ErrorIs(t, err, ErrGenerationFailed)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnexpectedResponse)
}

func TestResponseFromGenai(t *testing.T) {
	assert.Nil(t, responseFromGenai(nil))

	resp := responseFromGenai(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "line one"},
				nil,
				{Text: "line two"},
			}}},
			{Content: nil},
		},
	})
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, []string{"line one", "line two"}, resp.Candidates[0].Parts)
	assert.Empty(t, resp.Candidates[1].Parts)

	text, err := extractText(responseFromGenai(&genai.GenerateContentResponse{}))
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Empty(t, text)
}
