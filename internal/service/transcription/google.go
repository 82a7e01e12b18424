package transcription

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleRecognizer calls Cloud Speech-to-Text over its REST transport,
// where the audio content travels base64 encoded.
type GoogleRecognizer struct {
	client *speech.Client
}

func NewGoogleRecognizer(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GoogleRecognizer, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := speech.NewRESTClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleRecognizer{client: client}, nil
}

func (g *GoogleRecognizer) Recognize(ctx context.Context, req RecognitionRequest) ([]RecognitionResult, error) {
	pbReq, err := speechRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Recognize(ctx, pbReq)
	if err != nil {
		return nil, err
	}
	return resultsFromSpeech(resp)
}

func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

func speechRequest(req RecognitionRequest) (*speechpb.RecognizeRequest, error) {
	enc, ok := speechpb.RecognitionConfig_AudioEncoding_value[strings.ToUpper(req.Config.Encoding)]
	if !ok {
		return nil, fmt.Errorf("unsupported audio encoding %q", req.Config.Encoding)
	}
	data, err := req.Audio.Bytes()
	if err != nil {
		return nil, err
	}
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_AudioEncoding(enc),
			SampleRateHertz: req.Config.SampleRateHertz,
			LanguageCode:    req.Config.LanguageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	}, nil
}

func resultsFromSpeech(resp *speechpb.RecognizeResponse) ([]RecognitionResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	results := make([]RecognitionResult, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		var alts []Alternative
		for _, a := range r.GetAlternatives() {
			alts = append(alts, Alternative{Transcript: a.GetTranscript(), Confidence: a.GetConfidence()})
		}
		results = append(results, RecognitionResult{Alternatives: alts})
	}
	return results, nil
}
