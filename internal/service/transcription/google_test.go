package transcription

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechRequest(t *testing.T) {
	req := buildRequest(
		encodeAudio(AudioBytes{Path: "a.wav", Data: []byte{1, 2, 3}}),
		RecognitionConfig{Encoding: "linear16", SampleRateHertz: 16000, LanguageCode: "en-US"},
	)
	pb, err := speechRequest(req)
	require.NoError(t, err)
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, pb.GetConfig().GetEncoding())
	assert.Equal(t, int32(16000), pb.GetConfig().GetSampleRateHertz())
	assert.Equal(t, "en-US", pb.GetConfig().GetLanguageCode())
	assert.Equal(t, []byte{1, 2, 3}, pb.GetAudio().GetContent())

	req.Config.Encoding = "WAVPACK"
	_, err = speechRequest(req)
	require.Error(t, err)
}

func TestResultsFromSpeech(t *testing.T) {
	resp := &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "first", Confidence: 0.9}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "second"}, {Transcript: "2nd"}}},
	}}
	results, err := resultsFromSpeech(resp)
	require.NoError(t, err)
	transcript, err := assembleTranscript(results)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", transcript)

	_, err = resultsFromSpeech(nil)
	require.ErrorIs(t, err, ErrMalformedResponse)
}
