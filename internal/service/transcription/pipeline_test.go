package transcription

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAudio(t *testing.T) {
	enc := encodeAudio(AudioBytes{Path: "uploads/1-a.wav", Data: []byte("abc")})
	assert.Equal(t, "YWJj", enc.Content)
	assert.Equal(t, "1-a.wav", enc.Name)
	assert.Equal(t, 3, enc.Size)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", enc.Digest)

	raw, err := enc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)
}

func TestCacheKeyDependsOnConfig(t *testing.T) {
	en := RecognitionConfig{Encoding: "LINEAR16", SampleRateHertz: 16000, LanguageCode: "en-US"}
	de := RecognitionConfig{Encoding: "LINEAR16", SampleRateHertz: 16000, LanguageCode: "de-DE"}
	a := cacheKey("google", en, ".wav", "d")
	assert.NotEqual(t, a, cacheKey("google", de, ".wav", "d"))
	assert.NotEqual(t, a, cacheKey("whisper", en, ".wav", "d"))
	assert.NotEqual(t, a, cacheKey("google", en, "", "d"))
	assert.NotEqual(t, a, cacheKey("google", en, ".wav", "e"))
}

func TestSourceDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1-a.wav")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	got, err := sourceDigest(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)

	_, err = sourceDigest(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

func TestAssembleTranscript(t *testing.T) {
	got, err := assembleTranscript([]RecognitionResult{
		{Alternatives: []Alternative{{Transcript: "one"}}},
		{Alternatives: []Alternative{{Transcript: "two"}, {Transcript: "too"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", got)

	got, err = assembleTranscript(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = assembleTranscript([]RecognitionResult{{}})
	require.ErrorIs(t, err, ErrMalformedResponse)
}
