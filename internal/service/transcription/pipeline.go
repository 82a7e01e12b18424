package transcription

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AudioBytes is the raw content of the file handed to the recognizer.
type AudioBytes struct {
	Path string
	Data []byte
}

// EncodedAudio is the transport form of AudioBytes.
type EncodedAudio struct {
	Name    string
	Content string // base64, standard alphabet
	Digest  string // hex sha256 of the raw bytes
	Size    int
}

// Bytes decodes the payload back to raw audio.
func (e EncodedAudio) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(e.Content)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return data, nil
}

type RecognitionConfig struct {
	Encoding        string
	SampleRateHertz int32
	LanguageCode    string
}

type RecognitionRequest struct {
	Audio  EncodedAudio
	Config RecognitionConfig
}

type Alternative struct {
	Transcript string
	Confidence float32
}

// RecognitionResult is one segment; Alternatives are ordered best first.
type RecognitionResult struct {
	Alternatives []Alternative
}

func readAudio(path string) (AudioBytes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AudioBytes{}, fmt.Errorf("read audio %s: %w", path, err)
	}
	return AudioBytes{Path: path, Data: data}, nil
}

func encodeAudio(a AudioBytes) EncodedAudio {
	sum := sha256.Sum256(a.Data)
	return EncodedAudio{
		Name:    filepath.Base(a.Path),
		Content: base64.StdEncoding.EncodeToString(a.Data),
		Digest:  hex.EncodeToString(sum[:]),
		Size:    len(a.Data),
	}
}

func buildRequest(audio EncodedAudio, cfg RecognitionConfig) RecognitionRequest {
	return RecognitionRequest{Audio: audio, Config: cfg}
}

// assembleTranscript joins the first alternative of every result with newlines.
func assembleTranscript(results []RecognitionResult) (string, error) {
	lines := make([]string, 0, len(results))
	for i, r := range results {
		if len(r.Alternatives) == 0 {
			return "", fmt.Errorf("%w: result %d has no alternatives", ErrMalformedResponse, i)
		}
		lines = append(lines, r.Alternatives[0].Transcript)
	}
	return strings.Join(lines, "\n"), nil
}

// sourceDigest hashes the stored upload before any conversion so a cached
// transcript can be served without touching ffmpeg.
func sourceDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash audio %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cacheKey identifies a transcript by the source bytes, the conversion
// target (empty when none) and everything the recognizer is told.
func cacheKey(backend string, cfg RecognitionConfig, target, digest string) string {
	return strings.Join([]string{
		"transcript",
		backend,
		cfg.Encoding,
		strconv.Itoa(int(cfg.SampleRateHertz)),
		cfg.LanguageCode,
		target,
		digest,
	}, ":")
}
