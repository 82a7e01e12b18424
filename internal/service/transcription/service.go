package transcription

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podcastrelay/internal/config"
	"podcastrelay/internal/converter"
	"podcastrelay/internal/models"
	"podcastrelay/internal/service/upload"
)

var (
	ErrInvalidPath       = errors.New("path is not inside the upload directory")
	ErrFileNotFound      = errors.New("audio file not found")
	ErrRecognitionFailed = errors.New("speech recognition failed")
	ErrMalformedResponse = errors.New("malformed recognition response")
)

// Recognizer submits one request to a speech-to-text backend.
type Recognizer interface {
	Recognize(ctx context.Context, req RecognitionRequest) ([]RecognitionResult, error)
}

// UploadLookup resolves registry entries for stored paths.
type UploadLookup interface {
	Lookup(ctx context.Context, storedPath string) (*models.UploadedFile, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, transcript string) error
}

type Options struct {
	Audio      *config.AudioConfig
	Backend    string
	Recognizer Recognizer
	Converter  converter.Converter
	Uploads    UploadLookup // optional
	Cache      Cache        // optional
}

type Service struct {
	audio       *config.AudioConfig
	backend     string
	recognition RecognitionConfig
	recognizer  Recognizer
	converter   converter.Converter
	uploads     UploadLookup
	cache       Cache
}

func NewService(opts Options) (*Service, error) {
	if opts.Audio == nil {
		return nil, errors.New("audio config required")
	}
	if opts.Recognizer == nil {
		return nil, errors.New("recognizer required")
	}
	return &Service{
		audio:   opts.Audio,
		backend: opts.Backend,
		recognition: RecognitionConfig{
			Encoding:        opts.Audio.Encoding,
			SampleRateHertz: opts.Audio.SampleRateHertz,
			LanguageCode:    opts.Audio.LanguageCode,
		},
		recognizer: opts.Recognizer,
		converter:  opts.Converter,
		uploads:    opts.Uploads,
		cache:      opts.Cache,
	}, nil
}

// Transcribe converts the stored file to the canonical format when a rule
// matches, recognizes it and joins the segments. No partial transcript is
// returned on failure.
func (s *Service) Transcribe(ctx context.Context, filePath string) (*models.TranscriptionResult, error) {
	path, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	target, convert := s.conversionTarget(ctx, path)
	if !convert {
		target = ""
	} else if s.converter == nil {
		return nil, fmt.Errorf("%w: no converter configured for %s", converter.ErrConversionFailed, path)
	}

	var key string
	if s.cache != nil {
		digest, err := sourceDigest(path)
		if err != nil {
			return nil, err
		}
		key = cacheKey(s.backend, s.recognition, target, digest)
		if transcript, ok, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("transcript cache read failed", "error", err)
		} else if ok {
			recognized := path
			if convert {
				recognized = converter.TargetPath(path, target)
			}
			return &models.TranscriptionResult{
				SourcePath:     path,
				RecognizedPath: recognized,
				Transcript:     transcript,
				FromCache:      true,
			}, nil
		}
	}

	audioPath := path
	if convert {
		audioPath, err = s.converter.Convert(ctx, path, target)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", path, err)
		}
	}

	raw, err := readAudio(audioPath)
	if err != nil {
		return nil, err
	}
	req := buildRequest(encodeAudio(raw), s.recognition)
	result := &models.TranscriptionResult{SourcePath: path, RecognizedPath: audioPath}

	results, err := s.recognizer.Recognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	transcript, err := assembleTranscript(results)
	if err != nil {
		return nil, err
	}
	result.Transcript = transcript

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, transcript); err != nil {
			slog.Warn("transcript cache write failed", "error", err)
		}
	}
	return result, nil
}

// resolve rejects paths that escape the upload root and returns the path in
// the same form the upload registry stores it.
func (s *Service) resolve(filePath string) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", ErrInvalidPath
	}
	root, err := filepath.Abs(s.audio.UploadDir)
	if err != nil {
		return "", fmt.Errorf("resolve upload dir: %w", err)
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filePath)
	}
	rel, ok := within(root, abs)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filePath)
	}

	// a symlink inside the root may still point elsewhere
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve upload dir: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// reported as not found by the caller
	case err != nil:
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filePath)
	default:
		if _, ok := within(realRoot, realPath); !ok {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, filePath)
		}
	}
	return filepath.Join(s.audio.UploadDir, rel), nil
}

// within reports whether path lies strictly below root.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// conversionTarget picks the canonical extension for path. Extension rules
// win; the declared media type from the registry is the fallback.
func (s *Service) conversionTarget(ctx context.Context, path string) (string, bool) {
	ext := filepath.Ext(path)
	for from, to := range s.audio.Conversions {
		if strings.EqualFold(from, ext) {
			return to, !strings.EqualFold(to, ext)
		}
	}
	if s.uploads == nil || len(s.audio.MimeConversions) == 0 {
		return "", false
	}
	rec, err := s.uploads.Lookup(ctx, path)
	if err != nil {
		if !errors.Is(err, upload.ErrUploadNotFound) {
			slog.Warn("upload registry lookup failed", "path", path, "error", err)
		}
		return "", false
	}
	to, ok := s.audio.MimeConversions[upload.NormalizeMimeType(rec.MimeType)]
	if !ok || strings.EqualFold(to, ext) {
		return "", false
	}
	return to, true
}
