package upload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"podcastrelay/internal/config"
	"podcastrelay/internal/models"
)

var (
	ErrNoFile         = errors.New("no file in upload")
	ErrDisallowedType = errors.New("media type not allowed")
	ErrUploadNotFound = errors.New("upload not found")
)

const maxCreateAttempts = 8

// Request carries one file part of a multipart upload.
type Request struct {
	FileName string
	MimeType string
	Body     io.Reader
}

// Service writes accepted audio uploads under the upload root and records
// them in the registry.
type Service struct {
	audio   *config.AudioConfig
	db      *sql.DB
	allowed map[string]struct{}
	now     func() time.Time
	// last millisecond prefix handed out, strictly increasing
	lastStamp atomic.Int64
}

// NewService creates the upload root if it is missing. db may be nil, in
// which case uploads are written but not recorded.
func NewService(audio *config.AudioConfig, db *sql.DB) (*Service, error) {
	if audio == nil {
		return nil, errors.New("audio config required")
	}
	if err := os.MkdirAll(audio.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	allowed := make(map[string]struct{}, len(audio.AllowedMimeTypes))
	for _, t := range audio.AllowedMimeTypes {
		allowed[NormalizeMimeType(t)] = struct{}{}
	}
	return &Service{
		audio:   audio,
		db:      db,
		allowed: allowed,
		now:     time.Now,
	}, nil
}

// NormalizeMimeType strips parameters and lowercases a declared media type.
func NormalizeMimeType(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return strings.ToLower(declared)
}

// Allowed reports whether the declared media type is on the allow-list.
func (s *Service) Allowed(declared string) bool {
	_, ok := s.allowed[NormalizeMimeType(declared)]
	return ok
}

// Save validates the declared type and writes the body to a fresh file.
// Nothing is written when validation fails.
func (s *Service) Save(ctx context.Context, req Request) (*models.UploadedFile, error) {
	if req.Body == nil || strings.TrimSpace(req.FileName) == "" {
		return nil, ErrNoFile
	}
	mimeType := NormalizeMimeType(req.MimeType)
	if !s.Allowed(mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedType, req.MimeType)
	}

	original := baseName(req.FileName)
	file, storedPath, stamp, err := s.create(original)
	if err != nil {
		return nil, err
	}

	size, copyErr := io.Copy(file, req.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(storedPath)
		if copyErr != nil {
			return nil, fmt.Errorf("write upload: %w", copyErr)
		}
		return nil, fmt.Errorf("close upload: %w", closeErr)
	}

	record := &models.UploadedFile{
		OriginalName: original,
		StoredPath:   storedPath,
		MimeType:     mimeType,
		Size:         size,
		CreatedAt:    time.UnixMilli(stamp).UTC(),
	}
	if err := s.record(ctx, record); err != nil {
		os.Remove(storedPath)
		return nil, err
	}
	slog.Info("upload stored", "path", storedPath, "mime_type", mimeType, "size", size)
	return record, nil
}

// create opens a new file named <millis>-<original>. O_EXCL guards against
// another process having taken the name.
func (s *Service) create(original string) (*os.File, string, int64, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		stamp := s.nextStamp()
		path := filepath.Join(s.audio.UploadDir, fmt.Sprintf("%d-%s", stamp, original))
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, path, stamp, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", 0, fmt.Errorf("create upload file: %w", err)
		}
	}
	return nil, "", 0, fmt.Errorf("create upload file: no free name for %q", original)
}

func (s *Service) nextStamp() int64 {
	for {
		last := s.lastStamp.Load()
		next := s.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if s.lastStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	switch name {
	case "", ".", "..", "/":
		return "audio"
	}
	return name
}
