package upload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"podcastrelay/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func (s *Service) record(ctx context.Context, f *models.UploadedFile) error {
	if s.db == nil {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO uploaded_files (original_name, stored_path, mime_type, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.OriginalName, f.StoredPath, f.MimeType, f.Size, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("record upload id: %w", err)
	}
	f.ID = id
	return nil
}

// Lookup returns the registry entry for a stored path.
func (s *Service) Lookup(ctx context.Context, storedPath string) (*models.UploadedFile, error) {
	if s.db == nil {
		return nil, ErrUploadNotFound
	}
	var f models.UploadedFile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, original_name, stored_path, mime_type, size, created_at FROM uploaded_files WHERE stored_path = ?`,
		filepath.Clean(storedPath),
	).Scan(&f.ID, &f.OriginalName, &f.StoredPath, &f.MimeType, &f.Size, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup upload: %w", err)
	}
	return &f, nil
}

// List returns the most recent uploads first.
func (s *Service) List(ctx context.Context, limit int) ([]*models.UploadedFile, error) {
	if s.db == nil {
		return []*models.UploadedFile{}, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_name, stored_path, mime_type, size, created_at FROM uploaded_files ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	files := make([]*models.UploadedFile, 0)
	for rows.Next() {
		var f models.UploadedFile
		if err := rows.Scan(&f.ID, &f.OriginalName, &f.StoredPath, &f.MimeType, &f.Size, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}
