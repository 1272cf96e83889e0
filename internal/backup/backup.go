// Package backup exports the diary to a JSON file and restores it back.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/pbaille/echoes/internal/domain"
)

// DefaultFileName is the suggested name for an exported backup.
const DefaultFileName = "echo-chamber-diary-backup.json"

const jsonType = "application/json"

var (
	ErrNothingToExport = errors.New("no entries to export")
	ErrInvalidType     = errors.New("backup must be a JSON file")
	ErrMalformed       = errors.New("backup is not valid JSON")
	ErrInvalidShape    = errors.New("backup does not contain diary entries")
)

// Export writes entries as an indented JSON array.
func Export(w io.Writer, entries []domain.Entry) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("export entries: %w", err)
	}
	return nil
}

// Decode parses a backup file. contentType is the media type the file was
// offered with; an empty value is treated as JSON.
func Decode(contentType string, r io.Reader) ([]domain.Entry, error) {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil || mt != jsonType {
			return nil, ErrInvalidType
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	if !json.Valid(raw) {
		return nil, ErrMalformed
	}

	entries, err := domain.DecodeEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}
	return entries, nil
}

// TypeForFile guesses the media type of a backup file from its extension.
func TypeForFile(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Collection is the local entry collection a backup is restored into.
type Collection interface {
	Merge(ctx context.Context, incoming []domain.Entry) (added int, err error)
}

type Service struct {
	local Collection
}

func NewService(local Collection) *Service {
	return &Service{local: local}
}

// Restore merges a backup into the local collection. Local entries win on
// id collisions. It returns how many entries were added.
func (s *Service) Restore(ctx context.Context, contentType string, r io.Reader) (int, error) {
	imported, err := Decode(contentType, r)
	if err != nil {
		return 0, err
	}

	added, err := s.local.Merge(ctx, imported)
	if err != nil {
		return 0, fmt.Errorf("restore backup: %w", err)
	}
	return added, nil
}
