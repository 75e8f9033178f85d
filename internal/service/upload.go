package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/csvchat/csvchat/internal/domain"
)

// Upload parses an uploaded CSV payload and binds the resulting dataset to a
// fresh session. The declared encoding is optional; when empty the parser
// auto-detects.
func (s *Service) Upload(ctx context.Context, filename, encoding string, raw []byte) (*domain.UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, domain.NewError(domain.CodeMalformedInput, "only CSV files are supported, got %q", filename)
	}

	ds, err := s.parser.Parse(raw, encoding)
	if err != nil {
		return nil, err
	}

	id := s.registry.Create(ds, filename)

	if s.store != nil {
		sess := &domain.Session{SessionID: id, Filename: filename, CreatedAt: time.Now()}
		if err := s.store.CreateSession(ctx, sess); err != nil {
			log.Printf("ERROR: failed to record session %s: %v", id, err)
			// Continue anyway - history storage failure shouldn't block the upload
		}
	}

	log.Printf("INFO: session %s created for %s (%d rows, %d columns)", id, filename, ds.NumRows(), ds.NumCols())
	return &domain.UploadResult{
		SessionID:    id,
		Filename:     filename,
		Columns:      ds.ColumnNames(),
		Rows:         ds.NumRows(),
		ColumnsCount: ds.NumCols(),
	}, nil
}
