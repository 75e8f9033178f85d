package service

import (
	"context"
	"time"

	"github.com/csvchat/csvchat/internal/domain"
)

// SessionInfo returns metadata about a live session's dataset.
func (s *Service) SessionInfo(id string) (*domain.SessionInfo, error) {
	handle, err := s.registry.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	return &domain.SessionInfo{
		Filename:  handle.Session.Filename,
		Columns:   handle.Dataset.ColumnNames(),
		Shape:     [2]int{handle.Dataset.NumRows(), handle.Dataset.NumCols()},
		CreatedAt: handle.Session.CreatedAt.Format(time.RFC3339),
	}, nil
}

// DeleteSession destroys a session and its dataset. A session pinned by an
// in-flight query is released once that query finishes.
func (s *Service) DeleteSession(id string) error {
	return s.registry.Delete(id)
}

// SessionHistory returns the recorded runs of a session, most recent first.
// The session must still be live; history of expired sessions is not served.
func (s *Service) SessionHistory(ctx context.Context, id string, limit int) ([]domain.Run, error) {
	if _, err := s.registry.Info(id); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(ctx, id, limit)
}
