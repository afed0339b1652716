package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"

	"github.com/google/uuid"
)

// ClosingService is the read side of the closing record store.
type ClosingService interface {
	// ListClosings returns a page of closings oldest first, optionally only
	// those of one session (the log is append-only, so a session may hold
	// more than one). The total counts every match, not just the page.
	ListClosings(ctx context.Context, sessionID *uuid.UUID, page, limit int) ([]model.CashClosing, int64, error)
}

type closingService struct {
	closings repository.ClosingRepository
	sessions repository.SessionRepository
}

func NewClosingService(closings repository.ClosingRepository, sessions repository.SessionRepository) ClosingService {
	return &closingService{closings: closings, sessions: sessions}
}

func (s *closingService) ListClosings(ctx context.Context, sessionID *uuid.UUID, page, limit int) ([]model.CashClosing, int64, error) {
	if sessionID == nil {
		closings, total, err := s.closings.ListClosings(ctx, page, limit)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		return closings, total, nil
	}

	if _, err := s.sessions.FindSessionByID(ctx, *sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	closings, err := s.closings.ListClosingsBySession(ctx, *sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return pageOf(closings, page, limit), int64(len(closings)), nil
}

func pageOf[T any](items []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+limit, len(items))]
}
