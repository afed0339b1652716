// Package memory is an in-process implementation of the repository
// interfaces. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	mu sync.RWMutex

	sessionsByID     map[uuid.UUID]model.CashSession
	activeSessionKey map[uuid.UUID]uuid.UUID // user → active session
	closings         []model.CashClosing
	invoices         []model.Invoice
	operatorsByID    map[uuid.UUID]model.Operator
}

var (
	_ repository.SessionRepository  = (*Store)(nil)
	_ repository.ClosingRepository  = (*Store)(nil)
	_ repository.InvoiceRepository  = (*Store)(nil)
	_ repository.OperatorRepository = (*Store)(nil)
)

func New() *Store {
	return &Store{
		sessionsByID:     make(map[uuid.UUID]model.CashSession),
		activeSessionKey: make(map[uuid.UUID]uuid.UUID),
		operatorsByID:    make(map[uuid.UUID]model.Operator),
	}
}

// DB returns nil: the service then runs transactional blocks directly.
func (s *Store) DB() *gorm.DB { return nil }

// ── Sessions ──────────────────────────────────────────────────────────────────

func (s *Store) CreateSession(_ context.Context, sess *model.CashSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activeSessionKey[sess.UserID]; exists {
		return repository.ErrConflict
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.OpeningDate.IsZero() {
		sess.OpeningDate = time.Now().UTC()
	}
	sess.Status = model.SessionStatusActive
	sess.ClosingDate = nil

	s.sessionsByID[sess.ID] = *sess
	s.activeSessionKey[sess.UserID] = sess.ID
	return nil
}

func (s *Store) FindSessionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessionsByID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (s *Store) FindActiveSessionByUser(_ context.Context, userID uuid.UUID) (*model.CashSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeSessionKey[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	sess := s.sessionsByID[id]
	return &sess, nil
}

func (s *Store) ListSessions(_ context.Context, page, limit int) ([]model.CashSession, int64, error) {
	s.mu.RLock()
	all := make([]model.CashSession, 0, len(s.sessionsByID))
	for _, sess := range s.sessionsByID {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].OpeningDate.After(all[j].OpeningDate) })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (s *Store) MarkSessionClosedTx(_ context.Context, _ *gorm.DB, id uuid.UUID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessionsByID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sess.Status != model.SessionStatusActive {
		return repository.ErrConflict
	}
	sess.Status = model.SessionStatusClosed
	sess.ClosingDate = &closedAt
	s.sessionsByID[id] = sess
	delete(s.activeSessionKey, sess.UserID)
	return nil
}

// ── Closings ──────────────────────────────────────────────────────────────────

func (s *Store) SaveClosing(ctx context.Context, c *model.CashClosing) error {
	return s.SaveClosingTx(ctx, nil, c)
}

func (s *Store) SaveClosingTx(_ context.Context, _ *gorm.DB, c *model.CashClosing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.closings = append(s.closings, *c)
	return nil
}

func (s *Store) ListClosingsBySession(_ context.Context, sessionID uuid.UUID) ([]model.CashClosing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CashClosing
	for _, c := range s.closings {
		if c.CashSessionID == sessionID {
			out = append(out, c)
		}
	}
	sortChronological(out)
	return out, nil
}

func (s *Store) ListClosings(_ context.Context, page, limit int) ([]model.CashClosing, int64, error) {
	s.mu.RLock()
	all := append([]model.CashClosing(nil), s.closings...)
	s.mu.RUnlock()

	sortChronological(all)
	return paginate(all, page, limit), int64(len(all)), nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

// AddInvoice seeds an invoice; in production the invoicing module owns them.
func (s *Store) AddInvoice(inv model.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now().UTC()
	}
	s.invoices = append(s.invoices, inv)
}

func (s *Store) ListPaidInvoicesBySession(_ context.Context, sessionID uuid.UUID) ([]model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Invoice
	for _, inv := range s.invoices {
		if inv.Status == model.InvoiceStatusPaid && inv.CashSessionID != nil && *inv.CashSessionID == sessionID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ── Operators ─────────────────────────────────────────────────────────────────

func (s *Store) AddOperator(op model.Operator) model.Operator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	s.operatorsByID[op.ID] = op
	return op
}

func (s *Store) FindOperatorByID(_ context.Context, id uuid.UUID) (*model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operatorsByID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &op, nil
}

func (s *Store) FindOperatorByUsername(_ context.Context, username string) (*model.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, op := range s.operatorsByID {
		if op.Active && strings.EqualFold(op.Username, username) {
			found := op
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func sortChronological(closings []model.CashClosing) {
	sort.SliceStable(closings, func(i, j int) bool { return closings[i].CreatedAt.Before(closings[j].CreatedAt) })
}

func paginate[T any](all []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return all
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := min(start+limit, len(all))
	return all[start:end]
}
