package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/infra"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/money"
	"github.com/makingtools/rapidbites-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SessionService interface {
	OpenSession(ctx context.Context, userID uuid.UUID, req dto.OpenSessionRequest) (*model.CashSession, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID, req dto.CloseSessionRequest) (*model.CashClosing, error)
	// Expected is the live dashboard query; nothing is persisted.
	Expected(ctx context.Context, sessionID uuid.UUID) (*dto.ExpectedResponse, error)
	// GetActive returns nil, nil when the operator has no open drawer.
	GetActive(ctx context.Context, userID uuid.UUID) (*model.CashSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error)
	ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error)
}

// AlertDispatcher queues a notification for closes that end outside the
// normal variance band. Implemented by worker.Dispatcher.
type AlertDispatcher interface {
	EnqueueClosingAlert(ctx context.Context, alert dto.ClosingAlert) error
}

type SessionDeps struct {
	Sessions  repository.SessionRepository
	Closings  repository.ClosingRepository
	Invoices  repository.InvoiceRepository
	Operators repository.OperatorRepository // optional, names in alerts
	Locker    infra.Locker
	Alerts    AlertDispatcher // optional
}

type SessionOptions struct {
	PersistTimeout time.Duration
	Thresholds     VarianceThresholds
	Now            func() time.Time
}

type sessionService struct {
	sessions  repository.SessionRepository
	closings  repository.ClosingRepository
	invoices  repository.InvoiceRepository
	operators repository.OperatorRepository
	locker    infra.Locker
	alerts    AlertDispatcher
	opts      SessionOptions
}

func NewSessionService(deps SessionDeps, opts SessionOptions) SessionService {
	if deps.Locker == nil {
		deps.Locker = infra.NewLocalLocker()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.Thresholds.Critical.IsZero() {
		opts.Thresholds = DefaultVarianceThresholds()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &sessionService{
		sessions:  deps.Sessions,
		closings:  deps.Closings,
		invoices:  deps.Invoices,
		operators: deps.Operators,
		locker:    deps.Locker,
		alerts:    deps.Alerts,
		opts:      opts,
	}
}

// scopeKey is the mutual-exclusion scope: one drawer per operator.
func scopeKey(userID uuid.UUID) string { return "cash-scope:" + userID.String() }

// ── OpenSession ───────────────────────────────────────────────────────────────

func (s *sessionService) OpenSession(ctx context.Context, userID uuid.UUID, req dto.OpenSessionRequest) (*model.CashSession, error) {
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w (got %s)", ErrInvalidAmount, req.OpeningBalance)
	}

	unlock, err := s.locker.Lock(ctx, scopeKey(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring drawer lock: %w", ErrPersistence, err)
	}
	defer unlock()

	// Guard: no second active session for the same operator
	existing, err := s.sessions.FindActiveSessionByUser(ctx, userID)
	switch {
	case err == nil && existing != nil:
		return nil, ErrSessionAlreadyActive
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	session := &model.CashSession{
		UserID:         userID,
		OpeningBalance: req.OpeningBalance,
		OpeningDate:    s.opts.Now().UTC(),
		Status:         model.SessionStatusActive,
		Notes:          req.Notes,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionAlreadyActive
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("user_id", userID.String()).
		Str("opening_balance", session.OpeningBalance.String()).
		Msg("cash session opened")
	return session, nil
}

// ── CloseSession ──────────────────────────────────────────────────────────────
// Counts are compared against the invoices only after the declaration is
// received. The closing record and the state change commit together.

func (s *sessionService) CloseSession(ctx context.Context, sessionID uuid.UUID, req dto.CloseSessionRequest) (*model.CashClosing, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, scopeKey(session.UserID))
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring drawer lock: %w", ErrPersistence, err)
	}
	defer unlock()

	// Re-read under the lock: a concurrent close may have won.
	if session, err = s.findSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionAlreadyClosed
	}

	invoices, err := s.invoices.ListPaidInvoicesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading invoices: %w", ErrPersistence, err)
	}

	expected := ComputeExpected(session, invoices)
	// Stored amounts are cent-precise; the returned record must match them.
	counted := req.Counted
	counted.Cash, counted.Card = counted.Cash.Round(2), counted.Card.Round(2)
	counted.Transfer, counted.Other = counted.Transfer.Round(2), counted.Other.Round(2)
	rec := Reconcile(expected, counted.Totals(), session.OpeningBalance)
	closedAt := s.opts.Now().UTC()
	closing := newClosing(session, rec, ClassifyVariance(rec.DifferencePct, s.opts.Thresholds), closedAt, req.Notes)

	txCtx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	defer cancel()
	err = runTx(txCtx, s.sessions.DB(), func(tx *gorm.DB) error {
		// Record first: if it cannot be written the session must stay active.
		if err := s.closings.SaveClosingTx(txCtx, tx, closing); err != nil {
			return fmt.Errorf("saving closing record: %w", err)
		}
		return s.sessions.MarkSessionClosedTx(txCtx, tx, session.ID, closedAt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionAlreadyClosed
		}
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("cash session close failed")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("closing_id", closing.ID.String()).
		Str("total_difference", closing.TotalDifference.String()).
		Str("classification", closing.Classification).
		Msg("cash session closed")

	s.enqueueAlert(ctx, closing)
	return closing, nil
}

func newClosing(session *model.CashSession, rec Reconciliation, classification string, closedAt time.Time, notes *string) *model.CashClosing {
	return &model.CashClosing{
		CashSessionID:  session.ID,
		UserID:         session.UserID,
		OpeningDate:    session.OpeningDate,
		ClosingDate:    closedAt,
		OpeningBalance: session.OpeningBalance,

		ExpectedCash:   rec.Cash.Expected,
		CountedCash:    rec.Cash.Counted,
		CashDifference: rec.Cash.Difference,

		ExpectedCard:   rec.Card.Expected,
		CountedCard:    rec.Card.Counted,
		CardDifference: rec.Card.Difference,

		ExpectedTransfer:   rec.Transfer.Expected,
		CountedTransfer:    rec.Transfer.Counted,
		TransferDifference: rec.Transfer.Difference,

		ExpectedOther:   rec.Other.Expected,
		CountedOther:    rec.Other.Counted,
		OtherDifference: rec.Other.Difference,

		TotalSystemSales:  rec.TotalSystemSales,
		TotalCountedSales: rec.TotalCountedSales,
		TotalDifference:   rec.TotalDifference,
		DifferencePct:     rec.DifferencePct,
		Classification:    classification,
		Notes:             notes,
		CreatedAt:         closedAt,
	}
}

// enqueueAlert is best effort: a lost alert never undoes a committed close.
func (s *sessionService) enqueueAlert(ctx context.Context, c *model.CashClosing) {
	if s.alerts == nil || c.Classification == model.VarianceNormal {
		return
	}
	alert := dto.ClosingAlert{
		ClosingID:       c.ID.String(),
		CashSessionID:   c.CashSessionID.String(),
		OperatorName:    s.operatorName(ctx, c.UserID),
		ClosingDate:     c.ClosingDate.Format(time.RFC3339),
		TotalDifference: money.Signed(c.TotalDifference),
		DifferencePct:   money.Percent(c.DifferencePct),
		Classification:  c.Classification,
	}
	if c.Notes != nil {
		alert.Notes = *c.Notes
	}
	if err := s.alerts.EnqueueClosingAlert(ctx, alert); err != nil {
		log.Warn().Err(err).Str("closing_id", alert.ClosingID).Msg("closing alert not queued")
	}
}

func (s *sessionService) operatorName(ctx context.Context, userID uuid.UUID) string {
	if s.operators == nil {
		return userID.String()
	}
	op, err := s.operators.FindOperatorByID(ctx, userID)
	if err != nil {
		return userID.String()
	}
	return op.Name
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *sessionService) Expected(ctx context.Context, sessionID uuid.UUID) (*dto.ExpectedResponse, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListPaidInvoicesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading invoices: %w", ErrPersistence, err)
	}
	return &dto.ExpectedResponse{
		SessionID:      session.ID.String(),
		OpeningBalance: session.OpeningBalance,
		Expected:       ComputeExpected(session, invoices),
	}, nil
}

func (s *sessionService) GetActive(ctx context.Context, userID uuid.UUID) (*model.CashSession, error) {
	session, err := s.sessions.FindActiveSessionByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, error) {
	return s.findSession(ctx, sessionID)
}

func (s *sessionService) ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error) {
	sessions, total, err := s.sessions.ListSessions(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return sessions, total, nil
}

func (s *sessionService) findSession(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	session, err := s.sessions.FindSessionByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return session, nil
}
