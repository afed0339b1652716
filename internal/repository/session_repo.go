package repository

import (
	"context"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.CashSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindActiveSessionByUser(ctx context.Context, userID uuid.UUID) (*model.CashSession, error)
	ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error)
	// MarkSessionClosedTx flips an active session to closed. It returns
	// ErrConflict when the session is no longer active.
	MarkSessionClosedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, closedAt time.Time) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) CreateSession(ctx context.Context, s *model.CashSession) error {
	// The partial unique index on (user_id) WHERE status = 'active' turns a
	// concurrent second open into a unique violation.
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *sessionRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindActiveSessionByUser(ctx context.Context, userID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.SessionStatusActive).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error) {
	var sessions []model.CashSession
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CashSession{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opening_date DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *sessionRepo) MarkSessionClosedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, closedAt time.Time) error {
	res := tx.WithContext(ctx).Model(&model.CashSession{}).
		Where("id = ? AND status = ?", id, model.SessionStatusActive).
		Updates(map[string]any{
			"status":       model.SessionStatusClosed,
			"closing_date": closedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
