package repository

import (
	"context"

	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClosingRepository is an append-only log of closing records. There is no
// Update or Delete on purpose (compile-time guarantee of immutability).
type ClosingRepository interface {
	SaveClosing(ctx context.Context, c *model.CashClosing) error
	SaveClosingTx(ctx context.Context, tx *gorm.DB, c *model.CashClosing) error
	ListClosingsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CashClosing, error)
	ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error)
}

type closingRepo struct{ db *gorm.DB }

func NewClosingRepository(db *gorm.DB) ClosingRepository { return &closingRepo{db: db} }

func (r *closingRepo) SaveClosing(ctx context.Context, c *model.CashClosing) error {
	return r.SaveClosingTx(ctx, r.db, c)
}

func (r *closingRepo) SaveClosingTx(ctx context.Context, tx *gorm.DB, c *model.CashClosing) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return translate(tx.WithContext(ctx).Create(c).Error)
}

func (r *closingRepo) ListClosingsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CashClosing, error) {
	var closings []model.CashClosing
	err := r.db.WithContext(ctx).
		Where("cash_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&closings).Error
	return closings, err
}

func (r *closingRepo) ListClosings(ctx context.Context, page, limit int) ([]model.CashClosing, int64, error) {
	var closings []model.CashClosing
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CashClosing{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&closings).Error
	return closings, total, err
}
