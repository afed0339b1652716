package repository

import (
	"context"

	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OperatorRepository interface {
	FindOperatorByID(ctx context.Context, id uuid.UUID) (*model.Operator, error)
	FindOperatorByUsername(ctx context.Context, username string) (*model.Operator, error)
}

type operatorRepo struct{ db *gorm.DB }

func NewOperatorRepository(db *gorm.DB) OperatorRepository { return &operatorRepo{db: db} }

func (r *operatorRepo) FindOperatorByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var o model.Operator
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *operatorRepo) FindOperatorByUsername(ctx context.Context, username string) (*model.Operator, error) {
	var o model.Operator
	if err := r.db.WithContext(ctx).Where("username = ? AND active = true", username).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}
