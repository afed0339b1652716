package repository

import (
	"context"

	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceRepository is a read-only view over the invoicing module's table.
type InvoiceRepository interface {
	ListPaidInvoicesBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Invoice, error)
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) ListPaidInvoicesBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("cash_session_id = ? AND status = ?", sessionID, model.InvoiceStatusPaid).
		Order("issue_date ASC").
		Find(&invoices).Error
	return invoices, err
}
