package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods recognised by the drawer reconciliation. Anything else an
// invoice carries (vouchers, gift cards, custom labels) is reported as "other".
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodOther    = "other"
)

const InvoiceStatusPaid = "paid"

// Invoice is owned by the invoicing module; the drawer only reads it.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Number        string          `gorm:"type:varchar(40)"`
	Total         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(30);not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	CashSessionID *uuid.UUID      `gorm:"type:uuid;index"`
	IssueDate     time.Time
}

func (Invoice) TableName() string { return "invoices" }
