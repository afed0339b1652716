package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	VarianceNormal   = "normal"
	VarianceWarning  = "warning"
	VarianceCritical = "critical"
)

// CashClosing is the audit snapshot written when a session is closed.
// Rows are append-only: the repository exposes no update or delete.
//
// Expected and counted cash both include the opening balance; the totals
// subtract it once from each side, so every Difference is Counted − Expected
// and TotalDifference equals the sum of the four differences.
type CashClosing struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CashSessionID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null"`
	OpeningDate    time.Time       `gorm:"not null"`
	ClosingDate    time.Time       `gorm:"not null"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	ExpectedCash   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CountedCash    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CashDifference decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	ExpectedCard   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CountedCard    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CardDifference decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	ExpectedTransfer   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CountedTransfer    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TransferDifference decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	ExpectedOther   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CountedOther    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	OtherDifference decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	TotalSystemSales  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalCountedSales decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalDifference   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DifferencePct     decimal.Decimal `gorm:"type:numeric;not null"`
	// Classification: "normal" | "warning" | "critical"
	Classification string `gorm:"type:varchar(20);not null"`
	Notes          *string
	CreatedAt      time.Time
}

func (CashClosing) TableName() string { return "cash_closings" }
