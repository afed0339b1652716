package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// CashSession is one drawer session of an operator.
// Status: "active" | "closed". Closed is terminal: there is no reopen.
type CashSession struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	OpeningDate    time.Time       `gorm:"not null"`
	// ClosingDate stays nil while the session is active.
	ClosingDate *time.Time
	Status      string `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       *string
}

func (CashSession) TableName() string { return "cash_sessions" }

func (s *CashSession) IsActive() bool {
	return s.Status == SessionStatusActive && s.ClosingDate == nil
}
