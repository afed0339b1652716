package dto

import (
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339

// ─── Request DTOs ────────────────────────────────────────────────────────────

// OpenSessionRequest carries the float placed in the drawer. A negative amount
// is rejected by the service (InvalidAmount), not by the validator, so the
// operator gets the domain error.
type OpenSessionRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Notes          *string         `json:"notes" validate:"omitempty,max=500"`
}

// CountedAmounts is what the operator reports after counting. Cash includes
// the opening float. Negative entries are kept as entered.
type CountedAmounts struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
	Other    decimal.Decimal `json:"other"`
}

// MaxCountedAmount bounds each counted amount in either direction.
var MaxCountedAmount = decimal.New(1, 12)

// ValidCountedAmount reports whether v is a cent-precise amount below
// MaxCountedAmount in absolute value.
func ValidCountedAmount(v decimal.Decimal) bool {
	return v.Abs().LessThan(MaxCountedAmount) && v.Equal(v.Round(2))
}

func (c CountedAmounts) Totals() MethodTotals {
	return NewMethodTotals(c.Cash, c.Card, c.Transfer, c.Other)
}

type CloseSessionRequest struct {
	Counted CountedAmounts `json:"counted"`
	Notes   *string        `json:"notes" validate:"omitempty,max=1000"`
}

// ─── Shared ──────────────────────────────────────────────────────────────────

// MethodTotals groups an amount per payment method. Total is the plain sum,
// cash included with its opening float.
type MethodTotals struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
	Other    decimal.Decimal `json:"other"`
	Total    decimal.Decimal `json:"total"`
}

func NewMethodTotals(cash, card, transfer, other decimal.Decimal) MethodTotals {
	return MethodTotals{
		Cash:     cash,
		Card:     card,
		Transfer: transfer,
		Other:    other,
		Total:    cash.Add(card).Add(transfer).Add(other),
	}
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpeningDate    string          `json:"opening_date"`
	ClosingDate    *string         `json:"closing_date"`
	Status         string          `json:"status"`
	Notes          *string         `json:"notes"`
}

func NewSessionResponse(s *model.CashSession) SessionResponse {
	resp := SessionResponse{
		ID:             s.ID.String(),
		UserID:         s.UserID.String(),
		OpeningBalance: s.OpeningBalance,
		OpeningDate:    s.OpeningDate.UTC().Format(timeLayout),
		Status:         s.Status,
		Notes:          s.Notes,
	}
	if s.ClosingDate != nil {
		t := s.ClosingDate.UTC().Format(timeLayout)
		resp.ClosingDate = &t
	}
	return resp
}

type ExpectedResponse struct {
	SessionID      string          `json:"session_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Expected       MethodTotals    `json:"expected"`
}

type MethodReconciliation struct {
	Expected   decimal.Decimal `json:"expected"`
	Counted    decimal.Decimal `json:"counted"`
	Difference decimal.Decimal `json:"difference"`
}

type ClosingResponse struct {
	ID                string               `json:"id"`
	CashSessionID     string               `json:"cash_session_id"`
	UserID            string               `json:"user_id"`
	OpeningDate       string               `json:"opening_date"`
	ClosingDate       string               `json:"closing_date"`
	OpeningBalance    decimal.Decimal      `json:"opening_balance"`
	Cash              MethodReconciliation `json:"cash"`
	Card              MethodReconciliation `json:"card"`
	Transfer          MethodReconciliation `json:"transfer"`
	Other             MethodReconciliation `json:"other"`
	TotalSystemSales  decimal.Decimal      `json:"total_system_sales"`
	TotalCountedSales decimal.Decimal      `json:"total_counted_sales"`
	TotalDifference   decimal.Decimal      `json:"total_difference"`
	DifferencePct     decimal.Decimal      `json:"difference_pct"`
	Classification    string               `json:"classification"` // normal | warning | critical
	Notes             *string              `json:"notes"`
	CreatedAt         string               `json:"created_at"`
}

func NewClosingResponse(c *model.CashClosing) ClosingResponse {
	return ClosingResponse{
		ID:                c.ID.String(),
		CashSessionID:     c.CashSessionID.String(),
		UserID:            c.UserID.String(),
		OpeningDate:       c.OpeningDate.UTC().Format(timeLayout),
		ClosingDate:       c.ClosingDate.UTC().Format(timeLayout),
		OpeningBalance:    c.OpeningBalance,
		Cash:              MethodReconciliation{Expected: c.ExpectedCash, Counted: c.CountedCash, Difference: c.CashDifference},
		Card:              MethodReconciliation{Expected: c.ExpectedCard, Counted: c.CountedCard, Difference: c.CardDifference},
		Transfer:          MethodReconciliation{Expected: c.ExpectedTransfer, Counted: c.CountedTransfer, Difference: c.TransferDifference},
		Other:             MethodReconciliation{Expected: c.ExpectedOther, Counted: c.CountedOther, Difference: c.OtherDifference},
		TotalSystemSales:  c.TotalSystemSales,
		TotalCountedSales: c.TotalCountedSales,
		TotalDifference:   c.TotalDifference,
		DifferencePct:     c.DifferencePct,
		Classification:    c.Classification,
		Notes:             c.Notes,
		CreatedAt:         c.CreatedAt.UTC().Format(timeLayout),
	}
}

// PageResponse is the envelope of every paginated listing.
type PageResponse[T any] struct {
	Data  []T   `json:"data"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ClosingAlert is the payload queued when a close ends with a non-normal variance.
type ClosingAlert struct {
	ClosingID       string `json:"closing_id"`
	CashSessionID   string `json:"cash_session_id"`
	OperatorName    string `json:"operator_name"`
	ClosingDate     string `json:"closing_date"`
	TotalDifference string `json:"total_difference"`
	DifferencePct   string `json:"difference_pct"`
	Classification  string `json:"classification"`
	Notes           string `json:"notes,omitempty"`
}
