package service

import (
	"strings"

	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/shopspring/decimal"
)

// ComputeExpected derives what the drawer and each payment channel should
// hold for session. Only paid invoices of that session count. Cash starts at
// the opening balance. Pure: the same snapshot always yields the same totals.
func ComputeExpected(session *model.CashSession, invoices []model.Invoice) dto.MethodTotals {
	cash := session.OpeningBalance
	card, transfer, other := decimal.Zero, decimal.Zero, decimal.Zero

	for _, inv := range invoices {
		if inv.Status != model.InvoiceStatusPaid || inv.CashSessionID == nil || *inv.CashSessionID != session.ID {
			continue
		}
		switch PaymentBucket(inv.PaymentMethod) {
		case model.PaymentMethodCash:
			cash = cash.Add(inv.Total)
		case model.PaymentMethodCard:
			card = card.Add(inv.Total)
		case model.PaymentMethodTransfer:
			transfer = transfer.Add(inv.Total)
		default:
			other = other.Add(inv.Total)
		}
	}

	return dto.NewMethodTotals(cash, card, transfer, other)
}

// PaymentBucket maps an invoice payment method onto one of the four
// reconciliation buckets. Unknown and custom methods fall into "other".
func PaymentBucket(method string) string {
	switch m := strings.ToLower(strings.TrimSpace(method)); m {
	case model.PaymentMethodCash, model.PaymentMethodCard, model.PaymentMethodTransfer:
		return m
	default:
		return model.PaymentMethodOther
	}
}
