package service

import (
	"github.com/makingtools/rapidbites-sub001/internal/dto"
	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Reconciliation is the variance report of one close.
type Reconciliation struct {
	Cash     dto.MethodReconciliation
	Card     dto.MethodReconciliation
	Transfer dto.MethodReconciliation
	Other    dto.MethodReconciliation

	TotalSystemSales  decimal.Decimal
	TotalCountedSales decimal.Decimal
	TotalDifference   decimal.Decimal
	// DifferencePct is TotalDifference relative to everything that should
	// have been accounted for (expected total, opening float included).
	DifferencePct decimal.Decimal
}

// SumOfDifferences adds the four per-method differences; it always equals
// TotalDifference.
func (r Reconciliation) SumOfDifferences() decimal.Decimal {
	return r.Cash.Difference.Add(r.Card.Difference).Add(r.Transfer.Difference).Add(r.Other.Difference)
}

// Reconcile compares counted against expected amounts. Both cash figures
// include openingBalance; it is removed once from each side for the sales
// totals. Any input is accepted, negative counts included.
func Reconcile(expected, counted dto.MethodTotals, openingBalance decimal.Decimal) Reconciliation {
	r := Reconciliation{
		Cash:     line(expected.Cash, counted.Cash),
		Card:     line(expected.Card, counted.Card),
		Transfer: line(expected.Transfer, counted.Transfer),
		Other:    line(expected.Other, counted.Other),
	}

	r.TotalSystemSales = salesTotal(expected, openingBalance)
	r.TotalCountedSales = salesTotal(counted, openingBalance)
	r.TotalDifference = r.TotalCountedSales.Sub(r.TotalSystemSales)

	base := expected.Cash.Add(expected.Card).Add(expected.Transfer).Add(expected.Other)
	switch {
	case !base.IsZero():
		r.DifferencePct = r.TotalDifference.Div(base).Mul(hundred).Round(2)
	case r.TotalDifference.IsPositive():
		r.DifferencePct = hundred
	case r.TotalDifference.IsNegative():
		r.DifferencePct = hundred.Neg()
	default:
		r.DifferencePct = decimal.Zero
	}
	return r
}

func line(expected, counted decimal.Decimal) dto.MethodReconciliation {
	return dto.MethodReconciliation{Expected: expected, Counted: counted, Difference: counted.Sub(expected)}
}

func salesTotal(t dto.MethodTotals, openingBalance decimal.Decimal) decimal.Decimal {
	return t.Cash.Sub(openingBalance).Add(t.Card).Add(t.Transfer).Add(t.Other)
}

// VarianceThresholds are absolute percentages: |pct| <= Warning is normal,
// |pct| <= Critical is a warning, anything above is critical.
type VarianceThresholds struct {
	Warning  decimal.Decimal
	Critical decimal.Decimal
}

func DefaultVarianceThresholds() VarianceThresholds {
	return VarianceThresholds{Warning: decimal.NewFromInt(1), Critical: decimal.NewFromInt(5)}
}

// ClassifyVariance labels a difference percentage. It never blocks a close.
func ClassifyVariance(pct decimal.Decimal, th VarianceThresholds) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(th.Warning):
		return model.VarianceNormal
	case abs.LessThanOrEqual(th.Critical):
		return model.VarianceWarning
	default:
		return model.VarianceCritical
	}
}
