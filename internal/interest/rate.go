package interest

import (
	"github.com/shopspring/decimal"
)

var (
	// SecondsPerYear seconds per year
	SecondsPerYear = decimal.NewFromInt(365 * 24 * 3600)
	// MaxPricision max pricision
	MaxPricision int32 = 27
)

// RateModel jump rate model, every rate is annual
type RateModel struct {
	BaseRate       decimal.Decimal
	Multiplier     decimal.Decimal
	JumpMultiplier decimal.Decimal
	Kink           decimal.Decimal
	ReserveFactor  decimal.Decimal
}

// UtilizationRate utilization rate
// utilization_rate = borrows / (cash + borrows)
func UtilizationRate(cash, borrows decimal.Decimal) decimal.Decimal {
	total := cash.Add(borrows)
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	return borrows.DivRound(total, MaxPricision).Truncate(MaxPricision)
}

// BorrowRate annual borrow rate
func (m RateModel) BorrowRate(utilizationRate decimal.Decimal) decimal.Decimal {
	if m.Kink.IsZero() ||
		utilizationRate.LessThanOrEqual(m.Kink) {
		return utilizationRate.Mul(m.Multiplier).Add(m.BaseRate).Truncate(MaxPricision)
	}

	normalRate := m.Kink.Mul(m.Multiplier).Add(m.BaseRate)
	excessUtilRate := utilizationRate.Sub(m.Kink)
	return excessUtilRate.Mul(m.JumpMultiplier).Add(normalRate).Truncate(MaxPricision)
}

// SupplyRate annual supply rate
func (m RateModel) SupplyRate(utilizationRate decimal.Decimal) decimal.Decimal {
	borrowRate := m.BorrowRate(utilizationRate)
	oneMinusReserveFactor := decimal.NewFromInt(1).Sub(m.ReserveFactor)
	rateToPool := borrowRate.Mul(oneMinusReserveFactor)
	return utilizationRate.Mul(rateToPool).Truncate(MaxPricision)
}

// LinearInterest 1 + rate * seconds / year, used for supply indexes
func LinearInterest(rate decimal.Decimal, seconds int64) decimal.Decimal {
	return decimal.NewFromInt(1).
		Add(rate.Mul(decimal.NewFromInt(seconds)).DivRound(SecondsPerYear, MaxPricision)).
		Truncate(MaxPricision)
}

// CompoundedInterest (1 + rate / year) ^ seconds approximated with the
// first three binomial terms, used for borrow indexes
func CompoundedInterest(rate decimal.Decimal, seconds int64) decimal.Decimal {
	if seconds <= 0 {
		return decimal.NewFromInt(1)
	}

	n := decimal.NewFromInt(seconds)
	r := rate.DivRound(SecondsPerYear, MaxPricision)
	second := n.Mul(n.Sub(decimal.NewFromInt(1))).Mul(r).Mul(r).DivRound(decimal.NewFromInt(2), MaxPricision)
	third := n.Mul(n.Sub(decimal.NewFromInt(1))).Mul(n.Sub(decimal.NewFromInt(2))).
		Mul(r).Mul(r).Mul(r).DivRound(decimal.NewFromInt(6), MaxPricision)

	return decimal.NewFromInt(1).Add(n.Mul(r)).Add(second).Add(third).Truncate(MaxPricision)
}
