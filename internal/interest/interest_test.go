package interest

import (
	"testing"

	"p2plend/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ray(s string) *uint256.Int {
	return number.MustFromDecimal(number.Decimal(s), 27)
}

func TestComputeGrowthFactors(t *testing.T) {
	params := GrowthParams{
		NewPoolSupplyIndex:  ray("1.01"),
		NewPoolBorrowIndex:  ray("1.03"),
		LastPoolSupplyIndex: ray("1"),
		LastPoolBorrowIndex: ray("1"),
		P2PIndexCursor:      5_000,
	}

	g := ComputeGrowthFactors(params)
	assert.Equal(t, ray("1.01").Dec(), g.PoolSupply.Dec())
	assert.Equal(t, ray("1.03").Dec(), g.PoolBorrow.Dec())
	assert.Equal(t, ray("1.02").Dec(), g.P2PSupply.Dec())
	assert.Equal(t, ray("1.02").Dec(), g.P2PBorrow.Dec())

	// the reserve factor pulls both sides back towards the pool
	params.ReserveFactor = 1_000
	g = ComputeGrowthFactors(params)
	assert.Equal(t, ray("1.019").Dec(), g.P2PSupply.Dec())
	assert.Equal(t, ray("1.021").Dec(), g.P2PBorrow.Dec())
}

func TestComputeGrowthFactorsInvertedSpread(t *testing.T) {
	g := ComputeGrowthFactors(GrowthParams{
		NewPoolSupplyIndex:  ray("1.05"),
		NewPoolBorrowIndex:  ray("1.03"),
		LastPoolSupplyIndex: ray("1"),
		LastPoolBorrowIndex: ray("1"),
		P2PIndexCursor:      3_000,
		ReserveFactor:       2_000,
	})

	assert.Equal(t, ray("1.03").Dec(), g.P2PSupply.Dec())
	assert.Equal(t, ray("1.03").Dec(), g.P2PBorrow.Dec())
}

func TestComputeP2PIndex(t *testing.T) {
	base := P2PIndexParams{
		P2PGrowthFactor:  ray("1.02"),
		PoolGrowthFactor: ray("1.01"),
		LastPoolIndex:    ray("1"),
		LastP2PIndex:     ray("1"),
		P2PDelta:         number.Zero(),
		P2PAmount:        number.New(100),
		ProportionIdle:   number.Zero(),
	}

	t.Run("fully matched", func(t *testing.T) {
		assert.Equal(t, ray("1.02").Dec(), ComputeP2PIndex(base).Dec())
	})

	t.Run("no volume", func(t *testing.T) {
		p := base
		p.P2PAmount = number.Zero()
		p.P2PDelta = number.New(10)
		assert.Equal(t, ray("1.02").Dec(), ComputeP2PIndex(p).Dec())
	})

	t.Run("delta share tracks the pool", func(t *testing.T) {
		p := base
		p.P2PDelta = number.New(25)
		assert.Equal(t, ray("1.0175").Dec(), ComputeP2PIndex(p).Dec())
	})

	t.Run("idle share does not grow", func(t *testing.T) {
		p := base
		p.P2PDelta = number.New(25)
		p.ProportionIdle = ray("0.1")
		assert.Equal(t, ray("1.0155").Dec(), ComputeP2PIndex(p).Dec())
	})

	t.Run("delta capped by the idle share", func(t *testing.T) {
		p := base
		p.P2PDelta = number.New(1_000)
		p.ProportionIdle = ray("0.5")
		// half idle, half on pool
		assert.Equal(t, ray("1.005").Dec(), ComputeP2PIndex(p).Dec())
	})
}

func TestProportionIdle(t *testing.T) {
	assert.True(t, ProportionIdle(number.Zero(), number.New(100), ray("1")).IsZero())
	assert.Equal(t, ray("0.1").Dec(), ProportionIdle(number.New(10), number.New(100), ray("1")).Dec())
	assert.Equal(t, number.Ray.Dec(), ProportionIdle(number.New(10), number.Zero(), ray("1")).Dec())
	assert.Equal(t, number.Ray.Dec(), ProportionIdle(number.New(500), number.New(100), ray("1")).Dec())
}

func TestDefaultModel(t *testing.T) {
	var m Model = DefaultModel{}
	g := m.GrowthFactors(GrowthParams{
		NewPoolSupplyIndex:  ray("1"),
		NewPoolBorrowIndex:  ray("1"),
		LastPoolSupplyIndex: ray("1"),
		LastPoolBorrowIndex: ray("1"),
	})

	assert.Equal(t, number.Ray.Dec(), g.P2PSupply.Dec())
	assert.Equal(t, number.Ray.Dec(), g.P2PBorrow.Dec())
}

func TestRateModel(t *testing.T) {
	m := RateModel{
		BaseRate:       decimal.RequireFromString("0.02"),
		Multiplier:     decimal.RequireFromString("0.1"),
		JumpMultiplier: decimal.RequireFromString("1"),
		Kink:           decimal.RequireFromString("0.8"),
		ReserveFactor:  decimal.RequireFromString("0.1"),
	}

	assert.Equal(t, "0.5", UtilizationRate(decimal.NewFromInt(50), decimal.NewFromInt(50)).String())
	assert.True(t, UtilizationRate(decimal.Zero, decimal.Zero).IsZero())

	assert.Equal(t, "0.07", m.BorrowRate(decimal.RequireFromString("0.5")).String())
	assert.Equal(t, "0.2", m.BorrowRate(decimal.RequireFromString("0.9")).String())
	assert.Equal(t, "0.0315", m.SupplyRate(decimal.RequireFromString("0.5")).String())
}

func TestInterestAccrual(t *testing.T) {
	year := SecondsPerYear.IntPart()
	rate := decimal.RequireFromString("0.1")

	assert.Equal(t, "1.1", LinearInterest(rate, year).String())
	assert.Equal(t, "1", CompoundedInterest(rate, 0).String())

	compounded := CompoundedInterest(rate, year)
	assert.True(t, compounded.GreaterThan(LinearInterest(rate, year)))
	assert.True(t, compounded.LessThan(decimal.RequireFromString("1.1052")))
}
