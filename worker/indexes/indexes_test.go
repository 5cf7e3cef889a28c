package indexes

import (
	"context"
	"errors"
	"testing"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wbtc = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

type fakeEngine struct {
	markets []*core.Market
	failing common.Address
	updated []common.Address
}

func (e *fakeEngine) Markets() []*core.Market {
	return e.markets
}

func (e *fakeEngine) UpdateIndexes(_ context.Context, underlying common.Address) (core.Indexes, error) {
	if underlying == e.failing {
		return core.Indexes{}, errors.New("pool unavailable")
	}

	e.updated = append(e.updated, underlying)
	return core.Indexes{}, nil
}

func TestOnWorkUpdatesLiveMarkets(t *testing.T) {
	engine := &fakeEngine{
		markets: []*core.Market{
			{Underlying: dai},
			{Underlying: usdc, PauseStatuses: core.PauseStatuses{IsDeprecated: true}},
			{Underlying: wbtc},
		},
	}

	w, err := New("@every 1m", nil, engine)
	require.NoError(t, err)

	require.NoError(t, w.onWork(context.Background()))
	assert.Equal(t, []common.Address{dai, wbtc}, engine.updated)

	// one failing market does not stop the others
	engine.updated = nil
	engine.failing = dai
	assert.Error(t, w.onWork(context.Background()))
	assert.Equal(t, []common.Address{wbtc}, engine.updated)
}
