package lending

import (
	"testing"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImport(t *testing.T) {
	f := newFixture(t)
	f.matchBobAndAlice(t)
	require.NoError(t, f.engine.ApproveManager(f.ctx, alice, carol, true))

	s := f.engine.Export()
	require.Len(t, s.Markets, 2)
	assert.Equal(t, dai, s.Markets[0].Underlying)
	assert.Equal(t, usdc, s.Markets[1].Underlying)
	// alice and bob on dai, bob on usdc
	assert.Len(t, s.Positions, 3)
	assert.Equal(t, []core.Approval{{Delegator: alice, Manager: carol}}, s.Approvals)

	// a restarted engine on the same pool
	restored := New(f.pool, f.oracle, WithClock(f.clock.Now))
	restored.Import(s)

	assert.Equal(t, s, restored.Export())
	assert.Equal(t, f.engine.Position(dai, bob), restored.Position(dai, bob))
	assert.Equal(t, []common.Address{dai}, restored.UserBorrows(bob))
	assert.Equal(t, []common.Address{usdc}, restored.UserCollaterals(bob))
	assert.True(t, restored.IsManagedBy(alice, carol))

	ms := restored.markets[dai]
	assert.True(t, ms.suppliersP2P.Contains(alice))
	assert.True(t, ms.borrowersPool.Contains(bob))
	assert.True(t, ms.borrowersP2P.Contains(bob))

	// the restored engine keeps matching
	mv, err := restored.Supply(f.ctx, request(dai, carol, units(400, 18)))
	require.NoError(t, err)
	assert.Equal(t, units(400, 18).Dec(), mv.P2P.Dec())
}
