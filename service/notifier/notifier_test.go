package notifier

import (
	"context"
	"testing"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder(2)
	n := Multi(NewLogger(), r)

	n.Notify(context.Background(), []*core.Event{
		{Kind: core.EventSupplied},
		{Kind: core.EventBorrowed},
		{Kind: core.EventRepaid},
	})

	assert.Equal(t, []core.EventKind{core.EventBorrowed, core.EventRepaid}, r.Kinds())
	assert.Len(t, r.Events(), 2)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestFields(t *testing.T) {
	fields := Fields(&core.Event{
		ID:         "id",
		Kind:       core.EventLiquidated,
		Underlying: common.HexToAddress("0x01"),
		Caller:     common.HexToAddress("0x02"),
		Amount:     uint256.NewInt(10),
		Seized:     uint256.NewInt(5),
	})

	assert.Equal(t, "10", fields["amount"])
	assert.Equal(t, "5", fields["seized"])
	assert.Equal(t, common.HexToAddress("0x02").Hex(), fields["caller"])
	assert.NotContains(t, fields, "receiver")
}
