package sorted

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func collect(s *Set) []common.Address {
	var users []common.Address
	s.Ascend(func(user common.Address, _ *uint256.Int) bool {
		users = append(users, user)
		return true
	})
	return users
}

func TestLargestFirst(t *testing.T) {
	s := New(0)
	s.Insert(addr(1), uint256.NewInt(10))
	s.Insert(addr(2), uint256.NewInt(30))
	s.Insert(addr(3), uint256.NewInt(20))

	user, value, ok := s.Head()
	require.True(t, ok)
	assert.Equal(t, addr(2), user)
	assert.Equal(t, uint64(30), value.Uint64())

	user, _, _ = s.Tail()
	assert.Equal(t, addr(1), user)

	assert.Equal(t, []common.Address{addr(2), addr(3), addr(1)}, collect(s))
}

func TestTiesAreStable(t *testing.T) {
	s := New(0)
	s.Insert(addr(9), uint256.NewInt(5))
	s.Insert(addr(4), uint256.NewInt(5))

	user, _, _ := s.Head()
	assert.Equal(t, addr(4), user)
}

func TestUpdateReorders(t *testing.T) {
	s := New(0)
	s.Insert(addr(1), uint256.NewInt(10))
	s.Insert(addr(2), uint256.NewInt(5))

	s.Update(addr(1), uint256.NewInt(1))
	user, _, _ := s.Head()
	assert.Equal(t, addr(2), user)
	assert.Equal(t, uint64(1), s.ValueOf(addr(1)).Uint64())

	s.Update(addr(2), new(uint256.Int))
	assert.False(t, s.Contains(addr(2)))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.ValueOf(addr(2)).IsZero())
}

func TestOverflowBucket(t *testing.T) {
	s := New(2)
	s.Insert(addr(1), uint256.NewInt(10))
	s.Insert(addr(2), uint256.NewInt(20))
	s.Insert(addr(3), uint256.NewInt(100))
	s.Insert(addr(4), uint256.NewInt(50))

	assert.Equal(t, 4, s.Len())
	// bucket users come after sorted users regardless of value
	assert.Equal(t, []common.Address{addr(2), addr(1), addr(3), addr(4)}, collect(s))

	// freeing a sorted slot promotes the oldest bucket user
	s.Remove(addr(2))
	assert.Equal(t, []common.Address{addr(3), addr(1), addr(4)}, collect(s))

	s.Remove(addr(4))
	s.Remove(addr(3))
	s.Remove(addr(1))
	_, _, ok := s.Head()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestHeadFallsBackToBucket(t *testing.T) {
	s := New(1)
	s.Insert(addr(1), uint256.NewInt(1))
	s.Insert(addr(2), uint256.NewInt(2))
	s.Insert(addr(3), uint256.NewInt(3))

	s.Remove(addr(1))
	user, _, _ := s.Head()
	assert.Equal(t, addr(2), user)

	// removing a bucket user keeps the others in insertion order
	s.Insert(addr(4), uint256.NewInt(4))
	s.Insert(addr(5), uint256.NewInt(5))
	s.Remove(addr(4))
	assert.Equal(t, []common.Address{addr(2), addr(3), addr(5)}, collect(s))
}

func TestClone(t *testing.T) {
	s := New(1)
	s.Insert(addr(1), uint256.NewInt(1))
	s.Insert(addr(2), uint256.NewInt(2))

	c := s.Clone()
	s.Remove(addr(1))
	s.Update(addr(2), uint256.NewInt(7))

	assert.Equal(t, []common.Address{addr(1), addr(2)}, collect(c))
	assert.Equal(t, uint64(2), c.ValueOf(addr(2)).Uint64())
	assert.Equal(t, []common.Address{addr(2)}, collect(s))
}
