// Package sorted keeps the users of one market side ordered by balance so the
// matching engine can pick its counterparties largest first.
package sorted

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"
	"github.com/holiman/uint256"
)

const defaultTreeDegree = 32

type item struct {
	user  common.Address
	value *uint256.Int
}

// less orders by value descending, ties broken by address ascending
func less(a, b item) bool {
	if c := a.value.Cmp(b.value); c != 0 {
		return c > 0
	}

	return bytes.Compare(a.user[:], b.user[:]) < 0
}

// Set is an ordered set of (user, value) pairs. At most maxSorted users are
// kept ordered; any further users wait in an insertion ordered overflow
// bucket until a slot in the tree frees up.
type Set struct {
	maxSorted int
	tree      *btree.BTreeG[item]
	values    map[common.Address]*uint256.Int

	// overflow bucket, a slice with an index for O(1) removal
	bucket []common.Address
	pos    map[common.Address]int
}

// New returns an empty set, maxSorted <= 0 means unbounded
func New(maxSorted int) *Set {
	return &Set{
		maxSorted: maxSorted,
		tree:      btree.NewG(defaultTreeDegree, less),
		values:    make(map[common.Address]*uint256.Int),
		pos:       make(map[common.Address]int),
	}
}

// Clone returns an independent copy of the set
func (s *Set) Clone() *Set {
	c := &Set{
		maxSorted: s.maxSorted,
		tree:      s.tree.Clone(),
		values:    make(map[common.Address]*uint256.Int, len(s.values)),
		bucket:    append([]common.Address(nil), s.bucket...),
		pos:       make(map[common.Address]int, len(s.pos)),
	}

	// stored values are never mutated in place
	for user, v := range s.values {
		c.values[user] = v
	}
	for user, i := range s.pos {
		c.pos[user] = i
	}

	return c
}

// Len returns the number of users in the set
func (s *Set) Len() int {
	return len(s.values)
}

// ValueOf returns the value of user, zero when absent
func (s *Set) ValueOf(user common.Address) *uint256.Int {
	if v, ok := s.values[user]; ok {
		return new(uint256.Int).Set(v)
	}

	return new(uint256.Int)
}

// Contains reports whether user is in the set
func (s *Set) Contains(user common.Address) bool {
	_, ok := s.values[user]
	return ok
}

// Update sets the value of user. A zero value removes the user.
func (s *Set) Update(user common.Address, value *uint256.Int) {
	if value == nil || value.IsZero() {
		s.Remove(user)
		return
	}

	value = new(uint256.Int).Set(value)

	if old, ok := s.values[user]; ok {
		s.values[user] = value
		if _, inBucket := s.pos[user]; inBucket {
			return
		}

		s.tree.Delete(item{user: user, value: old})
		s.tree.ReplaceOrInsert(item{user: user, value: value})
		return
	}

	s.values[user] = value
	if s.maxSorted > 0 && s.tree.Len() >= s.maxSorted {
		s.pos[user] = len(s.bucket)
		s.bucket = append(s.bucket, user)
		return
	}

	s.tree.ReplaceOrInsert(item{user: user, value: value})
}

// Insert is an alias of Update
func (s *Set) Insert(user common.Address, value *uint256.Int) {
	s.Update(user, value)
}

// Remove drops user from the set
func (s *Set) Remove(user common.Address) {
	old, ok := s.values[user]
	if !ok {
		return
	}

	delete(s.values, user)

	if _, inBucket := s.pos[user]; inBucket {
		s.removeFromBucket(user)
		return
	}

	s.tree.Delete(item{user: user, value: old})

	// promote the oldest overflow user into the freed slot
	if len(s.bucket) > 0 {
		next := s.bucket[0]
		s.removeFromBucket(next)
		s.tree.ReplaceOrInsert(item{user: next, value: s.values[next]})
	}
}

func (s *Set) removeFromBucket(user common.Address) {
	i := s.pos[user]
	last := len(s.bucket) - 1
	if i != last {
		// keep insertion order so promotion stays first in first out
		copy(s.bucket[i:], s.bucket[i+1:])
		for j := i; j < last; j++ {
			s.pos[s.bucket[j]] = j
		}
	}

	s.bucket = s.bucket[:last]
	delete(s.pos, user)
}

// Head returns the user with the largest value. When the tree is empty the
// first overflow user is returned.
func (s *Set) Head() (common.Address, *uint256.Int, bool) {
	if it, ok := s.tree.Min(); ok {
		return it.user, new(uint256.Int).Set(it.value), true
	}

	if len(s.bucket) > 0 {
		user := s.bucket[0]
		return user, new(uint256.Int).Set(s.values[user]), true
	}

	return common.Address{}, nil, false
}

// Tail returns the sorted user with the smallest value
func (s *Set) Tail() (common.Address, *uint256.Int, bool) {
	if it, ok := s.tree.Max(); ok {
		return it.user, new(uint256.Int).Set(it.value), true
	}

	return s.Head()
}

// Ascend walks sorted users largest first, then the overflow bucket,
// until fn returns false
func (s *Set) Ascend(fn func(user common.Address, value *uint256.Int) bool) {
	stopped := false
	s.tree.Ascend(func(it item) bool {
		if !fn(it.user, new(uint256.Int).Set(it.value)) {
			stopped = true
			return false
		}
		return true
	})

	if stopped {
		return
	}

	for _, user := range s.bucket {
		if !fn(user, new(uint256.Int).Set(s.values[user])) {
			return
		}
	}
}
