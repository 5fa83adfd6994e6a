package prune

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Workiva/go-datastructures/bitarray"
)

// VarSet is a set of variable indices. The zero value is the empty set.
//
// Sets returned by Union, Intersect and Clone are independent; Add and
// Remove mutate the receiver and every copy of it made by assignment.
type VarSet struct {
	bits bitarray.BitArray
}

// NewVarSet returns the set of the given indices.
func NewVarSet(indices ...int) VarSet {
	s := VarSet{bits: bitarray.NewSparseBitArray()}
	for _, i := range indices {
		s.Add(i)
	}
	return s
}

// AllVars returns {0, ..., n-1}.
func AllVars(n int) VarSet {
	s := NewVarSet()
	for i := 0; i < n; i++ {
		s.Add(i)
	}
	return s
}

// Add inserts i.
func (s *VarSet) Add(i int) {
	if s.bits == nil {
		s.bits = bitarray.NewSparseBitArray()
	}
	_ = s.bits.SetBit(uint64(i))
}

// Remove deletes i.
func (s *VarSet) Remove(i int) {
	if s.bits != nil {
		_ = s.bits.ClearBit(uint64(i))
	}
}

// Has reports whether i is in s.
func (s VarSet) Has(i int) bool {
	if s.bits == nil || i < 0 {
		return false
	}
	ok, _ := s.bits.GetBit(uint64(i))
	return ok
}

// Indices returns the members of s in increasing order.
func (s VarSet) Indices() []int {
	if s.bits == nil {
		return nil
	}
	nums := s.bits.ToNums()
	out := make([]int, len(nums))
	for k, v := range nums {
		out[k] = int(v)
	}
	sort.Ints(out)
	return out
}

// Len returns the cardinality of s.
func (s VarSet) Len() int {
	if s.bits == nil {
		return 0
	}
	return len(s.bits.ToNums())
}

// Empty reports whether s has no member.
func (s VarSet) Empty() bool { return s.Len() == 0 }

// Union returns s ∪ o.
func (s VarSet) Union(o VarSet) VarSet {
	switch {
	case s.bits == nil:
		return o.Clone()
	case o.bits == nil:
		return s.Clone()
	}
	return VarSet{bits: s.bits.Or(o.bits)}
}

// Intersect returns s ∩ o.
func (s VarSet) Intersect(o VarSet) VarSet {
	if s.bits == nil || o.bits == nil {
		return NewVarSet()
	}
	return VarSet{bits: s.bits.And(o.bits)}
}

// Intersects reports whether s ∩ o is non-empty.
func (s VarSet) Intersects(o VarSet) bool {
	return !s.Intersect(o).Empty()
}

// Clone returns an independent copy.
func (s VarSet) Clone() VarSet {
	return NewVarSet(s.Indices()...)
}

// Equal reports whether s and o have the same members.
func (s VarSet) Equal(o VarSet) bool {
	a, b := s.Indices(), o.Indices()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s VarSet) String() string {
	idx := s.Indices()
	parts := make([]string, len(idx))
	for k, i := range idx {
		parts[k] = strconv.Itoa(i)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
