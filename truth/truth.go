//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package truth implements truth tables of Boolean functions with up
// to MaxVars inputs. The table bits are replicated over the whole
// 64-bit word so that tables of the same function compare equal
// regardless of the variable count used to build them.
package truth

import (
	"fmt"
	"math/bits"
)

// MaxVars defines the maximum number of function inputs.
const MaxVars = 6

var varMasks = [MaxVars]uint64{
	0xAAAAAAAAAAAAAAAA,
	0xCCCCCCCCCCCCCCCC,
	0xF0F0F0F0F0F0F0F0,
	0xFF00FF00FF00FF00,
	0xFFFF0000FFFF0000,
	0xFFFFFFFF00000000,
}

// Table implements a truth table over Vars inputs.
type Table struct {
	Bits uint64
	Vars uint8
}

// Var returns the table of the projection function x[i] over n
// inputs.
func Var(i, n int) Table {
	if i < 0 || i >= n || n > MaxVars {
		panic(fmt.Sprintf("truth.Var: invalid variable %d/%d", i, n))
	}
	return Table{
		Bits: varMasks[i],
		Vars: uint8(n),
	}
}

// Const returns the constant function over n inputs.
func Const(v bool, n int) Table {
	t := Table{
		Vars: uint8(n),
	}
	if v {
		t.Bits = ^uint64(0)
	}
	return t
}

// FromBits creates a table from the 2^n low-order bits. The bits are
// replicated to fill the full word.
func FromBits(b uint64, n int) Table {
	if n > MaxVars {
		panic(fmt.Sprintf("truth.FromBits: too many variables: %d", n))
	}
	width := uint(1) << n
	if width < 64 {
		b &= (uint64(1) << width) - 1
		for w := width; w < 64; w <<= 1 {
			b |= b << w
		}
	}
	return Table{
		Bits: b,
		Vars: uint8(n),
	}
}

// Size returns the number of significant bits in the table.
func (t Table) Size() int {
	return 1 << t.Vars
}

// Bit returns the function value for the minterm m.
func (t Table) Bit(m int) bool {
	return t.Bits&(uint64(1)<<uint(m)) != 0
}

// Not returns the complement of the function.
func (t Table) Not() Table {
	return Table{
		Bits: ^t.Bits,
		Vars: t.Vars,
	}
}

// NotIf returns the complement of the function if c is true.
func (t Table) NotIf(c bool) Table {
	if c {
		return t.Not()
	}
	return t
}

// And returns the conjunction of t and o.
func (t Table) And(o Table) Table {
	return Table{
		Bits: t.Bits & o.Bits,
		Vars: maxVars(t, o),
	}
}

// Or returns the disjunction of t and o.
func (t Table) Or(o Table) Table {
	return Table{
		Bits: t.Bits | o.Bits,
		Vars: maxVars(t, o),
	}
}

// Xor returns the exclusive or of t and o.
func (t Table) Xor(o Table) Table {
	return Table{
		Bits: t.Bits ^ o.Bits,
		Vars: maxVars(t, o),
	}
}

func maxVars(a, b Table) uint8 {
	if a.Vars > b.Vars {
		return a.Vars
	}
	return b.Vars
}

// IsConst tests if the function is constant.
func (t Table) IsConst() bool {
	return t.Bits == 0 || t.Bits == ^uint64(0)
}

// Ones returns the number of satisfying minterms.
func (t Table) Ones() int {
	return bits.OnesCount64(t.Bits) >> (MaxVars - t.Vars)
}

// Cofactors returns the negative and positive cofactors of the
// function with respect to the variable i.
func (t Table) Cofactors(i int) (Table, Table) {
	m := varMasks[i]
	s := uint(1) << uint(i)

	neg := t.Bits &^ m
	neg |= neg << s
	pos := t.Bits & m
	pos |= pos >> s

	return Table{Bits: neg, Vars: t.Vars}, Table{Bits: pos, Vars: t.Vars}
}

// DependsOn tests if the function depends on the variable i.
func (t Table) DependsOn(i int) bool {
	neg, pos := t.Cofactors(i)
	return neg.Bits != pos.Bits
}

// Support returns the number of variables the function depends on.
func (t Table) Support() int {
	var count int
	for i := 0; i < int(t.Vars); i++ {
		if t.DependsOn(i) {
			count++
		}
	}
	return count
}

// Unate describes the unateness of a function in one variable.
type Unate int

// Unateness values.
const (
	Binate Unate = iota
	Positive
	Negative
	Independent
)

func (u Unate) String() string {
	switch u {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	case Independent:
		return "independent"
	default:
		return "binate"
	}
}

// Unateness returns the unateness of the function in the variable i.
func (t Table) Unateness(i int) Unate {
	neg, pos := t.Cofactors(i)
	switch {
	case neg.Bits == pos.Bits:
		return Independent
	case neg.Bits&^pos.Bits == 0:
		return Positive
	case pos.Bits&^neg.Bits == 0:
		return Negative
	default:
		return Binate
	}
}

// FlipVar returns the function with the input i complemented.
func (t Table) FlipVar(i int) Table {
	m := varMasks[i]
	s := uint(1) << uint(i)
	return Table{
		Bits: (t.Bits&m)>>s | (t.Bits&^m)<<s,
		Vars: t.Vars,
	}
}

// Permute returns the function g for which g(x) = t(y) where
// y[i] = x[perm[i]]. The perm must be a permutation of the variables
// of t.
func (t Table) Permute(perm []int) Table {
	n := int(t.Vars)
	if len(perm) < n {
		panic(fmt.Sprintf("truth.Permute: short permutation %v", perm))
	}
	var result uint64
	for m := 0; m < 1<<n; m++ {
		var y int
		for i := 0; i < n; i++ {
			if m&(1<<perm[i]) != 0 {
				y |= 1 << i
			}
		}
		if t.Bit(y) {
			result |= uint64(1) << uint(m)
		}
	}
	return FromBits(result, n)
}

func (t Table) String() string {
	digits := (t.Size() + 3) / 4
	mask := ^uint64(0)
	if t.Size() < 64 {
		mask = (uint64(1) << uint(t.Size())) - 1
	}
	return fmt.Sprintf("%0*x/%d", digits, t.Bits&mask, t.Vars)
}
