//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package truth

// NPN describes an input negation, input permutation, and output
// negation transform of a function.
type NPN struct {
	Perm   [MaxVars]int
	Negate uint8
	Output bool
}

// Apply applies the transform to the table t. The inputs are
// negated first, then permuted, and finally the output is negated.
func (x NPN) Apply(t Table) Table {
	for i := 0; i < int(t.Vars); i++ {
		if x.Negate&(1<<i) != 0 {
			t = t.FlipVar(i)
		}
	}
	t = t.Permute(x.Perm[:t.Vars])
	return t.NotIf(x.Output)
}

// Permutations calls the argument function for each permutation of
// n elements. The permutation slice is reused between calls.
func Permutations(n int, f func(perm []int)) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	c := make([]int, n)

	f(perm)

	// Heap's algorithm.
	for i := 1; i < n; {
		if c[i] < i {
			if i%2 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[c[i]], perm[i] = perm[i], perm[c[i]]
			}
			f(perm)
			c[i]++
			i = 1
		} else {
			c[i] = 0
			i++
		}
	}
}

// Canonical returns the NPN canonical representative of the function
// and the transform that maps t into it. The representative is the
// transformed table with the smallest bit pattern.
func (t Table) Canonical() (Table, NPN) {
	n := int(t.Vars)
	best := Table{
		Bits: ^uint64(0),
		Vars: t.Vars,
	}
	var bestX NPN
	first := true

	Permutations(n, func(perm []int) {
		for neg := 0; neg < 1<<n; neg++ {
			x := NPN{
				Negate: uint8(neg),
			}
			copy(x.Perm[:], perm)

			for _, out := range []bool{false, true} {
				x.Output = out
				c := x.Apply(t)
				if first || c.Bits < best.Bits {
					best = c
					bestX = x
					first = false
				}
			}
		}
	})
	return best, bestX
}

// NPNClasses counts the number of distinct NPN classes in the tables.
func NPNClasses(tables []Table) int {
	seen := make(map[Table]bool)
	for _, t := range tables {
		c, _ := t.Canonical()
		seen[c] = true
	}
	return len(seen)
}
