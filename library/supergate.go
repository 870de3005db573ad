//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package library

import (
	"fmt"
	"strings"

	"github.com/markkurossi/techmap/truth"
)

// Supergate implements a library cell with a fixed assignment of cut
// leaves to cell pins and leaf polarities. The supergate computes
// Truth over the cut leaves.
type Supergate struct {
	Cell      *Cell
	Truth     truth.Table
	NumInputs int

	// Pins holds the cell pin driven by each cut leaf.
	Pins [truth.MaxVars]*Pin

	// Phases tells if the leaf is consumed in its complemented phase.
	Phases [truth.MaxVars]bool
}

// Area returns the supergate area.
func (sg *Supergate) Area() float64 {
	return sg.Cell.Area
}

func (sg *Supergate) String() string {
	var parts []string
	for i := 0; i < sg.NumInputs; i++ {
		var neg string
		if sg.Phases[i] {
			neg = "!"
		}
		parts = append(parts, fmt.Sprintf("%s=%sl%d", sg.Pins[i].Name, neg, i))
	}
	return fmt.Sprintf("%s(%s)", sg.Cell.Name, strings.Join(parts, ","))
}

type leafKey struct {
	timing Timing
	phase  bool
}

type supergateKey struct {
	truth  truth.Table
	cell   *Cell
	leaves [truth.MaxVars]leafKey
}

// addSupergates adds all input permutation and input negation
// variants of the cell into the index. Variants which differ only by
// leaves mapped to pins with identical timing are added once.
func (lib *Library) addSupergates(cell *Cell) {
	n := cell.NumInputs()
	seen := make(map[supergateKey]bool)

	truth.Permutations(n, func(perm []int) {
		h := cell.Truth.Permute(perm)

		for neg := 0; neg < 1<<n; neg++ {
			g := h
			for j := 0; j < n; j++ {
				if neg&(1<<j) != 0 {
					g = g.FlipVar(j)
				}
			}
			sg := &Supergate{
				Cell:      cell,
				Truth:     g,
				NumInputs: n,
			}
			key := supergateKey{
				truth: g,
				cell:  cell,
			}
			for i := 0; i < n; i++ {
				leaf := perm[i]
				sg.Pins[leaf] = cell.Pins[i]
				sg.Phases[leaf] = neg&(1<<leaf) != 0
			}
			for j := 0; j < n; j++ {
				key.leaves[j] = leafKey{
					timing: sg.Pins[j].Timing,
					phase:  sg.Phases[j],
				}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			lib.index[g] = append(lib.index[g], sg)
			lib.numGates++
		}
	})
}
