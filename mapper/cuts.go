//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math/bits"
	"sort"

	"github.com/markkurossi/techmap/aig"
	"github.com/pkg/errors"
)

func signature(id int) uint64 {
	return 1 << (uint(id) % 64)
}

// ComputeCuts enumerates the K-feasible cuts of all nodes in the
// topological order. The first cut of each node is its trivial cut.
// The cuts of choice class members are added to their
// representative.
func (m *Manager) ComputeCuts() error {
	if m.state == StateFailed {
		return ErrNeedsReset
	}
	if m.orderErr != nil {
		return m.fail("cuts", m.orderErr)
	}
	m.stats.Cuts = 0
	m.stats.Nodes = 0

	for _, id := range m.order {
		n := m.nodes[id]
		subj := n.Subject

		var cuts []Cut
		switch subj.Kind {
		case aig.And:
			if subj.Fanin0 == aig.False || subj.Fanin1 == aig.False {
				cuts = []Cut{{Root: id}}
				break
			}
			c0 := m.faninCuts(subj.Fanin0)
			c1 := m.faninCuts(subj.Fanin1)
			for i := range c0 {
				for j := range c1 {
					leaves, ok := m.merge(&c0[i], &c1[j])
					if !ok {
						continue
					}
					cuts = addCut(cuts, Cut{
						Leaves: leaves,
						Root:   id,
						sign:   c0[i].sign | c1[j].sign,
					})
				}
			}
		case aig.Buf:
			for _, c := range m.faninCuts(subj.Fanin0) {
				cuts = addCut(cuts, Cut{
					Leaves: c.Leaves,
					Root:   id,
					sign:   c.sign,
				})
			}
		}
		for _, member := range subj.Choices {
			mn := m.nodes[member]
			if mn == nil || len(mn.Cuts) == 0 {
				return m.fail("cuts", errors.Wrapf(ErrStructural,
					"n%d: choice n%d not enumerated", id, member))
			}
			for _, c := range mn.Cuts[1:] {
				cuts = addCut(cuts, Cut{
					Leaves: c.Leaves,
					Root:   member,
					Compl:  mn.Subject.ReprPhase,
					sign:   c.sign,
				})
			}
		}
		if subj.IsAnd() && len(cuts) == 0 {
			return m.fail("cuts", errors.Wrapf(ErrStructural,
				"n%d: no feasible cuts", id))
		}
		if len(cuts) > m.Params.CutLimit {
			sort.SliceStable(cuts, func(i, j int) bool {
				return len(cuts[i].Leaves) < len(cuts[j].Leaves)
			})
			cuts = cuts[:m.Params.CutLimit]
		}

		n.Cuts = make([]Cut, 0, len(cuts)+1)
		n.Cuts = append(n.Cuts, Cut{
			Leaves: []int{id},
			Root:   id,
			sign:   signature(id),
		})
		n.Cuts = append(n.Cuts, cuts...)

		m.stats.Nodes++
		m.stats.Cuts += len(n.Cuts)
	}
	m.haveCuts = true
	m.haveTruths = false
	m.state = StateCuts

	m.log.Infof("cuts: %d nodes, %d cuts", m.stats.Nodes, m.stats.Cuts)
	m.timing.Sample("Cuts", []string{"", ""})

	return nil
}

// constCuts holds the single empty cut of the constant node. The
// constant is folded into its fanouts and never becomes a leaf.
var constCuts = []Cut{{}}

func (m *Manager) faninCuts(r aig.Ref) []Cut {
	if m.Net.Nodes[r.ID()].Kind == aig.Const {
		return constCuts
	}
	return m.nodes[r.ID()].Cuts
}

// merge merges the leaves of the cuts a and b. The function returns
// false if the merged cut has more than K leaves.
func (m *Manager) merge(a, b *Cut) ([]int, bool) {
	if bits.OnesCount64(a.sign|b.sign) > m.k {
		return nil, false
	}
	result := make([]int, 0, m.k)
	var i, j int
	for i < len(a.Leaves) || j < len(b.Leaves) {
		var next int
		switch {
		case j >= len(b.Leaves):
			next = a.Leaves[i]
			i++
		case i >= len(a.Leaves):
			next = b.Leaves[j]
			j++
		case a.Leaves[i] < b.Leaves[j]:
			next = a.Leaves[i]
			i++
		case a.Leaves[i] > b.Leaves[j]:
			next = b.Leaves[j]
			j++
		default:
			next = a.Leaves[i]
			i++
			j++
		}
		if len(result) >= m.k {
			return nil, false
		}
		result = append(result, next)
	}
	return result, true
}

// subset tests if the leaves of a are a subset of the leaves of b.
func subset(a, b *Cut) bool {
	if a.sign&^b.sign != 0 || len(a.Leaves) > len(b.Leaves) {
		return false
	}
	var j int
	for _, leaf := range a.Leaves {
		for j < len(b.Leaves) && b.Leaves[j] < leaf {
			j++
		}
		if j >= len(b.Leaves) || b.Leaves[j] != leaf {
			return false
		}
		j++
	}
	return true
}

// addCut adds the cut c into cuts unless it is dominated by an
// existing cut. The existing cuts dominated by c are removed.
func addCut(cuts []Cut, c Cut) []Cut {
	for i := range cuts {
		if subset(&cuts[i], &c) {
			return cuts
		}
	}
	kept := cuts[:0]
	for i := range cuts {
		if !subset(&c, &cuts[i]) {
			kept = append(kept, cuts[i])
		}
	}
	return append(kept, c)
}
