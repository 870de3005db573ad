//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"github.com/markkurossi/techmap/aig"
)

type cost struct {
	area      float64
	switching float64
}

func (c *cost) add(o cost) {
	c.area += o.area
	c.switching += o.switching
}

// adjust adds delta references to the node phase ph. The phases
// whose implementation becomes needed or unneeded are implemented or
// released recursively. The function returns the area and switching
// activity implemented or released.
func (m *Manager) adjust(n *Node, ph Phase, delta int) cost {
	if n.Subject.Kind == aig.Buf {
		before := n.RefAct[ph] > 0
		n.RefAct[ph] += delta
		n.RefAct[2] += delta
		if before == (n.RefAct[ph] > 0) {
			return cost{}
		}
		f, fp := m.fanin(n.Subject.Fanin0)
		return m.adjust(f, fp^ph, delta)
	}

	before := [2]bool{n.Needs(Pos), n.Needs(Neg)}
	n.RefAct[ph] += delta
	n.RefAct[2] += delta

	var result cost
	for p := Pos; p <= Neg; p++ {
		if n.Needs(p) == before[p] {
			continue
		}
		if before[p] {
			result.add(m.implement(n, p, -1))
		} else {
			result.add(m.implement(n, p, 1))
		}
	}
	return result
}

// implement implements (delta=1) or releases (delta=-1) the selected
// implementation of the node phase ph.
func (m *Manager) implement(n *Node, ph Phase, delta int) cost {
	sel := &n.Best[ph]
	if sel.Inv {
		return cost{
			area:      m.inv.Area,
			switching: n.Switching,
		}
	}
	if !mapped(n) || !sel.Match.Matched() {
		return cost{}
	}
	result := cost{
		area:      sel.Match.Super.Area(),
		switching: n.Switching,
	}
	cut := &n.Cuts[sel.Cut]
	for j, id := range cut.Leaves {
		result.add(m.adjust(m.nodes[id], sel.Match.Phases[j], delta))
	}
	return result
}

// exactCost returns the area and switching activity needed to
// implement the match on the cut with the current references.
func (m *Manager) exactCost(c *Cut, mt *Match, n *Node) cost {
	result := cost{
		area:      mt.Super.Area(),
		switching: n.Switching,
	}
	for j, id := range c.Leaves {
		result.add(m.adjust(m.nodes[id], mt.Phases[j], 1))
	}
	for j, id := range c.Leaves {
		m.adjust(m.nodes[id], mt.Phases[j], -1)
	}
	return result
}

// SetRefs computes the references of the current mapping from the
// primary outputs and returns the mapping area.
func (m *Manager) SetRefs() float64 {
	for _, id := range m.order {
		m.nodes[id].RefAct = [3]int{}
	}
	var result cost
	for _, o := range m.Net.Outputs {
		n, ph := m.fanin(o.Ref)
		result.add(m.adjust(n, ph, 1))
	}
	return result.area
}

// Area returns the area of the current mapping.
func (m *Manager) Area() float64 {
	var area float64
	for _, id := range m.order {
		n := m.nodes[id]
		if !mapped(n) && !n.Subject.IsInput() {
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			if !n.Needs(ph) {
				continue
			}
			sel := &n.Best[ph]
			if sel.Inv {
				area += m.inv.Area
			} else if sel.Match.Matched() {
				area += sel.Match.Super.Area()
			}
		}
	}
	return area
}

// Switching returns the switching activity of the current mapping.
func (m *Manager) Switching() float64 {
	var sw float64
	for _, id := range m.order {
		n := m.nodes[id]
		if !mapped(n) && !n.Subject.IsInput() {
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			sel := &n.Best[ph]
			if n.Needs(ph) && (sel.Inv || sel.Match.Matched()) {
				sw += n.Switching
			}
		}
	}
	return sw
}

// AreaFlow returns the area flow of the primary outputs.
func (m *Manager) AreaFlow() float64 {
	var flow float64
	for _, o := range m.Net.Outputs {
		n, ph := m.source(m.fanin(o.Ref))
		flow += n.Best[ph].Match.AreaFlow
	}
	return flow
}

// EstimateRefs blends the actual references of the current mapping
// into the estimated references.
func (m *Manager) EstimateRefs() {
	for _, id := range m.order {
		n := m.nodes[id]
		for i := range n.RefEst {
			n.RefEst[i] = (n.RefEst[i] + 2*float64(n.RefAct[i])) / 3
		}
	}
}

// Source returns the node and phase implementing the node phase ph
// through buffers.
func (m *Manager) Source(id int, ph Phase) (*Node, Phase) {
	return m.source(m.nodes[id], ph)
}

func (m *Manager) source(n *Node, ph Phase) (*Node, Phase) {
	for n.Subject.Kind == aig.Buf {
		f, fp := m.fanin(n.Subject.Fanin0)
		n, ph = f, fp^ph
	}
	return n, ph
}

// leafFlow returns the area flow share of the leaf phase.
func (m *Manager) leafFlow(leaf *Node, ph Phase) float64 {
	est := leaf.RefEst[ph]
	leaf, ph = m.source(leaf, ph)
	flow := leaf.Best[ph].Match.AreaFlow
	if est > 0 {
		return flow / est
	}
	return flow
}
