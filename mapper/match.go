//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/pkg/errors"
)

// Match matches all nodes in the topological order with the cost
// model. The match slots and arrival times are reset before
// matching. The selected implementations of the previous pass are
// used as fallbacks when no candidate meets the required time.
func (m *Manager) Match(model CostModel) error {
	if m.state == StateFailed {
		return ErrNeedsReset
	}
	if !m.haveTruths {
		return errors.Wrap(ErrState, "truth tables not computed")
	}
	m.ResetMatches()
	m.initTerminals()

	for _, id := range m.order {
		n := m.nodes[id]
		switch {
		case n.Subject.Kind == aig.Buf:
			f, fp := m.fanin(n.Subject.Fanin0)
			n.Arrival[Pos] = f.Arrival[fp]
			n.Arrival[Neg] = f.Arrival[fp.Not()]

		case mapped(n):
			if err := m.matchNode(n, model); err != nil {
				return m.fail(model.Mode().String(), err)
			}
		}
	}
	return nil
}

// initTerminals sets the implementations of the constant node and
// the primary inputs.
func (m *Manager) initTerminals() {
	for _, id := range m.order {
		n := m.nodes[id]
		switch n.Subject.Kind {
		case aig.Const:
			for ph := Pos; ph <= Neg; ph++ {
				n.Best[ph] = Selection{
					Cut: 0,
					Match: Match{
						Arrival: Uniform(0),
					},
				}
				n.Arrival[ph] = n.Best[ph].Match.Arrival
			}

		case aig.Input:
			n.Best[Pos] = Selection{
				Cut: 0,
				Match: Match{
					Arrival: Uniform(m.Params.InputArrival),
				},
			}
			n.Best[Neg] = m.inverted(n, n.Best[Pos], Neg)
			n.Arrival[Pos] = n.Best[Pos].Match.Arrival
			n.Arrival[Neg] = n.Best[Neg].Match.Arrival
		}
	}
}

// matchNode selects the implementations of both phases of the node.
// In exact modes, the node's current implementation is released
// before matching and the new one is implemented afterwards.
func (m *Manager) matchNode(n *Node, model CostModel) error {
	exact := model.Mode().Exact()
	if exact {
		for ph := Pos; ph <= Neg; ph++ {
			if n.Needs(ph) {
				m.implement(n, ph, -1)
			}
		}
	}
	err := m.selectNode(n, model)
	if exact {
		for ph := Pos; ph <= Neg; ph++ {
			if n.Needs(ph) {
				m.implement(n, ph, 1)
			}
		}
	}
	return err
}

// evalMatch computes the costs of the supergate implementing the
// node phase on the cut.
func (m *Manager) evalMatch(n *Node, c *Cut, ph Phase,
	sg *library.Supergate, mode Mode) Match {

	mt := Match{
		Super:    sg,
		Arrival:  m.matchArrival(n, c, ph, sg),
		AreaFlow: sg.Area(),
	}
	for j, id := range c.Leaves {
		lp := PhaseOf(sg.Phases[j])
		mt.Phases[j] = lp
		mt.AreaFlow += m.leafFlow(m.nodes[id], lp)
	}
	if mode.Exact() {
		cost := m.exactCost(c, &mt, n)
		mt.Area = cost.area
		mt.Switching = cost.switching
	} else {
		mt.Area = sg.Area()
	}
	return mt
}

func (m *Manager) feasible(n *Node, ph Phase, arrival Time,
	mode Mode) bool {
	return !mode.Constrained() ||
		arrival.Worst <= n.Required[ph].Worst+m.Params.Epsilon
}

// selectNode matches all non-trivial cuts of the node and selects
// the phase implementations.
func (m *Manager) selectNode(n *Node, model CostModel) error {
	mode := model.Mode()
	eps := m.Params.Epsilon
	prev := n.Best

	var best [2]Selection
	for ph := Pos; ph <= Neg; ph++ {
		best[ph] = noSelection()

		for ci := 1; ci < len(n.Cuts); ci++ {
			c := &n.Cuts[ci]
			for _, sg := range m.Lib.Lookup(c.Truth.NotIf(ph == Neg)) {
				m.stats.Matches++
				mt := m.evalMatch(n, c, ph, sg, mode)
				if !m.feasible(n, ph, mt.Arrival, mode) {
					m.stats.Infeasible++
					continue
				}
				if !c.M[ph].Matched() || model.Less(&mt, &c.M[ph], eps) {
					c.M[ph] = mt
				}
			}
			if c.M[ph].Matched() &&
				(!best[ph].Valid() || model.Less(&c.M[ph], &best[ph].Match, eps)) {
				best[ph] = Selection{
					Cut:   ci,
					Match: c.M[ph],
				}
			}
		}
		if !best[ph].Valid() && mode.Constrained() && !prev[ph].Inv &&
			prev[ph].Match.Matched() {
			// Keep the previous implementation.
			c := &n.Cuts[prev[ph].Cut]
			best[ph] = Selection{
				Cut: prev[ph].Cut,
				Match: m.evalMatch(n, c, ph, prev[ph].Match.Super,
					mode),
			}
			m.stats.Fallbacks++
		}
	}

	switch {
	case !best[Pos].Valid() && !best[Neg].Valid():
		return errors.Wrapf(ErrNoLibraryMatch, "n%d: %v", n.ID, n.Subject)
	case !best[Pos].Valid():
		best[Pos] = m.inverted(n, best[Neg], Pos)
	case !best[Neg].Valid():
		best[Neg] = m.inverted(n, best[Pos], Neg)
	default:
		m.dropPhase(n, &best, model)
	}

	n.Best = best
	n.Arrival[Pos] = best[Pos].Match.Arrival
	n.Arrival[Neg] = best[Neg].Match.Arrival

	return nil
}

// inverted returns the selection implementing the node phase ph with
// an inverter driven by the selection from of the opposite phase.
func (m *Manager) inverted(n *Node, from Selection, ph Phase) Selection {
	return Selection{
		Cut: -1,
		Inv: true,
		Match: Match{
			Arrival:   m.invArrival(n, ph, from.Match.Arrival),
			AreaFlow:  from.Match.AreaFlow + m.inv.Area,
			Area:      m.inv.Area,
			Switching: n.Switching,
		},
	}
}

// dropPhase decides if one of the matched phases is implemented with
// an inverter driven by the other phase.
func (m *Manager) dropPhase(n *Node, best *[2]Selection, model CostModel) {
	eps := m.Params.Epsilon
	mode := model.Mode()

	inv := [2]Selection{
		m.inverted(n, best[Neg], Pos),
		m.inverted(n, best[Pos], Neg),
	}

	if !mode.Constrained() {
		switch {
		case best[Pos].Match.Arrival.Worst > inv[Pos].Match.Arrival.Worst+eps:
			best[Pos] = inv[Pos]
		case best[Neg].Match.Arrival.Worst > inv[Neg].Match.Arrival.Worst+eps:
			best[Neg] = inv[Neg]
		}
		return
	}

	var ok [2]bool
	for ph := Pos; ph <= Neg; ph++ {
		ok[ph] = m.feasible(n, ph, inv[ph].Match.Arrival, mode)
	}
	var primary [2]float64
	for ph := Pos; ph <= Neg; ph++ {
		primary[ph] = model.Primary(&best[ph].Match)
	}
	invCost := model.Primary(&inv[Pos].Match)
	if mode != ModeSwitching {
		invCost = m.inv.Area
	}

	if mode == ModeExactAreaPhase {
		m.dropPhaseExact(n, best, &inv, ok, primary, invCost)
		return
	}

	// Drop a phase only when both phases are used.
	if n.RefAct[Pos] == 0 || n.RefAct[Neg] == 0 {
		return
	}
	var drop Phase
	switch {
	case ok[Pos] && ok[Neg]:
		drop = Pos
		if primary[Neg] > primary[Pos] {
			drop = Neg
		}
	case ok[Pos]:
		drop = Pos
	case ok[Neg]:
		drop = Neg
	default:
		return
	}
	if primary[drop] > invCost+eps {
		best[drop] = inv[drop]
	}
}

// dropPhaseExact compares the total cost of implementing the used
// phases with gates against implementing one of them with an
// inverter.
func (m *Manager) dropPhaseExact(n *Node, best, inv *[2]Selection,
	ok [2]bool, primary [2]float64, invCost float64) {

	eps := m.Params.Epsilon
	used := [2]bool{n.RefAct[Pos] > 0, n.RefAct[Neg] > 0}

	var keep float64
	for ph := Pos; ph <= Neg; ph++ {
		if used[ph] {
			keep += primary[ph]
		}
	}
	bestCost := keep
	drop := -1

	for ph := Pos; ph <= Neg; ph++ {
		if !ok[ph] || !used[ph] {
			continue
		}
		// The opposite phase is implemented with a gate and the phase
		// with an inverter.
		c := primary[ph.Not()] + invCost
		if c < bestCost-eps {
			bestCost = c
			drop = int(ph)
		}
	}
	if drop >= 0 {
		best[drop] = inv[drop]
	}
}
