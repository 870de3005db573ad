//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math"

	"github.com/markkurossi/techmap/aig"
)

// ComputeArrivals recomputes the arrival times of the current
// mapping in the topological order.
func (m *Manager) ComputeArrivals() {
	m.initTerminals()

	for _, id := range m.order {
		n := m.nodes[id]
		switch {
		case n.Subject.Kind == aig.Buf:
			f, fp := m.fanin(n.Subject.Fanin0)
			n.Arrival[Pos] = f.Arrival[fp]
			n.Arrival[Neg] = f.Arrival[fp.Not()]
			continue

		case !mapped(n):
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			sel := &n.Best[ph]
			if sel.Inv || !sel.Match.Matched() {
				continue
			}
			sel.Match.Arrival = m.matchArrival(n, &n.Cuts[sel.Cut], ph,
				sel.Match.Super)
			n.Arrival[ph] = sel.Match.Arrival
		}
		for ph := Pos; ph <= Neg; ph++ {
			sel := &n.Best[ph]
			if sel.Inv {
				sel.Match.Arrival = m.invArrival(n, ph, n.Arrival[ph.Not()])
				n.Arrival[ph] = sel.Match.Arrival
			}
		}
	}
}

// OutputArrivals returns the arrival times of the primary outputs.
func (m *Manager) OutputArrivals() []Time {
	result := make([]Time, len(m.Net.Outputs))
	for i, o := range m.Net.Outputs {
		n, ph := m.fanin(o.Ref)
		result[i] = n.Arrival[ph]
	}
	return result
}

// Delay returns the maximum arrival time of the primary outputs or 0
// if the network has no outputs.
func (m *Manager) Delay() float64 {
	arrivals := m.OutputArrivals()
	if len(arrivals) == 0 {
		return 0
	}
	delay := arrivals[0].Worst
	for _, t := range arrivals[1:] {
		delay = math.Max(delay, t.Worst)
	}
	return delay
}

// ComputeRequired computes the required times of the current mapping.
// The primary outputs are required at the delay target or at the
// maximum output arrival time if the target is not set or it can't
// be met. Only the referenced nodes get required times.
func (m *Manager) ComputeRequired() {
	for _, id := range m.order {
		m.nodes[id].Required = [2]Time{Uniform(inf), Uniform(inf)}
	}

	global := m.Delay()
	target := m.Params.DelayTarget
	if target > 0 {
		if target < global-m.Params.Epsilon {
			m.log.Warnf("delay target %.2f below achievable delay %.2f",
				target, global)
		} else {
			global = target
		}
	}
	m.RequiredGlobal = global

	for _, o := range m.Net.Outputs {
		n, ph := m.fanin(o.Ref)
		n.Required[ph] = minTime(n.Required[ph], Uniform(global))
	}

	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.nodes[m.order[i]]
		if !n.referenced() {
			continue
		}
		if n.Subject.Kind == aig.Buf {
			f, fp := m.fanin(n.Subject.Fanin0)
			for ph := Pos; ph <= Neg; ph++ {
				if n.RefAct[ph] > 0 {
					f.Required[fp^ph] = minTime(f.Required[fp^ph],
						n.Required[ph])
				}
			}
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			if n.Needs(ph) && n.Best[ph].Inv {
				other := ph.Not()
				n.Required[other] = minTime(n.Required[other],
					m.invRequired(n, ph, n.Required[ph]))
			}
		}
		if !mapped(n) {
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			sel := &n.Best[ph]
			if !n.Needs(ph) || sel.Inv || !sel.Match.Matched() {
				continue
			}
			cut := &n.Cuts[sel.Cut]
			for j, id := range cut.Leaves {
				leaf := m.nodes[id]
				lp := sel.Match.Phases[j]
				pin := sel.Match.Super.Pins[j]
				rise, fall := m.pinDelay(pin, leaf, lp, n, ph)
				leaf.Required[lp] = minTime(leaf.Required[lp],
					before(n.Required[ph], pin.Phase, rise, fall))
			}
		}
	}
}
