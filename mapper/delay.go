//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math"

	"github.com/markkurossi/techmap/library"
)

// pinDelay returns the rise and fall delays through the pin from the
// leaf phase lp to the node phase ph.
func (m *Manager) pinDelay(pin *library.Pin, leaf *Node, lp Phase,
	node *Node, ph Phase) (float64, float64) {

	w := m.Params.Weights
	if w.Nominal() {
		load := node.RefEst[ph]
		return pin.RiseBlock + pin.RiseFanout*load,
			pin.FallBlock + pin.FallFanout*load
	}

	trans := w[0] * ((leaf.RefEst[lp]+10*w[2])*pin.TransLoad*10*w[3] +
		pin.TransParasitic*w[4])
	effort := node.RefEst[ph] + 10*w[6]

	rise := trans + (1-w[0])*(effort*pin.RiseFanout*10*w[7]+pin.RiseBlock*w[8])
	fall := trans + (1-w[0])*(effort*pin.FallFanout*10*w[7]+pin.FallBlock*w[8])

	return rise, fall
}

// through returns the arrival time at the pin output for the input
// arrival a.
func through(a Time, phase library.PinPhase, rise, fall float64) Time {
	var t Time
	switch phase {
	case library.NonInv:
		t.Rise = a.Rise + rise
		t.Fall = a.Fall + fall
	case library.Inv:
		t.Rise = a.Fall + rise
		t.Fall = a.Rise + fall
	default:
		w := math.Max(a.Rise, a.Fall)
		t.Rise = w + rise
		t.Fall = w + fall
	}
	t.Worst = math.Max(t.Rise, t.Fall)
	return t
}

// before returns the required time at the pin input for the output
// required time r.
func before(r Time, phase library.PinPhase, rise, fall float64) Time {
	var t Time
	switch phase {
	case library.NonInv:
		t.Rise = r.Rise - rise
		t.Fall = r.Fall - fall
	case library.Inv:
		t.Rise = r.Fall - fall
		t.Fall = r.Rise - rise
	default:
		v := math.Min(r.Rise-rise, r.Fall-fall)
		t.Rise = v
		t.Fall = v
	}
	t.Worst = r.Worst - math.Max(rise, fall)
	return t
}

func maxTime(a, b Time) Time {
	return Time{
		Rise:  math.Max(a.Rise, b.Rise),
		Fall:  math.Max(a.Fall, b.Fall),
		Worst: math.Max(a.Worst, b.Worst),
	}
}

func minTime(a, b Time) Time {
	return Time{
		Rise:  math.Min(a.Rise, b.Rise),
		Fall:  math.Min(a.Fall, b.Fall),
		Worst: math.Min(a.Worst, b.Worst),
	}
}

// matchArrival computes the arrival time of the node phase ph
// implemented by the supergate sg on the cut c.
func (m *Manager) matchArrival(n *Node, c *Cut, ph Phase,
	sg *library.Supergate) Time {

	if len(c.Leaves) == 0 {
		// Constant cell.
		return Uniform(0)
	}
	arrival := Uniform(math.Inf(-1))
	for j, id := range c.Leaves {
		leaf := m.nodes[id]
		lp := PhaseOf(sg.Phases[j])
		pin := sg.Pins[j]
		rise, fall := m.pinDelay(pin, leaf, lp, n, ph)
		arrival = maxTime(arrival, through(leaf.Arrival[lp], pin.Phase,
			rise, fall))
	}
	return arrival
}

// invArrival returns the arrival time of the node phase ph
// implemented by an inverter driven by the opposite phase arriving
// at a.
func (m *Manager) invArrival(n *Node, ph Phase, a Time) Time {
	pin := m.inv.Pins[0]
	rise, fall := m.pinDelay(pin, n, ph.Not(), n, ph)
	return through(a, pin.Phase, rise, fall)
}

// invRequired returns the required time of the opposite phase for
// the node phase ph implemented by an inverter.
func (m *Manager) invRequired(n *Node, ph Phase, r Time) Time {
	pin := m.inv.Pins[0]
	rise, fall := m.pinDelay(pin, n, ph.Not(), n, ph)
	return before(r, pin.Phase, rise, fall)
}
