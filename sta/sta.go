//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package sta implements static timing analysis of mapped netlists.
package sta

import (
	"fmt"
	"io"
	"math"

	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/netlist"
	"github.com/pkg/errors"
)

// Analysis errors.
var (
	ErrNotMapped      = errors.New("netlist not mapped")
	ErrNotTopological = errors.New("gates not in topological order")
	ErrNoLibrary      = errors.New("gate without library cell")
)

// Analyzer computes the timing of a netlist.
type Analyzer interface {
	Analyze(n *netlist.Netlist) (*Report, error)
}

// Report holds the timing analysis result.
type Report struct {
	Rise  []float64
	Fall  []float64
	Delay float64

	// Critical holds the gates of the critical path from the inputs
	// to the slowest output.
	Critical []*netlist.Gate
}

// Arrival returns the worst case arrival time of the wire.
func (r *Report) Arrival(w netlist.Wire) float64 {
	return math.Max(r.Rise[w], r.Fall[w])
}

// Print prints the critical path to out.
func (r *Report) Print(out io.Writer) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Cell").SetAlign(tabulate.ML)
	tab.Header("Output").SetAlign(tabulate.MR)
	tab.Header("Rise").SetAlign(tabulate.MR)
	tab.Header("Fall").SetAlign(tabulate.MR)

	for _, g := range r.Critical {
		row := tab.Row()
		row.Column(g.Cell.Name)
		row.Column(fmt.Sprintf("w%d", g.Output))
		row.Column(fmt.Sprintf("%.2f", r.Rise[g.Output]))
		row.Column(fmt.Sprintf("%.2f", r.Fall[g.Output]))
	}
	row := tab.Row()
	row.Column("Delay").SetFormat(tabulate.FmtBold)
	row.Column("")
	row.Column(fmt.Sprintf("%.2f", r.Delay)).SetFormat(tabulate.FmtBold)

	tab.Print(out)
}

// LoadAnalyzer computes pin delays from the block delays and the
// load driven by the gate output. The load is the sum of the input
// pin loads of the fanout gates and OutputLoad for each output port.
type LoadAnalyzer struct {
	InputArrival float64
	OutputLoad   float64
}

// Analyze implements Analyzer.Analyze.
func (a *LoadAnalyzer) Analyze(n *netlist.Netlist) (*Report, error) {
	if n == nil {
		return nil, ErrNotMapped
	}
	load := make([]float64, n.NumWires)
	driver := make([]int, n.NumWires)
	for i := range driver {
		driver[i] = -1
	}
	for idx, g := range n.Gates {
		if g.Cell == nil {
			return nil, errors.Wrapf(ErrNoLibrary, "gate %d", idx)
		}
		for i, w := range g.Inputs {
			load[w] += g.Cell.Pins[i].Load
		}
		driver[g.Output] = idx
	}
	for _, p := range n.Outputs {
		load[p.Wire] += a.OutputLoad
	}

	r := &Report{
		Rise: make([]float64, n.NumWires),
		Fall: make([]float64, n.NumWires),
	}
	defined := make([]bool, n.NumWires)
	for _, p := range n.Inputs {
		r.Rise[p.Wire] = a.InputArrival
		r.Fall[p.Wire] = a.InputArrival
		defined[p.Wire] = true
	}
	// critical holds the input wire defining each gate output arrival.
	critical := make([]netlist.Wire, n.NumWires)

	for idx, g := range n.Gates {
		rise := math.Inf(-1)
		fall := math.Inf(-1)
		critical[g.Output] = -1

		for i, w := range g.Inputs {
			if !defined[w] {
				return nil, errors.Wrapf(ErrNotTopological,
					"gate %d input w%d", idx, w)
			}
			pin := g.Cell.Pins[i]
			pr, pf := pinArrival(pin, r.Rise[w], r.Fall[w], load[g.Output])
			if math.Max(pr, pf) > math.Max(rise, fall) {
				critical[g.Output] = w
			}
			rise = math.Max(rise, pr)
			fall = math.Max(fall, pf)
		}
		if len(g.Inputs) == 0 {
			rise = 0
			fall = 0
		}
		r.Rise[g.Output] = rise
		r.Fall[g.Output] = fall
		defined[g.Output] = true
	}

	slowest := netlist.Wire(-1)
	for _, p := range n.Outputs {
		if !defined[p.Wire] {
			return nil, errors.Wrapf(ErrNotMapped, "output %s undriven",
				p.Name)
		}
		if slowest < 0 || r.Arrival(p.Wire) > r.Delay {
			r.Delay = r.Arrival(p.Wire)
			slowest = p.Wire
		}
	}
	for w := slowest; w >= 0 && driver[w] >= 0; w = critical[w] {
		g := n.Gates[driver[w]]
		r.Critical = append([]*netlist.Gate{g}, r.Critical...)
	}
	return r, nil
}

func pinArrival(pin *library.Pin, rise, fall, load float64) (
	float64, float64) {

	dr := pin.RiseBlock + pin.RiseFanout*load
	df := pin.FallBlock + pin.FallFanout*load

	switch pin.Phase {
	case library.NonInv:
		return rise + dr, fall + df
	case library.Inv:
		return fall + dr, rise + df
	default:
		w := math.Max(rise, fall)
		return w + dr, w + df
	}
}
