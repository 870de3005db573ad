//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package netlist implements gate-level netlists of mapped networks.
package netlist

import (
	"fmt"
	"sort"

	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/mapper"
	"github.com/pkg/errors"
)

// Netlist errors.
var (
	ErrUnmapped  = errors.New("node phase not implemented")
	ErrNoTieCell = errors.New("library has no constant cell")
	ErrNoBuffer  = errors.New("library has no buffer cell")
	ErrCycle     = errors.New("combinational cycle")
	ErrInputs    = errors.New("invalid number of inputs")
)

// Wire identifies a netlist wire.
type Wire int

// Port defines a netlist input or output port.
type Port struct {
	Name string
	Wire Wire
}

// Gate defines a cell instance. The inputs are in the cell pin
// order.
type Gate struct {
	Cell   *library.Cell
	Inputs []Wire
	Output Wire
}

func (g *Gate) String() string {
	return fmt.Sprintf("%s(%v) -> w%d", g.Cell.Name, g.Inputs, g.Output)
}

// Netlist implements a gate-level netlist. The gates are in a
// topological order.
type Netlist struct {
	Name     string
	NumWires int
	Inputs   []Port
	Outputs  []Port
	Gates    []*Gate
}

func (n *Netlist) newWire() Wire {
	w := Wire(n.NumWires)
	n.NumWires++
	return w
}

// FromMapping creates the netlist of the current mapping of the
// manager.
func FromMapping(m *mapper.Manager) (*Netlist, error) {
	n := &Netlist{
		Name: m.Lib.Name,
	}
	wires := make(map[[2]int]Wire)

	wire := func(id int, ph mapper.Phase) (Wire, error) {
		src, sp := m.Source(id, ph)
		w, ok := wires[[2]int{src.ID, int(sp)}]
		if !ok {
			return 0, errors.Wrapf(ErrUnmapped, "n%d%v", src.ID, sp)
		}
		return w, nil
	}

	for _, id := range m.Net.Inputs {
		w := n.newWire()
		wires[[2]int{id, int(mapper.Pos)}] = w
		n.Inputs = append(n.Inputs, Port{
			Name: m.Net.Nodes[id].Name,
			Wire: w,
		})
	}

	for _, id := range m.Order() {
		node := m.Node(id)
		subj := node.Subject

		switch subj.Kind {
		case aig.Const:
			for ph := mapper.Pos; ph <= mapper.Neg; ph++ {
				if !node.Needs(ph) {
					continue
				}
				cell := m.Lib.Const(ph == mapper.Neg)
				if cell == nil {
					return nil, ErrNoTieCell
				}
				out := n.newWire()
				wires[[2]int{id, int(ph)}] = out
				n.Gates = append(n.Gates, &Gate{
					Cell:   cell,
					Output: out,
				})
			}
			continue

		case aig.Input:

		case aig.And:
			if subj.IsChoiceMember() {
				continue
			}
			for ph := mapper.Pos; ph <= mapper.Neg; ph++ {
				sel := &node.Best[ph]
				if !node.Needs(ph) || sel.Inv {
					continue
				}
				if !sel.Match.Matched() {
					return nil, errors.Wrapf(ErrUnmapped, "n%d%v", id, ph)
				}
				sg := sel.Match.Super
				cut := node.Cuts[sel.Cut]
				inputs := make([]Wire, sg.NumInputs)
				for j, leaf := range cut.Leaves {
					w, err := wire(leaf, sel.Match.Phases[j])
					if err != nil {
						return nil, err
					}
					idx := pinIndex(sg.Cell, sg.Pins[j])
					if idx < 0 {
						return nil, errors.Wrapf(library.ErrInvalidCell,
							"%s: pin not found", sg.Cell.Name)
					}
					inputs[idx] = w
				}
				out := n.newWire()
				wires[[2]int{id, int(ph)}] = out
				n.Gates = append(n.Gates, &Gate{
					Cell:   sg.Cell,
					Inputs: inputs,
					Output: out,
				})
			}

		default:
			continue
		}

		// Inverted phases.
		for ph := mapper.Pos; ph <= mapper.Neg; ph++ {
			if !node.Needs(ph) || !node.Best[ph].Inv {
				continue
			}
			in, err := wire(id, ph.Not())
			if err != nil {
				return nil, err
			}
			out := n.newWire()
			wires[[2]int{id, int(ph)}] = out
			n.Gates = append(n.Gates, &Gate{
				Cell:   m.Inverter(),
				Inputs: []Wire{in},
				Output: out,
			})
		}
	}

	for _, o := range m.Net.Outputs {
		w, err := wire(o.Ref.ID(), mapper.PhaseOf(o.Ref.Compl()))
		if err != nil {
			return nil, err
		}
		n.Outputs = append(n.Outputs, Port{
			Name: o.Name,
			Wire: w,
		})
	}
	return n, nil
}

func pinIndex(cell *library.Cell, pin *library.Pin) int {
	for i, p := range cell.Pins {
		if p == pin {
			return i
		}
	}
	return -1
}

// Area returns the total cell area.
func (n *Netlist) Area() float64 {
	var area float64
	for _, g := range n.Gates {
		area += g.Cell.Area
	}
	return area
}

// Eval evaluates the netlist outputs for the input values.
func (n *Netlist) Eval(inputs []bool) ([]bool, error) {
	if len(inputs) != len(n.Inputs) {
		return nil, errors.Wrapf(ErrInputs, "got %d, expected %d",
			len(inputs), len(n.Inputs))
	}
	values := make([]bool, n.NumWires)
	for i, p := range n.Inputs {
		values[p.Wire] = inputs[i]
	}
	for _, g := range n.Gates {
		var minterm int
		for i, w := range g.Inputs {
			if values[w] {
				minterm |= 1 << i
			}
		}
		values[g.Output] = g.Cell.Truth.Bit(minterm)
	}
	result := make([]bool, len(n.Outputs))
	for i, p := range n.Outputs {
		result[i] = values[p.Wire]
	}
	return result, nil
}

// Fanouts returns the number of gate inputs and output ports driven
// by each wire.
func (n *Netlist) Fanouts() []int {
	result := make([]int, n.NumWires)
	for _, g := range n.Gates {
		for _, w := range g.Inputs {
			result[w]++
		}
	}
	for _, p := range n.Outputs {
		result[p.Wire]++
	}
	return result
}

// Clone creates a copy of the netlist. The cells are shared.
func (n *Netlist) Clone() *Netlist {
	result := &Netlist{
		Name:     n.Name,
		NumWires: n.NumWires,
		Inputs:   append([]Port(nil), n.Inputs...),
		Outputs:  append([]Port(nil), n.Outputs...),
	}
	for _, g := range n.Gates {
		result.Gates = append(result.Gates, &Gate{
			Cell:   g.Cell,
			Inputs: append([]Wire(nil), g.Inputs...),
			Output: g.Output,
		})
	}
	return result
}

// Sort sorts the gates into a topological order.
func (n *Netlist) Sort() error {
	driver := make([]int, n.NumWires)
	for i := range driver {
		driver[i] = -1
	}
	for idx, g := range n.Gates {
		driver[g.Output] = idx
	}
	const (
		white = iota
		gray
		black
	)
	color := make([]uint8, len(n.Gates))
	sorted := make([]*Gate, 0, len(n.Gates))

	var visit func(idx int) error
	visit = func(idx int) error {
		switch color[idx] {
		case gray:
			return errors.Wrapf(ErrCycle, "through w%d", n.Gates[idx].Output)
		case black:
			return nil
		}
		color[idx] = gray
		for _, w := range n.Gates[idx].Inputs {
			if d := driver[w]; d >= 0 {
				if err := visit(d); err != nil {
					return err
				}
			}
		}
		color[idx] = black
		sorted = append(sorted, n.Gates[idx])
		return nil
	}
	for idx := range n.Gates {
		if err := visit(idx); err != nil {
			return err
		}
	}
	n.Gates = sorted
	return nil
}

// Stats holds the cell instance counts.
type Stats map[string]int

// Stats returns the cell instance counts of the netlist.
func (n *Netlist) Stats() Stats {
	result := make(Stats)
	for _, g := range n.Gates {
		result[g.Cell.Name]++
	}
	return result
}

// Count returns the total number of cell instances.
func (s Stats) Count() int {
	var count int
	for _, v := range s {
		count += v
	}
	return count
}

func (s Stats) String() string {
	var names []string
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	var result string
	for _, name := range names {
		if len(result) > 0 {
			result += " "
		}
		result += fmt.Sprintf("%s=%d", name, s[name])
	}
	return fmt.Sprintf("#gates=%d (%s)", s.Count(), result)
}
