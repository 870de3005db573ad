//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package library implements standard cell libraries and the
// supergate index used for matching cut functions to library gates.
package library

import (
	"fmt"
	"sort"

	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
)

// Errors returned by library construction.
var (
	ErrNoInverter  = errors.New("library has no inverter")
	ErrInvalidCell = errors.New("invalid cell")
)

// PinPhase specifies the polarity of a cell input.
type PinPhase int

// Pin phases.
const (
	Unknown PinPhase = iota
	Inv
	NonInv
)

func (p PinPhase) String() string {
	switch p {
	case Inv:
		return "INV"
	case NonInv:
		return "NONINV"
	default:
		return "UNKNOWN"
	}
}

// Timing holds the delay model of a cell input pin.
type Timing struct {
	Phase      PinPhase
	Load       float64
	MaxLoad    float64
	RiseBlock  float64
	RiseFanout float64
	FallBlock  float64
	FallFanout float64

	// TransLoad and TransParasitic are the load dependent and the
	// parasitic components of the input transition contribution to
	// the pin delay.
	TransLoad      float64
	TransParasitic float64
}

// Pin defines a cell input pin.
type Pin struct {
	Name string
	Timing
}

// Cell defines a library cell.
type Cell struct {
	Name     string
	Area     float64
	Output   string
	Function string
	Pins     []*Pin
	Truth    truth.Table
}

// NumInputs returns the number of cell inputs.
func (c *Cell) NumInputs() int {
	return len(c.Pins)
}

// Pin returns the input pin by name.
func (c *Cell) Pin(name string) *Pin {
	for _, p := range c.Pins {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (c *Cell) String() string {
	return fmt.Sprintf("%s(area=%g, %s=%s)", c.Name, c.Area, c.Output,
		c.Function)
}

// Library implements a cell library.
type Library struct {
	Name      string
	Cells     []*Cell
	inverter  *Cell
	buffer    *Cell
	const0    *Cell
	const1    *Cell
	index     map[truth.Table][]*Supergate
	maxInputs int
	numGates  int
	classes   int
}

// New creates a new library from the cells. The cell functions are
// parsed and the supergate index is built for all cells having at
// most truth.MaxVars inputs.
func New(name string, cells []*Cell) (*Library, error) {
	lib := &Library{
		Name:  name,
		Cells: cells,
		index: make(map[truth.Table][]*Supergate),
	}
	names := make(map[string]bool)

	for _, cell := range cells {
		if names[cell.Name] {
			return nil, errors.Wrapf(ErrInvalidCell, "duplicate cell %s",
				cell.Name)
		}
		names[cell.Name] = true

		if err := cell.resolve(); err != nil {
			return nil, err
		}
		if cell.NumInputs() > lib.maxInputs {
			lib.maxInputs = cell.NumInputs()
		}
		switch cell.NumInputs() {
		case 0:
			if cell.Truth.Bits == 0 {
				lib.const0 = better(lib.const0, cell)
			} else {
				lib.const1 = better(lib.const1, cell)
			}
		case 1:
			if cell.Truth == truth.Var(0, 1).Not() {
				lib.inverter = better(lib.inverter, cell)
			} else if cell.Truth == truth.Var(0, 1) {
				lib.buffer = better(lib.buffer, cell)
			}
		}
	}
	if lib.inverter == nil {
		return nil, ErrNoInverter
	}
	tables := make([]truth.Table, 0, len(cells))
	for _, cell := range cells {
		lib.addSupergates(cell)
		tables = append(tables, cell.Truth)
	}
	lib.classes = truth.NPNClasses(tables)
	for _, list := range lib.index {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Cell.Area < list[j].Cell.Area
		})
	}
	return lib, nil
}

func better(old, cell *Cell) *Cell {
	if old == nil || cell.Area < old.Area {
		return cell
	}
	return old
}

// resolve computes the cell truth table and derives unspecified pin
// phases from the function's unateness.
func (c *Cell) resolve() error {
	var names []string
	for _, p := range c.Pins {
		names = append(names, p.Name)
	}
	t, vars, err := ParseExpr(c.Function, names)
	if err != nil {
		return errors.Wrapf(ErrInvalidCell, "%s: %s", c.Name, err)
	}
	if len(c.Pins) == 0 {
		for _, v := range vars {
			c.Pins = append(c.Pins, &Pin{
				Name: v,
			})
		}
	} else if len(vars) != len(c.Pins) {
		return errors.Wrapf(ErrInvalidCell, "%s: function uses %d pins, %d defined",
			c.Name, len(vars), len(c.Pins))
	}
	if len(c.Pins) > truth.MaxVars {
		return errors.Wrapf(ErrInvalidCell, "%s: too many inputs: %d",
			c.Name, len(c.Pins))
	}
	if c.Area < 0 {
		return errors.Wrapf(ErrInvalidCell, "%s: negative area", c.Name)
	}
	if t.Support() != len(c.Pins) {
		return errors.Wrapf(ErrInvalidCell,
			"%s: function depends on %d of %d inputs", c.Name, t.Support(),
			len(c.Pins))
	}
	c.Truth = t
	if len(c.Output) == 0 {
		c.Output = "O"
	}
	for i, p := range c.Pins {
		if p.Phase != Unknown {
			continue
		}
		switch t.Unateness(i) {
		case truth.Positive:
			p.Phase = NonInv
		case truth.Negative:
			p.Phase = Inv
		}
	}
	return nil
}

// Inverter returns the smallest inverter cell.
func (lib *Library) Inverter() *Cell {
	return lib.inverter
}

// Buffer returns the smallest buffer cell or nil if the library does
// not have buffers.
func (lib *Library) Buffer() *Cell {
	return lib.buffer
}

// Const returns the constant cell for the value v or nil if the
// library does not have one.
func (lib *Library) Const(v bool) *Cell {
	if v {
		return lib.const1
	}
	return lib.const0
}

// Cell returns the cell by name.
func (lib *Library) Cell(name string) *Cell {
	for _, c := range lib.Cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MaxInputs returns the maximum number of cell inputs.
func (lib *Library) MaxInputs() int {
	return lib.maxInputs
}

// NumSupergates returns the number of supergates in the index.
func (lib *Library) NumSupergates() int {
	return lib.numGates
}

// NumFunctions returns the number of distinct functions in the index.
func (lib *Library) NumFunctions() int {
	return len(lib.index)
}

// Lookup returns the supergates implementing the function t. The
// supergates are sorted by increasing area.
func (lib *Library) Lookup(t truth.Table) []*Supergate {
	return lib.index[t]
}

// NumClasses returns the number of NPN classes of the cell
// functions.
func (lib *Library) NumClasses() int {
	return lib.classes
}

func (lib *Library) String() string {
	return fmt.Sprintf("%s: #cells=%d #supergates=%d #functions=%d #classes=%d",
		lib.Name, len(lib.Cells), lib.numGates, len(lib.index),
		lib.NumClasses())
}
