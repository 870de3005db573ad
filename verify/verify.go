//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package verify implements combinational equivalence checking of
// subject graphs and mapped netlists.
package verify

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/netlist"
	"github.com/pkg/errors"
)

// ErrInterface is returned when the network and the netlist have
// different inputs or outputs.
var ErrInterface = errors.New("interface mismatch")

// Result holds the equivalence check result.
type Result struct {
	Equivalent bool

	// Counterexample holds input values distinguishing the circuits
	// and Output the index of the first differing output.
	Counterexample []bool
	Output         int
}

func (r *Result) String() string {
	if r.Equivalent {
		return "equivalent"
	}
	return fmt.Sprintf("output %d differs for inputs %v",
		r.Output, r.Counterexample)
}

// Equivalent checks if the netlist implements the network. The check
// builds a miter of the two circuits and proves its output
// unsatisfiable.
func Equivalent(net *aig.Network, n *netlist.Netlist) (*Result, error) {
	if len(net.Inputs) != len(n.Inputs) {
		return nil, errors.Wrapf(ErrInterface, "inputs: %d vs %d",
			len(net.Inputs), len(n.Inputs))
	}
	if len(net.Outputs) != len(n.Outputs) {
		return nil, errors.Wrapf(ErrInterface, "outputs: %d vs %d",
			len(net.Outputs), len(n.Outputs))
	}
	c := logic.NewC()

	inputs := make([]z.Lit, len(net.Inputs))
	for i := range inputs {
		inputs[i] = c.Lit()
	}

	netOut, err := networkLits(c, net, inputs)
	if err != nil {
		return nil, err
	}
	nlOut, err := netlistLits(c, n, inputs)
	if err != nil {
		return nil, err
	}

	var diffs []z.Lit
	for i := range netOut {
		diffs = append(diffs, c.Xor(netOut[i], nlOut[i]))
	}
	miter := c.Ors(diffs...)

	g := gini.New()
	c.ToCnf(g)
	// Register unused inputs with the solver so that their model
	// values are defined.
	for _, m := range inputs {
		g.Add(m)
		g.Add(m.Not())
		g.Add(0)
	}
	g.Assume(miter)

	switch g.Solve() {
	case -1:
		return &Result{
			Equivalent: true,
		}, nil
	case 1:
	default:
		return nil, errors.New("solver interrupted")
	}

	result := &Result{
		Counterexample: make([]bool, len(inputs)),
	}
	for i, m := range inputs {
		result.Counterexample[i] = g.Value(m)
	}
	want, err := net.Eval(result.Counterexample)
	if err != nil {
		return nil, err
	}
	got, err := n.Eval(result.Counterexample)
	if err != nil {
		return nil, err
	}
	for i := range want {
		if want[i] != got[i] {
			result.Output = i
			break
		}
	}
	return result, nil
}

func networkLits(c *logic.C, net *aig.Network, inputs []z.Lit) (
	[]z.Lit, error) {

	order, err := net.Order()
	if err != nil {
		return nil, err
	}
	lits := make([]z.Lit, len(net.Nodes))
	lits[0] = c.F
	for i, id := range net.Inputs {
		lits[id] = inputs[i]
	}
	ref := func(r aig.Ref) z.Lit {
		m := lits[r.ID()]
		if r.Compl() {
			return m.Not()
		}
		return m
	}
	for _, id := range order {
		node := net.Nodes[id]
		switch node.Kind {
		case aig.And:
			lits[id] = c.And(ref(node.Fanin0), ref(node.Fanin1))
		case aig.Buf:
			lits[id] = ref(node.Fanin0)
		}
	}
	var result []z.Lit
	for _, o := range net.Outputs {
		result = append(result, ref(o.Ref))
	}
	return result, nil
}

// netlistLits encodes each gate as the sum of the minterms of its
// cell function.
func netlistLits(c *logic.C, n *netlist.Netlist, inputs []z.Lit) (
	[]z.Lit, error) {

	lits := make([]z.Lit, n.NumWires)
	defined := make([]bool, n.NumWires)
	for i, p := range n.Inputs {
		lits[p.Wire] = inputs[i]
		defined[p.Wire] = true
	}
	for idx, g := range n.Gates {
		var terms []z.Lit
		for minterm := 0; minterm < 1<<len(g.Inputs); minterm++ {
			if !g.Cell.Truth.Bit(minterm) {
				continue
			}
			var factors []z.Lit
			for i, w := range g.Inputs {
				if !defined[w] {
					return nil, errors.Errorf("gate %d: input w%d undefined",
						idx, w)
				}
				if minterm&(1<<i) != 0 {
					factors = append(factors, lits[w])
				} else {
					factors = append(factors, lits[w].Not())
				}
			}
			terms = append(terms, c.Ands(factors...))
		}
		lits[g.Output] = c.Ors(terms...)
		defined[g.Output] = true
	}
	var result []z.Lit
	for _, p := range n.Outputs {
		if !defined[p.Wire] {
			return nil, errors.Errorf("output %s undriven", p.Name)
		}
		result = append(result, lits[p.Wire])
	}
	return result, nil
}
