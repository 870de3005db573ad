//
// aiger.go
//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package aig

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/logic/aiger"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// MaxVariables is the largest AIGER variable index accepted by
// ReadAIGER.
const MaxVariables = 1 << 22

// ErrFormat is returned for malformed AIGER input.
var ErrFormat = errors.New("invalid AIGER file")

// ReadAIGER reads a combinational network in the ASCII (aag) or
// binary (aig) AIGER format. Latches and the AIGER 1.9 property
// sections are not supported.
func ReadAIGER(in io.Reader) (*Network, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	binary, err := checkHeader(data)
	if err != nil {
		return nil, err
	}
	var a *aiger.T
	if binary {
		a, err = aiger.ReadBinary(bytes.NewReader(data))
	} else {
		a, err = aiger.ReadAscii(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "%s", err)
	}
	return fromAiger(a)
}

// checkHeader validates the header counts before the file is decoded
// since the decoder allocates its tables from them.
func checkHeader(data []byte) (bool, error) {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	fields := strings.Fields(string(line))
	if len(fields) < 6 || len(fields) > 10 {
		return false, errors.Wrap(ErrFormat, "invalid header")
	}
	var binary bool
	switch fields[0] {
	case "aag":
	case "aig":
		binary = true
	default:
		return false, errors.Wrapf(ErrFormat, "invalid format '%s'",
			fields[0])
	}
	var counts [9]uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return false, errors.Wrapf(ErrFormat, "invalid header: %s", err)
		}
		counts[i] = v
	}
	maxVar, numInputs, numLatches, numOutputs, numAnds :=
		counts[0], counts[1], counts[2], counts[3], counts[4]

	if numLatches != 0 {
		return false, errors.Wrap(ErrFormat, "latches are not supported")
	}
	for _, c := range counts[5:] {
		if c != 0 {
			return false, errors.Wrap(ErrFormat,
				"properties are not supported")
		}
	}
	if maxVar > MaxVariables {
		return false, errors.Wrapf(ErrFormat,
			"%d variables exceeds the limit %d", maxVar, MaxVariables)
	}
	if numInputs+numAnds > maxVar {
		return false, errors.Wrap(ErrFormat, "inconsistent header")
	}
	// Each output takes at least one digit and a newline.
	if numOutputs > uint64(len(data))/2 {
		return false, errors.Wrapf(ErrFormat, "truncated file: %d outputs",
			numOutputs)
	}
	return binary, nil
}

func fromAiger(a *aiger.T) (*Network, error) {
	if len(a.Latches) > 0 {
		return nil, errors.Wrap(ErrFormat, "latches are not supported")
	}
	s := a.S
	n := NewNetwork()

	refs := make([]Ref, s.Len())
	defined := make([]bool, s.Len())
	refs[s.T.Var()] = True
	defined[s.T.Var()] = true

	ref := func(m z.Lit) (Ref, error) {
		v := m.Var()
		if int(v) >= len(refs) || !defined[v] {
			return 0, errors.Wrapf(ErrFormat, "literal %s undefined", m)
		}
		return refs[v].NotIf(!m.IsPos()), nil
	}

	for i, m := range a.Inputs {
		name, ok := a.InputName(i)
		if !ok {
			name = fmt.Sprintf("i%d", i)
		}
		refs[m.Var()] = n.AddInput(name)
		defined[m.Var()] = true
	}
	for i := 2; i < s.Len(); i++ {
		m := s.At(i)
		if s.Type(m) != logic.SAnd {
			continue
		}
		x, y := s.Ins(m)
		r0, err := ref(x)
		if err != nil {
			return nil, err
		}
		r1, err := ref(y)
		if err != nil {
			return nil, err
		}
		refs[i] = n.And(r0, r1)
		defined[i] = true
	}
	for i, m := range a.Outputs {
		r, err := ref(m)
		if err != nil {
			return nil, err
		}
		name, ok := a.OutputName(i)
		if !ok {
			name = fmt.Sprintf("o%d", i)
		}
		n.AddOutput(name, r)
	}
	return n, nil
}

// WriteAAG writes the network in the ASCII AIGER format. Buffers are
// collapsed into their fanins and only the AND gates in the output
// cones are written, so choice members are dropped.
func (n *Network) WriteAAG(out io.Writer) error {
	order, err := n.TopoOrder()
	if err != nil {
		return err
	}
	s := logic.NewSCap(len(n.Nodes) + 2)

	lits := make([]z.Lit, len(n.Nodes))
	lits[False.ID()] = s.F
	lit := func(r Ref) z.Lit {
		l := lits[r.ID()]
		if r.Compl() {
			l = l.Not()
		}
		return l
	}
	for _, id := range n.Inputs {
		lits[id] = s.Lit()
	}
	for _, id := range order {
		node := n.Nodes[id]
		switch node.Kind {
		case And:
			lits[id] = s.And(lit(node.Fanin0), lit(node.Fanin1))
		case Buf:
			lits[id] = lit(node.Fanin0)
		}
	}
	outputs := make([]z.Lit, len(n.Outputs))
	for i, o := range n.Outputs {
		outputs[i] = lit(o.Ref)
	}

	sys, outputs := outputCone(s, outputs)
	for i, m := range outputs {
		// The aiger writer emits the true literal as 0.
		switch m {
		case sys.F:
			outputs[i] = sys.T
		case sys.T:
			outputs[i] = sys.F
		}
	}
	a := aiger.MakeFor(sys, outputs...)
	for i, id := range n.Inputs {
		if name := n.Nodes[id].Name; len(name) > 0 {
			if err := a.NameInput(i, name); err != nil {
				return errors.Wrapf(err, "input %d", i)
			}
		}
	}
	for i, o := range n.Outputs {
		if len(o.Name) > 0 {
			if err := a.NameOutput(i, o.Name); err != nil {
				return errors.Wrapf(err, "output %d", i)
			}
		}
	}
	return a.WriteAscii(out)
}

// outputCone copies the inputs and the AND gates reachable from the
// outputs into a new system. The AIGER header counts every AND of the
// system so gates left unused by constant propagation must not be
// carried over.
func outputCone(s *logic.S, outputs []z.Lit) (*logic.S, []z.Lit) {
	live := make([]bool, s.Len())
	stack := append([]z.Lit(nil), outputs...)
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[m.Var()] {
			continue
		}
		live[m.Var()] = true
		if s.Type(m) == logic.SAnd {
			x, y := s.Ins(m)
			stack = append(stack, x, y)
		}
	}

	result := logic.NewSCap(s.Len())
	vars := make([]z.Lit, s.Len())
	vars[s.T.Var()] = result.T
	lit := func(m z.Lit) z.Lit {
		l := vars[m.Var()]
		if !m.IsPos() {
			l = l.Not()
		}
		return l
	}
	for i := 2; i < s.Len(); i++ {
		m := s.At(i)
		switch s.Type(m) {
		case logic.SInput:
			vars[i] = result.Lit()
		case logic.SAnd:
			if live[i] {
				x, y := s.Ins(m)
				vars[i] = result.And(lit(x), lit(y))
			}
		}
	}
	mapped := make([]z.Lit, len(outputs))
	for i, m := range outputs {
		mapped[i] = lit(m)
	}
	return result, mapped
}
