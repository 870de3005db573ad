//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package aig

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestAndSimplify(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")

	tests := []struct {
		x, y Ref
		want Ref
	}{
		{a, False, False},
		{True, b, b},
		{a, a, a},
		{a, a.Not(), False},
	}
	for _, test := range tests {
		if got := n.And(test.x, test.y); got != test.want {
			t.Errorf("And(%v,%v)=%v, expected %v", test.x, test.y, got,
				test.want)
		}
	}
	ab := n.And(a, b)
	if ba := n.And(b, a); ba != ab {
		t.Errorf("strash failed: %v != %v", ba, ab)
	}
	if n.NumAnds() != 1 {
		t.Errorf("NumAnds: got %d, expected 1", n.NumAnds())
	}
}

func TestTopoOrder(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	c := n.AddInput("c")
	x := n.And(n.And(a, b), c)
	n.AddOutput("x", x.Not())

	order, err := n.TopoOrder()
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	pos := make(map[int]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, id := range order {
		for _, f := range n.Nodes[id].Fanins() {
			if pos[f.ID()] >= pos[id] {
				t.Errorf("fanin n%d after n%d", f.ID(), id)
			}
		}
	}
	if len(order) != 6 {
		t.Errorf("order length: got %d, expected 6", len(order))
	}
}

func TestCycle(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	x := n.NewAnd(a, False)
	y := n.NewAnd(b, x)
	if err := n.SetFanins(x.ID(), a, y); err != nil {
		t.Fatalf("SetFanins: %v", err)
	}
	n.AddOutput("x", x)

	_, err := n.TopoOrder()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("TopoOrder: got %v, expected ErrCycle", err)
	}
}

func TestChoice(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	c := n.AddInput("c")

	r := n.And(n.And(a, b), c)
	m := n.And(a, n.And(b, c))
	n.AddOutput("r", r)

	if err := n.SetChoice(r.ID(), r.ID(), false); err == nil {
		t.Errorf("self choice accepted")
	}
	if err := n.SetChoice(r.ID(), m.ID(), false); err != nil {
		t.Fatalf("SetChoice: %v", err)
	}
	order, err := n.TopoOrder()
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	var posR, posM int
	for i, id := range order {
		switch id {
		case r.ID():
			posR = i
		case m.ID():
			posM = i
		}
	}
	if posM > posR {
		t.Errorf("choice member after representative")
	}

	// A node with fanouts cannot be a choice member.
	if err := n.SetChoice(m.ID(), n.And(a, b).ID(), false); err == nil {
		t.Errorf("choice member with fanouts accepted")
	}
}

func TestLevels(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	c := n.AddInput("c")
	d := n.AddInput("d")

	ab := n.And(a, b)
	top := n.And(n.And(ab, c), d)
	balanced := n.And(ab, n.And(c, d))
	n.AddOutput("f", top)

	depth, err := n.ComputeLevels()
	if err != nil {
		t.Fatalf("ComputeLevels: %v", err)
	}
	if depth != 3 {
		t.Errorf("depth: got %d, expected 3", depth)
	}
	if err := n.SetChoice(top.ID(), balanced.ID(), false); err != nil {
		t.Fatalf("SetChoice: %v", err)
	}
	depth, err = n.ComputeLevels()
	if err != nil {
		t.Fatalf("ComputeLevels: %v", err)
	}
	if depth != 2 {
		t.Errorf("depth with choice: got %d, expected 2", depth)
	}
	if l := n.Nodes[ab.ID()].Level; l != 1 {
		t.Errorf("level of ab: %d", l)
	}
	if l := n.Nodes[a.ID()].Level; l != 0 {
		t.Errorf("level of input: %d", l)
	}
}

func TestDump(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	n.AddOutput("f", n.And(a, b.Not()))

	var sb strings.Builder
	n.Dump(&sb)
	for _, want := range []string{
		"network: #inputs=2 #ands=1 #outputs=1",
		"INPUT(a)",
		"AND(n1, !n2)",
		"out\tf = n3",
	} {
		if !strings.Contains(sb.String(), want) {
			t.Errorf("dump missing %q:\n%s", want, sb.String())
		}
	}
}

func TestEval(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	s := n.AddInput("s")
	n.AddOutput("xor", n.Xor(a, b))
	n.AddOutput("mux", n.Mux(s, a, b))

	for v := 0; v < 8; v++ {
		in := []bool{v&1 != 0, v&2 != 0, v&4 != 0}
		out, err := n.Eval(in)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if out[0] != (in[0] != in[1]) {
			t.Errorf("xor(%v): got %v", in, out[0])
		}
		want := in[1]
		if in[2] {
			want = in[0]
		}
		if out[1] != want {
			t.Errorf("mux(%v): got %v", in, out[1])
		}
	}
	if _, err := n.Eval([]bool{true}); !errors.Is(err, ErrInputs) {
		t.Errorf("Eval with one input: %v", err)
	}
}

func TestRandom(t *testing.T) {
	n1 := Random(42, 8, 100, 4)
	n2 := Random(42, 8, 100, 4)
	if len(n1.Nodes) != len(n2.Nodes) {
		t.Fatalf("Random is not deterministic")
	}
	for i := range n1.Nodes {
		if n1.Nodes[i].Fanin0 != n2.Nodes[i].Fanin0 ||
			n1.Nodes[i].Fanin1 != n2.Nodes[i].Fanin1 {
			t.Fatalf("Random is not deterministic at n%d", i)
		}
	}
	if len(n1.Outputs) != 4 {
		t.Errorf("outputs: got %d, expected 4", len(n1.Outputs))
	}
	if _, err := n1.TopoOrder(); err != nil {
		t.Errorf("TopoOrder: %v", err)
	}
}

const aagHalfAdder = `aag 7 2 0 2 3
2
4
6
12
6 13 15
12 2 4
14 3 5
i0 x
i1 y
o0 s
o1 c
`

// aigHalfAdder is aagHalfAdder in the binary format.
const aigHalfAdder = "aig 5 2 0 2 3\n10\n6\n\x02\x02\x03\x02\x01\x02" +
	"i0 x\ni1 y\no0 s\no1 c\n"

func checkHalfAdder(t *testing.T, n *Network) {
	t.Helper()
	if len(n.Inputs) != 2 || len(n.Outputs) != 2 || n.NumAnds() != 3 {
		t.Fatalf("unexpected network: %d inputs, %d outputs, %d ands",
			len(n.Inputs), len(n.Outputs), n.NumAnds())
	}
	if n.Outputs[0].Name != "s" || n.Nodes[n.Inputs[1]].Name != "y" {
		t.Errorf("symbols not applied")
	}
	for v := 0; v < 4; v++ {
		x, y := v&1 != 0, v&2 != 0
		out, err := n.Eval([]bool{x, y})
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if out[0] != (x != y) || out[1] != (x && y) {
			t.Errorf("half adder(%v,%v): got %v", x, y, out)
		}
	}
}

func TestReadAIGER(t *testing.T) {
	n, err := ReadAIGER(strings.NewReader(aagHalfAdder))
	if err != nil {
		t.Fatalf("ReadAIGER(aag): %v", err)
	}
	checkHalfAdder(t, n)

	var buf bytes.Buffer
	if err := n.WriteAAG(&buf); err != nil {
		t.Fatalf("WriteAAG: %v", err)
	}
	n2, err := ReadAIGER(&buf)
	if err != nil {
		t.Fatalf("ReadAIGER(WriteAAG): %v", err)
	}
	checkHalfAdder(t, n2)

	n3, err := ReadAIGER(strings.NewReader(aigHalfAdder))
	if err != nil {
		t.Fatalf("ReadAIGER(aig): %v", err)
	}
	checkHalfAdder(t, n3)
}

func TestWriteAAGConstants(t *testing.T) {
	n := NewNetwork()
	a := n.AddInput("a")
	b := n.AddInput("b")
	x := n.And(a, b)
	n.AddOutput("zero", False)
	n.AddOutput("one", True)
	n.AddOutput("a", a)
	// Folds to false when written; the AND of a and b is dropped.
	n.AddOutput("empty", n.NewAnd(x, x.Not()))

	var buf bytes.Buffer
	if err := n.WriteAAG(&buf); err != nil {
		t.Fatalf("WriteAAG: %v", err)
	}
	n2, err := ReadAIGER(&buf)
	if err != nil {
		t.Fatalf("ReadAIGER: %v", err)
	}
	if len(n2.Inputs) != 2 || n2.NumAnds() != 0 {
		t.Fatalf("got %d inputs, %d ands", len(n2.Inputs), n2.NumAnds())
	}
	for v := 0; v < 4; v++ {
		in := []bool{v&1 != 0, v&2 != 0}
		out, err := n2.Eval(in)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if out[0] || !out[1] || out[2] != in[0] || out[3] {
			t.Errorf("Eval(%v): got %v", in, out)
		}
	}
}

func TestReadAIGERErrors(t *testing.T) {
	inputs := []string{
		"",
		"abc 1 1 0 1 0\n2\n2\n",
		"aig 3 2 0 1 1\n6\n\x07\x02",
		"aag 1 1 1 1 0\n2\n2 3\n2\n",
		"aag 3 1 0 1 1\n2\n6\n6 2 9\n",
		"aag 3 1 0 1 2\n2\n6\n4 6 2\n6 4 2\n",
		"aag 1 1 0 1 0 1\n2\n2\n2\n",
		"aag 4294967295 1 0 1 0\n2\n2\n",
		"aig 5000000 5000000 0 0 0\n",
		"aag 1 1 0 4000000000 0\n2\n2\n",
	}
	for _, in := range inputs {
		_, err := ReadAIGER(strings.NewReader(in))
		if err == nil {
			t.Errorf("ReadAIGER(%q) succeeded", in)
			continue
		}
		if !errors.Is(err, ErrFormat) {
			t.Errorf("ReadAIGER(%q): unexpected error %v", in, err)
		}
	}
}
