//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package library

import (
	"strings"
	"testing"

	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
)

func TestParseExpr(t *testing.T) {
	a := truth.Var(0, 3)
	b := truth.Var(1, 3)
	c := truth.Var(2, 3)

	tests := []struct {
		expr string
		want truth.Table
	}{
		{"a*b+c", a.And(b).Or(c)},
		{"!(a*b)+c", a.And(b).Not().Or(c)},
		{"a b + c", a.And(b).Or(c)},
		{"(a+b)'*c", a.Or(b).Not().And(c)},
		{"a^b*c", a.Xor(b.And(c))},
		{"a&~b|c", a.And(b.Not()).Or(c)},
		{"a*b*c+CONST0", a.And(b).And(c)},
	}
	for _, test := range tests {
		got, vars, err := ParseExpr(test.expr, []string{"a", "b", "c"})
		if err != nil {
			t.Errorf("ParseExpr(%q): %v", test.expr, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseExpr(%q)=%v, expected %v", test.expr, got,
				test.want)
		}
		if len(vars) != 3 {
			t.Errorf("ParseExpr(%q): vars %v", test.expr, vars)
		}
	}

	_, vars, err := ParseExpr("y*x", nil)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	if len(vars) != 2 || vars[0] != "y" || vars[1] != "x" {
		t.Errorf("variable order: %v", vars)
	}

	for _, bad := range []string{"a*", "(a+b", "a+q", "a # b"} {
		_, _, err := ParseExpr(bad, []string{"a", "b"})
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("ParseExpr(%q): expected syntax error, got %v", bad, err)
		}
	}
}

func TestDefault(t *testing.T) {
	lib := Default()
	if lib.Inverter() == nil || lib.Inverter().Name != "INV" {
		t.Fatalf("inverter: %v", lib.Inverter())
	}
	if lib.Buffer() == nil || lib.Const(false) == nil || lib.Const(true) == nil {
		t.Errorf("missing buffer or constant cells")
	}
	if lib.MaxInputs() != 4 {
		t.Errorf("MaxInputs: got %d, expected 4", lib.MaxInputs())
	}
	nand := lib.Cell("NAND2")
	for _, p := range nand.Pins {
		if p.Phase != Inv {
			t.Errorf("NAND2 pin %s phase %v", p.Name, p.Phase)
		}
		if p.RiseBlock != 1 || p.Load != 1 {
			t.Errorf("NAND2 pin %s: defaults not applied", p.Name)
		}
	}
	if lib.Cell("MUX2").Pins[0].Phase != Unknown {
		t.Errorf("MUX2 select pin should be binate")
	}
}

func TestLookup(t *testing.T) {
	lib := Default()
	a := truth.Var(0, 2)
	b := truth.Var(1, 2)

	// a & !b matches AND2 with b complemented and NOR2 with a
	// complemented.
	cells := make(map[string]*Supergate)
	for _, sg := range lib.Lookup(a.And(b.Not())) {
		cells[sg.Cell.Name] = sg
	}
	and2, ok := cells["AND2"]
	if !ok {
		t.Fatalf("AND2 not found")
	}
	if and2.Phases[0] || !and2.Phases[1] {
		t.Errorf("AND2 phases: %v", and2.Phases)
	}
	nor2, ok := cells["NOR2"]
	if !ok {
		t.Fatalf("NOR2 not found")
	}
	if !nor2.Phases[0] || nor2.Phases[1] {
		t.Errorf("NOR2 phases: %v", nor2.Phases)
	}

	// Symmetric pins with identical timing produce one supergate per
	// phase assignment.
	var count int
	for _, sg := range lib.Lookup(a.And(b)) {
		if sg.Cell.Name == "AND2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("AND2 variants for a*b: got %d, expected 1", count)
	}

	list := lib.Lookup(a.And(b))
	for i := 1; i < len(list); i++ {
		if list[i].Area() < list[i-1].Area() {
			t.Errorf("supergates not sorted by area")
		}
	}
}

func TestSupergateFunction(t *testing.T) {
	lib := Default()
	for tbl, list := range lib.index {
		for _, sg := range list {
			// Evaluate the cell through the pin assignment.
			for m := 0; m < tbl.Size(); m++ {
				var y int
				for leaf := 0; leaf < sg.NumInputs; leaf++ {
					v := m&(1<<leaf) != 0
					if sg.Phases[leaf] {
						v = !v
					}
					if !v {
						continue
					}
					for i, p := range sg.Cell.Pins {
						if p == sg.Pins[leaf] {
							y |= 1 << i
						}
					}
				}
				if sg.Cell.Truth.Bit(y) != tbl.Bit(m) {
					t.Fatalf("%v: minterm %d mismatch", sg, m)
				}
			}
		}
	}
}

func TestClasses(t *testing.T) {
	lib, err := Load(strings.NewReader(`
name: small
cells:
- {name: INV,   area: 1, function: "!a"}
- {name: BUF,   area: 1, function: "a"}
- {name: AND2,  area: 2, function: "a*b"}
- {name: NAND2, area: 1, function: "!(a*b)"}
- {name: OR2,   area: 2, function: "a+b"}
- {name: XOR2,  area: 3, function: "a^b"}
`))
	if err != nil {
		t.Fatal(err)
	}
	if n := lib.NumClasses(); n != 3 {
		t.Errorf("NumClasses: got %d, expected 3", n)
	}
	if !strings.Contains(lib.String(), "#classes=3") {
		t.Errorf("String: %s", lib)
	}

	// The constant cells form one class and are indexed.
	def := Default()
	if n := def.NumClasses(); n != 9 {
		t.Errorf("default NumClasses: got %d, expected 9", n)
	}
	zero := def.Lookup(truth.Const(false, 0))
	if len(zero) != 1 || zero[0].Cell.Name != "ZERO" {
		t.Errorf("constant lookup: %v", zero)
	}
}

func TestLoadErrors(t *testing.T) {
	inputs := []string{
		"name: x\ncells:\n- {name: AND2, area: 1, function: \"a*b\"}\n",
		"name: x\ncells:\n- {name: INV, area: 1, function: \"!a\"}\n" +
			"- {name: INV, area: 1, function: \"!a\"}\n",
		"name: x\ncells:\n- {name: INV, area: 1, function: \"!a\", bogus: 1}\n",
		"name: x\ncells:\n- name: INV\n  function: \"!a\"\n  pins:\n" +
			"  - {name: a, phase: sideways}\n",
		"name: x\ncells:\n- {name: INV, area: 1, function: \"!a\"}\n" +
			"- {name: AND2, area: 1, function: \"a*b+a*!b\"}\n",
	}
	for _, in := range inputs {
		if _, err := Load(strings.NewReader(in)); err == nil {
			t.Errorf("Load(%q) succeeded", in)
		}
	}
	_, err := Load(strings.NewReader(inputs[0]))
	if !errors.Is(err, ErrNoInverter) {
		t.Errorf("expected ErrNoInverter, got %v", err)
	}
}
