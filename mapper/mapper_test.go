//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
)

const unitLibrary = `
name: unit
cells:
- {name: INV,  area: 1, delay: 1, function: "!a"}
- {name: AND2, area: 1, delay: 1, function: "a*b"}
`

const and4Library = unitLibrary + `- {name: AND4, area: 2, delay: 1.5, function: "a*b*c*d"}
`

func loadLibrary(t *testing.T, data string) *library.Library {
	lib, err := library.Load(strings.NewReader(data))
	if err != nil {
		t.Fatalf("library.Load: %v", err)
	}
	return lib
}

func chain(inputs int) *aig.Network {
	n := aig.NewNetwork()
	r := n.AddInput("in0")
	for i := 1; i < inputs; i++ {
		r = n.And(r, n.AddInput("in"))
	}
	n.AddOutput("out", r)
	return n
}

func mapNetwork(t *testing.T, net *aig.Network, lib *library.Library,
	params *Params) *Manager {

	m, err := New(net, lib, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Map(); err != nil {
		t.Fatalf("Map: %v", err)
	}
	return m
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestChain(t *testing.T) {
	m := mapNetwork(t, chain(4), loadLibrary(t, unitLibrary), nil)

	if !near(m.Delay(), 3) {
		t.Errorf("delay: got %v, expected 3", m.Delay())
	}
	if !near(m.AreaBase, 3) {
		t.Errorf("base area: got %v, expected 3", m.AreaBase)
	}
	if !near(m.AreaFinal, 3) {
		t.Errorf("final area: got %v, expected 3", m.AreaFinal)
	}
	if m.State() != StateDone {
		t.Errorf("state: %v", m.State())
	}
	if !near(m.RequiredGlobal, 3) {
		t.Errorf("required: got %v, expected 3", m.RequiredGlobal)
	}
}

func TestLargeGate(t *testing.T) {
	params := NewParams()
	params.AreaRecovery = false

	m := mapNetwork(t, chain(4), loadLibrary(t, and4Library), params)
	if !near(m.Delay(), 1.5) {
		t.Errorf("delay: got %v, expected 1.5", m.Delay())
	}
	if !near(m.AreaBase, 2) {
		t.Errorf("area: got %v, expected 2", m.AreaBase)
	}
	out := m.Net.Outputs[0].Ref
	sel := m.Selection(out.ID(), Pos)
	if sel.Inv || sel.Match.Super.Cell.Name != "AND4" {
		t.Errorf("output selection: %v", sel.Match.Super)
	}
}

func TestChoices(t *testing.T) {
	net := aig.NewNetwork()
	a := net.AddInput("a")
	b := net.AddInput("b")
	c := net.AddInput("c")
	d := net.AddInput("d")

	ab := net.And(a, b)
	top := net.And(net.And(ab, c), d)
	balanced := net.And(ab, net.And(c, d))
	net.AddOutput("f", top)

	if err := net.SetChoice(top.ID(), balanced.ID(), false); err != nil {
		t.Fatalf("SetChoice: %v", err)
	}

	m := mapNetwork(t, net, loadLibrary(t, unitLibrary), nil)
	if !near(m.Delay(), 2) {
		t.Errorf("delay: got %v, expected 2", m.Delay())
	}
	if !near(m.AreaFinal, 3) {
		t.Errorf("area: got %v, expected 3", m.AreaFinal)
	}
	r := m.ReportChoices()
	if r.Classes != 1 || r.Members != 1 || r.Used != 1 || r.Shallower != 1 {
		t.Errorf("choices: %v", r)
	}
	if m.Stats().Depth != 2 {
		t.Errorf("depth: got %v, expected 2", m.Stats().Depth)
	}
	checkMember(t, m, balanced.ID())
}

// checkMember verifies that the choice class member id is not
// implemented by the mapping.
func checkMember(t *testing.T, m *Manager, id int) {
	t.Helper()
	n := m.Node(id)
	if n == nil {
		t.Fatalf("n%d: no mapping node", id)
	}
	for ph := Pos; ph <= Neg; ph++ {
		if n.Best[ph].Cut != -1 || n.Best[ph].Match.Matched() {
			t.Errorf("n%d: %v selection %v", id, ph, n.Best[ph])
		}
		if !math.IsInf(n.Required[ph].Worst, 1) {
			t.Errorf("n%d: %v required %v", id, ph, n.Required[ph])
		}
		if n.Needs(ph) {
			t.Errorf("n%d: %v needed", id, ph)
		}
	}
	if n.RefAct != [3]int{} {
		t.Errorf("n%d: references %v", id, n.RefAct)
	}
	if n.Arrival != [2]Time{} {
		t.Errorf("n%d: arrival %v", id, n.Arrival)
	}
	for i := range n.Cuts {
		for ph := Pos; ph <= Neg; ph++ {
			if n.Cuts[i].M[ph].Matched() {
				t.Errorf("n%d: cut %v matched in %v", id, n.Cuts[i], ph)
			}
		}
	}
}

func TestComplementedChoice(t *testing.T) {
	net := aig.NewNetwork()
	a := net.AddInput("a")
	b := net.AddInput("b")

	x1 := net.And(a, b)
	x2 := net.And(a.Not(), b.Not())
	z := net.And(x2.Not(), x1.Not())
	xor := net.And(x1.Not(), z)
	net.AddOutput("f", xor)

	y1 := net.And(a, b.Not())
	y2 := net.And(a.Not(), b)
	xnor := net.And(y1.Not(), y2.Not())

	if err := net.SetChoice(xor.ID(), xnor.ID(), true); err != nil {
		t.Fatalf("SetChoice: %v", err)
	}
	m := mapNetwork(t, net, loadLibrary(t, unitLibrary), nil)

	var found bool
	for _, c := range m.Cuts(xor.ID()) {
		if c.Root != xnor.ID() {
			continue
		}
		if !c.Compl {
			t.Errorf("member cut %v not complemented", c)
		}
		if len(c.Leaves) == 2 && c.Leaves[0] == y1.ID() &&
			c.Leaves[1] == y2.ID() {
			found = true
			if want := truth.FromBits(0xe, 2); c.Truth != want {
				t.Errorf("member cut truth %v, expected %v", c.Truth, want)
			}
		}
	}
	if !found {
		t.Errorf("member cut {n%d,n%d} not inherited", y1.ID(), y2.ID())
	}
	r := m.ReportChoices()
	if r.Classes != 1 || r.Members != 1 || r.Shallower != 1 {
		t.Errorf("choices: %v", r)
	}
	checkMember(t, m, xnor.ID())
}

func TestConstantFanin(t *testing.T) {
	lib := library.Default()

	plain := aig.NewNetwork()
	plain.AddOutput("f", plain.And(plain.AddInput("a"),
		plain.AddInput("b")))
	want := mapNetwork(t, plain, lib, nil)

	net := aig.NewNetwork()
	a := net.AddInput("a")
	b := net.AddInput("b")
	x := net.NewAnd(a, aig.True)
	net.AddOutput("f", net.And(x, b))
	g := net.NewAnd(b, aig.False)
	net.AddOutput("g", g)

	m := mapNetwork(t, net, lib, nil)
	if !near(m.AreaFinal, 3) {
		t.Errorf("area: got %v, expected 3", m.AreaFinal)
	}
	if !near(m.Delay(), want.Delay()) {
		t.Errorf("delay: got %v, expected %v", m.Delay(), want.Delay())
	}
	for _, id := range m.Order() {
		if id == 0 {
			continue
		}
		for _, c := range m.Cuts(id) {
			for _, leaf := range c.Leaves {
				if leaf == 0 {
					t.Errorf("n%d: constant leaf in cut %v", id, c)
				}
			}
		}
	}

	cuts := m.Cuts(g.ID())
	if len(cuts) != 2 || len(cuts[1].Leaves) != 0 {
		t.Fatalf("constant cuts: %v", cuts)
	}
	if cuts[1].Truth != truth.Const(false, 0) {
		t.Errorf("constant truth: %v", cuts[1].Truth)
	}
	sel := m.Selection(g.ID(), Pos)
	if sel.Inv || !sel.Match.Matched() || sel.Match.Super.Cell.Name != "ZERO" {
		t.Errorf("constant selection: %v", sel)
	}
}

func TestCycle(t *testing.T) {
	net := aig.NewNetwork()
	a := net.AddInput("a")
	b := net.AddInput("b")
	x := net.NewAnd(a, b)
	y := net.NewAnd(x, b)
	if err := net.SetFanins(x.ID(), y, a); err != nil {
		t.Fatal(err)
	}
	net.AddOutput("y", y)

	m, err := New(net, library.Default(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m.Map()
	if !errors.Is(err, ErrStructural) {
		t.Fatalf("expected ErrStructural, got %v", err)
	}
	if m.State() != StateFailed {
		t.Errorf("state: %v", m.State())
	}
	if err := m.Map(); !errors.Is(err, ErrNeedsReset) {
		t.Errorf("expected ErrNeedsReset, got %v", err)
	}
	m.Reset()
	if m.State() != StateStart {
		t.Errorf("state after reset: %v", m.State())
	}
}

func TestNoLibraryMatch(t *testing.T) {
	lib := loadLibrary(t, `
name: xor
cells:
- {name: INV,  area: 1, delay: 1, function: "!a"}
- {name: XOR2, area: 2, delay: 1, function: "a^b"}
`)
	net := aig.NewNetwork()
	net.AddOutput("o", net.And(net.AddInput("a"), net.AddInput("b")))

	m, err := New(net, lib, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = m.Map()
	if !errors.Is(err, ErrNoLibraryMatch) {
		t.Fatalf("expected ErrNoLibraryMatch, got %v", err)
	}
	m.Reset()
	if m.State() != StateTruths {
		t.Errorf("state after reset: %v", m.State())
	}
}

func TestCuts(t *testing.T) {
	net := aig.Random(7, 8, 80, 4)
	params := NewParams()
	params.K = 4

	m, err := New(net, library.Default(), params)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ComputeCuts(); err != nil {
		t.Fatal(err)
	}
	for _, id := range m.Order() {
		cuts := m.Cuts(id)
		if len(cuts) == 0 || !cuts[0].Trivial(id) {
			t.Fatalf("n%d: first cut is not trivial", id)
		}
		for i := range cuts {
			c := &cuts[i]
			if len(c.Leaves) > params.K {
				t.Errorf("n%d: cut %v exceeds K", id, c.Leaves)
			}
			for j := 1; j < len(c.Leaves); j++ {
				if c.Leaves[j-1] >= c.Leaves[j] {
					t.Errorf("n%d: leaves not sorted: %v", id, c.Leaves)
				}
			}
			if i == 0 {
				continue
			}
			for j := 1; j < len(cuts); j++ {
				if i != j && subset(&cuts[j], c) {
					t.Errorf("n%d: cut %v dominated by %v", id,
						c.Leaves, cuts[j].Leaves)
				}
			}
		}
	}
}

func TestTruths(t *testing.T) {
	net := aig.Random(3, 10, 120, 5)
	params := NewParams()
	params.Workers = 4

	m, err := New(net, library.Default(), params)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ComputeTruths(); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState, got %v", err)
	}
	if err := m.ComputeCuts(); err != nil {
		t.Fatal(err)
	}
	if err := m.ComputeTruths(); err != nil {
		t.Fatal(err)
	}

	prg := aig.NewPRG(99)
	inputs := make([]uint64, len(net.Inputs))
	for i := range inputs {
		inputs[i] = prg.Uint64()
	}
	values, err := net.Simulate(inputs)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range m.Order() {
		for _, c := range m.Cuts(id) {
			for bit := 0; bit < 64; bit++ {
				var minterm int
				for i, leaf := range c.Leaves {
					if values[leaf]&(1<<bit) != 0 {
						minterm |= 1 << i
					}
				}
				want := values[id]&(1<<bit) != 0
				if c.Truth.Bit(minterm) != want {
					t.Fatalf("n%d: cut %v: truth %v wrong at pattern %d",
						id, c.Leaves, c.Truth, bit)
				}
			}
		}
	}
}

func TestArrivals(t *testing.T) {
	net := aig.Random(11, 12, 150, 6)
	m := mapNetwork(t, net, library.Default(), nil)

	for _, id := range m.Order() {
		n := m.Node(id)
		if !mapped(n) {
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			sel := n.Best[ph]
			if !n.Needs(ph) || sel.Inv {
				continue
			}
			cut := n.Cuts[sel.Cut]
			for j, leaf := range cut.Leaves {
				la := m.Node(leaf).Arrival[sel.Match.Phases[j]]
				if n.Arrival[ph].Worst+1e-9 < la.Worst+1 {
					t.Errorf("n%d%v: arrival %v before leaf n%d %v", id, ph,
						n.Arrival[ph], leaf, la)
				}
			}
			if n.Arrival[ph].Worst > n.Required[ph].Worst+0.01 {
				t.Errorf("n%d%v: arrival %v after required %v", id, ph,
					n.Arrival[ph], n.Required[ph])
			}
		}
	}
}

func TestAreaRecovery(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		net := aig.Random(seed, 10, 200, 8)
		m := mapNetwork(t, net, library.Default(), nil)

		passes := m.Stats().Passes
		if len(passes) != 4 {
			t.Fatalf("expected 4 passes, got %d", len(passes))
		}
		if m.AreaFinal > m.AreaBase+1e-6 {
			t.Errorf("seed %d: area increased: %v > %v", seed, m.AreaFinal,
				m.AreaBase)
		}
		for i := 1; i < len(passes); i++ {
			if passes[i].Area > passes[i-1].Area+1e-6 {
				t.Errorf("seed %d: %v increased area", seed, passes[i])
			}
			if passes[i].Delay > passes[0].Delay+0.01 {
				t.Errorf("seed %d: %v increased delay", seed, passes[i])
			}
		}
		if !near(m.Area(), m.SetRefs()) {
			t.Errorf("seed %d: Area and SetRefs disagree", seed)
		}
	}
}

func TestSwitching(t *testing.T) {
	net := aig.Random(5, 10, 150, 6)
	params := NewParams()
	params.Switching = true
	params.ExactArea = false
	params.ExactAreaPhase = false

	m := mapNetwork(t, net, library.Default(), params)
	passes := m.Stats().Passes
	if len(passes) != 4 {
		t.Fatalf("expected 4 passes, got %d", len(passes))
	}
	for _, p := range passes[2:] {
		if p.Mode != ModeSwitching {
			t.Errorf("unexpected pass %v", p)
		}
	}
	if passes[3].Switching > passes[1].Switching+1e-6 {
		t.Errorf("switching increased: %v > %v", passes[3].Switching,
			passes[1].Switching)
	}
	for _, id := range m.Order() {
		sw := m.Node(id).Switching
		if sw < 0 || sw > 0.5 {
			t.Errorf("n%d: switching %v out of range", id, sw)
		}
	}
}

func TestReset(t *testing.T) {
	net := aig.Random(21, 10, 100, 4)
	m, err := New(net, library.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ComputeCuts(); err != nil {
		t.Fatal(err)
	}
	if err := m.ComputeTruths(); err != nil {
		t.Fatal(err)
	}
	if err := m.Match(DelayCost{}); err != nil {
		t.Fatal(err)
	}
	first := collectMatches(m)

	if err := m.Map(); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	if m.State() != StateTruths {
		t.Fatalf("state after reset: %v", m.State())
	}
	if err := m.Match(DelayCost{}); err != nil {
		t.Fatal(err)
	}
	second := collectMatches(m)

	diff := cmp.Diff(first, second, cmp.Comparer(
		func(a, b *library.Supergate) bool {
			return a == b
		}))
	if diff != "" {
		t.Errorf("matches differ after reset (-first +second):\n%s", diff)
	}
}

func collectMatches(m *Manager) map[int][][2]Match {
	result := make(map[int][][2]Match)
	for _, id := range m.Order() {
		for _, c := range m.Cuts(id) {
			result[id] = append(result[id], c.M)
		}
	}
	return result
}

func TestWeights(t *testing.T) {
	lib := library.Default()

	params := NewParams()
	params.AreaRecovery = false
	nominal := mapNetwork(t, aig.Random(9, 8, 60, 3), lib, params)

	params = NewParams()
	params.AreaRecovery = false
	params.Weights = ExpertWeights
	weighted := mapNetwork(t, aig.Random(9, 8, 60, 3), lib, params)

	// Without fanout and transition terms, the expert weights scale the
	// block delays by (1-w0)*w8.
	if !near(weighted.Delay(), nominal.Delay()*0.5) {
		t.Errorf("weighted delay %v, nominal %v", weighted.Delay(),
			nominal.Delay())
	}
}

func TestDelayTarget(t *testing.T) {
	lib := loadLibrary(t, unitLibrary)

	params := NewParams()
	params.DelayTarget = 10
	m := mapNetwork(t, chain(4), lib, params)
	if !near(m.RequiredGlobal, 10) {
		t.Errorf("required: got %v, expected 10", m.RequiredGlobal)
	}

	params = NewParams()
	params.DelayTarget = 1
	m = mapNetwork(t, chain(4), lib, params)
	if !near(m.RequiredGlobal, 3) {
		t.Errorf("required: got %v, expected 3", m.RequiredGlobal)
	}
}

func TestResetMatches(t *testing.T) {
	m := mapNetwork(t, chain(4), loadLibrary(t, unitLibrary), nil)
	m.ResetMatches()
	for _, id := range m.Order() {
		n := m.Node(id)
		if n.Arrival != [2]Time{} {
			t.Errorf("n%d: arrival %v", id, n.Arrival)
		}
		for i := range n.Cuts {
			for ph := Pos; ph <= Neg; ph++ {
				mt := &n.Cuts[i].M[ph]
				if mt.Matched() || !math.IsInf(mt.Arrival.Worst, 1) {
					t.Errorf("n%d: cut %d %v not reset", id, i, ph)
				}
			}
		}
	}
	if m.State() != StateDone {
		t.Errorf("state: %v", m.State())
	}
}

func TestParams(t *testing.T) {
	w, err := ParseWeights("expert")
	if err != nil || len(w) != NumWeights {
		t.Errorf("ParseWeights(expert): %v %v", w, err)
	}
	w, err = ParseWeights(PresetWeights[0].String())
	if err != nil || len(w) != NumWeights {
		t.Errorf("ParseWeights: %v %v", w, err)
	}
	w, err = ParseWeights("")
	if err != nil || !w.Nominal() {
		t.Errorf("ParseWeights(''): %v %v", w, err)
	}
	for i, w := range PresetWeights {
		if err := w.Validate(); err != nil {
			t.Errorf("preset %d: %v", i, err)
		}
	}
	for _, bad := range []string{
		"1,2,3",
		"a,b",
		"1,2,3,4,5,6,7,8,9,NaN",
		"2,0,0,0,0,0,0,0,1,0",
		"0.5,0,0,0,1,0,0,0,1,-0.1",
		"0.5,0.6,0,0,1,0,0,0,1,0",
		"0.5,0,0,0,0.4,0,0,0,1,0",
		"0.5,0,0,0,1,0,0,0,2.5,0",
	} {
		if _, err := ParseWeights(bad); !errors.Is(err, ErrParams) {
			t.Errorf("ParseWeights(%q): expected ErrParams, got %v", bad, err)
		}
	}

	params := NewParams()
	params.K = 7
	if _, err := New(chain(2), library.Default(), params); !errors.Is(err,
		ErrParams) {
		t.Errorf("expected ErrParams, got %v", err)
	}
}

func TestNegativeDelay(t *testing.T) {
	params := NewParams()
	params.InputArrival = -6
	m := mapNetwork(t, chain(4), loadLibrary(t, unitLibrary), params)

	arrivals := m.OutputArrivals()
	if len(arrivals) != 1 || !near(arrivals[0].Worst, -3) {
		t.Fatalf("output arrivals: %v", arrivals)
	}
	if !near(m.Delay(), -3) {
		t.Errorf("delay: got %v, expected -3", m.Delay())
	}
	if !near(m.RequiredGlobal, -3) {
		t.Errorf("required: got %v, expected -3", m.RequiredGlobal)
	}

	empty := aig.NewNetwork()
	empty.AddInput("a")
	m = mapNetwork(t, empty, loadLibrary(t, unitLibrary), nil)
	if m.Delay() != 0 {
		t.Errorf("delay without outputs: %v", m.Delay())
	}
}

func TestDump(t *testing.T) {
	m := mapNetwork(t, chain(3), loadLibrary(t, unitLibrary), nil)

	var sb strings.Builder
	m.Dump(&sb)
	if strings.Count(sb.String(), "AND2") != 2 {
		t.Errorf("unexpected dump:\n%s", sb.String())
	}
	sb.Reset()
	m.Timing().Print(&sb)
	if !strings.Contains(sb.String(), "delay") {
		t.Errorf("timing report without passes:\n%s", sb.String())
	}
}
