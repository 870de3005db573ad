//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package mapper implements cut-based technology mapping of
// and-inverter graphs into library cells. The mapping minimizes
// delay first and then recovers area with area flow, exact area, and
// switching activity passes under the delay constraint.
package mapper

import (
	"fmt"
	"math"

	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Mapping errors.
var (
	ErrParams         = errors.New("invalid parameters")
	ErrStructural     = errors.New("structural failure")
	ErrNoLibraryMatch = errors.New("no library match")
	ErrNeedsReset     = errors.New("mapping failed, manager needs reset")
	ErrState          = errors.New("invalid mapping state")
)

// Phase specifies the polarity of a node's implemented signal.
type Phase uint8

// Node phases.
const (
	Pos Phase = iota
	Neg
)

// PhaseOf returns the phase matching the complement flag.
func PhaseOf(compl bool) Phase {
	if compl {
		return Neg
	}
	return Pos
}

// Not returns the opposite phase.
func (p Phase) Not() Phase {
	return p ^ 1
}

func (p Phase) String() string {
	if p == Neg {
		return "-"
	}
	return "+"
}

var inf = math.Inf(1)

// Time holds rise, fall, and worst case times.
type Time struct {
	Rise  float64
	Fall  float64
	Worst float64
}

// Uniform returns a time with all components set to t.
func Uniform(t float64) Time {
	return Time{
		Rise:  t,
		Fall:  t,
		Worst: t,
	}
}

func (t Time) String() string {
	return fmt.Sprintf("%.2f(r%.2f,f%.2f)", t.Worst, t.Rise, t.Fall)
}

// Match holds the best supergate implementing one phase of a cut and
// its costs.
type Match struct {
	Super     *library.Supergate
	Arrival   Time
	AreaFlow  float64
	Area      float64
	Switching float64

	// Phases holds the phase in which each cut leaf is consumed.
	Phases [truth.MaxVars]Phase
}

func unmatched() Match {
	return Match{
		Arrival:   Uniform(inf),
		AreaFlow:  inf,
		Area:      inf,
		Switching: inf,
	}
}

// Matched tests if the match holds a supergate.
func (m *Match) Matched() bool {
	return m.Super != nil
}

// Cut defines a K-feasible cut of a node.
type Cut struct {
	Leaves []int
	Truth  truth.Table
	M      [2]Match

	// Root is the node whose cone the cut covers. It differs from
	// the cut's node for cuts inherited from choice class members.
	Root  int
	Compl bool

	sign uint64
}

// Trivial tests if the cut is the node's trivial cut.
func (c *Cut) Trivial(id int) bool {
	return len(c.Leaves) == 1 && c.Leaves[0] == id && c.Root == id
}

func (c *Cut) String() string {
	return fmt.Sprintf("%v/%v", c.Leaves, c.Truth)
}

// Selection defines the implementation of a node phase. The phase
// is implemented either by the match on the cut Cut or by an
// inverter driven by the opposite phase.
type Selection struct {
	Cut   int
	Inv   bool
	Match Match
}

// Valid tests if the selection implements the phase.
func (s *Selection) Valid() bool {
	return s.Inv || s.Match.Matched()
}

func noSelection() Selection {
	return Selection{
		Cut:   -1,
		Match: unmatched(),
	}
}

// Node holds the mapping state of a subject graph node.
type Node struct {
	ID      int
	Subject *aig.Node
	Cuts    []Cut

	Arrival  [2]Time
	Required [2]Time
	Best     [2]Selection

	// RefAct holds the number of references of each phase and the
	// total number of references in the current mapping. RefEst
	// holds the estimated references.
	RefAct [3]int
	RefEst [3]float64

	Switching float64
}

func (n *Node) referenced() bool {
	return n.RefAct[2] > 0
}

// Needs tests if the phase ph must be implemented in the current
// mapping.
func (n *Node) Needs(ph Phase) bool {
	return n.RefAct[ph] > 0 ||
		(n.RefAct[ph.Not()] > 0 && n.Best[ph.Not()].Inv)
}

// State defines the mapping pipeline state.
type State int

// Mapping states.
const (
	StateStart State = iota
	StateCuts
	StateTruths
	StateDelay
	StateAreaFlow
	StateExactArea
	StateExactAreaPhase
	StateSwitching
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateStart:          "start",
	StateCuts:           "cuts",
	StateTruths:         "truths",
	StateDelay:          "delay",
	StateAreaFlow:       "area-flow",
	StateExactArea:      "exact-area",
	StateExactAreaPhase: "exact-area-phase",
	StateSwitching:      "switching",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if ok {
		return name
	}
	return fmt.Sprintf("{State %d}", s)
}

// Manager implements the mapping of a network into a library.
type Manager struct {
	Params *Params
	Net    *aig.Network
	Lib    *library.Library

	// RequiredGlobal holds the required time of the primary outputs.
	RequiredGlobal float64
	AreaBase       float64
	AreaFinal      float64

	log    *logrus.Logger
	nodes  []*Node
	order  []int
	k      int
	inv    *library.Cell
	state  State
	stats  Stats
	timing *Timing

	haveCuts   bool
	haveTruths bool
	orderErr   error
}

// New creates a new mapping manager for the network and library.
func New(net *aig.Network, lib *library.Library, params *Params) (
	*Manager, error) {

	if params == nil {
		params = NewParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if lib.Inverter() == nil {
		return nil, library.ErrNoInverter
	}
	m := &Manager{
		Params: params,
		Net:    net,
		Lib:    lib,
		log:    params.logger(),
		k:      params.K,
		inv:    lib.Inverter(),
		timing: NewTiming(),
	}
	order, err := net.TopoOrder()
	if err != nil {
		// Reported by the cut enumeration.
		m.orderErr = errors.Wrapf(ErrStructural, "%v", err)
	} else {
		m.stats.Depth, err = net.ComputeLevels()
		if err != nil {
			return nil, err
		}
	}
	m.order = order

	net.ComputeFanouts()
	m.nodes = make([]*Node, len(net.Nodes))
	for _, id := range order {
		m.nodes[id] = &Node{
			ID:      id,
			Subject: net.Nodes[id],
		}
	}
	m.Reset()

	return m, nil
}

// Node returns the mapping node of the subject node id. The function
// returns nil for nodes outside the transitive fanin of the outputs.
func (m *Manager) Node(id int) *Node {
	if id < 0 || id >= len(m.nodes) {
		return nil
	}
	return m.nodes[id]
}

// Cuts returns the cuts of the node id.
func (m *Manager) Cuts(id int) []Cut {
	n := m.Node(id)
	if n == nil {
		return nil
	}
	return n.Cuts
}

// Selection returns the selected implementation of the node phase.
func (m *Manager) Selection(id int, ph Phase) Selection {
	n := m.Node(id)
	if n == nil {
		return noSelection()
	}
	return n.Best[ph]
}

// Order returns the mapped nodes in the topological order.
func (m *Manager) Order() []int {
	return m.order
}

// State returns the pipeline state.
func (m *Manager) State() State {
	return m.state
}

// Stats returns the mapping statistics.
func (m *Manager) Stats() Stats {
	return m.stats
}

// Timing returns the per-stage timing samples.
func (m *Manager) Timing() *Timing {
	return m.timing
}

// Inverter returns the inverter cell used for phase conversions.
func (m *Manager) Inverter() *library.Cell {
	return m.inv
}

// Reset resets all mapping results but keeps the cuts and their
// truth tables. After reset, the matching can be restarted.
func (m *Manager) Reset() {
	for _, id := range m.order {
		n := m.nodes[id]
		n.RefAct = [3]int{}
		fanouts := float64(n.Subject.NumFanouts)
		n.RefEst = [3]float64{fanouts, fanouts, fanouts}
		n.Required = [2]Time{Uniform(inf), Uniform(inf)}
		n.Best = [2]Selection{noSelection(), noSelection()}
	}
	m.RequiredGlobal = 0
	m.AreaBase = 0
	m.AreaFinal = 0
	m.ResetMatches()

	switch {
	case m.haveTruths:
		m.state = StateTruths
	case m.haveCuts:
		m.state = StateCuts
	default:
		m.state = StateStart
	}
}

// ResetMatches resets the per-cut match slots and zeroes the node
// arrival times. The selected implementations and references are
// kept.
func (m *Manager) ResetMatches() {
	for _, id := range m.order {
		n := m.nodes[id]
		for i := range n.Cuts {
			n.Cuts[i].M = [2]Match{unmatched(), unmatched()}
		}
		n.Arrival = [2]Time{}
	}
}

// fail moves the manager to the failed state.
func (m *Manager) fail(stage string, err error) error {
	m.state = StateFailed
	m.log.WithError(err).WithField("stage", stage).Error("mapping failed")
	if m.Params.Observer != nil {
		m.Params.Observer.ObserveFailure(stage, err)
	}
	return err
}

// fanin returns the mapping node and phase of the reference r.
func (m *Manager) fanin(r aig.Ref) (*Node, Phase) {
	return m.nodes[r.ID()], PhaseOf(r.Compl())
}

// mapped tests if the node is implemented by the mapping. Choice
// class members and buffers are not.
func mapped(n *Node) bool {
	return n.Subject.IsAnd() && !n.Subject.IsChoiceMember()
}
