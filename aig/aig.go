//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package aig implements the and-inverter graph that is the subject
// of technology mapping.
package aig

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Errors returned by graph operations.
var (
	ErrCycle       = errors.New("combinational cycle")
	ErrChoiceNode  = errors.New("invalid choice node")
	ErrInvalidNode = errors.New("invalid node")
	ErrInputs      = errors.New("invalid number of inputs")
)

// Ref references a node with an optional complement. The node ID is
// stored in the high bits and the complement flag in the lowest bit.
type Ref uint32

// Constant references.
const (
	False Ref = 0
	True  Ref = 1
)

// MakeRef creates a reference to the node id.
func MakeRef(id int, compl bool) Ref {
	r := Ref(id << 1)
	if compl {
		r |= 1
	}
	return r
}

// ID returns the referenced node ID.
func (r Ref) ID() int {
	return int(r >> 1)
}

// Compl tests if the reference is complemented.
func (r Ref) Compl() bool {
	return r&1 != 0
}

// Not returns the complemented reference.
func (r Ref) Not() Ref {
	return r ^ 1
}

// NotIf returns the complemented reference if c is true.
func (r Ref) NotIf(c bool) Ref {
	if c {
		return r ^ 1
	}
	return r
}

// Regular returns the uncomplemented reference.
func (r Ref) Regular() Ref {
	return r &^ 1
}

func (r Ref) String() string {
	if r.Compl() {
		return fmt.Sprintf("!n%d", r.ID())
	}
	return fmt.Sprintf("n%d", r.ID())
}

// Kind specifies node types.
type Kind uint8

// Node kinds.
const (
	Const Kind = iota
	Input
	And
	Buf
)

func (k Kind) String() string {
	switch k {
	case Const:
		return "const"
	case Input:
		return "input"
	case And:
		return "and"
	case Buf:
		return "buf"
	default:
		return fmt.Sprintf("{Kind %d}", k)
	}
}

// Node implements a graph node.
type Node struct {
	ID     int
	Kind   Kind
	Fanin0 Ref
	Fanin1 Ref
	Name   string

	// Repr is the representative of the node's choice class or -1 if
	// the node is a representative or has no choices. ReprPhase tells
	// if the node computes the complement of its representative.
	Repr      int
	ReprPhase bool

	// Choices lists the non-representative members of the node's
	// choice class.
	Choices []int

	NumFanouts int
	Level      int
}

// IsAnd tests if the node is an AND node.
func (n *Node) IsAnd() bool {
	return n.Kind == And
}

// IsInput tests if the node is a primary input.
func (n *Node) IsInput() bool {
	return n.Kind == Input
}

// IsChoiceMember tests if the node is a non-representative member of
// a choice class.
func (n *Node) IsChoiceMember() bool {
	return n.Repr >= 0
}

// Fanins returns the node's fanin references.
func (n *Node) Fanins() []Ref {
	switch n.Kind {
	case And:
		return []Ref{n.Fanin0, n.Fanin1}
	case Buf:
		return []Ref{n.Fanin0}
	default:
		return nil
	}
}

func (n *Node) String() string {
	switch n.Kind {
	case And:
		return fmt.Sprintf("n%d = AND(%v, %v)", n.ID, n.Fanin0, n.Fanin1)
	case Buf:
		return fmt.Sprintf("n%d = BUF(%v)", n.ID, n.Fanin0)
	case Input:
		return fmt.Sprintf("n%d = INPUT(%s)", n.ID, n.Name)
	default:
		return fmt.Sprintf("n%d = CONST", n.ID)
	}
}

// Output defines a primary output.
type Output struct {
	Name string
	Ref  Ref
}

// Network implements an and-inverter graph.
type Network struct {
	Nodes   []*Node
	Inputs  []int
	Outputs []Output
	strash  map[[2]Ref]int
}

// NewNetwork creates a new network holding the constant node.
func NewNetwork() *Network {
	n := &Network{
		strash: make(map[[2]Ref]int),
	}
	n.newNode(Const)
	return n
}

func (n *Network) newNode(kind Kind) *Node {
	node := &Node{
		ID:   len(n.Nodes),
		Kind: kind,
		Repr: -1,
	}
	n.Nodes = append(n.Nodes, node)
	return node
}

// Node returns the node by its ID.
func (n *Network) Node(id int) *Node {
	return n.Nodes[id]
}

// NumAnds returns the number of AND nodes in the network.
func (n *Network) NumAnds() int {
	var count int
	for _, node := range n.Nodes {
		if node.Kind == And {
			count++
		}
	}
	return count
}

// AddInput adds a primary input.
func (n *Network) AddInput(name string) Ref {
	node := n.newNode(Input)
	node.Name = name
	n.Inputs = append(n.Inputs, node.ID)
	return MakeRef(node.ID, false)
}

// AddOutput adds a primary output driven by r.
func (n *Network) AddOutput(name string, r Ref) {
	n.Outputs = append(n.Outputs, Output{
		Name: name,
		Ref:  r,
	})
}

// And returns a reference to the conjunction of a and b. Trivial
// conjunctions are simplified and structurally identical nodes are
// shared.
func (n *Network) And(a, b Ref) Ref {
	if a > b {
		a, b = b, a
	}
	switch {
	case a == False:
		return False
	case a == True:
		return b
	case a == b:
		return a
	case a == b.Not():
		return False
	}
	key := [2]Ref{a, b}
	if id, ok := n.strash[key]; ok {
		return MakeRef(id, false)
	}
	node := n.newNode(And)
	node.Fanin0 = a
	node.Fanin1 = b
	n.strash[key] = node.ID

	return MakeRef(node.ID, false)
}

// NewAnd creates a new AND node without structural hashing or
// simplification.
func (n *Network) NewAnd(a, b Ref) Ref {
	node := n.newNode(And)
	node.Fanin0 = a
	node.Fanin1 = b
	return MakeRef(node.ID, false)
}

// Or returns a reference to the disjunction of a and b.
func (n *Network) Or(a, b Ref) Ref {
	return n.And(a.Not(), b.Not()).Not()
}

// Xor returns a reference to the exclusive or of a and b.
func (n *Network) Xor(a, b Ref) Ref {
	return n.Or(n.And(a, b.Not()), n.And(a.Not(), b))
}

// Mux returns a reference to the multiplexer s ? t : e.
func (n *Network) Mux(s, t, e Ref) Ref {
	return n.Or(n.And(s, t), n.And(s.Not(), e))
}

// AddBuf adds a buffer node driven by r.
func (n *Network) AddBuf(r Ref) Ref {
	node := n.newNode(Buf)
	node.Fanin0 = r
	return MakeRef(node.ID, false)
}

// SetFanins sets the fanins of the node id. It is used by readers
// that define nodes before their fanins are known.
func (n *Network) SetFanins(id int, a, b Ref) error {
	if id <= 0 || id >= len(n.Nodes) {
		return errors.Wrapf(ErrInvalidNode, "node %d", id)
	}
	node := n.Nodes[id]
	if node.Kind != And {
		return errors.Wrapf(ErrInvalidNode, "node %d is %s", id, node.Kind)
	}
	if a.ID() >= len(n.Nodes) || b.ID() >= len(n.Nodes) {
		return errors.Wrapf(ErrInvalidNode, "node %d: fanin out of range",
			id)
	}
	node.Fanin0 = a
	node.Fanin1 = b
	return nil
}

// SetChoice adds the node member into the choice class of the node
// repr. The member must compute repr, or its complement if phase is
// true, and it must not drive any other node or output.
func (n *Network) SetChoice(repr, member int, phase bool) error {
	if repr <= 0 || repr >= len(n.Nodes) ||
		member <= 0 || member >= len(n.Nodes) || repr == member {
		return errors.Wrapf(ErrChoiceNode, "repr %d, member %d",
			repr, member)
	}
	r := n.Nodes[repr]
	m := n.Nodes[member]
	if r.Kind != And || m.Kind != And {
		return errors.Wrapf(ErrChoiceNode, "choice nodes must be AND nodes")
	}
	if r.Repr >= 0 || m.Repr >= 0 || len(m.Choices) > 0 {
		return errors.Wrapf(ErrChoiceNode, "node already in a choice class")
	}
	n.ComputeFanouts()
	if m.NumFanouts > 0 {
		return errors.Wrapf(ErrChoiceNode, "member n%d has %d fanouts",
			member, m.NumFanouts)
	}
	m.Repr = repr
	m.ReprPhase = phase
	r.Choices = append(r.Choices, member)
	return nil
}

// ComputeFanouts computes the structural fanout counts of all nodes.
func (n *Network) ComputeFanouts() {
	for _, node := range n.Nodes {
		node.NumFanouts = 0
	}
	for _, node := range n.Nodes {
		for _, f := range node.Fanins() {
			n.Nodes[f.ID()].NumFanouts++
		}
	}
	for _, o := range n.Outputs {
		n.Nodes[o.Ref.ID()].NumFanouts++
	}
}

// ComputeLevels computes node levels in the topological order and
// returns the maximum output level. The level of a choice class
// representative is the smallest level of the class members.
func (n *Network) ComputeLevels() (int, error) {
	order, err := n.Order()
	if err != nil {
		return 0, err
	}
	for _, id := range order {
		node := n.Nodes[id]
		node.Level = 0
		for _, f := range node.Fanins() {
			l := n.Nodes[f.ID()].Level
			if node.Kind == And {
				l++
			}
			if l > node.Level {
				node.Level = l
			}
		}
		for _, c := range node.Choices {
			if l := n.Nodes[c].Level; l < node.Level {
				node.Level = l
			}
		}
	}
	var max int
	for _, o := range n.Outputs {
		if l := n.Nodes[o.Ref.ID()].Level; l > max {
			max = l
		}
	}
	return max, nil
}

// Dump prints a debug dump of the network to out.
func (n *Network) Dump(out io.Writer) {
	fmt.Fprintf(out, "network: #inputs=%d #ands=%d #outputs=%d\n",
		len(n.Inputs), n.NumAnds(), len(n.Outputs))
	for _, node := range n.Nodes {
		fmt.Fprintf(out, "%04d\t%s\n", node.ID, node)
	}
	for _, o := range n.Outputs {
		fmt.Fprintf(out, "out\t%s = %v\n", o.Name, o.Ref)
	}
}
