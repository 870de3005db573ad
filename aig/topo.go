//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package aig

import (
	"github.com/pkg/errors"
)

const (
	white = iota
	gray
	black
)

type frame struct {
	id   int
	next int
}

// children returns the nodes that must precede id in the topological
// order: the fanins and the choice members of a representative.
func (n *Network) children(id int) []int {
	node := n.Nodes[id]
	var result []int
	for _, f := range node.Fanins() {
		result = append(result, f.ID())
	}
	result = append(result, node.Choices...)
	return result
}

// dfs appends the nodes reachable from the roots to order in the
// topological order. It returns ErrCycle if the graph has a
// combinational cycle.
func (n *Network) dfs(roots []int, color []uint8, order []int) ([]int, error) {
	var stack []frame

	for _, root := range roots {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack[:0], frame{id: root})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := n.children(top.id)
			if top.next < len(kids) {
				child := kids[top.next]
				top.next++
				if child < 0 || child >= len(n.Nodes) {
					return nil, errors.Wrapf(ErrInvalidNode,
						"n%d: fanin n%d", top.id, child)
				}
				switch color[child] {
				case gray:
					return nil, errors.Wrapf(ErrCycle, "through n%d", child)
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
				}
				continue
			}
			color[top.id] = black
			order = append(order, top.id)
			stack = stack[:len(stack)-1]
		}
	}
	return order, nil
}

// Order returns all network nodes in a topological order.
func (n *Network) Order() ([]int, error) {
	roots := make([]int, len(n.Nodes))
	for i := range roots {
		roots[i] = i
	}
	return n.dfs(roots, make([]uint8, len(n.Nodes)), nil)
}

// TopoOrder returns the constant node, the primary inputs, and all
// nodes in the transitive fanin of the primary outputs in a
// topological order. Choice class members precede their
// representatives.
func (n *Network) TopoOrder() ([]int, error) {
	color := make([]uint8, len(n.Nodes))
	order := make([]int, 0, len(n.Nodes))

	color[0] = black
	order = append(order, 0)
	for _, id := range n.Inputs {
		color[id] = black
		order = append(order, id)
	}
	var roots []int
	for _, o := range n.Outputs {
		roots = append(roots, o.Ref.ID())
	}
	return n.dfs(roots, color, order)
}
