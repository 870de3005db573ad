//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package netlist

import (
	"fmt"
	"io"
)

// Dot creates graphviz dot output of the netlist.
func (n *Netlist) Dot(out io.Writer) {
	fmt.Fprintf(out, "digraph netlist\n{\n")
	fmt.Fprintf(out, "  overlap=scale;\n")
	fmt.Fprintf(out, "  node\t[fontname=\"Helvetica\"];\n")

	fmt.Fprintf(out, "  {\n    node [shape=plaintext];\n")
	for _, p := range n.Inputs {
		fmt.Fprintf(out, "    w%d\t[label=\"%s\"];\n", p.Wire, p.Name)
	}
	for idx, p := range n.Outputs {
		fmt.Fprintf(out, "    o%d\t[label=\"%s\"];\n", idx, p.Name)
	}
	fmt.Fprintf(out, "  }\n")

	fmt.Fprintf(out, "  {\n    node [shape=box];\n")
	for idx, g := range n.Gates {
		fmt.Fprintf(out, "    g%d\t[label=\"%s\"];\n", idx, g.Cell.Name)
	}
	fmt.Fprintf(out, "  }\n")

	fmt.Fprintf(out, "  {  rank=same")
	for _, p := range n.Inputs {
		fmt.Fprintf(out, "; w%d", p.Wire)
	}
	fmt.Fprintf(out, ";}\n")

	fmt.Fprintf(out, "  {  rank=same")
	for idx := range n.Outputs {
		fmt.Fprintf(out, "; o%d", idx)
	}
	fmt.Fprintf(out, ";}\n")

	driver := make(map[Wire]string)
	for _, p := range n.Inputs {
		driver[p.Wire] = fmt.Sprintf("w%d", p.Wire)
	}
	for idx, g := range n.Gates {
		driver[g.Output] = fmt.Sprintf("g%d", idx)
	}
	for idx, g := range n.Gates {
		for _, w := range g.Inputs {
			fmt.Fprintf(out, "  %s -> g%d;\n", driver[w], idx)
		}
	}
	for idx, p := range n.Outputs {
		fmt.Fprintf(out, "  %s -> o%d;\n", driver[p.Wire], idx)
	}
	fmt.Fprintf(out, "}\n")
}
