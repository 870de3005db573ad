//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"fmt"
	"io"
	"strings"

	"github.com/markkurossi/text/superscript"
)

// ChoiceReport describes the use of structural choices in the
// mapping.
type ChoiceReport struct {
	Classes int
	Members int
	Used    int

	// Shallower counts the classes having a member with a smaller
	// level than the representative's own structure.
	Shallower int
}

func (r ChoiceReport) String() string {
	return fmt.Sprintf("choices: %d classes, %d members, %d used, %d shallower",
		r.Classes, r.Members, r.Used, r.Shallower)
}

// ReportChoices reports how many choice class representatives are
// implemented with a cut inherited from a class member.
func (m *Manager) ReportChoices() ChoiceReport {
	var r ChoiceReport
	for _, id := range m.order {
		n := m.nodes[id]
		if len(n.Subject.Choices) == 0 {
			continue
		}
		r.Classes++
		r.Members += len(n.Subject.Choices)

		var own int
		for _, f := range n.Subject.Fanins() {
			if l := m.Net.Nodes[f.ID()].Level + 1; l > own {
				own = l
			}
		}
		if n.Subject.Level < own {
			r.Shallower++
		}

		for ph := Pos; ph <= Neg; ph++ {
			sel := &n.Best[ph]
			if !n.Needs(ph) || sel.Inv || sel.Cut < 0 {
				continue
			}
			if n.Cuts[sel.Cut].Root != id {
				r.Used++
				break
			}
		}
	}
	m.log.Info(r)
	return r
}

// Dump prints the implemented node phases to out. The node names
// carry their reference counts as superscripts.
func (m *Manager) Dump(out io.Writer) {
	for _, id := range m.order {
		n := m.nodes[id]
		if !mapped(n) && !n.Subject.IsInput() {
			continue
		}
		for ph := Pos; ph <= Neg; ph++ {
			if !n.Needs(ph) {
				continue
			}
			sel := &n.Best[ph]
			name := fmt.Sprintf("n%d%s%s", id, ph,
				superscript.Itoa(n.RefAct[ph]))

			switch {
			case sel.Inv:
				fmt.Fprintf(out, "%s\t= %s(n%d%s)\t@%v\n", name, m.inv.Name,
					id, ph.Not(), sel.Match.Arrival)

			case sel.Match.Matched():
				cut := &n.Cuts[sel.Cut]
				var args []string
				for j, leaf := range cut.Leaves {
					args = append(args, fmt.Sprintf("%s=n%d%s",
						sel.Match.Super.Pins[j].Name, leaf,
						sel.Match.Phases[j]))
				}
				fmt.Fprintf(out, "%s\t= %s(%s)\t@%v\n", name,
					sel.Match.Super.Cell.Name, strings.Join(args, ","),
					sel.Match.Arrival)
			}
		}
	}
	fmt.Fprintf(out, "area=%.2f delay=%.2f required=%.2f\n", m.Area(),
		m.Delay(), m.RequiredGlobal)
}
