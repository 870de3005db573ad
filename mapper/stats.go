//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"
)

// Stats holds mapping statistics.
type Stats struct {
	// Depth holds the number of subject graph levels with the
	// choices applied.
	Depth      int
	Nodes      int
	Cuts       int
	Matches    int
	Infeasible int
	Fallbacks  int
	Passes     []PassResult
}

// PassResult holds the result of a mapping pass.
type PassResult struct {
	Mode      Mode
	Delay     float64
	Area      float64
	AreaFlow  float64
	Switching float64
	Restored  bool
	Duration  time.Duration
}

func (r PassResult) String() string {
	return fmt.Sprintf("%s: delay=%.2f area=%.2f flow=%.2f",
		r.Mode, r.Delay, r.Area, r.AreaFlow)
}

// Observer receives mapping pass results.
type Observer interface {
	ObservePass(r PassResult)
	ObserveFailure(stage string, err error)
}

// Print prints the pass results to out.
func (s Stats) Print(out io.Writer) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Pass").SetAlign(tabulate.ML)
	tab.Header("Delay").SetAlign(tabulate.MR)
	tab.Header("Area").SetAlign(tabulate.MR)
	tab.Header("Flow").SetAlign(tabulate.MR)
	tab.Header("Switching").SetAlign(tabulate.MR)
	tab.Header("Time").SetAlign(tabulate.MR)

	for _, p := range s.Passes {
		row := tab.Row()
		label := row.Column(p.Mode.String())
		if p.Restored {
			label.SetFormat(tabulate.FmtItalic)
		}
		row.Column(fmt.Sprintf("%.2f", p.Delay))
		row.Column(fmt.Sprintf("%.2f", p.Area))
		row.Column(fmt.Sprintf("%.2f", p.AreaFlow))
		row.Column(fmt.Sprintf("%.3f", p.Switching))
		row.Column(p.Duration.String())
	}
	row := tab.Row()
	row.Column("Depth").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", s.Depth))
	row = tab.Row()
	row.Column("Cuts").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", s.Cuts))
	row = tab.Row()
	row.Column("Matches").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%d", s.Matches))

	tab.Print(out)
}
