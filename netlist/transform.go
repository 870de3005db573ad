//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package netlist

import (
	"sort"

	"github.com/markkurossi/techmap/library"
	"github.com/pkg/errors"
)

// Transform implements a netlist transformation applied after
// mapping, such as buffering or gate sizing.
type Transform interface {
	Name() string
	Apply(n *Netlist) (*Netlist, error)
}

// FanoutBuffer limits the wire fanouts by inserting buffer trees.
type FanoutBuffer struct {
	Lib       *library.Library
	MaxFanout int
}

// Name implements Transform.Name.
func (b *FanoutBuffer) Name() string {
	return "buffer"
}

type sink struct {
	gate *Gate
	pin  int
	port int
}

// Apply implements Transform.Apply.
func (b *FanoutBuffer) Apply(in *Netlist) (*Netlist, error) {
	buf := b.Lib.Buffer()
	if buf == nil {
		return nil, ErrNoBuffer
	}
	if b.MaxFanout < 2 {
		return nil, errors.Errorf("invalid maximum fanout %d", b.MaxFanout)
	}
	n := in.Clone()

	for {
		sinks := make(map[Wire][]sink)
		for _, g := range n.Gates {
			for pin, w := range g.Inputs {
				sinks[w] = append(sinks[w], sink{
					gate: g,
					pin:  pin,
				})
			}
		}
		for idx, p := range n.Outputs {
			sinks[p.Wire] = append(sinks[p.Wire], sink{
				port: idx,
			})
		}
		var wires []Wire
		for w, list := range sinks {
			if len(list) > b.MaxFanout {
				wires = append(wires, w)
			}
		}
		if len(wires) == 0 {
			break
		}
		sort.Slice(wires, func(i, j int) bool {
			return wires[i] < wires[j]
		})
		for _, w := range wires {
			list := sinks[w]
			for start := 0; start < len(list); start += b.MaxFanout {
				end := start + b.MaxFanout
				if end > len(list) {
					end = len(list)
				}
				out := n.newWire()
				n.Gates = append(n.Gates, &Gate{
					Cell:   buf,
					Inputs: []Wire{w},
					Output: out,
				})
				for _, s := range list[start:end] {
					if s.gate != nil {
						s.gate.Inputs[s.pin] = out
					} else {
						n.Outputs[s.port].Wire = out
					}
				}
			}
		}
	}
	if err := n.Sort(); err != nil {
		return nil, err
	}
	return n, nil
}
