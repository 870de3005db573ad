//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math/bits"

	"github.com/markkurossi/techmap/aig"
)

// EstimateSwitching estimates the switching activity of all nodes by
// random simulation. The activity of a node with the signal
// probability p is 2p(1-p).
func (m *Manager) EstimateSwitching() error {
	words := m.Params.SimWords
	if words < 1 {
		words = 1
	}
	prg := aig.NewPRG(m.Params.Seed)
	ones := make([]int, len(m.Net.Nodes))

	inputs := make([]uint64, len(m.Net.Inputs))
	for w := 0; w < words; w++ {
		for i := range inputs {
			inputs[i] = prg.Uint64()
		}
		values, err := m.Net.Simulate(inputs)
		if err != nil {
			return err
		}
		for id, v := range values {
			ones[id] += bits.OnesCount64(v)
		}
	}
	total := float64(words * 64)
	for _, id := range m.order {
		p := float64(ones[id]) / total
		m.nodes[id].Switching = 2 * p * (1 - p)
	}
	return nil
}
