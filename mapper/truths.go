//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const truthChunk = 256

// ComputeTruths computes the truth tables of all cuts. The nodes are
// processed in parallel by Params.Workers goroutines.
func (m *Manager) ComputeTruths() error {
	if m.state == StateFailed {
		return ErrNeedsReset
	}
	if !m.haveCuts {
		return errors.Wrap(ErrState, "cuts not computed")
	}
	workers := m.Params.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for start := 0; start < len(m.order); start += truthChunk {
		end := start + truthChunk
		if end > len(m.order) {
			end = len(m.order)
		}
		ids := m.order[start:end]
		g.Go(func() error {
			memo := make(map[int]uint64)
			for _, id := range ids {
				n := m.nodes[id]
				for i := range n.Cuts {
					t, err := m.cutTruth(&n.Cuts[i], memo)
					if err != nil {
						return errors.Wrapf(err, "n%d", id)
					}
					n.Cuts[i].Truth = t
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return m.fail("truths", err)
	}
	m.haveTruths = true
	m.state = StateTruths
	m.timing.Sample("Truths", []string{"", ""})

	return nil
}

// cutTruth computes the function of the cut root over the cut
// leaves.
func (m *Manager) cutTruth(c *Cut, memo map[int]uint64) (truth.Table, error) {
	clear(memo)
	nv := len(c.Leaves)
	for i, leaf := range c.Leaves {
		memo[leaf] = truth.Var(i, nv).Bits
	}
	v, err := m.coneValue(c.Root, memo)
	if err != nil {
		return truth.Table{}, err
	}
	if c.Compl {
		v = ^v
	}
	return truth.Table{
		Bits: v,
		Vars: uint8(nv),
	}, nil
}

func (m *Manager) coneValue(id int, memo map[int]uint64) (uint64, error) {
	if v, ok := memo[id]; ok {
		return v, nil
	}
	subj := m.Net.Nodes[id]

	var v uint64
	switch subj.Kind {
	case aig.Const:

	case aig.And:
		f0, f1 := subj.Fanin0, subj.Fanin1
		if m.Net.Nodes[f1.ID()].Kind == aig.Const {
			f0, f1 = f1, f0
		}
		v0, err := m.refValue(f0, memo)
		if err != nil {
			return 0, err
		}
		if v0 == 0 {
			break
		}
		v1, err := m.refValue(f1, memo)
		if err != nil {
			return 0, err
		}
		v = v0 & v1

	case aig.Buf:
		var err error
		v, err = m.refValue(subj.Fanin0, memo)
		if err != nil {
			return 0, err
		}

	default:
		return 0, errors.Wrapf(ErrStructural,
			"cut does not cover the cone of n%d", id)
	}
	memo[id] = v
	return v, nil
}

func (m *Manager) refValue(r aig.Ref, memo map[int]uint64) (uint64, error) {
	v, err := m.coneValue(r.ID(), memo)
	if err != nil {
		return 0, err
	}
	if r.Compl() {
		v = ^v
	}
	return v, nil
}
