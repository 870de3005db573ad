//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var modeStates = map[Mode]State{
	ModeDelay:          StateDelay,
	ModeAreaFlow:       StateAreaFlow,
	ModeExactArea:      StateExactArea,
	ModeExactAreaPhase: StateExactAreaPhase,
	ModeSwitching:      StateSwitching,
}

// Map runs the mapping pipeline: cut enumeration, truth table
// computation, delay-oriented matching, and the enabled area
// recovery passes. A manager that failed must be reset before
// mapping again.
func (m *Manager) Map() error {
	if m.state == StateFailed {
		return ErrNeedsReset
	}
	m.timing.Reset()
	m.stats.Passes = nil

	if m.state == StateStart {
		if err := m.ComputeCuts(); err != nil {
			return err
		}
	}
	if m.state == StateCuts {
		if err := m.ComputeTruths(); err != nil {
			return err
		}
	}
	if m.state != StateTruths {
		m.Reset()
	}

	if err := m.pass(DelayCost{}); err != nil {
		return err
	}
	m.AreaBase = m.Area()
	m.AreaFinal = m.AreaBase

	if m.Params.AreaRecovery {
		if err := m.recover(); err != nil {
			return err
		}
	}
	m.AreaFinal = m.Area()
	m.state = StateDone

	m.log.Infof("mapped: delay=%.2f area=%.2f (%.2f)", m.Delay(),
		m.AreaFinal, m.AreaBase)
	return nil
}

func (m *Manager) recover() error {
	p := m.Params

	if p.Switching {
		if err := m.EstimateSwitching(); err != nil {
			return m.fail("switching", err)
		}
	}
	if p.AreaFlow {
		m.EstimateRefs()
		if err := m.pass(AreaFlowCost{}); err != nil {
			return err
		}
	}
	if p.ExactArea {
		if err := m.pass(ExactAreaCost{}); err != nil {
			return err
		}
	}
	if p.ExactAreaPhase {
		if err := m.pass(ExactAreaPhaseCost{}); err != nil {
			return err
		}
	}
	if p.Switching {
		for i := 0; i < p.SwitchingPasses; i++ {
			if err := m.pass(SwitchingCost{}); err != nil {
				return err
			}
		}
	}
	return nil
}

// objective returns the mapping objective value of the mode.
func (m *Manager) objective(mode Mode) float64 {
	if mode == ModeSwitching {
		return m.Switching()
	}
	return m.Area()
}

// pass runs one matching pass with the cost model. The recovery
// passes are run under the required times of the current mapping
// and their result is discarded if it does not improve the
// objective.
func (m *Manager) pass(model CostModel) error {
	start := time.Now()
	mode := model.Mode()

	var snap [][2]Selection
	var before float64
	if mode.Constrained() {
		m.ComputeArrivals()
		m.ComputeRequired()
		snap = m.snapshot()
		before = m.objective(mode)
	}
	required := time.Now()

	if err := m.Match(model); err != nil {
		return err
	}
	matched := time.Now()
	m.SetRefs()

	var restored bool
	if mode.Constrained() && m.objective(mode) > before+m.Params.Epsilon {
		m.log.Debugf("%s: objective %.3f > %.3f, restoring", mode,
			m.objective(mode), before)
		m.restore(snap)
		m.SetRefs()
		restored = true
	}
	m.ComputeArrivals()

	result := PassResult{
		Mode:      mode,
		Delay:     m.Delay(),
		Area:      m.Area(),
		AreaFlow:  m.AreaFlow(),
		Switching: m.Switching(),
		Restored:  restored,
		Duration:  time.Since(start),
	}
	m.stats.Passes = append(m.stats.Passes, result)
	m.state = modeStates[mode]

	entry := m.log.WithFields(logrus.Fields{
		"stage": mode.String(),
		"delay": result.Delay,
		"flow":  result.AreaFlow,
		"area":  result.Area,
	})
	if mode.Constrained() {
		entry = entry.WithField("gain", before-m.objective(mode))
	}
	entry.Info("pass")
	sample := m.timing.Sample(mode.String(), []string{
		fmt.Sprintf("%.2f", result.Delay),
		fmt.Sprintf("%.2f", result.Area),
	})
	if mode.Constrained() {
		sample.SubSample("Required", required)
	}
	sample.SubSample("Match", matched)
	sample.SubSample("Refs", sample.End)
	if m.Params.Observer != nil {
		m.Params.Observer.ObservePass(result)
	}
	return nil
}

func (m *Manager) snapshot() [][2]Selection {
	result := make([][2]Selection, len(m.nodes))
	for _, id := range m.order {
		result[id] = m.nodes[id].Best
	}
	return result
}

func (m *Manager) restore(snap [][2]Selection) {
	for _, id := range m.order {
		m.nodes[id].Best = snap[id]
	}
}
