//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"fmt"
)

// Mode defines the mapping objective of a matching pass.
type Mode int

// Mapping modes.
const (
	ModeDelay Mode = iota
	ModeAreaFlow
	ModeExactArea
	ModeExactAreaPhase
	ModeSwitching
)

var modeNames = map[Mode]string{
	ModeDelay:          "delay",
	ModeAreaFlow:       "area-flow",
	ModeExactArea:      "exact-area",
	ModeExactAreaPhase: "exact-area-phase",
	ModeSwitching:      "switching",
}

func (m Mode) String() string {
	name, ok := modeNames[m]
	if ok {
		return name
	}
	return fmt.Sprintf("{Mode %d}", m)
}

// Constrained tests if the mode enforces the required times.
func (m Mode) Constrained() bool {
	return m != ModeDelay
}

// Exact tests if the mode computes exact areas by referencing and
// dereferencing the match cones.
func (m Mode) Exact() bool {
	return m == ModeExactArea || m == ModeExactAreaPhase ||
		m == ModeSwitching
}

// CostModel compares candidate matches of a node phase.
type CostModel interface {
	// Mode returns the mapping mode of the cost model.
	Mode() Mode

	// Less tests if the match a is strictly better than b. Costs
	// closer than eps are considered equal.
	Less(a, b *Match, eps float64) bool

	// Primary returns the primary cost of the match.
	Primary(a *Match) float64
}

// lexLess compares the cost vectors lexicographically.
func lexLess(a, b []float64, eps float64) bool {
	for i := range a {
		if a[i] < b[i]-eps {
			return true
		}
		if a[i] > b[i]+eps {
			return false
		}
	}
	return false
}

func numInputs(a *Match) float64 {
	if a.Super == nil {
		return 0
	}
	return float64(a.Super.NumInputs)
}

// DelayCost minimizes arrival time, then area flow.
type DelayCost struct{}

// Mode implements CostModel.Mode.
func (DelayCost) Mode() Mode {
	return ModeDelay
}

// Less implements CostModel.Less.
func (DelayCost) Less(a, b *Match, eps float64) bool {
	return lexLess(
		[]float64{a.Arrival.Worst, a.AreaFlow, numInputs(a)},
		[]float64{b.Arrival.Worst, b.AreaFlow, numInputs(b)}, eps)
}

// Primary implements CostModel.Primary.
func (DelayCost) Primary(a *Match) float64 {
	return a.Arrival.Worst
}

// AreaFlowCost minimizes area flow, then arrival time.
type AreaFlowCost struct{}

// Mode implements CostModel.Mode.
func (AreaFlowCost) Mode() Mode {
	return ModeAreaFlow
}

// Less implements CostModel.Less.
func (AreaFlowCost) Less(a, b *Match, eps float64) bool {
	return lexLess(
		[]float64{a.AreaFlow, a.Arrival.Worst, numInputs(a)},
		[]float64{b.AreaFlow, b.Arrival.Worst, numInputs(b)}, eps)
}

// Primary implements CostModel.Primary.
func (AreaFlowCost) Primary(a *Match) float64 {
	return a.AreaFlow
}

// ExactAreaCost minimizes exact area, then arrival time.
type ExactAreaCost struct{}

// Mode implements CostModel.Mode.
func (ExactAreaCost) Mode() Mode {
	return ModeExactArea
}

// Less implements CostModel.Less.
func (ExactAreaCost) Less(a, b *Match, eps float64) bool {
	return exactLess(a, b, eps)
}

// Primary implements CostModel.Primary.
func (ExactAreaCost) Primary(a *Match) float64 {
	return a.Area
}

func exactLess(a, b *Match, eps float64) bool {
	return lexLess(
		[]float64{a.Area, a.Arrival.Worst, numInputs(a)},
		[]float64{b.Area, b.Arrival.Worst, numInputs(b)}, eps)
}

// ExactAreaPhaseCost minimizes exact area like ExactAreaCost but
// also decides the phase implementations with exact costs.
type ExactAreaPhaseCost struct{}

// Mode implements CostModel.Mode.
func (ExactAreaPhaseCost) Mode() Mode {
	return ModeExactAreaPhase
}

// Less implements CostModel.Less.
func (ExactAreaPhaseCost) Less(a, b *Match, eps float64) bool {
	return exactLess(a, b, eps)
}

// Primary implements CostModel.Primary.
func (ExactAreaPhaseCost) Primary(a *Match) float64 {
	return a.Area
}

// SwitchingCost minimizes switching activity, then exact area.
type SwitchingCost struct{}

// Mode implements CostModel.Mode.
func (SwitchingCost) Mode() Mode {
	return ModeSwitching
}

// Less implements CostModel.Less.
func (SwitchingCost) Less(a, b *Match, eps float64) bool {
	return lexLess(
		[]float64{a.Switching, a.Area, a.Arrival.Worst},
		[]float64{b.Switching, b.Area, b.Arrival.Worst}, eps)
}

// Primary implements CostModel.Primary.
func (SwitchingCost) Primary(a *Match) float64 {
	return a.Switching
}
