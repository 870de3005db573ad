//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package mapper

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/markkurossi/techmap/truth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Params specify mapper parameters.
type Params struct {
	Verbose     bool
	Diagnostics bool
	Log         *logrus.Logger

	// K specifies the maximum number of cut leaves.
	K int

	// CutLimit specifies the maximum number of non-trivial cuts kept
	// per node.
	CutLimit int

	// DelayTarget specifies the required time of the primary
	// outputs. The value 0 leaves the delay unconstrained and the
	// area recovery keeps the delay of the delay-optimal mapping.
	DelayTarget float64

	// InputArrival specifies the arrival time of the primary inputs.
	InputArrival float64

	// AreaRecovery enables the area recovery passes. The individual
	// passes are enabled with AreaFlow, ExactArea, ExactAreaPhase,
	// and Switching.
	AreaRecovery    bool
	AreaFlow        bool
	ExactArea       bool
	ExactAreaPhase  bool
	Switching       bool
	SwitchingPasses int

	// SimWords specifies the number of 64-bit random pattern words
	// used in switching activity estimation.
	SimWords int
	Seed     uint64

	// Weights specify the delay model coefficients. The nil value
	// selects the nominal delay model.
	Weights Weights

	Epsilon float64
	Workers int

	Observer Observer
}

// NewParams returns new mapper params object, initialized with the
// default values.
func NewParams() *Params {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	return &Params{
		Log:             log,
		K:               5,
		CutLimit:        250,
		AreaRecovery:    true,
		AreaFlow:        true,
		ExactArea:       true,
		ExactAreaPhase:  true,
		SwitchingPasses: 2,
		SimWords:        16,
		Seed:            1,
		Epsilon:         0.001,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// Validate checks the parameter values.
func (p *Params) Validate() error {
	if p.K < 2 || p.K > truth.MaxVars {
		return errors.Wrapf(ErrParams, "K must be in range [2, %d]: %d",
			truth.MaxVars, p.K)
	}
	if p.CutLimit < 1 {
		return errors.Wrapf(ErrParams, "invalid cut limit %d", p.CutLimit)
	}
	if p.DelayTarget < 0 {
		return errors.Wrapf(ErrParams, "negative delay target %g",
			p.DelayTarget)
	}
	if p.Epsilon < 0 {
		return errors.Wrapf(ErrParams, "negative epsilon %g", p.Epsilon)
	}
	return p.Weights.Validate()
}

func (p *Params) logger() *logrus.Logger {
	if p.Log == nil {
		p.Log = logrus.New()
		p.Log.SetLevel(logrus.WarnLevel)
	}
	switch {
	case p.Diagnostics:
		p.Log.SetLevel(logrus.DebugLevel)
	case p.Verbose:
		if !p.Log.IsLevelEnabled(logrus.InfoLevel) {
			p.Log.SetLevel(logrus.InfoLevel)
		}
	}
	return p.Log
}

// NumWeights specifies the size of the delay model weight vector.
const NumWeights = 10

// Weights holds the coefficients of the load-aware delay model. The
// pin delay from a leaf to a node is computed as:
//
//	trans = w0 * ((est(leaf) + 10*w2) * TransLoad * 10*w3 + TransParasitic * w4)
//	cap   = (1-w0) * ((est(node) + 10*w6) * Fanout * 10*w7 + Block * w8)
//	delay = trans + cap
//
// where est() is the estimated fanout count of the node phase. The
// coefficients w1 and w5 scale the calibrated fanout corrections
// that the engine leaves at zero, and w9 is carried for the external
// search but not consumed by the model.
type Weights []float64

// weightBounds holds the accepted range of each weight.
var weightBounds = [NumWeights][2]float64{
	{0, 1}, {0, 0.5}, {0, 0.5}, {0, 1}, {0.5, 2},
	{0, 0.5}, {0, 0.5}, {0, 1}, {0.5, 2}, {0, 1},
}

// Preset weight vectors.
var (
	ExpertWeights = Weights{0.5, 0.3, 0.1, 0.5, 1.0, 0.3, 0.1, 0.25, 1.0, 0.5}

	PresetWeights = []Weights{
		{0.736, 0.144, 0.349, 0.458, 1.025, 0.407, 0.020, 0.889, 1.288, 0.252},
		ExpertWeights,
		{0.348, 0.061, 0.017, 0.146, 1.832, 0.411, 0.260, 0.050, 1.954, 0.782},
	}
)

// ParseWeights parses a comma-separated weight vector. The empty
// string and "nominal" select the nominal delay model.
func ParseWeights(s string) (Weights, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "nominal":
		return nil, nil
	case "expert":
		return ExpertWeights, nil
	}
	var w Weights
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrParams, "invalid weight '%s'", part)
		}
		w = append(w, v)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks the weight vector.
func (w Weights) Validate() error {
	if w == nil {
		return nil
	}
	if len(w) != NumWeights {
		return errors.Wrapf(ErrParams, "expected %d weights, got %d",
			NumWeights, len(w))
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrParams, "weight %d is not finite", i)
		}
		b := weightBounds[i]
		if v < b[0] || v > b[1] {
			return errors.Wrapf(ErrParams, "weight %d: %v not in [%v,%v]",
				i, v, b[0], b[1])
		}
	}
	return nil
}

// Nominal tests if the weights select the nominal delay model.
func (w Weights) Nominal() bool {
	return len(w) == 0
}

func (w Weights) String() string {
	if w.Nominal() {
		return "nominal"
	}
	parts := make([]string, len(w))
	for i, v := range w {
		parts[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return strings.Join(parts, ",")
}
