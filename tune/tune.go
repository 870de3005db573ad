//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

// Package tune selects the delay model weight vector by mapping the
// network with candidate vectors and comparing the analyzed results.
// Each trial maps with a fresh manager so no state is shared between
// the trials.
package tune

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"
	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/mapper"
	"github.com/markkurossi/techmap/netlist"
	"github.com/markkurossi/techmap/sta"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Trial holds the result of mapping with one weight vector.
type Trial struct {
	Weights   mapper.Weights
	Delay     float64
	Area      float64
	Objective float64
	Report    *sta.Report
	Duration  time.Duration
}

// Calibrate is called with the analyzed trial and the weight vector
// scheduled for the next trial. The returned vector is used for the
// next trial only.
type Calibrate func(t *Trial, next mapper.Weights) mapper.Weights

// Config specifies the trial loop.
type Config struct {
	// Params specify the base mapper parameters. Each trial uses a
	// copy with the trial's weight vector.
	Params *mapper.Params

	// Candidates lists the weight vectors to try. The default is
	// mapper.PresetWeights.
	Candidates []mapper.Weights

	Analyzer  sta.Analyzer
	Transform netlist.Transform
	Calibrate Calibrate
}

// Result holds the trial loop result.
type Result struct {
	Trials []*Trial
	Best   int

	// Manager, Netlist, and Report hold the final mapping with the
	// best weight vector and full area recovery.
	Manager *mapper.Manager
	Netlist *netlist.Netlist
	Report  *sta.Report
}

// Run runs the trial loop.
func Run(net *aig.Network, lib *library.Library, cfg *Config) (
	*Result, error) {

	if cfg == nil {
		cfg = &Config{}
	}
	base := cfg.Params
	if base == nil {
		base = mapper.NewParams()
	}
	candidates := cfg.Candidates
	if len(candidates) == 0 {
		candidates = mapper.PresetWeights
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = &sta.LoadAnalyzer{
			InputArrival: base.InputArrival,
		}
	}
	log := base.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	result := &Result{
		Best: -1,
	}
	var firstDelay, firstArea float64

	weights := candidates[0]
	for i := range candidates {
		start := time.Now()

		params := *base
		params.Weights = weights
		params.AreaRecovery = false

		_, nl, report, err := mapOnce(net, lib, &params, cfg.Transform,
			analyzer)
		if err != nil {
			return nil, errors.Wrapf(err, "trial %d", i)
		}
		trial := &Trial{
			Weights:  weights,
			Delay:    report.Delay,
			Area:     nl.Area(),
			Report:   report,
			Duration: time.Since(start),
		}
		if i == 0 {
			firstDelay = nonZero(trial.Delay)
			firstArea = nonZero(trial.Area)
		}
		trial.Objective = trial.Delay/firstDelay + trial.Area/firstArea
		result.Trials = append(result.Trials, trial)

		if result.Best < 0 ||
			trial.Objective < result.Trials[result.Best].Objective {
			result.Best = i
		}
		log.WithFields(logrus.Fields{
			"trial":     i,
			"delay":     trial.Delay,
			"area":      trial.Area,
			"objective": trial.Objective,
		}).Info("tune")

		if i+1 < len(candidates) {
			weights = candidates[i+1]
			if cfg.Calibrate != nil {
				weights = cfg.Calibrate(trial, weights)
			}
		}
	}

	params := *base
	params.Weights = result.Trials[result.Best].Weights
	params.AreaRecovery = true

	m, nl, report, err := mapOnce(net, lib, &params, cfg.Transform, analyzer)
	if err != nil {
		return nil, errors.Wrap(err, "final mapping")
	}
	result.Manager = m
	result.Netlist = nl
	result.Report = report

	return result, nil
}

func mapOnce(net *aig.Network, lib *library.Library, params *mapper.Params,
	tr netlist.Transform, analyzer sta.Analyzer) (
	*mapper.Manager, *netlist.Netlist, *sta.Report, error) {

	m, err := mapper.New(net, lib, params)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := m.Map(); err != nil {
		return nil, nil, nil, err
	}
	nl, err := netlist.FromMapping(m)
	if err != nil {
		return nil, nil, nil, err
	}
	if tr != nil {
		nl, err = tr.Apply(nl)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, tr.Name())
		}
	}
	report, err := analyzer.Analyze(nl)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, nl, report, nil
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// Print prints the trial results to out.
func (r *Result) Print(out io.Writer) {
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Trial").SetAlign(tabulate.MR)
	tab.Header("Weights").SetAlign(tabulate.ML)
	tab.Header("Delay").SetAlign(tabulate.MR)
	tab.Header("Area").SetAlign(tabulate.MR)
	tab.Header("Objective").SetAlign(tabulate.MR)

	for i, t := range r.Trials {
		row := tab.Row()
		col := row.Column(fmt.Sprintf("%d", i))
		if i == r.Best {
			col.SetFormat(tabulate.FmtBold)
		}
		row.Column(t.Weights.String())
		row.Column(fmt.Sprintf("%.2f", t.Delay))
		row.Column(fmt.Sprintf("%.2f", t.Area))
		row.Column(fmt.Sprintf("%.3f", t.Objective))
	}
	tab.Print(out)
}
