//
// main.go
//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"
	"os"

	"github.com/markkurossi/techmap/aig"
	"github.com/markkurossi/techmap/library"
	"github.com/markkurossi/techmap/mapper"
	"github.com/markkurossi/techmap/metrics"
	"github.com/markkurossi/techmap/netlist"
	"github.com/markkurossi/techmap/sta"
	"github.com/markkurossi/techmap/tune"
	"github.com/markkurossi/techmap/verify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "techmap [flags] [input.aag|input.aig]",
	Short: "map and-inverter graphs into library cells.",
	Long: `Map an and-inverter graph into a netlist of library cells. The
	input is read from an ASCII or binary AIGER file or, if no file is given,
	a random network is generated.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("library", "l", "", "cell library YAML file")
	flags.Int("k", 5, "maximum number of cut leaves")
	flags.Int("cut-limit", 250, "maximum number of cuts per node")
	flags.Float64("target", 0, "delay target (0 for delay optimal)")
	flags.String("weights", "", "delay model weights: nominal, expert, or 10 comma separated values")
	flags.Bool("no-recovery", false, "disable area recovery")
	flags.Bool("area-flow", true, "run area flow recovery")
	flags.Bool("exact-area", true, "run exact area recovery")
	flags.Bool("exact-area-phase", true, "run exact area recovery with phase assignment")
	flags.Bool("switching", false, "run switching activity recovery")
	flags.Int("max-fanout", 0, "buffer wires with larger fanout (0 disables)")
	flags.Bool("tune", false, "select the delay model weights from presets")
	flags.Bool("verify", false, "verify the mapped netlist")
	flags.Bool("timing", false, "print stage timing")
	flags.Bool("critical", false, "print the critical path")
	flags.Bool("dump", false, "dump the subject graph and the mapped nodes")
	flags.Bool("metrics", false, "print mapping metrics")
	flags.String("dot", "", "write the netlist as graphviz dot to file")
	flags.String("aag", "", "write the input network to AIGER file")
	flags.Uint64("seed", 1, "random network seed")
	flags.IntSlice("random", []int{16, 500, 8},
		"random network inputs, ands, and outputs")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("diagnostics", false, "diagnostics output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	net, err := readNetwork(cmd, args)
	if err != nil {
		return err
	}
	lib, err := readLibrary(cmd)
	if err != nil {
		return err
	}
	verbose, _ := flags.GetBool("verbose")
	if verbose {
		fmt.Println(lib)
	}

	params := mapper.NewParams()
	params.Verbose = verbose
	params.Diagnostics, _ = flags.GetBool("diagnostics")
	params.K, _ = flags.GetInt("k")
	params.CutLimit, _ = flags.GetInt("cut-limit")
	params.DelayTarget, _ = flags.GetFloat64("target")
	params.AreaFlow, _ = flags.GetBool("area-flow")
	params.ExactArea, _ = flags.GetBool("exact-area")
	params.ExactAreaPhase, _ = flags.GetBool("exact-area-phase")
	params.Switching, _ = flags.GetBool("switching")

	noRecovery, _ := flags.GetBool("no-recovery")
	params.AreaRecovery = !noRecovery
	if params.Switching && !flags.Changed("exact-area") {
		params.ExactArea = false
	}
	log.SetLevel(log.WarnLevel)
	params.Log = log.StandardLogger()

	ws, _ := flags.GetString("weights")
	params.Weights, err = mapper.ParseWeights(ws)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	params.Observer = recorder

	var transform netlist.Transform
	if maxFanout, _ := flags.GetInt("max-fanout"); maxFanout > 0 {
		transform = &netlist.FanoutBuffer{
			Lib:       lib,
			MaxFanout: maxFanout,
		}
	}
	analyzer := &sta.LoadAnalyzer{
		InputArrival: params.InputArrival,
	}

	var m *mapper.Manager
	var nl *netlist.Netlist
	var report *sta.Report

	if doTune, _ := flags.GetBool("tune"); doTune {
		result, err := tune.Run(net, lib, &tune.Config{
			Params:    params,
			Analyzer:  analyzer,
			Transform: transform,
		})
		if err != nil {
			return err
		}
		result.Print(os.Stdout)
		m = result.Manager
		nl = result.Netlist
		report = result.Report
	} else {
		m, err = mapper.New(net, lib, params)
		if err != nil {
			return err
		}
		if err := m.Map(); err != nil {
			return err
		}
		nl, err = netlist.FromMapping(m)
		if err != nil {
			return err
		}
		if transform != nil {
			nl, err = transform.Apply(nl)
			if err != nil {
				return err
			}
		}
		report, err = analyzer.Analyze(nl)
		if err != nil {
			return err
		}
	}

	m.Stats().Print(os.Stdout)
	fmt.Printf("%s\n", nl.Stats())
	fmt.Printf("delay=%.2f (sta %.2f) area=%.2f (base %.2f)\n",
		m.Delay(), report.Delay, nl.Area(), m.AreaBase)
	if hasChoices(net) {
		fmt.Println(m.ReportChoices())
	}

	if show, _ := flags.GetBool("timing"); show {
		m.Timing().Print(os.Stdout)
	}
	if show, _ := flags.GetBool("critical"); show {
		report.Print(os.Stdout)
	}
	if show, _ := flags.GetBool("dump"); show {
		net.Dump(os.Stdout)
		m.Dump(os.Stdout)
	}
	if check, _ := flags.GetBool("verify"); check {
		result, err := verify.Equivalent(net, nl)
		if err != nil {
			return err
		}
		fmt.Printf("verify: %s\n", result)
		if !result.Equivalent {
			return fmt.Errorf("mapped netlist is not equivalent")
		}
	}
	if file, _ := flags.GetString("dot"); len(file) > 0 {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		nl.Dot(f)
		if err := f.Close(); err != nil {
			return err
		}
	}
	if file, _ := flags.GetString("aag"); len(file) > 0 {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		if err := net.WriteAAG(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if show, _ := flags.GetBool("metrics"); show {
		return recorder.Write(os.Stdout)
	}
	return nil
}

func readNetwork(cmd *cobra.Command, args []string) (*aig.Network, error) {
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return aig.ReadAIGER(f)
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	shape, _ := cmd.Flags().GetIntSlice("random")
	if len(shape) != 3 {
		return nil, fmt.Errorf("invalid random network shape %v", shape)
	}
	return aig.Random(seed, shape[0], shape[1], shape[2]), nil
}

func readLibrary(cmd *cobra.Command) (*library.Library, error) {
	file, _ := cmd.Flags().GetString("library")
	if len(file) == 0 {
		return library.Default(), nil
	}
	return library.LoadFile(file)
}

func hasChoices(net *aig.Network) bool {
	for _, n := range net.Nodes {
		if len(n.Choices) > 0 {
			return true
		}
	}
	return false
}
