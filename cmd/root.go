package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gepon-sim/gepon-sim/sim"
	"github.com/gepon-sim/gepon-sim/sim/observability"
	"github.com/gepon-sim/gepon-sim/sim/trace"
	"github.com/gepon-sim/gepon-sim/sim/workload"
)

var (
	// CLI flags for the model parameters; defaults are the reference parameter set
	flagOpts = sim.DefaultOptions()

	// CLI flags for I/O and reporting
	configPath      string // YAML parameter file
	arrivalsPath    string // arrival timestamps, "-" for stdin
	outputPath      string // trace output, "-" for stdout
	logLevel        string // Log verbosity level
	printMetrics    bool   // print the run summary to stderr
	metricsTextfile string // Prometheus textfile destination
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gepon-sim",
	Short: "Discrete-event simulator of upstream sleep mode for an ONU under cyclic DBA",
}

// runCmd executes the simulation using parameters from CLI flags and the optional config file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation, reading arrival times and writing the event trace",
	Long: `Reads packet arrival timestamps (seconds, whitespace separated, non-decreasing)
and writes one trace line per queue or phase event:

  I <size> <queue> @ <t>    packet enqueued
  D <bits> <queue> @ <t>    drain request
  L <size> <queue> @ <t>    packet transmitted
  C <old> → <new> @ <t>     phase change (OFF, TON, ON, TOFF)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)

		opts, err := resolveOptions(cmd.Flags(), flagOpts, configPath)
		if err != nil {
			return err
		}
		params := sim.NewParams(opts)
		if err := params.Validate(); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}
		rng, err := sim.NewDeviateSource(opts.Deviates, opts.Seed)
		if err != nil {
			return err
		}

		// Configuration is valid; failures from here on are not usage errors.
		cmd.SilenceUsage = true

		in, closeIn, err := openInput(arrivalsPath)
		if err != nil {
			return err
		}
		defer closeIn()
		out, closeOut, err := openOutput(outputPath)
		if err != nil {
			return err
		}

		logrus.Infof("Starting simulation: psize=%db qw=%db uplink=%vb/s avg=%vb/s cycle=%vs wakeup=%vs max-off=%vs horizon=%vs seed=%d rng=%s",
			params.PacketBits, params.WatermarkBits, params.CapacityBps, params.AllocatedBps,
			params.CycleLen, params.WakeupLen, params.MaxOff(), params.Horizon, params.Seed, opts.Deviates)
		startTime := time.Now()

		s, runErr := runSimulation(params, workload.NewTextFeed(in), rng, out)
		if err := closeOut(); err != nil && runErr == nil {
			runErr = fmt.Errorf("closing trace output: %w", err)
		}
		if runErr != nil {
			return runErr
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))

		if printMetrics {
			s.Metrics.Print(cmd.ErrOrStderr())
		}
		if metricsTextfile != "" {
			return exportMetrics(s.Metrics, params, metricsTextfile)
		}
		return nil
	},
}

// runSimulation runs one simulation writing its trace to out.
func runSimulation(p sim.Params, feed sim.ArrivalFeed, rng sim.DeviateSource, out io.Writer) (*sim.Simulator, error) {
	s := sim.NewSimulator(p, feed, rng, trace.NewWriter(out))
	if err := s.Run(); err != nil {
		return nil, err
	}
	return s, nil
}

// exportMetrics writes the run metrics as Prometheus series labelled with the
// parameters most often swept.
func exportMetrics(m *sim.Metrics, p sim.Params, path string) error {
	reg := prometheus.NewRegistry()
	c, err := observability.NewRunCollector(reg, prometheus.Labels{
		"watermark_bits": strconv.FormatInt(p.WatermarkBits, 10),
		"cycle_s":        strconv.FormatFloat(p.CycleLen, 'g', -1, 64),
		"seed":           strconv.FormatInt(p.Seed, 10),
	})
	if err != nil {
		return err
	}
	c.Observe(m)
	return c.WriteTextfile(path)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening arrivals: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace output: %w", err)
	}
	return f, f.Close, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	f := runCmd.Flags()

	bindOptionFlags(f, &flagOpts)

	// I/O and reporting
	f.StringVar(&configPath, "config", "", "YAML parameter file; flags given explicitly override it")
	f.StringVar(&arrivalsPath, "arrivals", "-", "Arrival timestamps file (- for stdin)")
	f.StringVarP(&outputPath, "output", "o", "-", "Trace output file (- for stdout)")
	f.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	f.BoolVar(&printMetrics, "metrics", false, "Print a run summary to stderr")
	f.StringVar(&metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
