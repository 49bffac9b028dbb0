package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/clothsim/internal/sim"
	"github.com/san-kum/clothsim/internal/viz"
)

// options collects the flags shared by the run-style commands.
type options struct {
	dataDir string

	configFile   string
	preset       string
	name         string
	dt           float64
	duration     float64
	integrator   string
	pinMode      string
	numX, numY   int
	sampleEvery  int
	stopUnstable bool
	sets         []string

	frames        bool
	plotSeries    []string
	analyzeSeries []string
	seriesName    string
	particle      int
	axis          string
	output        string
	frameIndex    int
	allSprings    bool
	seconds       float64

	sweeps       []string
	metric       string
	maximize     bool
	skipUnstable bool

	theme string
}

// main is the entry point for the clothsim CLI. It exits with status 1 if
// the command fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "clothsim",
		Short: "mass-spring cloth simulation lab",
		Long: "clothsim simulates a rectangular cloth as particles joined by structure,\n" +
			"shear and bend springs. Runs are saved under the data directory for\n" +
			"plotting, analysis and export.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&o.dataDir, "data", ".clothsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a headless simulation and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.runSimulation,
	}
	o.setupFlags(runCmd)
	runCmd.Flags().StringVar(&o.name, "name", "", "run name (defaults to the preset name)")
	runCmd.Flags().BoolVar(&o.frames, "frames", false, "record particle positions with every sample")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  o.listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy and stretch series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  o.plotRun,
	}
	plotCmd.Flags().StringSliceVar(&o.plotSeries, "series", []string{"kinetic", "total", "stretch"},
		"series to plot (kinetic, gravitational, elastic, total, stretch)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a run series",
		Args:  cobra.ExactArgs(1),
		RunE:  o.analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&o.analyzeSeries, "series", []string{"kinetic"}, "series to analyze")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "position/velocity portrait of one particle (needs --frames runs)",
		Args:  cobra.ExactArgs(1),
		RunE:  o.phasePlot,
	}
	phaseCmd.Flags().IntVar(&o.particle, "particle", -1, "particle index (default: bottom-middle)")
	phaseCmd.Flags().StringVar(&o.axis, "axis", "y", "coordinate: x, y or z")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a run's series (or frames) as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  o.exportCSV,
	}
	exportCSVCmd.Flags().BoolVar(&o.frames, "frames", false, "export frames instead of the series")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  o.exportJSON,
	}
	exportJSONCmd.Flags().BoolVar(&o.frames, "frames", false, "include recorded frames")
	exportJSONCmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a recorded frame or a series as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  o.exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&o.frameIndex, "frame", -1, "frame index (default: last)")
	exportSVGCmd.Flags().BoolVar(&o.allSprings, "all", false, "draw shear and bend springs too")
	exportSVGCmd.Flags().StringVar(&o.seriesName, "series", "", "plot this series instead of a frame")
	exportSVGCmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default stdout)")

	exportWAVCmd := &cobra.Command{
		Use:   "export-wav [run_id]",
		Short: "sonify a run series as a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE:  o.exportWAV,
	}
	exportWAVCmd.Flags().StringVar(&o.seriesName, "series", "", "series that drives the pitch (default total)")
	exportWAVCmd.Flags().Float64Var(&o.seconds, "seconds", 0, "length of the sound (default 4)")
	exportWAVCmd.Flags().StringVarP(&o.output, "output", "o", "", "output file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		Args:  cobra.NoArgs,
		RunE:  o.listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file to start from",
		Args:  cobra.ExactArgs(1),
		RunE:  o.initConfig,
	}
	initCmd.Flags().StringVar(&o.preset, "preset", "", "start from a preset")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator...]",
		Short: "run the same cloth with several integrators in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE:  o.compareIntegrators,
	}
	o.setupFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "measure step throughput across grid sizes and integrators",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.bench,
	}
	benchCmd.Flags().StringVar(&o.configFile, "config", "", "config file path (yaml)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "grid search over config parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.sweep,
	}
	o.setupFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&o.sweeps, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&o.metric, "metric", "max_stretch", "metric to score")
	sweepCmd.Flags().BoolVar(&o.maximize, "maximize", false, "pick the highest score instead of the lowest")
	sweepCmd.Flags().BoolVar(&o.skipUnstable, "skip-unstable", true, "never pick runs that went unstable")

	watchCmd := &cobra.Command{
		Use:   "watch [preset]",
		Short: "simulate live in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.watch,
	}
	o.setupFlags(watchCmd)
	watchCmd.Flags().StringVar(&o.theme, "theme", viz.Themes[0].Name, "color theme")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, exportWAVCmd, presetsCmd, initCmd, compareCmd, benchCmd, sweepCmd, watchCmd)
	return rootCmd
}

// setupFlags registers the overrides applied on top of a preset or file.
func (o *options) setupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.configFile, "config", "", "config file path (yaml)")
	f.StringVar(&o.preset, "preset", "", "use preset configuration")
	f.Float64Var(&o.dt, "dt", 0, "timestep")
	f.Float64Var(&o.duration, "time", 0, "duration in seconds")
	f.StringVar(&o.integrator, "integrator", "", "euler, rk4 or verlet")
	f.StringVar(&o.pinMode, "pins", "", "none, four_corners or top_corners")
	f.IntVar(&o.numX, "nx", 0, "grid cells along x")
	f.IntVar(&o.numY, "ny", 0, "grid cells along y")
	f.IntVar(&o.sampleEvery, "sample-every", 0, "steps between samples")
	f.BoolVar(&o.stopUnstable, "stop-on-instability", false, "end the run at the first instability")
	f.StringArrayVar(&o.sets, "set", nil, "override a parameter, e.g. structure.stiffness=5 (repeatable)")
}

// seriesOf returns the requested series of a result-like sample set.
func seriesOf(samples []sim.Sample, name string) ([]float64, error) {
	r := sim.Result{Samples: samples}
	return r.Series(name)
}
