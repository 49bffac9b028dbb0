package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/clothsim/internal/analysis"
	"github.com/san-kum/clothsim/internal/audio"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/experiment"
	"github.com/san-kum/clothsim/internal/export"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/metrics"
	"github.com/san-kum/clothsim/internal/optim"
	"github.com/san-kum/clothsim/internal/storage"
	"github.com/san-kum/clothsim/internal/viz"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
)

// resolve builds the config for a run-style command: a config file wins
// over a preset, and explicitly set flags win over both.
func (o *options) resolve(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	preset := o.preset
	if len(args) > 0 {
		preset = args[0]
	}

	cfg, err := experiment.NewRegistry().Resolve(preset, o.configFile)
	if err != nil {
		return nil, "", err
	}

	name := preset
	switch {
	case o.configFile != "":
		name = strings.TrimSuffix(filepath.Base(o.configFile), filepath.Ext(o.configFile))
	case name == "":
		name = "default"
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = o.dt
	}
	if flags.Changed("time") {
		cfg.Duration = o.duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = o.integrator
	}
	if flags.Changed("pins") {
		cfg.PinMode = o.pinMode
	}
	if flags.Changed("nx") {
		cfg.NumX = o.numX
	}
	if flags.Changed("ny") {
		cfg.NumY = o.numY
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = o.sampleEvery
	}
	if flags.Changed("stop-on-instability") {
		cfg.PauseOnInstability = o.stopUnstable
	}
	if err := cfg.ApplyAssignments(o.sets); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func (o *options) runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := o.resolve(cmd, args)
	if err != nil {
		return err
	}
	if o.name != "" {
		name = o.name
	}

	st := storage.New(o.dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(name, cfg)
	exp.RecordFrames(o.frames)
	if err := exp.Setup(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %dx%d grid, %s, dt=%g, %gs\n",
		titleStyle.Render("running"), name, cfg.NumX, cfg.NumY, cfg.Integrator, cfg.Dt, cfg.Duration)

	result, runErr := exp.Run(cmd.Context())
	if result == nil {
		return runErr
	}

	runID, err := st.Save(name, cfg, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s in %v\n", okStyle.Render("completed"), exp.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("run id:"), runID)
	fmt.Fprintf(out, "%s %d\n", labelStyle.Render("steps:"), result.StepsTaken)
	fmt.Fprintf(out, "%s %d\n", labelStyle.Render("samples:"), len(result.Samples))
	if len(result.Frames) > 0 {
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("frames:"), len(result.Frames))
	}
	if n := len(result.Instabilities); n > 0 {
		first := result.Instabilities[0]
		fmt.Fprintf(out, "%s %d unstable steps, first at step %d (t=%.3fs)\n",
			warnStyle.Render("warning:"), n, first.Step, first.Time)
	}
	if err := result.Err(); err != nil {
		fmt.Fprintf(out, "%s %v\n", warnStyle.Render("stopped early:"), err)
	}

	fmt.Fprintln(out, "\nmetrics:")
	printMetrics(out, result.Metrics)
	return runErr
}

func printMetrics(out io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %.6g\n", name, m[name])
	}
}

func (o *options) listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(o.dataDir).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tGRID\tDT\tDURATION\tINTEG\tPINS\tSTEPS\tUNSTABLE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%.4fs\t%.2fs\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumX, run.NumY,
			run.Dt,
			run.Duration,
			run.Integrator,
			run.PinMode,
			run.Steps,
			run.Instabilities,
		)
	}
	return w.Flush()
}

func (o *options) plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(o.dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "grid: %dx%d  integrator: %s\n", meta.NumX, meta.NumY, meta.Integrator)
	fmt.Fprintf(out, "samples: %d\n\n", len(samples))

	for _, name := range o.plotSeries {
		data, err := seriesOf(samples, name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func (o *options) analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(o.dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(samples) < 4 {
		return fmt.Errorf("need at least 4 samples, have %d", len(samples))
	}

	// the trailing sample may be off-grid
	interval := samples[1].Time - samples[0].Time
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frequency analysis: %s\n", meta.ID)
	fmt.Fprintf(out, "sample interval: %.4fs\n\n", interval)

	for _, name := range o.analyzeSeries {
		data, err := seriesOf(samples, name)
		if err != nil {
			return err
		}

		ps := analysis.PowerSpectrum(data)
		plot := ps[:max(2, len(ps)/4)]
		fmt.Fprintln(out, asciigraph.Plot(plot,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum ("+name+")"),
		))

		freq := analysis.DominantFrequency(data, interval)
		fmt.Fprintf(out, "\n%s dominant frequency: %.3f hz", name, freq)
		if freq > 0 {
			fmt.Fprintf(out, ", period: %.3f s", 1/freq)
		}
		fmt.Fprint(out, "\n\n")
	}
	return nil
}

func (o *options) phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(o.dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames; record it with run --frames", meta.ID)
	}

	axis := strings.Index("xyz", strings.ToLower(o.axis))
	if len(o.axis) != 1 || axis < 0 {
		return fmt.Errorf("axis must be x, y or z, got %q", o.axis)
	}
	particle := o.particle
	if particle < 0 {
		particle = (meta.Height-1)*meta.Width + meta.Width/2
	}

	portrait, err := analysis.ParticlePortrait(frames, particle, axis)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "phase portrait: %s\n", meta.ID)
	fmt.Fprintf(out, "particle %d, %s against d%s/dt\n\n", particle, o.axis, o.axis)
	fmt.Fprint(out, analysis.PhasePortraitToASCII(portrait, 70, 20))
	fmt.Fprintln(out, "\nLegend: . = early, o = middle, • = late")
	return nil
}

func (o *options) exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(o.dataDir)
	if o.frames {
		frames, err := st.LoadFrames(args[0])
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("run %s has no frames", args[0])
		}
		return storage.WriteFramesCSV(cmd.OutOrStdout(), frames)
	}

	samples, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.WriteSeriesCSV(cmd.OutOrStdout(), samples)
}

func (o *options) exportJSON(cmd *cobra.Command, args []string) error {
	data, err := storage.New(o.dataDir).Export(args[0], o.frames)
	if err != nil {
		return err
	}
	if o.output == "" {
		return storage.WriteJSON(cmd.OutOrStdout(), data)
	}
	if err := storage.ExportJSON(o.output, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", args[0], o.output)
	return nil
}

func (o *options) exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(o.dataDir)
	var svg strings.Builder

	if o.seriesName != "" {
		samples, err := st.LoadSeries(args[0])
		if err != nil {
			return err
		}
		ys, err := seriesOf(samples, o.seriesName)
		if err != nil {
			return err
		}
		times := make([]float64, len(samples))
		for i, s := range samples {
			times[i] = s.Time
		}
		plot := export.SeriesToSVG(times, ys, 800, 400, "#00ff88")
		if plot == "" {
			return fmt.Errorf("no data to plot")
		}
		svg.WriteString(plot)
	} else {
		frames, err := st.LoadFrames(args[0])
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("run %s has no frames; record it with run --frames", args[0])
		}
		idx := o.frameIndex
		if idx < 0 {
			idx = len(frames) - 1
		}
		if idx >= len(frames) {
			return fmt.Errorf("frame %d out of range (have %d)", idx, len(frames))
		}

		// topology and pins come from the saved config
		cfg, err := st.LoadConfig(args[0])
		if err != nil {
			return err
		}
		c, err := cfg.Build()
		if err != nil {
			return err
		}
		positions := frames[idx].Positions
		if len(positions) != c.NumParticles() {
			return fmt.Errorf("frame has %d particles, config builds %d", len(positions), c.NumParticles())
		}
		pinned := make([]bool, c.NumParticles())
		for i := range pinned {
			pinned[i] = c.Pinned(i)
		}
		if err := export.ClothToSVG(&svg, viz.NewCamera(), positions, c.Springs(), pinned, 800, 600, o.allSprings); err != nil {
			return err
		}
	}

	if o.output == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), svg.String())
		return err
	}
	if err := os.WriteFile(o.output, []byte(svg.String()), 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", o.output)
	return nil
}

func (o *options) exportWAV(cmd *cobra.Command, args []string) error {
	if o.output == "" {
		return fmt.Errorf("export-wav needs an output file (-o)")
	}
	samples, err := storage.New(o.dataDir).LoadSeries(args[0])
	if err != nil {
		return err
	}
	name := o.seriesName
	if name == "" {
		name = "total"
	}
	ys, err := seriesOf(samples, name)
	if err != nil {
		return err
	}

	opts := audio.DefaultOptions()
	if o.seconds > 0 {
		opts.Duration = time.Duration(o.seconds * float64(time.Second))
	}
	f, err := os.Create(o.output)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, ys, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %v)\n", o.output, name, opts.Duration)
	return nil
}

func (o *options) listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tGRID\tPINS\tINTEG\tDT\tDURATION\tSTRUCTURE K\tCOLLIDERS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		colliders := len(p.Colliders.Ellipsoids)
		if p.Colliders.Ground != nil {
			colliders++
		}
		fmt.Fprintf(w, "%s\t%dx%d\t%s\t%s\t%g\t%gs\t%g\t%d\n",
			name, p.NumX, p.NumY, p.PinMode, p.Integrator, p.Dt, p.Duration, p.Springs.Structure.Stiffness, colliders)
	}
	return w.Flush()
}

func (o *options) initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := experiment.NewRegistry().Resolve(o.preset, "")
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
	return nil
}

func (o *options) compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, name, err := o.resolve(cmd, args[:1])
	if err != nil {
		return err
	}

	methods := integrators.Methods()
	if len(args) > 1 {
		methods = methods[:0:0]
		for _, arg := range args[1:] {
			m, err := integrators.ParseMethod(arg)
			if err != nil {
				return err
			}
			methods = append(methods, m)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "comparing integrators for %s (dt=%g, duration=%gs)\n\n", name, cfg.Dt, cfg.Duration)

	comps, elapsed, err := experiment.CompareIntegrators(cmd.Context(), cfg, methods)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tFINAL KE\tENERGY DRIFT\tMAX STRETCH\tUNSTABLE\tSTATUS")
	for _, c := range comps {
		r := c.Result
		finalKE := 0.0
		if n := len(r.Samples); n > 0 {
			finalKE = r.Samples[n-1].KineticEnergy
		}
		status := "ok"
		if err := r.Err(); err != nil {
			status = err.Error()
		}
		fmt.Fprintf(w, "%s\t%d\t%.4g\t%.3g\t%.4f\t%d\t%s\n",
			c.Integrator, r.StepsTaken, finalKE,
			r.Metrics[metrics.NewEnergyDrift().Name()],
			r.Metrics[metrics.NewMaxStretch().Name()],
			len(r.Instabilities), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nwall time: %v\n", elapsed.Round(time.Millisecond))
	return nil
}

func (o *options) bench(cmd *cobra.Command, args []string) error {
	preset := ""
	if len(args) > 0 {
		preset = args[0]
	}
	base, err := experiment.NewRegistry().Resolve(preset, o.configFile)
	if err != nil {
		return err
	}

	const steps = 200
	sizes := []int{10, 20, 40}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "benchmarking %d steps per run (dt=%g)\n\n", steps, base.Dt)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRID\tPARTICLES\tSPRINGS\tINTEG\tTIME\tSTEPS/SEC")

	for _, n := range sizes {
		for _, m := range integrators.Methods() {
			cfg := base.Clone()
			cfg.NumX, cfg.NumY = n, n
			cfg.Integrator = m.String()
			cfg.Duration = steps * cfg.Dt

			exp := experiment.New("bench", cfg)
			if err := exp.Setup(metrics.NewKineticEnergy()); err != nil {
				return err
			}
			result, err := exp.Run(cmd.Context())
			if err != nil {
				return err
			}

			c := exp.Simulator().Cloth()
			elapsed := exp.Elapsed()
			fmt.Fprintf(w, "%dx%d\t%d\t%d\t%s\t%v\t%.0f\n",
				n, n, c.NumParticles(), c.NumSprings(), m,
				elapsed.Round(time.Microsecond), float64(result.StepsTaken)/elapsed.Seconds())
		}
	}
	return w.Flush()
}

// parseSweep reads "name=v1,v2,...".
func parseSweep(arg string) (string, []float64, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || list == "" {
		return "", nil, fmt.Errorf("expected name=v1,v2,..., got %q", arg)
	}
	var vals []float64
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", arg, err)
		}
		vals = append(vals, v)
	}
	return strings.TrimSpace(name), vals, nil
}

func (o *options) sweep(cmd *cobra.Command, args []string) error {
	if len(o.sweeps) == 0 {
		return fmt.Errorf("at least one --param is required (known: %s)", strings.Join(config.ParamNames(), ", "))
	}
	cfg, name, err := o.resolve(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, len(o.sweeps))
	ranges := make([][]float64, len(o.sweeps))
	for i, arg := range o.sweeps {
		if names[i], ranges[i], err = parseSweep(arg); err != nil {
			return err
		}
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	g.Minimize = !o.maximize
	g.SkipUnstable = o.skipUnstable

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sweeping %d points of %s, scoring %s\n\n", g.Size(), name, o.metric)

	trials, best, err := g.Search(cmd.Context(), cfg, o.metric)
	if err != nil && len(trials) == 0 {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \t"+strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(o.metric)+"\tUNSTABLE\tERROR")
	for i, t := range trials {
		mark := " "
		if i == best {
			mark = "*"
		}
		cols := make([]string, len(names))
		for j, n := range names {
			cols[j] = strconv.FormatFloat(t.Params[n], 'g', -1, 64)
		}
		errText := ""
		if t.Err != nil {
			errText = t.Err.Error()
		}
		value := "-"
		if !math.IsNaN(t.Value) {
			value = fmt.Sprintf("%.6g", t.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", mark, strings.Join(cols, "\t"), value, t.Unstable, errText)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best < 0 {
		fmt.Fprintln(out, "\n"+warnStyle.Render("no point qualified"))
	} else {
		fmt.Fprintf(out, "\n%s %s = %.6g\n", okStyle.Render("best:"), o.metric, trials[best].Value)
	}
	return err
}

func (o *options) watch(cmd *cobra.Command, args []string) error {
	cfg, name, err := o.resolve(cmd, args)
	if err != nil {
		return err
	}
	return viz.Run(name, cfg, o.theme)
}

