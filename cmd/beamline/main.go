package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/beamline/internal/analysis"
	"github.com/san-kum/beamline/internal/beamio"
	"github.com/san-kum/beamline/internal/config"
	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/metrics"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/optim"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/storage"
	"github.com/san-kum/beamline/internal/transport"
	"github.com/san-kum/beamline/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logJSON    bool
	logLevel   string
	configFile string
	preset     string
	tableFile  string
	species    string
	energy     float64
	particles  int
	seed       int64
	workers    int
	compress   bool
	particleID uint64
	outFile    string
	initial    []float64
	xAxis      int
	yAxis      int
	scans      []string
	metricName string
	minimize   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "beamline",
		Short:             "charged-particle beamline tracking",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultOutput, "run directory")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "track an ensemble and store the run",
		Args:  cobra.NoArgs,
		RunE:  runTracking,
	}
	addLineFlags(runCmd)
	runCmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "number of particles")
	runCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	runCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "tracking goroutines")
	runCmd.Flags().BoolVar(&compress, "compress", false, "zstd compress trajectories")

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "track one particle and print its trajectory",
		Args:  cobra.NoArgs,
		RunE:  trackParticle,
	}
	addLineFlags(trackCmd)
	trackCmd.Flags().Float64SliceVar(&initial, "initial", nil, "initial x,xp,y,yp,z,delta")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "grid search element parameters for the best metric",
		Args:  cobra.NoArgs,
		RunE:  scanParameters,
	}
	addLineFlags(scanCmd)
	scanCmd.Flags().IntVar(&particles, "particles", 200, "particles per grid point")
	scanCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	scanCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "tracking goroutines")
	scanCmd.Flags().StringArrayVar(&scans, "scan", nil, "Element.Parameter=from:to:n or =v1,v2,... (repeatable)")
	scanCmd.Flags().StringVar(&metricName, "metric", "transmission", "metric to optimise")
	scanCmd.Flags().BoolVar(&minimize, "minimize", false, "minimise the metric instead of maximising")
	_ = scanCmd.MarkFlagRequired("scan")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "read stored trajectories back",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
	replayCmd.Flags().Uint64Var(&particleID, "particle", 0, "print the trajectory of this particle")

	lossesCmd := &cobra.Command{
		Use:   "losses [run_id]",
		Short: "show where particles were lost",
		Args:  cobra.ExactArgs(1),
		RunE:  showLosses,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the beam envelope",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id] [element]",
		Short: "phase-space portrait at an element",
		Args:  cobra.ExactArgs(2),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x", optics.X, "horizontal axis coordinate")
	phaseCmd.Flags().IntVar(&yAxis, "y", optics.XP, "vertical axis coordinate")

	exportCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export trajectories as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in beamlines",
		RunE:  listPresets,
	}

	describeCmd := &cobra.Command{
		Use:   "describe [element]",
		Short: "describe element types and their parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  describeElements,
	}

	rootCmd.AddCommand(runCmd, trackCmd, scanCmd, listCmd, replayCmd, lossesCmd, plotCmd,
		phaseCmd, exportCmd, presetsCmd, describeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", config.DefaultPreset, "built-in beamline")
	cmd.Flags().StringVar(&tableFile, "beamline", "", "parameter table (csv)")
	cmd.Flags().StringVar(&species, "species", config.DefaultSpecies, "particle species")
	cmd.Flags().Float64Var(&energy, "energy", config.DefaultKinetic, "kinetic energy (MeV)")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logJSON {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig merges the config file with the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("preset") {
		cfg.Preset = preset
		cfg.BeamLine = ""
		cfg.Elements = nil
	}
	if flags.Changed("beamline") {
		cfg.BeamLine = tableFile
		cfg.Elements = nil
	}
	if flags.Changed("species") {
		cfg.Species = species
	}
	if flags.Changed("energy") {
		cfg.KineticEnergy = energy
		cfg.Momentum = 0
	}
	if flags.Lookup("particles") != nil && flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Lookup("compress") != nil && flags.Changed("compress") {
		cfg.Compress = compress
	}
	if cmd.Root().PersistentFlags().Changed("data") {
		cfg.Output = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTracking(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	bl, err := cfg.Build()
	if err != nil {
		return err
	}
	if err := bl.Prepare(); err != nil {
		return err
	}

	src, err := transport.SourceFor(bl, cfg.Seed)
	if err != nil {
		return err
	}
	src.Sigma = cfg.Source.Apply(src.Sigma)

	st := storage.New(cfg.Output)
	if err := st.Init(); err != nil {
		return err
	}

	names := make([]string, bl.Len())
	for i, e := range bl.Elements() {
		names[i] = e.Name()
	}
	ref := bl.Reference()
	run, err := st.Create(storage.RunMetadata{
		Species:       ref.Species.Name,
		KineticEnergy: ref.KineticEnergy,
		Rigidity:      ref.Rigidity(),
		BeamLine:      lineLabel(cfg),
		Elements:      names,
		Length:        bl.TotalLength(),
		Seed:          cfg.Seed,
		Workers:       cfg.Workers,
	}, cfg.Compress)
	if err != nil {
		return err
	}
	if err := run.SaveTable(table); err != nil {
		return errors.Join(err, run.Abort(err))
	}

	tr := transport.New(bl)
	tr.Workers = cfg.Workers
	for _, m := range metrics.Default() {
		tr.AddMetric(m)
	}
	for i, e := range bl.Elements() {
		if e.Kind() == elements.KindAperture {
			tr.AddMetric(metrics.NewLossesAt(e.Name(), i))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("tracking", "run", run.ID(), "beamline", lineLabel(cfg), "elements", bl.Len(),
		"particles", cfg.Particles, "workers", cfg.Workers)
	start := time.Now()

	ens := particle.NewEnsemble()
	res, trackErr := tr.TrackEnsemble(ctx, cfg.Particles, src, ens, run.Write)
	if trackErr != nil && !errors.Is(trackErr, context.Canceled) {
		return errors.Join(trackErr, run.Abort(trackErr))
	}

	var metricValues map[string]float64
	if res != nil {
		metricValues = res.Metrics
	}
	meta, err := run.Finish(metricValues)
	if err != nil {
		return err
	}
	env := analysis.Envelope(ens.Particles(), bl.Len())
	if err := st.SaveEnvelope(meta.ID, env); err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render("run " + meta.ID))
	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("particles: %d  lost: %d\n", meta.Particles, meta.Lost)
	fmt.Println(viz.Metric("transmission", ens.LossStats().Transmission()))
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(meta.Metrics) {
		fmt.Println("  " + viz.Metric(name, meta.Metrics[name]))
	}
	if trackErr != nil {
		fmt.Println(viz.Subtle.Render("interrupted; partial run stored"))
	}
	return nil
}

func lineLabel(cfg *config.Config) string {
	switch {
	case len(cfg.Elements) > 0:
		return "inline"
	case cfg.BeamLine != "":
		return cfg.BeamLine
	}
	return cfg.Preset
}

func trackParticle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bl, err := cfg.Build()
	if err != nil {
		return err
	}
	if len(initial) > optics.Dim {
		return fmt.Errorf("initial state has %d components, at most %d allowed", len(initial), optics.Dim)
	}
	var v optics.PhaseSpace
	copy(v[:], initial)

	p, err := transport.TrackOne(bl, v)
	if err != nil {
		return err
	}
	return printTrajectory(p, bl)
}

func printTrajectory(p *particle.Particle, bl particle.Line) error {
	lab, err := p.ToLabFrame(bl)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tELEMENT\tS [m]\tX [mm]\tXP [mrad]\tY [mm]\tYP [mrad]\tDELTA\tLAB X\tLAB Z")
	for i, s := range p.Trajectory() {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.2e\t%.4f\t%.4f\n",
			s.Index, s.Location, s.Path,
			s.State[optics.X]*1e3, s.State[optics.XP]*1e3,
			s.State[optics.Y]*1e3, s.State[optics.YP]*1e3,
			s.State[optics.Delta],
			lab[i].Position[0], lab[i].Position[2],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if p.Lost() {
		fmt.Printf("lost at element %d (%s)\n", p.LossIndex(), p.LossReason())
	}
	return nil
}

func scanParameters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("particles") {
		cfg.Particles = particles
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}
	ref, err := cfg.Reference()
	if err != nil {
		return err
	}

	params := make([]optim.Param, 0, len(scans))
	for _, s := range scans {
		p, err := optim.ParseParam(s)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(table, params)
	g.Maximize = !minimize
	res, err := g.Search(ctx, optim.Tracking(ref, cfg.Particles, cfg.Seed, cfg.Workers), metricName)
	if res != nil && len(res.Trials) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		header := make([]string, 0, len(params)+1)
		for _, p := range params {
			header = append(header, strings.ToUpper(p.Key()))
		}
		fmt.Fprintln(w, strings.Join(append(header, strings.ToUpper(metricName)), "\t"))
		for _, pt := range res.Trials {
			cols := make([]string, 0, len(params)+1)
			for _, p := range params {
				cols = append(cols, strconv.FormatFloat(pt.Values[p.Key()], 'g', 6, 64))
			}
			val := strconv.FormatFloat(pt.Metric, 'g', 6, 64)
			if pt.Err != nil {
				val = "error: " + pt.Err.Error()
			}
			fmt.Fprintln(w, strings.Join(append(cols, val), "\t"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.HeaderStyle.Render("best"))
	for _, p := range params {
		fmt.Println("  " + viz.Metric(p.Key(), res.Best.Values[p.Key()]))
	}
	fmt.Println("  " + viz.Metric(metricName, res.Best.Metric))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBEAMLINE\tTIME\tSPECIES\tENERGY\tPARTICLES\tLOST")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3g MeV\t%d\t%d\n",
			run.ID[:8],
			run.BeamLine,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Species,
			run.KineticEnergy,
			run.Particles,
			run.Lost,
		)
	}

	return w.Flush()
}

func replayRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	r, err := st.OpenTrajectories(runID)
	if err != nil {
		return err
	}
	defer r.Close()

	if particleID != 0 {
		bl, err := st.BeamLine(runID)
		if err != nil {
			return err
		}
		for {
			p, err := r.Read()
			if errors.Is(err, beamio.ErrEndOfStream) {
				return fmt.Errorf("particle %d not in run %s", particleID, runID)
			}
			if err != nil {
				return err
			}
			if p.ID == particleID {
				return printTrajectory(p, bl)
			}
		}
	}

	ps, err := r.ReadAll()
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	env := analysis.Envelope(ps, len(meta.Elements))

	fmt.Println(viz.HeaderStyle.Render("run " + runID))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tELEMENT\tS [m]\tN\tRMS X [mm]\tRMS Y [mm]\tEPS X [mm mrad]\tEPS Y [mm mrad]")
	for _, m := range env {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			m.Index, m.Location, m.Path, m.Count,
			m.X.RMS*1e3, m.Y.RMS*1e3,
			m.X.Emittance*1e6, m.Y.Emittance*1e6,
		)
	}
	return w.Flush()
}

func showLosses(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	losses, err := st.LoadLosses(runID)
	if err != nil {
		return err
	}

	byElement := make(map[string]int)
	byReason := make(map[string]int)
	for _, l := range losses {
		byElement[l.Element]++
		byReason[l.Reason]++
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("losses %d / %d", len(losses), meta.Particles)))
	fmt.Println(viz.LossTable(byElement, meta.Particles))
	if len(byReason) > 0 {
		fmt.Println()
		for _, reason := range sortedKeys(byReason) {
			fmt.Printf("  %s: %d\n", reason, byReason[reason])
		}
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	env, err := st.LoadEnvelope(runID)
	if err != nil {
		return err
	}
	if len(env) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("run %s: %s, %s %.3g MeV", meta.ID[:8], meta.BeamLine, meta.Species, meta.KineticEnergy)))
	fmt.Println()
	fmt.Println(viz.EnvelopePlot(env))
	fmt.Println()
	fmt.Println(viz.SurvivalPlot(env))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	index, err := elementIndex(meta.Elements, args[1])
	if err != nil {
		return err
	}

	r, err := st.OpenTrajectories(runID)
	if err != nil {
		return err
	}
	defer r.Close()
	ps, err := r.ReadAll()
	if err != nil {
		return err
	}

	if xAxis < 0 || xAxis >= optics.Dim || yAxis < 0 || yAxis >= optics.Dim {
		return fmt.Errorf("axes must be in [0, %d)", optics.Dim)
	}
	portrait := analysis.PortraitAt(ps, index, xAxis, yAxis)
	if len(portrait.Xs) == 0 {
		return fmt.Errorf("no particle reached %s", meta.Elements[index])
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("phase space at %s (%d particles)", meta.Elements[index], len(portrait.Xs))))
	fmt.Println(analysis.PortraitToASCII(portrait, 60, 20))
	return nil
}

// elementIndex accepts an element name or index.
func elementIndex(names []string, arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		if i < 0 || i >= len(names) {
			return 0, fmt.Errorf("element index %d out of range [0, %d)", i, len(names))
		}
		return i, nil
	}
	for i, name := range names {
		if name == arg {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no element named %q", arg)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := st.Resolve(args[0])
	if err != nil {
		return err
	}
	r, err := st.OpenTrajectories(runID)
	if err != nil {
		return err
	}
	defer r.Close()

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	n, err := storage.ExportCSV(out, r.Reader)
	if err != nil {
		return err
	}
	slog.Info("exported trajectories", "run", runID, "particles", n)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
	}
	return w.Flush()
}

func describeElements(cmd *cobra.Command, args []string) error {
	specs := elements.Specs()
	if len(args) == 1 {
		kind, err := elements.ParseKind(args[0])
		if err != nil {
			return err
		}
		spec, _ := elements.SpecFor(kind)
		specs = []elements.Spec{spec}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ELEMENT\tREQUIRED\tOPTIONAL")
	for _, s := range specs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Kind, joinOrDash(s.Required), joinOrDash(s.Optional))
	}
	return w.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
