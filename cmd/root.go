package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	sim "github.com/inference-sim/harvest-sim/sim"
	"github.com/inference-sim/harvest-sim/sim/policy"
	"github.com/inference-sim/harvest-sim/sim/recorder"
	"github.com/inference-sim/harvest-sim/sim/telemetry"
	"github.com/inference-sim/harvest-sim/sim/trace"
)

var (
	configPath string // Scenario YAML file
	logLevel   string // Log verbosity level

	// CLI overrides; applied only when the flag is set explicitly
	seed                  int64   // Seed of the training stream
	evalSeed              int64   // Seed applied on evaluation resets
	startHour             int     // Window start (hours)
	endHour               int     // Window end (hours)
	lambda                float64 // Request arrivals per hour
	panelSize             float64 // Solar panel size
	tradeoff              float64 // Latency weight in the reward
	policyName            string  // Decision policy
	training              bool    // Continue the training stream instead of re-seeding
	episodes              int     // Number of episodes
	irradianceFile        string  // SoDa irradiance export
	irradianceHeaderLines int     // Header lines to skip in the irradiance export
	constantIrradiance    float64 // Flat irradiance when no file is given
	traceLevel            string  // Decision trace level
	dbPath                string  // SQLite output; empty disables
	metricsAddr           string  // Prometheus listen address; empty disables
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "harvest-sim",
	Short: "Discrete-event simulator for energy-harvesting edge offloading",
}

// runCmd executes the simulation using parameters from the scenario file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run offloading episodes with a decision policy",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		sc := DefaultScenario()
		if configPath != "" {
			sc, err = LoadScenario(configPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		applyFlagOverrides(cmd, &sc)

		startTime := time.Now()
		if err := runScenario(sc, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// applyFlagOverrides copies explicitly set flags into sc.
func applyFlagOverrides(cmd *cobra.Command, sc *Scenario) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		sc.Environment.Seed = seed
	}
	if flags.Changed("eval-seed") {
		sc.Environment.EvalSeed = evalSeed
	}
	if flags.Changed("start") {
		sc.Window.StartHour = startHour
	}
	if flags.Changed("end") {
		sc.Window.EndHour = endHour
	}
	if flags.Changed("lambda") {
		sc.Environment.ArrivalRate = lambda
	}
	if flags.Changed("panel-size") {
		sc.Environment.PanelSize = panelSize
	}
	if flags.Changed("tradeoff") {
		sc.Environment.Tradeoff = tradeoff
	}
	if flags.Changed("policy") {
		sc.Policy = policyName
	}
	if flags.Changed("train") {
		sc.Training = training
	}
	if flags.Changed("episodes") {
		sc.Episodes = episodes
	}
	if flags.Changed("irradiance") {
		sc.Irradiance.File = irradianceFile
	}
	if flags.Changed("irradiance-header-lines") {
		sc.Irradiance.HeaderLines = irradianceHeaderLines
	}
	if flags.Changed("constant-irradiance") {
		sc.Irradiance.Constant = constantIrradiance
	}
	if flags.Changed("trace-level") {
		sc.Output.TraceLevel = traceLevel
	}
	if flags.Changed("db") {
		sc.Output.Database = dbPath
	}
	if flags.Changed("metrics-addr") {
		sc.Output.MetricsAddr = metricsAddr
	}
}

// runScenario runs every episode of sc and prints per-episode metrics to out.
func runScenario(sc Scenario, out io.Writer) error {
	if !policy.IsValidPolicy(sc.Policy) {
		return fmt.Errorf("%w: unknown policy %q; valid policies: %v", sim.ErrConfig, sc.Policy, policy.ValidPolicies)
	}
	if !trace.IsValidTraceLevel(sc.Output.TraceLevel) {
		return fmt.Errorf("%w: unknown trace level %q", sim.ErrConfig, sc.Output.TraceLevel)
	}
	if sc.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive, got %d", sim.ErrConfig, sc.Episodes)
	}

	cfg := sc.EnvConfig()
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return err
	}
	irradiance, err := sc.LoadIrradiance()
	if err != nil {
		return err
	}
	logrus.Infof("Starting %d episode(s): policy=%s, window=[%d, %d), lambda=%v, tiers=%v, cores=%d",
		sc.Episodes, sc.Policy, sc.Window.StartHour, sc.Window.EndHour, cfg.ArrivalRate, cfg.Frequencies, cfg.CoreCount)

	if trace.TraceLevel(sc.Output.TraceLevel) == trace.TraceLevelDecisions {
		s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	}
	if sc.Output.MetricsAddr != "" {
		collector := telemetry.NewCollector()
		s.AddObserver(collector)
		collector.Serve(sc.Output.MetricsAddr)
	}
	var rec *recorder.SQLiteRecorder
	if sc.Output.Database != "" {
		rec, err = recorder.New(sc.Output.Database)
		if err != nil {
			return err
		}
		defer rec.Close()
	}

	policyRNG := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemPolicy)
	p := policy.NewPolicy(sc.Policy, policyRNG)
	opts := sim.ResetOptions{Training: sc.Training, Window: sc.SimWindow(), Irradiance: irradiance}

	for ep := 0; ep < sc.Episodes; ep++ {
		res, err := sim.RunEpisode(s, p, opts)
		if err != nil {
			return fmt.Errorf("episode %d: %w", ep, err)
		}
		fmt.Fprintf(out, "Episode %d: %d decisions, %d accepted\n", ep, res.Decisions, res.Accepted)
		res.Stats.Print(out)
		if s.Trace.Enabled() {
			printTraceSummary(out, trace.Summarize(s.Trace))
		}
		if rec != nil {
			runID, err := rec.RecordRun(recorder.RunMeta{
				Policy:      sc.Policy,
				ArrivalRate: cfg.ArrivalRate,
				Tradeoff:    cfg.Tradeoff,
				StartHour:   sc.Window.StartHour,
				EndHour:     sc.Window.EndHour,
				Seed:        cfg.Seed,
			}, res.Stats)
			if err != nil {
				return err
			}
			logrus.Infof("recorded episode %d as run %s in %s", ep, runID, rec.Path())
		}
	}
	return nil
}

func printTraceSummary(out io.Writer, summary *trace.TraceSummary) {
	fmt.Fprintln(out, "=== Decision Trace ===")
	fmt.Fprintf(out, "Decisions            : %d\n", summary.TotalDecisions)
	fmt.Fprintf(out, "Accepted / Rejected  : %d / %d\n", summary.AcceptedCount, summary.RejectedCount)
	fmt.Fprintf(out, "Mean Reward          : %.4f\n", summary.MeanReward)
	for _, cause := range slices.Sorted(maps.Keys(summary.RejectionsByCause)) {
		fmt.Fprintf(out, "Rejected %-12s: %d\n", cause, summary.RejectionsByCause[cause])
	}
}

// Execute runs the CLI root command. Exit goes through atexit so recorders flush.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// init sets up CLI flags and subcommands
func init() {
	def := DefaultScenario()

	runCmd.Flags().StringVar(&configPath, "config", "", "Scenario YAML file")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Environment
	runCmd.Flags().Int64Var(&seed, "seed", def.Environment.Seed, "Seed of the training stream")
	runCmd.Flags().Int64Var(&evalSeed, "eval-seed", def.Environment.EvalSeed, "Seed applied on every evaluation reset")
	runCmd.Flags().Float64Var(&lambda, "lambda", def.Environment.ArrivalRate, "Request arrivals per hour")
	runCmd.Flags().Float64Var(&panelSize, "panel-size", def.Environment.PanelSize, "Solar panel size")
	runCmd.Flags().Float64Var(&tradeoff, "tradeoff", def.Environment.Tradeoff, "Latency weight in the acceptance reward")

	// Window and episodes
	runCmd.Flags().IntVar(&startHour, "start", def.Window.StartHour, "Simulation window start (hours)")
	runCmd.Flags().IntVar(&endHour, "end", def.Window.EndHour, "Simulation window end (hours, exclusive)")
	runCmd.Flags().StringVar(&policyName, "policy", def.Policy, fmt.Sprintf("Decision policy %v", policy.ValidPolicies))
	runCmd.Flags().BoolVar(&training, "train", false, "Continue the training random stream instead of re-seeding")
	runCmd.Flags().IntVar(&episodes, "episodes", def.Episodes, "Number of episodes")

	// Energy profile
	runCmd.Flags().StringVar(&irradianceFile, "irradiance", "", "SoDa HC3 irradiance CSV export")
	runCmd.Flags().IntVar(&irradianceHeaderLines, "irradiance-header-lines", def.Irradiance.HeaderLines, "Header lines before hourly rows")
	runCmd.Flags().Float64Var(&constantIrradiance, "constant-irradiance", 0, "Flat irradiance used when no file is given")

	// Outputs
	runCmd.Flags().StringVar(&traceLevel, "trace-level", def.Output.TraceLevel, "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file for per-day statistics (empty disables)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus listen address, e.g. :2112 (empty disables)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
