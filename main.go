package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/alpaylan/crdt-demo/config"
	"github.com/alpaylan/crdt-demo/crdt"
	"github.com/alpaylan/crdt-demo/sim"
	"github.com/alpaylan/crdt-demo/workload"
)

// Structs

// runtimeHandles collects the loops a running variant owns.
type runtimeHandles struct {
	engine   *sim.Handle
	workload *sim.Handle
}

// Functions

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// startVariant constructs the engine for the configured variant, installs
// its tick loop through the supervisor and, if enabled, starts the paired
// workload loop.
func startVariant(conf *config.Config, logger log.Logger, m *DemoMetrics, sup *sim.Supervisor) (*runtimeHandles, error) {

	names := make([]string, 0, len(conf.Replicas))
	for _, r := range conf.Replicas {
		names = append(names, r.Name)
	}

	seed := conf.Workload.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	switch conf.Simulation.Variant {

	case "counter":
		return runVariant(conf, logger, m, sup, crdt.ApplyCounter,
			func(name string) int { return crdt.NewCounter(conf.Counter.Initial) },
			func(state int) string { return fmt.Sprintf("%d", state) },
			func(svc sim.Service[int, crdt.CounterOp]) workload.Generator {
				return workload.Counter(svc, names, rng)
			})

	case "guarded-counter":
		return runVariant(conf, logger, m, sup, crdt.ApplyGuardedCounter,
			func(name string) int { return crdt.NewCounter(conf.Counter.Initial) },
			func(state int) string { return fmt.Sprintf("%d", state) },
			func(svc sim.Service[int, crdt.CounterOp]) workload.Generator {
				return workload.GuardedCounter(svc, names, rng)
			})

	case "grid":
		return runVariant(conf, logger, m, sup, crdt.ApplyGrid,
			func(name string) crdt.Grid { return crdt.NewGrid(conf.Grid.Width, conf.Grid.Height) },
			func(state crdt.Grid) string { return fmt.Sprintf("%d cells painted", len(state.Cells)) },
			func(svc sim.Service[crdt.Grid, crdt.GridOp]) workload.Generator {
				return workload.Grid(svc, names, rng)
			})

	case "naive-text":
		return runVariant(conf, logger, m, sup, crdt.ApplyNaiveText,
			func(name string) string { return crdt.NewNaiveText(conf.Text.Initial) },
			func(state string) string { return state },
			func(svc sim.Service[string, crdt.NaiveTextOp]) workload.Generator {
				return workload.NaiveText(svc, names, rng)
			})

	case "sequence-text":
		return runVariant(conf, logger, m, sup, crdt.ApplySequenceText,
			func(name string) crdt.SeqText { return crdt.NewSequenceText(name) },
			func(state crdt.SeqText) string { return state.String() },
			func(svc sim.Service[crdt.SeqText, crdt.SeqTextOp]) workload.Generator {
				return workload.SequenceText(svc, names, rng)
			})
	}

	return nil, fmt.Errorf("unknown variant '%s'", conf.Simulation.Variant)
}

// runVariant wires one variant end to end: simulator with logging, metrics
// and a throttled snapshot renderer, replicas from the roster, the decorated
// control surface and the tick loops.
func runVariant[S any, O any](
	conf *config.Config,
	logger log.Logger,
	m *DemoMetrics,
	sup *sim.Supervisor,
	apply sim.ApplyFunc[S, O],
	initial func(name string) S,
	renderState func(state S) string,
	makeGen func(svc sim.Service[S, O]) workload.Generator,
) (*runtimeHandles, error) {

	simulator := sim.NewSimulator(apply,
		sim.WithLogger[S, O](log.With(logger, "component", "simulator")),
		sim.WithMetrics[S, O](m.Engine),
		sim.WithRender[S, O](newRenderLogger[S](log.With(logger, "component", "render"), renderState)),
	)

	for _, r := range conf.Replicas {

		if err := simulator.AddReplica(r.Name, initial(r.Name), r.Delay(), r.Connected); err != nil {
			return nil, err
		}
	}

	handles := &runtimeHandles{}

	handles.engine = sup.Swap(func() *sim.Handle {
		return sim.Scheduler{
			Interval: conf.TickInterval(),
			Logger:   log.With(logger, "component", "scheduler"),
		}.Run(simulator)
	})

	if conf.Workload.Enabled {

		// The workload drives the same control surface an interactive
		// adapter would use, including its decorators.
		var svc sim.Service[S, O] = simulator
		svc = sim.NewMetricsService(svc, m.OpsSubmitted, m.ConfigChanges)
		svc = sim.NewLoggingService(svc, log.With(logger, "component", "control"))

		driver := workload.NewDriver(makeGen(svc), log.With(logger, "component", "workload"))

		handles.workload = sim.Scheduler{
			Interval: conf.WorkloadInterval(),
			Logger:   log.With(logger, "component", "workload"),
		}.Run(driver)
	}

	return handles, nil
}

// newRenderLogger returns a render callback that logs every replica's state
// roughly once per simulated second instead of every tick.
func newRenderLogger[S any](logger log.Logger, renderState func(state S) string) sim.RenderFunc[S] {

	var last time.Duration

	return func(now time.Duration, replicas []sim.ReplicaSnapshot[S]) {

		if (now - last) < time.Second {
			return
		}
		last = now

		for _, snap := range replicas {
			level.Info(logger).Log(
				"now", now,
				"replica", snap.ID,
				"state", renderState(snap.State),
				"connected", snap.Connected,
				"delay", snap.Delay,
			)
		}
	}
}

func main() {

	// Set CPUs usable by the demo to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flag that defines a config path.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	envFlag := flag.String("env", "", "Optionally provide path to an .env file overriding selected config values.")
	variantFlag := flag.String("variant", "", "Override the variant selected in the config file.")
	loglevelFlag := flag.String("loglevel", "info", "This flag sets the default logging level.")
	flag.Parse()

	loglevel := *loglevelFlag

	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		logger := initLogger(loglevel)
		level.Error(logger).Log(
			"msg", "failed to load config",
			"err", err,
		)
		os.Exit(1)
	}

	if *envFlag != "" {

		env, err := config.LoadEnv(*envFlag)
		if err != nil {
			logger := initLogger(loglevel)
			level.Error(logger).Log(
				"msg", "failed to load .env file",
				"err", err,
			)
			os.Exit(1)
		}

		if env.LogLevel != "" {
			loglevel = env.LogLevel
		}

		if env.PrometheusAddr != "" {
			conf.Simulation.PrometheusAddr = env.PrometheusAddr
		}
	}

	if *variantFlag != "" {
		conf.Simulation.Variant = *variantFlag
	}

	logger := initLogger(loglevel)

	metrics := NewDemoMetrics(conf.Simulation.PrometheusAddr)
	go runPromHTTP(logger, conf.Simulation.PrometheusAddr)

	var sup sim.Supervisor

	handles, err := startVariant(conf, logger, metrics, &sup)
	if err != nil {
		level.Error(logger).Log(
			"msg", "failed to start simulation",
			"variant", conf.Simulation.Variant,
			"err", err,
		)
		os.Exit(1)
	}

	level.Info(logger).Log(
		"msg", "simulation running",
		"variant", conf.Simulation.Variant,
		"replicas", len(conf.Replicas),
		"tick", conf.TickInterval(),
	)

	// Run until interrupted.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if handles.workload != nil {
		handles.workload.Stop()
	}
	sup.Stop()

	level.Info(logger).Log("msg", "shut down")
}
