package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/openjunction/trafficsim/internal/config"
	"github.com/openjunction/trafficsim/internal/env"
	"github.com/openjunction/trafficsim/internal/influx"
	"github.com/openjunction/trafficsim/internal/logging"
	"github.com/openjunction/trafficsim/internal/network"
	intOtel "github.com/openjunction/trafficsim/internal/otel"
	"github.com/openjunction/trafficsim/internal/sim"
	"github.com/openjunction/trafficsim/internal/storage"
	"github.com/openjunction/trafficsim/pkg/core"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "trafficsim"
)

// global services
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// InfluxManager writes episode metrics, nil when disabled
	InfluxManager *influx.Manager

	storageBackend storage.Backend

	// currentEpisode is attached to every log record while an episode runs
	currentEpisode uint
)

// command line flags
var (
	flagConfigDir string
	flagEpisodes  int
	flagPolicy    string
	flagSeed      uint64
	flagNetwork   string
	flagStepTicks int
	flagVersion   bool
)

func parseFlags() {
	pflag.StringVar(&flagConfigDir, "config", ".", "directory containing trafficsim.cfg.json")
	pflag.IntVar(&flagEpisodes, "episodes", 10, "number of episodes to run")
	pflag.StringVar(&flagPolicy, "policy", "fc", "signal control policy (fc or lqf)")
	pflag.Uint64Var(&flagSeed, "seed", 1, "base RNG seed, episode i runs with seed+i")
	pflag.StringVar(&flagNetwork, "network", "", "network spec JSON file, empty uses the built-in intersection")
	pflag.IntVar(&flagStepTicks, "step-ticks", 200, "simulation ticks per policy decision")
	pflag.BoolVar(&flagVersion, "version", false, "print version and exit")
	pflag.Parse()
}

func setupLogging() (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", logFilePath, err)
	}

	// Graylog output is optional
	var gelfWriter io.Writer
	if viper.GetBool("graylog.enabled") {
		w, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Failed to connect to Graylog, continuing without it", "error", err)
		} else {
			gelfWriter = w
		}
	}

	// OTel provider if enabled (after log file is created)
	if viper.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  viper.GetString("otel.serviceName"),
			BatchTimeout: viper.GetDuration("otel.batchTimeout"),
			LogWriter:    logFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logFile, viper.GetString("logLevel"), gelfWriter, otelLogProvider)
	SlogManager.Context = func() []slog.Attr {
		if currentEpisode == 0 {
			return nil
		}
		return []slog.Attr{slog.Uint64("episode", uint64(currentEpisode))}
	}
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath)

	return logFile, nil
}

// tripRecorder adapts the storage backend to the simulation's TripSink.
type tripRecorder struct {
	backend storage.Backend
	log     *slog.Logger
}

func (r *tripRecorder) RecordTrip(trip core.Trip) {
	if err := r.backend.RecordTrip(&trip); err != nil {
		r.log.Error("Failed to record trip", "error", err)
	}
}

// simConfig assembles the simulation parameters from configuration and
// the per-episode seed.
func simConfig(seed uint64) sim.Config {
	return sim.Config{
		Dt:              viper.GetFloat64("sim.dt"),
		CollisionRadius: viper.GetFloat64("sim.collisionRadius"),
		ActionTicks:     viper.GetInt("sim.actionTicks"),
		GenerationLimit: viper.GetInt("sim.generationLimit"),
		Seed:            seed,
	}
}

// buildSimulation creates a fresh simulation with its road network and
// trip sink attached. networkSpec is nil for the built-in intersection.
func buildSimulation(cfg sim.Config, networkSpec *network.Spec, sink sim.TripSink) (*sim.Simulation, error) {
	s := sim.New(cfg, Logger)
	s.SetTripSink(sink)

	if networkSpec != nil {
		if err := network.Build(s, *networkSpec); err != nil {
			return nil, err
		}
		return s, nil
	}

	params := network.DefaultParams()
	params.SlowDistance = viper.GetFloat64("signal.slowDistance")
	params.SlowFactor = viper.GetFloat64("signal.slowFactor")
	params.StopDistance = viper.GetFloat64("signal.stopDistance")
	network.TwoWayIntersection(s, params)
	return s, nil
}

func runEpisodes(episodes int, policyName string, networkSpec *network.Spec) error {
	policy, ok := env.Policies[policyName]
	if !ok {
		return fmt.Errorf("unknown policy %q, valid policies are fc and lqf", policyName)
	}

	networkName := "two_way_intersection"
	if networkSpec != nil {
		networkName = networkSpec.Name
	}

	sink := &tripRecorder{backend: storageBackend, log: Logger}

	envCfg := env.DefaultConfig()
	envCfg.StepTicks = flagStepTicks

	var (
		totalWait  float64
		collisions int
	)

	for i := 0; i < episodes; i++ {
		seed := flagSeed + uint64(i)
		cfg := simConfig(seed)

		environment := env.New(func() (*sim.Simulation, error) {
			return buildSimulation(cfg, networkSpec, sink)
		}, envCfg, Logger)

		// Build before opening the episode row so a bad network never
		// leaves a dangling episode behind.
		state, err := environment.Reset()
		if err != nil {
			return fmt.Errorf("failed to build network: %w", err)
		}

		snapshot, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to snapshot config: %w", err)
		}
		episode := &core.Episode{
			StartedAt:      time.Now(),
			Seed:           seed,
			Policy:         policyName,
			NetworkName:    networkName,
			ConfigSnapshot: snapshot,
		}
		if err := storageBackend.StartEpisode(episode); err != nil {
			return fmt.Errorf("failed to start episode: %w", err)
		}
		currentEpisode = episode.ID

		done := false
		truncated := false
		for !done && !truncated {
			action := policy(environment.Sim(), state)
			state, _, done, truncated = environment.Step(action)
		}

		s := environment.Sim()
		episode.EndedAt = time.Now()
		episode.Ticks = s.Ticks()
		episode.SimTime = s.T()
		episode.VehiclesGenerated = s.VehiclesGenerated()
		episode.TripsCompleted = s.TripsCompleted()
		episode.Collision = s.CollisionDetected()
		episode.AverageWaitTime = s.AverageWaitTime()

		if err := storageBackend.EndEpisode(episode); err != nil {
			return fmt.Errorf("failed to end episode: %w", err)
		}

		if InfluxManager != nil {
			if err := InfluxManager.WriteEpisode(context.Background(), episode); err != nil {
				Logger.Warn("Failed to write episode metrics to InfluxDB", "error", err)
			}
		}

		Logger.Info("Episode finished",
			"seed", seed,
			"simTime", episode.SimTime,
			"trips", episode.TripsCompleted,
			"collision", episode.Collision,
			"avgWait", episode.AverageWaitTime,
			"truncated", truncated,
		)

		totalWait += episode.AverageWaitTime
		if episode.Collision {
			collisions++
		}
		currentEpisode = 0
	}

	Logger.Info("Run complete",
		"policy", policyName,
		"episodes", episodes,
		"avgWaitOverEpisodes", totalWait/float64(episodes),
		"collisions", collisions,
	)
	return nil
}

func main() {
	parseFlags()

	if flagVersion {
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
		return
	}

	// Bootstrap logging to console only until config is loaded
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil, nil)
	Logger = SlogManager.Logger()

	if err := config.Load(flagConfigDir); err != nil {
		Logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", flagConfigDir)
	}

	logFile, err := setupLogging()
	if err != nil {
		Logger.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	storageBackend, err = storage.NewBackend(config.GetStorage(), SlogManager)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		os.Exit(1)
	}
	if err := storageBackend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	if viper.GetBool("influx.enabled") {
		zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
		backupPath := logging.LogFilePath(viper.GetString("logsDir"), AppName+".influx_backup", SessionStartTime) + ".gz"
		InfluxManager = influx.NewManager(zl, backupPath)
		if err := InfluxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, episode metrics will not be exported", "error", err)
			InfluxManager = nil
		}
	}

	var networkSpec *network.Spec
	if flagNetwork != "" {
		spec, err := network.LoadSpec(flagNetwork)
		if err != nil {
			Logger.Error("Failed to load network spec", "error", err, "path", flagNetwork)
			os.Exit(1)
		}
		networkSpec = &spec
	}

	Logger.Info("Starting simulation run",
		"version", Version,
		"policy", flagPolicy,
		"episodes", flagEpisodes,
		"seed", flagSeed,
	)

	if err := runEpisodes(flagEpisodes, flagPolicy, networkSpec); err != nil {
		Logger.Error("Simulation run failed", "error", err)
		os.Exit(1)
	}

	if InfluxManager != nil {
		InfluxManager.Flush()
	}
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
}
