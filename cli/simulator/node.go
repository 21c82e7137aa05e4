package simulator

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	global_config "github.com/casparschwa/beaconrunner/cli/config"
	"github.com/casparschwa/beaconrunner/duties"
	"github.com/casparschwa/beaconrunner/honest"
	"github.com/casparschwa/beaconrunner/ledger"
	"github.com/casparschwa/beaconrunner/logging"
	"github.com/casparschwa/beaconrunner/logging/fields"
	"github.com/casparschwa/beaconrunner/monitoring/metrics"
	"github.com/casparschwa/beaconrunner/networkconfig"
	"github.com/casparschwa/beaconrunner/observability"
	"github.com/casparschwa/beaconrunner/simulator"
	"github.com/casparschwa/beaconrunner/slotticker"
	"github.com/casparschwa/beaconrunner/storage"
	"github.com/casparschwa/beaconrunner/storage/basedb"
	"github.com/casparschwa/beaconrunner/utils/commons"
)

type config struct {
	global_config.GlobalConfig `yaml:"global"`
	DBOptions                  basedb.Options `yaml:"db"`

	Network        string `yaml:"Network" env:"NETWORK" env-default:"minimal" env-description:"Beacon network preset to simulate (mainnet, minimal or testnet)"`
	Validators     uint64 `yaml:"Validators" env:"VALIDATORS" env-default:"16" env-description:"Number of simulated validators"`
	Behavior       string `yaml:"Behavior" env:"BEHAVIOR" env-default:"asap" env-description:"Validator behavior driving duty decisions (asap or prudent)"`
	AnchorGenesis  bool   `yaml:"AnchorGenesis" env:"ANCHOR_GENESIS" env-default:"true" env-description:"Anchor genesis to startup time so slot zero begins now"`
	WindowSlots    uint64 `yaml:"WindowSlots" env:"WINDOW_SLOTS" env-default:"32" env-description:"Number of recent slots the chain view keeps in memory"`
	MetricsAPIPort int    `yaml:"MetricsAPIPort" env:"METRICS_API_PORT" env-description:"Port to listen on for the metrics API."`
	EnableProfile  bool   `yaml:"EnableProfile" env:"ENABLE_PROFILE" env-description:"flag that indicates whether go profiling tools are enabled"`
	EnableTraces   bool   `yaml:"EnableTraces" env:"ENABLE_TRACES" env-description:"flag that indicates whether span export is enabled"`
}

var cfg config

var globalArgs global_config.Args

// StartSimCmd is the command to start a validator duty simulation
var StartSimCmd = &cobra.Command{
	Use:   "start-sim",
	Short: "Starts a validator duty simulation",
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := setupGlobal(cmd)
		if err != nil {
			log.Fatal("could not create logger", err)
		}

		defer logging.CapturePanic(logger)

		observabilityShutdown, err := setupObservability(cmd.Parent().Short, cmd.Parent().Version)
		if err != nil {
			logger.Fatal("could not initialize observability", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		networkConfig, err := setupNetwork(logger)
		if err != nil {
			logger.Fatal("could not setup network", zap.Error(err))
		}

		cfg.DBOptions.Ctx = ctx
		db, err := setupDB(logger)
		if err != nil {
			logger.Fatal("could not setup db", zap.Error(err))
		}

		dutyLedger := ledger.New(db, logger)

		var genesisRoot phase0.Root
		chainView, err := simulator.NewChainView(logger, genesisRoot, cfg.WindowSlots)
		if err != nil {
			logger.Fatal("could not create chain view", zap.Error(err))
		}

		producers := honest.NewProducer(logger, networkConfig)

		validatorSet := simulator.GenerateValidatorSet(cfg.Validators)

		dutyProvider, err := duties.NewLocalProvider(logger, networkConfig, validatorSet)
		if err != nil {
			logger.Fatal("could not create duty provider", zap.Error(err))
		}

		instances, err := simulator.SpawnInstances(logger, networkConfig, producers, validatorSet, cfg.Behavior)
		if err != nil {
			logger.Fatal("could not spawn validator instances", zap.Error(err))
		}

		scheduler := simulator.NewScheduler(&simulator.SchedulerOptions{
			Network:   networkConfig,
			Provider:  dutyProvider,
			Ledger:    dutyLedger,
			ChainView: chainView,
			Instances: instances,
			SlotTickerProvider: func() slotticker.SlotTicker {
				return slotticker.NewSlotTicker(slotticker.SlotTickerConfig{
					SlotDuration: networkConfig.SlotDuration(),
					GenesisTime:  networkConfig.GenesisTime(),
				})
			},
		})

		if cfg.MetricsAPIPort > 0 {
			go startMetricsHandler(ctx, logger, db, scheduler, cfg.MetricsAPIPort, cfg.EnableProfile)
		}

		if err := scheduler.Start(ctx, logger); err != nil {
			logger.Fatal("failed to start duty scheduler", zap.Error(err))
		}

		if err := scheduler.Wait(); err != nil {
			logger.Error("simulation stopped", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := multierr.Combine(db.Close(), observabilityShutdown(shutdownCtx)); err != nil {
			logger.Error("could not shut down gracefully", zap.Error(err))
		}
	},
}

func init() {
	global_config.ProcessArgs(&cfg, &globalArgs, StartSimCmd)
}

func setupGlobal(cmd *cobra.Command) (*zap.Logger, error) {
	commons.SetBuildData(cmd.Parent().Short, cmd.Parent().Version)
	log.Printf("starting %s", commons.GetBuildData())

	if globalArgs.ConfigPath != "" {
		if err := cleanenv.ReadConfig(globalArgs.ConfigPath, &cfg); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	if err := logging.SetGlobalLogger(cfg.LogLevel, cfg.LogLevelFormat, cfg.LogFormat, cfg.LogFilePath); err != nil {
		return nil, fmt.Errorf("logging.SetGlobalLogger: %w", err)
	}

	return zap.L(), nil
}

func setupObservability(appName, appVersion string) (func(context.Context) error, error) {
	options := []observability.Option{observability.WithMetrics()}
	if cfg.EnableTraces {
		options = append(options, observability.WithTraces())
	}
	return observability.Initialize(appName, appVersion, options...)
}

func setupDB(logger *zap.Logger) (basedb.Database, error) {
	db, err := storage.GetStorageFactory(logger, cfg.DBOptions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	// Run a long garbage collection cycle with a timeout to reclaim space
	// held over from previous runs, before the ticker starts.
	start := time.Now()
	gcCtx, cancel := context.WithTimeout(cfg.DBOptions.Ctx, time.Minute)
	defer cancel()
	if err := db.FullGC(gcCtx); err != nil {
		return nil, errors.Wrap(err, "failed to collect garbage")
	}
	logger.Info("startup garbage collection completed", fields.Duration(start))

	return db, nil
}

func setupNetwork(logger *zap.Logger) (*networkconfig.BeaconConfig, error) {
	networkConfig, err := networkconfig.GetNetworkByName(cfg.Network)
	if err != nil {
		return nil, err
	}

	if cfg.AnchorGenesis {
		networkConfig = networkConfig.WithGenesisTime(time.Now())
	}

	logger.Info("setting beacon network",
		fields.Network(networkConfig.NetworkName()),
		fields.GenesisTime(networkConfig.GenesisTime()),
		zap.Duration("slotDuration", networkConfig.SlotDuration()),
		zap.Uint64("slotsPerEpoch", networkConfig.SlotsPerEpoch()),
	)

	return networkConfig, nil
}

func startMetricsHandler(ctx context.Context, logger *zap.Logger, db basedb.Database, checker metrics.HealthChecker, port int, enableProf bool) {
	logger = logger.Named(logging.NameMetricsHandler)
	// init and start HTTP handler
	metricsHandler := metrics.NewMetricsHandler(ctx, db, enableProf, checker)
	addr := fmt.Sprintf(":%d", port)
	if err := metricsHandler.Start(logger, http.NewServeMux(), addr); err != nil {
		logger.Panic("failed to serve metrics", zap.Error(err))
	}
}
