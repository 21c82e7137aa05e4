package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/casparschwa/beaconrunner/networkconfig"
)

const (
	defaultOutputPath     = "./config/config.local.yaml"
	defaultLogLevel       = "info"
	defaultDBPath         = "./data/db"
	defaultValidators     = 16
	defaultBehavior       = "asap"
	defaultWindowSlots    = 32
	configFilePermissions = 0644
)

var (
	defaultNetwork = networkconfig.Minimal
)

var (
	outputPath     string
	logLevel       string
	dbPath         string
	networkName    string
	validators     uint64
	behavior       string
	windowSlots    uint64
	metricsAPIPort int
)

type SimConfig struct {
	Global struct {
		LogLevel string `yaml:"LogLevel,omitempty"`
	} `yaml:"global,omitempty"`
	DB struct {
		Path string `yaml:"Path,omitempty"`
	} `yaml:"db,omitempty"`
	Network        string `yaml:"Network,omitempty"`
	Validators     uint64 `yaml:"Validators,omitempty"`
	Behavior       string `yaml:"Behavior,omitempty"`
	WindowSlots    uint64 `yaml:"WindowSlots,omitempty"`
	MetricsAPIPort int    `yaml:"MetricsAPIPort,omitempty"`
}

// generateConfigCmd is the command to generate a simulation config.
var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "generates a simulation config",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := networkconfig.GetNetworkByName(networkName); err != nil {
			log.Fatalf("Failed to resolve network: %v", err)
		}

		var config SimConfig
		config.Global.LogLevel = logLevel
		config.DB.Path = dbPath
		config.Network = networkName
		config.Validators = validators
		config.Behavior = behavior
		config.WindowSlots = windowSlots
		config.MetricsAPIPort = metricsAPIPort

		data, err := yaml.Marshal(&config)
		if err != nil {
			log.Fatalf("Failed to marshal YAML: %v", err)
		}

		err = os.WriteFile(outputPath, data, configFilePermissions)
		if err != nil {
			log.Fatalf("Failed to write file: %v", err)
		}

		log.Printf("Saved config into '%s':", outputPath)
		fmt.Println(string(data))
	},
}

func init() {
	generateConfigCmd.Flags().StringVarP(&outputPath, "output-path", "o", defaultOutputPath, "Output path for generated config")
	generateConfigCmd.Flags().StringVar(&logLevel, "log-level", defaultLogLevel, "Log level")
	generateConfigCmd.Flags().StringVar(&dbPath, "db-path", defaultDBPath, "DB path")
	generateConfigCmd.Flags().StringVar(&networkName, "network", defaultNetwork.NetworkName(), "Beacon network preset")
	generateConfigCmd.Flags().Uint64Var(&validators, "validators", defaultValidators, "Number of simulated validators")
	generateConfigCmd.Flags().StringVar(&behavior, "behavior", defaultBehavior, "Validator behavior (asap or prudent)")
	generateConfigCmd.Flags().Uint64Var(&windowSlots, "window-slots", defaultWindowSlots, "Number of recent slots the chain view keeps")
	generateConfigCmd.Flags().IntVar(&metricsAPIPort, "metrics-api-port", 0, "Metrics API port")

	RootCmd.AddCommand(generateConfigCmd)
}
