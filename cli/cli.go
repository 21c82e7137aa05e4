package cli

import (
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/cli/simulator"
)

// RootCmd represents the root command of beaconrunner CLI
var RootCmd = &cobra.Command{
	Use:   "beaconrunner",
	Short: "beaconrunner",
	Long:  `beaconrunner is a CLI for running validator duty simulations.`,
}

// Execute executes the root command
func Execute(appName, version string) {
	RootCmd.Short = appName
	RootCmd.Version = version

	if err := RootCmd.Execute(); err != nil {
		log.Fatal("failed to execute root command", zap.Error(err))
	}
}

func init() {
	RootCmd.AddCommand(simulator.StartSimCmd)
}
