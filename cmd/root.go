package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath = "node.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "edgeflow",
	Short: "Trust-aware parent selection for tree-based IoT routing",
	Long: `edgeflow selects a trusted preferred parent for a node in an RPL-style routing tree.
Each neighbour is ranked on ETX, buffer occupancy and routing metric, adjusted by a local trust score that a rule based intrusion monitor derives from observed packet loss, so that sinkhole attackers advertising attractive metrics are excluded.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Configure edgeflow",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ef",
		Title: "edgeflow Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "node config")
}
