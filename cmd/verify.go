package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/edgeflow/core"
	"github.com/encodeous/edgeflow/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates the node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		nodeCfg, err := core.ReadNodeConfig(configPath)
		if err != nil {
			panic(err)
		}
		err = state.NodeConfigValidator(nodeCfg)
		if err != nil {
			fmt.Println("Config is not valid:", err.Error())
			os.Exit(1)
		}

		cfgYaml, err := yaml.Marshal(nodeCfg)
		if err != nil {
			panic(err)
		}

		fmt.Println("Config is valid")
		fmt.Println(string(cfgYaml))
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
