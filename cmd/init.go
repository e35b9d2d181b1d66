package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/edgeflow/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "init [id]",
	Short: "Create a node configuration with the sinkhole demo topology",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		name := args[0]
		err := state.NameValidator(name)
		if err != nil {
			fmt.Printf("Invalid name: %s\n", name)
			os.Exit(-1)
		}

		nodeCfg := state.DefaultLocalCfg(state.NodeId(name))
		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			panic(err)
		}

		err = os.WriteFile(configPath, ncfg, 0600)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Wrote %s\n", configPath)
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
}
