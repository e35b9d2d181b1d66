package cmd

import (
	"fmt"

	"github.com/encodeous/edgeflow/core"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [debug addr]",
	Aliases: []string{"i"},
	Short:   "Inspects the current state of a running node",
	Long:    `Queries the debug endpoint of a running node. Without an address, the debug_addr of the node config is used.`,
	Run: func(cmd *cobra.Command, args []string) {
		var addr string
		if len(args) == 1 {
			addr = args[0]
		} else {
			nodeCfg, err := core.ReadNodeConfig(configPath)
			if err != nil {
				fmt.Println("Error:", err.Error())
				return
			}
			addr = nodeCfg.DebugAddr
		}
		if addr == "" {
			fmt.Println("Usage: edgeflow inspect <debug addr>, or set debug_addr in the node config")
			return
		}
		result, err := core.IPCGet(addr)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Print(result)
	},
	GroupID: "ef",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
