package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/edgeflow/core"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch [debug addr]",
	Aliases: []string{"w"},
	Short:   "Streams the round reports of a running node",
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
			fmt.Println("Usage: edgeflow watch <debug addr>, or set debug_addr in the node config")
			return
		}
		err := core.WatchTrace(addr, func(report core.RoundReport) error {
			printReport(os.Stdout, report)
			return nil
		})
		if err != nil {
			fmt.Println("Error:", err.Error())
		}
	},
	GroupID: "ef",
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
