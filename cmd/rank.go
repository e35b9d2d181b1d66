package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/edgeflow/core"
	"github.com/encodeous/edgeflow/state"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Ranks the configured parents and shows which one would be selected",
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

		parents := nodeCfg.NewParents()
		ranks, err := core.Ranks(parents)
		if err != nil {
			panic(err)
		}
		for i, p := range parents {
			fmt.Printf("  %3s | base: %9.1f | trust: %.2f | sink: %-5v | rank: %.1f\n",
				p.Id(), core.BaseRank(p.Metrics()), p.Trust(), p.IsSink(), ranks[i])
		}
		best, err := core.Select(parents)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Best parent selected: %s\n", best.Id())
	},
	GroupID: "ef",
}

func init() {
	rootCmd.AddCommand(rankCmd)
}
