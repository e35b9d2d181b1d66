package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/encodeous/edgeflow/core"
	"github.com/encodeous/edgeflow/sim"
	"github.com/encodeous/edgeflow/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run edgeflow",
	Long:  `Runs the configured rounds: traffic is simulated (or replayed), the intrusion monitor updates trust, and a preferred parent is selected every round.`,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		status, _ := cmd.Flags().GetBool("status")
		logPath, _ := cmd.Flags().GetString("log")
		replayPath, _ := cmd.Flags().GetString("replay")

		newTraffic := func(cfg *state.LocalCfg, log *slog.Logger) (state.TrafficSource, error) {
			if replayPath != "" {
				return sim.LoadReplay(replayPath)
			}
			return sim.NewTraffic(cfg.Simulation, log), nil
		}

		var subs []chan<- interface{}
		done := make(chan struct{})
		finished := make(chan struct{})
		if status {
			reports := make(chan interface{}, 64)
			subs = append(subs, reports)
			go func() {
				defer close(finished)
				for {
					select {
					case m := <-reports:
						printReport(os.Stdout, m.(core.RoundReport))
					case <-done:
						for {
							select {
							case m := <-reports:
								printReport(os.Stdout, m.(core.RoundReport))
							default:
								return
							}
						}
					}
				}
			}()
		} else {
			close(finished)
		}

		err := core.Bootstrap(configPath, logPath, verbose, newTraffic, subs...)
		close(done)
		<-finished
		if err != nil {
			panic(err)
		}
	},
	GroupID: "ef",
}

func printReport(w io.Writer, r core.RoundReport) {
	_, _ = fmt.Fprintf(w, "\n--- Round %d (%s) ---\n", r.Round+1, r.Phase)
	for _, a := range r.Alerts {
		_, _ = fmt.Fprintln(w, a.String())
	}
	_, _ = fmt.Fprintln(w, "Parent status:")
	for _, p := range r.Parents {
		_, _ = fmt.Fprintf(w, "  %3s | ETX: %6.1f | BO: %.3f | Rt: %6.1f | trust: %.2f | drop: %.2f | rank: %.1f\n",
			p.Id, p.Metrics.Etx, p.Metrics.Bo, p.Metrics.RtMetric, p.Trust, p.DropRate, p.Rank)
	}
	for _, p := range r.Parents {
		if p.Id == r.Selected {
			_, _ = fmt.Fprintf(w, ">>> Selected best parent: %s (trust %.2f)\n", p.Id, p.Trust)
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolP("status", "s", false, "Print the parent status table after every round")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().StringP("replay", "r", "", "Replay recorded traffic from this file instead of simulating it")
}
