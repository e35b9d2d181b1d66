package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/encodeous/edgeflow/perf"
	"github.com/encodeous/edgeflow/state"
)

var ErrRoundsComplete = errors.New("all simulation rounds completed")

// TrustRouter runs the per-round pipeline: traffic, intrusion monitor, parent selection.
type TrustRouter struct {
	*state.State
	Monitor   *IntrusionMonitor
	NextHops  *NextHopTable
	Alerts    *AlertLog
	Preferred state.ParentId
}

func (r *TrustRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	monitor, err := NewIntrusionMonitor(s.Monitor)
	if err != nil {
		return err
	}
	r.Monitor = monitor
	r.NextHops = NewNextHopTable(s.Prefixes)
	r.Alerts = NewAlertLog(s.Log, state.AlertDedupTTL)
	if s.Parents == nil {
		s.Parents = s.LocalCfg.NewParents()
	}

	s.Env.RepeatTask(runRound, s.GetRoundDelay())
	return nil
}

func (r *TrustRouter) Cleanup(s *state.State) error {
	if r.NextHops != nil {
		r.NextHops.Withdraw()
	}
	r.State = nil
	return nil
}

// ResetTopology replaces the neighbour set. The monitor history is cleared as ids may now refer
// to different nodes.
func (r *TrustRouter) ResetTopology(parents []*state.Parent) {
	r.Parents = parents
	r.Monitor.Clear()
	r.Preferred = ""
	r.NextHops.Withdraw()
}

func runRound(s *state.State) error {
	total := s.Simulation.TotalRounds()
	if s.Traffic != nil {
		total = s.Traffic.Rounds()
	}
	if s.Round >= total {
		s.Cancel(ErrRoundsComplete)
		return nil
	}
	r := Get[*TrustRouter](s)
	report, err := r.Round()
	if err != nil {
		return err
	}
	Get[*RoundTrace](s).Submit(report)
	return nil
}

// Round executes a single round and advances the round counter
func (r *TrustRouter) Round() (RoundReport, error) {
	start := time.Now()
	round := r.State.Round
	report := RoundReport{Round: round}
	if r.Traffic != nil {
		report.Phase = r.Traffic.Phase(round)
		if err := r.Traffic.Step(round, r.TrafficViews()); err != nil {
			return report, fmt.Errorf("round %d: traffic: %w", round, err)
		}
	}

	alerts, err := r.Monitor.Inspect(r.Parents)
	if err != nil {
		perf.MonitorErrorPerSecond.Add(1)
		return report, fmt.Errorf("round %d: inspect: %w", round, err)
	}
	report.Alerts = alerts
	for _, a := range alerts {
		if a.Level == LevelAlert {
			perf.AlertsPerSecond.Add(1)
		} else {
			perf.InfoAlertsPerSecond.Add(1)
		}
	}
	perf.SuppressedAlerts.Add(float64(r.Alerts.Emit(alerts)))
	r.Alerts.DeleteExpired()

	best, err := Select(r.Parents)
	if err != nil {
		return report, fmt.Errorf("round %d: select: %w", round, err)
	}
	report.Selected = best.Id()
	if best.Id() != r.Preferred {
		report.Changed = true
		r.Log.Info("preferred parent changed", "round", round, "from", r.Preferred, "to", best.Id(), "trust", best.Trust())
		r.Preferred = best.Id()
		r.NextHops.Install(best.Id())
		perf.ParentChanges.Add(1)
	}
	perf.SelectedTrust.Add(best.Trust())

	for _, p := range r.Parents {
		rank, err := Rank(p)
		if err != nil {
			return report, fmt.Errorf("round %d: rank: %w", round, err)
		}
		report.Parents = append(report.Parents, ParentStatus{
			Id:       p.Id(),
			Metrics:  p.Metrics(),
			Sink:     p.IsSink(),
			Trust:    p.Trust(),
			DropRate: p.DropRate(),
			Rank:     rank,
		})
	}

	r.Log.Debug("round complete", "round", round, "phase", report.Phase, "selected", best.Id(), "alerts", len(alerts))
	r.State.Round++
	perf.RoundsPerSecond.Add(1)
	perf.RoundLatency.Add(float64(time.Since(start).Microseconds()))
	return report, nil
}
