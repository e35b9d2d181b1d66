package sim

import (
	"fmt"
	"os"

	"github.com/encodeous/edgeflow/state"
	"github.com/goccy/go-yaml"
)

// Observation is the traffic recorded for one parent in one round
type Observation struct {
	Parent  state.ParentId `yaml:"parent"`
	Sent    int64          `yaml:"sent"`
	Dropped int64          `yaml:"dropped"`
	Metrics *state.Metrics `yaml:"metrics,omitempty"` // overrides the advertised metrics when set
}

type RecordedRound struct {
	Phase         string        `yaml:"phase,omitempty"`
	ResetCounters bool          `yaml:"reset_counters,omitempty"`
	Observations  []Observation `yaml:"observations"`
}

// Replay feeds previously recorded delivery counters back into the parents, one recorded round per round.
type Replay struct {
	Recorded []RecordedRound
}

func LoadReplay(path string) (*Replay, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rounds []RecordedRound
	err = yaml.Unmarshal(file, &rounds)
	if err != nil {
		return nil, err
	}
	return &Replay{Recorded: rounds}, nil
}

func (r *Replay) Rounds() int {
	return len(r.Recorded)
}

func (r *Replay) Phase(round int) string {
	if round < 0 || round >= len(r.Recorded) {
		return ""
	}
	return r.Recorded[round].Phase
}

func (r *Replay) Step(round int, parents []state.TrafficView) error {
	if round < 0 || round >= len(r.Recorded) {
		return fmt.Errorf("no recorded round %d: %w", round, state.ErrInvalidArgument)
	}
	rec := r.Recorded[round]
	byId := make(map[state.ParentId]state.TrafficView, len(parents))
	for _, p := range parents {
		byId[p.Id()] = p
	}
	for _, obs := range rec.Observations {
		if _, ok := byId[obs.Parent]; !ok {
			return fmt.Errorf("round %d: unknown parent %s: %w", round, obs.Parent, state.ErrInvalidArgument)
		}
	}

	if rec.ResetCounters {
		for _, p := range parents {
			p.ResetCounters()
		}
	}
	for _, obs := range rec.Observations {
		p := byId[obs.Parent]
		if obs.Metrics != nil {
			p.SetMetrics(*obs.Metrics)
		}
		if err := Deliver(p, obs.Sent, obs.Dropped); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
	}
	return nil
}
