package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/encodeous/edgeflow/state"
)

// Traffic simulates the link layer: it jitters the advertised metrics of every parent, sends a
// fixed number of packets through each of them, and lets the configured attacker drop its share.
type Traffic struct {
	cfg state.SimulationCfg
	rng *rand.Rand
	log *slog.Logger
}

func NewTraffic(cfg state.SimulationCfg, log *slog.Logger) *Traffic {
	if cfg.PacketsPerRound == 0 {
		cfg.PacketsPerRound = state.PacketsPerRound
	}
	return &Traffic{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log: log,
	}
}

func (t *Traffic) uniform(lo, hi float64) float64 {
	return lo + t.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func (t *Traffic) Rounds() int {
	return t.cfg.TotalRounds()
}

func (t *Traffic) Phase(round int) string {
	if phase, _ := t.cfg.PhaseAt(round); phase != nil {
		return phase.Name
	}
	return ""
}

func (t *Traffic) Step(round int, parents []state.TrafficView) error {
	phase, first := t.cfg.PhaseAt(round)
	if phase == nil {
		return fmt.Errorf("round %d is past the last simulation phase: %w", round, state.ErrInvalidArgument)
	}
	if first {
		t.log.Info("entering phase", "phase", phase.Name, "round", round, "attacker", phase.Attacker)
		if phase.ResetCounters {
			for _, p := range parents {
				p.ResetCounters()
			}
		}
	}

	for _, p := range parents {
		attacking := phase.Attacker != "" && p.Id() == phase.Attacker
		if attacking && phase.Lure {
			// advertise attractive metrics to pull traffic in
			p.SetMetrics(state.Metrics{
				Etx:      t.uniform(50, 150),
				Bo:       t.uniform(0.05, 0.15),
				RtMetric: t.uniform(400, 1000),
			})
		}
		m := p.Metrics()
		p.SetMetrics(state.Metrics{
			Etx:      max(1.0, m.Etx+t.uniform(-state.EtxJitter, state.EtxJitter)),
			Bo:       clamp(m.Bo+t.uniform(-state.BoJitter, state.BoJitter), 0, 1),
			RtMetric: max(1.0, m.RtMetric+t.uniform(-state.RtMetricJitter, state.RtMetricJitter)),
		})

		packets := t.cfg.PacketsPerRound
		var dropped int64
		if attacking {
			prob := phase.DropProb
			if prob == 0 {
				prob = state.DefaultAttackDrop
			}
			dropped = int64(float64(packets) * prob)
		} else {
			dropped = int64(float64(packets) * t.uniform(0, state.HealthyDropMax))
		}
		if err := Deliver(p, packets, dropped); err != nil {
			return err
		}
	}
	return nil
}

// Deliver records one batch of packets sent through p, of which dropped were lost
func Deliver(p state.TrafficView, sent, dropped int64) error {
	if sent < 0 || dropped < 0 {
		return fmt.Errorf("parent %s: negative packet counts (sent %d, dropped %d): %w", p.Id(), sent, dropped, state.ErrInvalidArgument)
	}
	if dropped > sent {
		return fmt.Errorf("parent %s: dropped %d exceeds sent %d: %w", p.Id(), dropped, sent, state.ErrInvalidArgument)
	}
	if err := p.RecordSent(sent); err != nil {
		return err
	}
	if err := p.RecordDropped(dropped); err != nil {
		return err
	}
	return p.RecordDelivered(sent - dropped)
}
