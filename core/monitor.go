package core

import (
	"fmt"
	"maps"
	"sync"

	"github.com/encodeous/edgeflow/state"
)

// IntrusionMonitor adjusts trust from observed delivery statistics. It is the only writer of
// parent trust, and owns the previous drop rate of every parent it has inspected.
//
// The previous drop rate is overwritten every round regardless of which rule fired. A slow drift
// therefore never shows up as a sudden increase, and a spike followed by a calm round cannot be
// detected again against the pre-spike baseline.
type IntrusionMonitor struct {
	cfg  state.MonitorCfg
	mu   sync.Mutex
	prev map[state.ParentId]float64
}

func NewIntrusionMonitor(cfg state.MonitorCfg) (*IntrusionMonitor, error) {
	if err := state.MonitorConfigValidator(&cfg); err != nil {
		return nil, err
	}
	return &IntrusionMonitor{
		cfg:  cfg,
		prev: make(map[state.ParentId]float64),
	}, nil
}

func (m *IntrusionMonitor) Config() state.MonitorCfg {
	return m.cfg
}

type trustDecision struct {
	parent *state.Parent
	trust  float64
}

// Inspect evaluates every parent in order and updates its trust in place. At most one rule fires
// per parent:
//
//   - severe loss: drop rate >= DropRateThreshold, trust -= TrustDecrement
//   - sudden spike: drop rate rose by >= SuddenIncreaseThreshold since the last round, trust -= TrustDecrement/2
//   - stable reward: drop rate < DropRateThreshold/2, trust += TrustIncrement
//
// Drop rates between half the threshold and the threshold leave trust unchanged. If any parent is
// invalid nothing is modified.
func (m *IntrusionMonitor) Inspect(parents []*state.Parent) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range parents {
		if err := state.CheckParent(p); err != nil {
			return nil, err
		}
		if t := p.Trust(); t < m.cfg.MinTrust || t > m.cfg.MaxTrust {
			return nil, fmt.Errorf("parent %s: trust %v outside [%v, %v]: %w",
				p.Id(), t, m.cfg.MinTrust, m.cfg.MaxTrust, state.ErrInconsistentState)
		}
	}

	alerts := make([]Alert, 0)
	decisions := make([]trustDecision, 0, len(parents))
	staged := make(map[state.ParentId]float64, len(parents))
	// a parent listed twice sees the trust staged for its first entry
	stagedTrust := make(map[*state.Parent]float64, len(parents))

	for _, p := range parents {
		current := p.DropRate()
		prev, ok := staged[p.Id()]
		if !ok {
			prev = m.prev[p.Id()]
		}
		oldTrust, ok := stagedTrust[p]
		if !ok {
			oldTrust = p.Trust()
		}
		newTrust := oldTrust

		if current >= m.cfg.DropRateThreshold {
			newTrust = max(m.cfg.MinTrust, oldTrust-m.cfg.TrustDecrement)
			alerts = append(alerts, Alert{
				Level:        LevelAlert,
				Rule:         RuleSevereLoss,
				Parent:       p.Id(),
				OldTrust:     oldTrust,
				NewTrust:     newTrust,
				DropRate:     current,
				PrevDropRate: prev,
			})
		} else if current-prev >= m.cfg.SuddenIncreaseThreshold {
			newTrust = max(m.cfg.MinTrust, oldTrust-m.cfg.TrustDecrement/2)
			alerts = append(alerts, Alert{
				Level:        LevelAlert,
				Rule:         RuleSuddenSpike,
				Parent:       p.Id(),
				OldTrust:     oldTrust,
				NewTrust:     newTrust,
				DropRate:     current,
				PrevDropRate: prev,
			})
		} else if current < m.cfg.DropRateThreshold/2 {
			newTrust = min(m.cfg.MaxTrust, oldTrust+m.cfg.TrustIncrement)
			if newTrust != oldTrust {
				alerts = append(alerts, Alert{
					Level:        LevelInfo,
					Rule:         RuleStableReward,
					Parent:       p.Id(),
					OldTrust:     oldTrust,
					NewTrust:     newTrust,
					DropRate:     current,
					PrevDropRate: prev,
				})
			}
		}

		staged[p.Id()] = current
		stagedTrust[p] = newTrust
		decisions = append(decisions, trustDecision{parent: p, trust: newTrust})
	}

	// staged trusts are finite and clamped, so committing cannot fail part way
	for _, d := range decisions {
		if err := d.parent.SetTrust(d.trust); err != nil {
			panic(err)
		}
	}
	maps.Copy(m.prev, staged)
	return alerts, nil
}

// Previous returns the drop rate recorded for id in the last round it was inspected
func (m *IntrusionMonitor) Previous(id state.ParentId) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.prev[id]
	return v, ok
}

// Forget drops the history of a single parent, e.g. when it is no longer a neighbour
func (m *IntrusionMonitor) Forget(id state.ParentId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prev, id)
}

// Clear drops all history. Call it when the topology changes and ids may be reused by different nodes.
func (m *IntrusionMonitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.prev)
}
