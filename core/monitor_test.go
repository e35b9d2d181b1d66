package core

import (
	"math/rand/v2"
	"testing"

	"github.com/encodeous/edgeflow/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var plain = state.Metrics{Etx: 100, Bo: 0.2, RtMetric: 100}

func TestMonitor_SevereLoss(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 35)

	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assertAlerts(t, []Alert{{
		Level: LevelAlert, Rule: RuleSevereLoss, Parent: "P1",
		OldTrust: 1.0, NewTrust: 0.75, DropRate: 0.35,
	}}, alerts)
	assert.InDelta(t, 0.75, p.Trust(), 1e-9)
	prev, ok := m.Previous("P1")
	assert.True(t, ok)
	assert.InDelta(t, 0.35, prev, 1e-9)
}

func TestMonitor_SevereLossTakesPrecedence(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 5)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assert.Empty(t, alerts)

	observe(t, p, 100, 30)
	alerts, err = m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assertAlerts(t, []Alert{{
		Level: LevelAlert, Rule: RuleSevereLoss, Parent: "P1",
		OldTrust: 1.0, NewTrust: 0.75, DropRate: 0.30, PrevDropRate: 0.05,
	}}, alerts)
}

func TestMonitor_SuddenSpike(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 2)
	_, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)

	observe(t, p, 100, 22)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assertAlerts(t, []Alert{{
		Level: LevelAlert, Rule: RuleSuddenSpike, Parent: "P1",
		OldTrust: 1.0, NewTrust: 0.875, DropRate: 0.22, PrevDropRate: 0.02,
	}}, alerts)
	assert.Equal(t, "[ALERT] Parent P1 sudden drop rate increase 0.02->0.22 -> trust 1.00 -> 0.88", alerts[0].String())
}

func TestMonitor_StableRewardAtMaximum(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 10)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 1.0, p.Trust())
}

func TestMonitor_StableRewardRaisesTrust(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 0.5)
	observe(t, p, 100, 0)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assertAlerts(t, []Alert{{
		Level: LevelInfo, Rule: RuleStableReward, Parent: "P1",
		OldTrust: 0.5, NewTrust: 0.55,
	}}, alerts)

	// clamps at the maximum
	require.NoError(t, p.SetTrust(0.98))
	alerts, err = m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 1.0, alerts[0].NewTrust)
	assert.Equal(t, 1.0, p.Trust())
}

func TestMonitor_NoTrafficIsStable(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 0.9)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleStableReward, alerts[0].Rule)
	assert.InDelta(t, 0.95, p.Trust(), 1e-9)
}

func TestMonitor_GreyZoneIsNeutral(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 0.6)
	for _, dropped := range []int64{15, 20, 29, 25, 16} {
		observe(t, p, 100, dropped)
		alerts, err := m.Inspect([]*state.Parent{p})
		require.NoError(t, err)
		assert.Empty(t, alerts, "dropped %d", dropped)
		assert.Equal(t, 0.6, p.Trust())
	}
}

func TestMonitor_SlowDriftIsNotASpike(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	for _, dropped := range []int64{0, 10, 19, 28} {
		observe(t, p, 100, dropped)
		alerts, err := m.Inspect([]*state.Parent{p})
		require.NoError(t, err)
		for _, a := range alerts {
			assert.NotEqual(t, RuleSuddenSpike, a.Rule)
		}
	}
	assert.Equal(t, 1.0, p.Trust())
}

func TestMonitor_BaselineOverwrittenAfterSpike(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 0)
	_, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)

	observe(t, p, 100, 25)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleSuddenSpike, alerts[0].Rule)

	// compared against the spike, not the calm baseline
	observe(t, p, 100, 26)
	alerts, err = m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assert.Empty(t, alerts)
	prev, _ := m.Previous("P1")
	assert.InDelta(t, 0.26, prev, 1e-9)
	assert.InDelta(t, 0.875, p.Trust(), 1e-9)
}

func TestMonitor_TrustFloor(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P4", plain, 0.1)
	observe(t, p, 100, 80)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 0.0, alerts[0].NewTrust)
	assert.Equal(t, 0.0, p.Trust())

	// still alerts at the floor, even though trust cannot move
	alerts, err = m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	assertAlerts(t, []Alert{{
		Level: LevelAlert, Rule: RuleSevereLoss, Parent: "P4",
		DropRate: 0.8, PrevDropRate: 0.8,
	}}, alerts)
}

func TestMonitor_CounterResetKeepsHistory(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 0.7)
	observe(t, p, 100, 18)
	_, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)

	p.ResetCounters()
	assert.Equal(t, 0.7, p.Trust())
	prev, ok := m.Previous("P1")
	require.True(t, ok)
	assert.InDelta(t, 0.18, prev, 1e-9)
}

func TestMonitor_AtomicOnInvalidParent(t *testing.T) {
	m := newMonitor(t)
	good := makeParent(t, "good", plain, 1.0)
	observe(t, good, 100, 50)
	bad := makeParent(t, "bad", plain, 1.5)

	alerts, err := m.Inspect([]*state.Parent{good, bad})
	assert.ErrorIs(t, err, state.ErrInconsistentState)
	assert.Nil(t, alerts)
	assert.Equal(t, 1.0, good.Trust())
	_, ok := m.Previous("good")
	assert.False(t, ok)

	broken := state.NewParent("broken", state.Metrics{Bo: 2}, false)
	_, err = m.Inspect([]*state.Parent{good, broken})
	assert.ErrorIs(t, err, state.ErrInconsistentState)
	assert.Equal(t, 1.0, good.Trust())
}

func TestMonitor_OneAlertPerParent(t *testing.T) {
	m := newMonitor(t)
	parents := []*state.Parent{
		makeParent(t, "P1", plain, 0.5),
		makeParent(t, "P2", plain, 1.0),
		makeParent(t, "P3", plain, 0.9),
		makeParent(t, "P4", plain, 1.0),
	}
	observe(t, parents[0], 100, 1)
	observe(t, parents[1], 100, 40)
	observe(t, parents[2], 100, 20)
	observe(t, parents[3], 100, 3)

	alerts, err := m.Inspect(parents)
	require.NoError(t, err)
	assertAlerts(t, []Alert{
		{Level: LevelInfo, Rule: RuleStableReward, Parent: "P1", OldTrust: 0.5, NewTrust: 0.55, DropRate: 0.01},
		{Level: LevelAlert, Rule: RuleSevereLoss, Parent: "P2", OldTrust: 1.0, NewTrust: 0.75, DropRate: 0.4},
		{Level: LevelAlert, Rule: RuleSuddenSpike, Parent: "P3", OldTrust: 0.9, NewTrust: 0.775, DropRate: 0.2},
	}, alerts)
}

func TestMonitor_DuplicateEntries(t *testing.T) {
	m := newMonitor(t)
	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 40)

	alerts, err := m.Inspect([]*state.Parent{p, p})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.InDelta(t, 0.75, alerts[0].NewTrust, 1e-9)
	assert.InDelta(t, 0.75, alerts[1].OldTrust, 1e-9)
	assert.InDelta(t, 0.5, p.Trust(), 1e-9)
}

func TestMonitor_ForgetAndClear(t *testing.T) {
	m := newMonitor(t)
	a := makeParent(t, "a", plain, 1.0)
	b := makeParent(t, "b", plain, 1.0)
	observe(t, a, 100, 10)
	observe(t, b, 100, 10)
	_, err := m.Inspect([]*state.Parent{a, b})
	require.NoError(t, err)

	m.Forget("a")
	_, ok := m.Previous("a")
	assert.False(t, ok)
	_, ok = m.Previous("b")
	assert.True(t, ok)

	m.Clear()
	_, ok = m.Previous("b")
	assert.False(t, ok)

	// without history, the previous drop rate is zero
	observe(t, b, 100, 20)
	alerts, err := m.Inspect([]*state.Parent{b})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleSuddenSpike, alerts[0].Rule)
}

func TestMonitor_InvalidConfig(t *testing.T) {
	cfg := state.DefaultMonitorCfg()
	cfg.MinTrust = 2
	_, err := NewIntrusionMonitor(cfg)
	assert.Error(t, err)

	cfg = state.DefaultMonitorCfg()
	cfg.TrustDecrement = -0.1
	_, err = NewIntrusionMonitor(cfg)
	assert.Error(t, err)
}

func TestMonitor_CustomConfig(t *testing.T) {
	cfg := state.DefaultMonitorCfg()
	cfg.DropRateThreshold = 0.5
	cfg.TrustDecrement = 0.4
	m, err := NewIntrusionMonitor(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, m.Config())

	p := makeParent(t, "P1", plain, 1.0)
	observe(t, p, 100, 35)
	alerts, err := m.Inspect([]*state.Parent{p})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleSuddenSpike, alerts[0].Rule)
	assert.InDelta(t, 0.8, p.Trust(), 1e-9)
}

func TestMonitor_TrustStaysInBounds(t *testing.T) {
	m := newMonitor(t)
	rng := rand.New(rand.NewPCG(7, 11))
	parents := make([]*state.Parent, 0)
	for _, id := range []state.ParentId{"a", "b", "c", "d", "e"} {
		parents = append(parents, makeParent(t, id, plain, rng.Float64()))
	}
	for range 200 {
		for _, p := range parents {
			sent := rng.Int64N(200)
			var dropped int64
			if sent > 0 {
				dropped = rng.Int64N(sent + 1)
			}
			observe(t, p, sent, dropped)
		}
		alerts, err := m.Inspect(parents)
		require.NoError(t, err)
		seen := make(map[state.ParentId]bool)
		for _, a := range alerts {
			assert.False(t, seen[a.Parent], "more than one alert for %s", a.Parent)
			seen[a.Parent] = true
		}
		for _, p := range parents {
			assert.GreaterOrEqual(t, p.Trust(), 0.0)
			assert.LessOrEqual(t, p.Trust(), 1.0)
		}
	}
}
