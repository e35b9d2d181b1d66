package state

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("P1"))
	assert.NoError(t, NameValidator("node-a.mesh_1"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator("abcd-a.com\\hi"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestMonitorConfigValidator(t *testing.T) {
	def := DefaultMonitorCfg()
	assert.NoError(t, MonitorConfigValidator(&def))

	tests := []struct {
		name   string
		mutate func(c *MonitorCfg)
	}{
		{"zero threshold", func(c *MonitorCfg) { c.DropRateThreshold = 0 }},
		{"threshold above one", func(c *MonitorCfg) { c.DropRateThreshold = 1.2 }},
		{"zero spike threshold", func(c *MonitorCfg) { c.SuddenIncreaseThreshold = 0 }},
		{"negative decrement", func(c *MonitorCfg) { c.TrustDecrement = -0.1 }},
		{"negative increment", func(c *MonitorCfg) { c.TrustIncrement = -0.1 }},
		{"negative min trust", func(c *MonitorCfg) { c.MinTrust = -1 }},
		{"inverted bounds", func(c *MonitorCfg) { c.MinTrust, c.MaxTrust = 0.8, 0.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMonitorCfg()
			tt.mutate(&cfg)
			assert.Error(t, MonitorConfigValidator(&cfg))
		})
	}
}

func TestNodeConfigValidator_Default(t *testing.T) {
	cfg := DefaultLocalCfg("node-a")
	assert.NoError(t, NodeConfigValidator(&cfg))
}

func TestNodeConfigValidator_Invalid(t *testing.T) {
	high := 1.5
	negative := -time.Second
	tests := []struct {
		name   string
		mutate func(c *LocalCfg)
		errMsg string
	}{
		{"bad id", func(c *LocalCfg) { c.Id = "bad id" }, "not a valid name"},
		{"no parents", func(c *LocalCfg) { c.Parents = nil }, "at least one parent"},
		{"duplicate parent", func(c *LocalCfg) { c.Parents = append(c.Parents, c.Parents[0]) }, "duplicate parent found: P1"},
		{"trust above max", func(c *LocalCfg) { c.Parents[1].Trust = &high }, "parent P2: trust 1.5 outside"},
		{"bad buffer occupancy", func(c *LocalCfg) { c.Parents[0].Bo = 2 }, "buffer occupancy"},
		{"unknown attacker", func(c *LocalCfg) { c.Simulation.Phases[1].Attacker = "P9" }, "attacker P9 is not a configured parent"},
		{"bad drop prob", func(c *LocalCfg) { c.Simulation.Phases[1].DropProb = 2 }, "drop_prob"},
		{"negative delay", func(c *LocalCfg) { c.RoundDelay = &negative }, "round_delay"},
		{"bad monitor", func(c *LocalCfg) { c.Monitor.MaxTrust = -1 }, "monitor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLocalCfg("node-a")
			tt.mutate(&cfg)
			assert.ErrorContains(t, NodeConfigValidator(&cfg), tt.errMsg)
		})
	}
}
