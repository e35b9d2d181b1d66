package state

import (
	"net/netip"
	"time"
)

// ParentCfg describes a neighbour as it is discovered at startup
type ParentCfg struct {
	Id      ParentId `yaml:"id"`
	Metrics `yaml:",inline"`
	Sink    bool     `yaml:"sink,omitempty"`
	Trust   *float64 `yaml:"trust,omitempty"` // externally supplied initial trust, defaults to InitialTrust
}

type MonitorCfg struct {
	DropRateThreshold       float64 `yaml:"drop_rate_threshold"`
	SuddenIncreaseThreshold float64 `yaml:"sudden_increase_threshold"`
	TrustDecrement          float64 `yaml:"trust_decrement"`
	TrustIncrement          float64 `yaml:"trust_increment"`
	MinTrust                float64 `yaml:"min_trust"`
	MaxTrust                float64 `yaml:"max_trust"`
}

// PhaseCfg is one stretch of simulated traffic
type PhaseCfg struct {
	Name          string   `yaml:"name"`
	Rounds        int      `yaml:"rounds"`
	Attacker      ParentId `yaml:"attacker,omitempty"`       // parent that drops traffic during this phase
	DropProb      float64  `yaml:"drop_prob,omitempty"`      // fraction of packets the attacker drops
	Lure          bool     `yaml:"lure,omitempty"`           // attacker advertises attractive metrics
	ResetCounters bool     `yaml:"reset_counters,omitempty"` // start a new observation window when the phase begins
}

type SimulationCfg struct {
	Seed            uint64     `yaml:"seed"`
	PacketsPerRound int64      `yaml:"packets_per_round,omitempty"`
	Phases          []PhaseCfg `yaml:"phases"`
}

// TotalRounds is the number of rounds across all phases
func (s *SimulationCfg) TotalRounds() int {
	total := 0
	for _, p := range s.Phases {
		total += p.Rounds
	}
	return total
}

// PhaseAt returns the phase that round (0-based) falls in, and whether the round is its first.
func (s *SimulationCfg) PhaseAt(round int) (*PhaseCfg, bool) {
	for i := range s.Phases {
		p := &s.Phases[i]
		if round < p.Rounds {
			return p, round == 0
		}
		round -= p.Rounds
	}
	return nil, false
}

// LocalCfg represents local node-level configuration
type LocalCfg struct {
	Id         NodeId         `yaml:"id"`                    // unique id for this node
	LogPath    string         `yaml:"log_path,omitempty"`    // if not empty, edgeflow will also write to this file
	RoundDelay *time.Duration `yaml:"round_delay,omitempty"` // delay between rounds
	DebugAddr  string         `yaml:"debug_addr,omitempty"`  // if not empty, serves /debug/vars and /debug/metrics
	Prefixes   []netip.Prefix `yaml:"prefixes,omitempty"`    // prefixes routed through the preferred parent
	Monitor    MonitorCfg     `yaml:"monitor"`
	Parents    []ParentCfg    `yaml:"parents"`
	Simulation SimulationCfg  `yaml:"simulation"`
}

type NodeId string

func DefaultMonitorCfg() MonitorCfg {
	return MonitorCfg{
		DropRateThreshold:       DefaultDropRateThreshold,
		SuddenIncreaseThreshold: DefaultSuddenIncreaseThreshold,
		TrustDecrement:          DefaultTrustDecrement,
		TrustIncrement:          DefaultTrustIncrement,
		MinTrust:                DefaultMinTrust,
		MaxTrust:                DefaultMaxTrust,
	}
}

// DefaultLocalCfg is the sinkhole demo: three parents from the paper matrix plus an attractive P4
// that turns malicious in the second phase.
func DefaultLocalCfg(id NodeId) LocalCfg {
	return LocalCfg{
		Id:       id,
		Prefixes: []netip.Prefix{netip.MustParsePrefix("::/0")},
		Monitor: MonitorCfg{
			DropRateThreshold:       0.2,
			SuddenIncreaseThreshold: 0.15,
			TrustDecrement:          0.3,
			TrustIncrement:          0.05,
			MinTrust:                DefaultMinTrust,
			MaxTrust:                DefaultMaxTrust,
		},
		Parents: []ParentCfg{
			{Id: "P1", Metrics: Metrics{Etx: 699, Bo: 0.5, RtMetric: 2320}},
			{Id: "P2", Metrics: Metrics{Etx: 768, Bo: 0.625, RtMetric: 2048}},
			{Id: "P3", Metrics: Metrics{Etx: 640, Bo: 0.375, RtMetric: 1766}},
			{Id: "P4", Metrics: Metrics{Etx: 300, Bo: 0.2, RtMetric: 900}},
		},
		Simulation: SimulationCfg{
			Seed:            1,
			PacketsPerRound: PacketsPerRound,
			Phases: []PhaseCfg{
				{Name: "normal", Rounds: 3},
				{Name: "attack", Rounds: 5, Attacker: "P4", DropProb: 0.75, Lure: true, ResetCounters: true},
				{Name: "post-attack", Rounds: 4, ResetCounters: true},
			},
		},
	}
}

// GetRoundDelay returns the configured delay, or RoundDelay
func (c *LocalCfg) GetRoundDelay() time.Duration {
	if c.RoundDelay == nil {
		return RoundDelay
	}
	return *c.RoundDelay
}

func (c *LocalCfg) GetParentCfg(id ParentId) *ParentCfg {
	for i := range c.Parents {
		if c.Parents[i].Id == id {
			return &c.Parents[i]
		}
	}
	return nil
}

// NewParents builds the parent list in configuration order
func (c *LocalCfg) NewParents() []*Parent {
	parents := make([]*Parent, 0, len(c.Parents))
	for _, pc := range c.Parents {
		parents = append(parents, NewParentFromCfg(pc))
	}
	return parents
}
