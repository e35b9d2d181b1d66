package state

import (
	"fmt"
	"regexp"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func MonitorConfigValidator(cfg *MonitorCfg) error {
	for name, v := range map[string]float64{
		"drop_rate_threshold":       cfg.DropRateThreshold,
		"sudden_increase_threshold": cfg.SuddenIncreaseThreshold,
		"trust_decrement":           cfg.TrustDecrement,
		"trust_increment":           cfg.TrustIncrement,
		"min_trust":                 cfg.MinTrust,
		"max_trust":                 cfg.MaxTrust,
	} {
		if !finite(v) {
			return fmt.Errorf("monitor.%s must be finite, got %v", name, v)
		}
	}
	if cfg.DropRateThreshold <= 0 || cfg.DropRateThreshold > 1 {
		return fmt.Errorf("monitor.drop_rate_threshold must be within (0, 1], got %v", cfg.DropRateThreshold)
	}
	if cfg.SuddenIncreaseThreshold <= 0 || cfg.SuddenIncreaseThreshold > 1 {
		return fmt.Errorf("monitor.sudden_increase_threshold must be within (0, 1], got %v", cfg.SuddenIncreaseThreshold)
	}
	if cfg.TrustDecrement < 0 {
		return fmt.Errorf("monitor.trust_decrement must be >= 0, got %v", cfg.TrustDecrement)
	}
	if cfg.TrustIncrement < 0 {
		return fmt.Errorf("monitor.trust_increment must be >= 0, got %v", cfg.TrustIncrement)
	}
	if cfg.MinTrust < 0 {
		return fmt.Errorf("monitor.min_trust must be >= 0, got %v", cfg.MinTrust)
	}
	if cfg.MinTrust > cfg.MaxTrust {
		return fmt.Errorf("monitor.min_trust (%v) must not exceed monitor.max_trust (%v)", cfg.MinTrust, cfg.MaxTrust)
	}
	return nil
}

func ParentConfigValidator(p *ParentCfg) error {
	err := NameValidator(string(p.Id))
	if err != nil {
		return err
	}
	if err := CheckParent(NewParentFromCfg(*p)); err != nil {
		return err
	}
	return nil
}

func SimulationConfigValidator(cfg *LocalCfg) error {
	sim := &cfg.Simulation
	if sim.PacketsPerRound < 0 {
		return fmt.Errorf("simulation.packets_per_round must be >= 0, got %d", sim.PacketsPerRound)
	}
	for _, phase := range sim.Phases {
		if phase.Rounds < 0 {
			return fmt.Errorf("phase %s: rounds must be >= 0, got %d", phase.Name, phase.Rounds)
		}
		if phase.DropProb < 0 || phase.DropProb > 1 {
			return fmt.Errorf("phase %s: drop_prob must be within [0, 1], got %v", phase.Name, phase.DropProb)
		}
		if phase.Attacker != "" && cfg.GetParentCfg(phase.Attacker) == nil {
			return fmt.Errorf("phase %s: attacker %s is not a configured parent", phase.Name, phase.Attacker)
		}
	}
	return nil
}

func NodeConfigValidator(cfg *LocalCfg) error {
	err := NameValidator(string(cfg.Id))
	if err != nil {
		return err
	}
	if cfg.RoundDelay != nil && *cfg.RoundDelay < 0 {
		return fmt.Errorf("round_delay must be >= 0, got %s", *cfg.RoundDelay)
	}
	for _, prefix := range cfg.Prefixes {
		if !prefix.IsValid() {
			return fmt.Errorf("prefix %s is invalid", prefix)
		}
	}
	if err := MonitorConfigValidator(&cfg.Monitor); err != nil {
		return err
	}
	if len(cfg.Parents) == 0 {
		return fmt.Errorf("at least one parent must be configured")
	}
	seen := make(map[ParentId]struct{})
	for i := range cfg.Parents {
		p := &cfg.Parents[i]
		if _, ok := seen[p.Id]; ok {
			return fmt.Errorf("duplicate parent found: %s", p.Id)
		}
		seen[p.Id] = struct{}{}
		if err := ParentConfigValidator(p); err != nil {
			return err
		}
		if t := p.Trust; t != nil && (*t < cfg.Monitor.MinTrust || *t > cfg.Monitor.MaxTrust) {
			return fmt.Errorf("parent %s: trust %v outside [%v, %v]", p.Id, *t, cfg.Monitor.MinTrust, cfg.Monitor.MaxTrust)
		}
	}
	return SimulationConfigValidator(cfg)
}
