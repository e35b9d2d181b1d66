package core

import (
	"fmt"

	"github.com/encodeous/edgeflow/state"
)

type AlertLevel int

const (
	LevelInfo AlertLevel = iota
	LevelAlert
)

func (l AlertLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelAlert:
		return "ALERT"
	default:
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
}

func (l AlertLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *AlertLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "INFO":
		*l = LevelInfo
	case "ALERT":
		*l = LevelAlert
	default:
		return fmt.Errorf("unknown alert level %q", text)
	}
	return nil
}

// Rule identifies which detection rule produced an alert
type Rule int

const (
	RuleSevereLoss Rule = iota
	RuleSuddenSpike
	RuleStableReward
)

func (r Rule) String() string {
	switch r {
	case RuleSevereLoss:
		return "severe-loss"
	case RuleSuddenSpike:
		return "sudden-spike"
	case RuleStableReward:
		return "stable-reward"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(text []byte) error {
	for _, rule := range []Rule{RuleSevereLoss, RuleSuddenSpike, RuleStableReward} {
		if rule.String() == string(text) {
			*r = rule
			return nil
		}
	}
	return fmt.Errorf("unknown rule %q", text)
}

type Alert struct {
	Level        AlertLevel     `json:"level"`
	Rule         Rule           `json:"rule"`
	Parent       state.ParentId `json:"parent"`
	OldTrust     float64        `json:"old_trust"`
	NewTrust     float64        `json:"new_trust"`
	DropRate     float64        `json:"drop_rate"`
	PrevDropRate float64        `json:"prev_drop_rate"`
}

func (a Alert) String() string {
	switch a.Rule {
	case RuleSevereLoss:
		return fmt.Sprintf("[%s] Parent %s high drop rate %.2f -> trust %.2f -> %.2f",
			a.Level, a.Parent, a.DropRate, a.OldTrust, a.NewTrust)
	case RuleSuddenSpike:
		return fmt.Sprintf("[%s] Parent %s sudden drop rate increase %.2f->%.2f -> trust %.2f -> %.2f",
			a.Level, a.Parent, a.PrevDropRate, a.DropRate, a.OldTrust, a.NewTrust)
	default:
		return fmt.Sprintf("[%s] Parent %s trust increased %.2f -> %.2f",
			a.Level, a.Parent, a.OldTrust, a.NewTrust)
	}
}

// LogArgs returns the alert as slog key-value pairs
func (a Alert) LogArgs() []any {
	return []any{
		"parent", a.Parent,
		"rule", a.Rule.String(),
		"drop_rate", a.DropRate,
		"prev_drop_rate", a.PrevDropRate,
		"old_trust", a.OldTrust,
		"new_trust", a.NewTrust,
	}
}
