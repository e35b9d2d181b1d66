package state

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// TrafficSource feeds per-round metrics and delivery counters into the parents.
type TrafficSource interface {
	Step(round int, parents []TrafficView) error
	// Rounds is the number of rounds the source can supply
	Rounds() int
	Phase(round int) string
}

// State access must be done only on a single Goroutine
type State struct {
	*Env
	Modules map[string]Module
	Parents []*Parent
	Round   int
}

func (s *State) GetParent(id ParentId) *Parent {
	idx := slices.IndexFunc(s.Parents, func(p *Parent) bool {
		return p.Id() == id
	})
	if idx == -1 {
		return nil
	}
	return s.Parents[idx]
}

// TrafficViews exposes the parents to the traffic layer without handing out trust
func (s *State) TrafficViews() []TrafficView {
	views := make([]TrafficView, 0, len(s.Parents))
	for _, p := range s.Parents {
		views = append(views, p)
	}
	return views
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan func(s *State) error
	LocalCfg
	Traffic  TrafficSource
	Context  context.Context
	Cancel   context.CancelCauseFunc
	Log      *slog.Logger
	Started  atomic.Bool
	Stopping atomic.Bool
}
