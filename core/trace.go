package core

import (
	"github.com/dustin/go-broadcast"
	"github.com/encodeous/edgeflow/state"
)

// ParentStatus is a snapshot of one parent at the end of a round
type ParentStatus struct {
	Id       state.ParentId `json:"id"`
	Metrics  state.Metrics  `json:"metrics"`
	Sink     bool           `json:"sink,omitempty"`
	Trust    float64        `json:"trust"`
	DropRate float64        `json:"drop_rate"`
	Rank     float64        `json:"rank"`
}

// RoundReport is published to trace subscribers after every round
type RoundReport struct {
	Round    int            `json:"round"`
	Phase    string         `json:"phase,omitempty"`
	Parents  []ParentStatus `json:"parents"`
	Alerts   []Alert        `json:"alerts,omitempty"`
	Selected state.ParentId `json:"selected"`
	Changed  bool           `json:"changed,omitempty"`
}

type RoundTrace struct {
	broadcast.Broadcaster
}

func (n *RoundTrace) Init(s *state.State) error {
	n.Broadcaster = broadcast.NewBroadcaster(state.TraceBufferSize)
	return nil
}

func (n *RoundTrace) Cleanup(s *state.State) error {
	return n.Broadcaster.Close()
}
