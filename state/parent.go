package state

import (
	"fmt"
	"math"
)

type ParentId string

// Metrics are the routing metrics a neighbour advertises
type Metrics struct {
	Etx      float64 `yaml:"etx" json:"etx"`
	Bo       float64 `yaml:"bo" json:"bo"`
	RtMetric float64 `yaml:"rtmetric" json:"rtmetric"`
}

// Counters accumulate over a caller-defined window and are only cleared by ResetCounters
type Counters struct {
	Sent      int64
	Delivered int64
	Dropped   int64
}

// ParentView is the read-only surface used by ranking and selection.
type ParentView interface {
	Id() ParentId
	Metrics() Metrics
	IsSink() bool
	Trust() float64
	Counters() Counters
	DropRate() float64
}

// TrafficView is what the traffic layer is allowed to touch: metrics and counters, never trust.
type TrafficView interface {
	Id() ParentId
	Metrics() Metrics
	SetMetrics(m Metrics)
	RecordSent(n int64) error
	RecordDelivered(n int64) error
	RecordDropped(n int64) error
	ResetCounters()
}

// Parent is a candidate next hop discovered on the link. Trust is owned by the intrusion monitor
// once it is wired into the round loop, SetTrust must not be called from anywhere else.
type Parent struct {
	id       ParentId
	metrics  Metrics
	sink     bool
	trust    float64
	counters Counters
}

func NewParent(id ParentId, metrics Metrics, sink bool) *Parent {
	return &Parent{
		id:      id,
		metrics: metrics,
		sink:    sink,
		trust:   InitialTrust,
	}
}

func NewParentFromCfg(cfg ParentCfg) *Parent {
	p := NewParent(cfg.Id, cfg.Metrics, cfg.Sink)
	if cfg.Trust != nil {
		p.trust = *cfg.Trust
	}
	return p
}

func (p *Parent) Id() ParentId {
	return p.id
}

func (p *Parent) Metrics() Metrics {
	return p.metrics
}

func (p *Parent) SetMetrics(m Metrics) {
	p.metrics = m
}

func (p *Parent) IsSink() bool {
	return p.sink
}

func (p *Parent) Trust() float64 {
	return p.trust
}

func (p *Parent) SetTrust(trust float64) error {
	if math.IsNaN(trust) || math.IsInf(trust, 0) {
		return fmt.Errorf("parent %s: trust %v is not finite: %w", p.id, trust, ErrInconsistentState)
	}
	p.trust = trust
	return nil
}

func (p *Parent) Counters() Counters {
	return p.counters
}

func (p *Parent) RecordSent(n int64) error {
	if n < 0 {
		return fmt.Errorf("parent %s: negative sent increment %d: %w", p.id, n, ErrInvalidArgument)
	}
	p.counters.Sent += n
	return nil
}

func (p *Parent) RecordDelivered(n int64) error {
	if n < 0 {
		return fmt.Errorf("parent %s: negative delivered increment %d: %w", p.id, n, ErrInvalidArgument)
	}
	p.counters.Delivered += n
	return nil
}

func (p *Parent) RecordDropped(n int64) error {
	if n < 0 {
		return fmt.Errorf("parent %s: negative dropped increment %d: %w", p.id, n, ErrInvalidArgument)
	}
	p.counters.Dropped += n
	return nil
}

// ResetCounters starts a new observation window. Trust is left alone.
func (p *Parent) ResetCounters() {
	p.counters = Counters{}
}

func (p *Parent) DropRate() float64 {
	return p.counters.DropRate()
}

func (c Counters) DropRate() float64 {
	if c.Sent == 0 {
		return 0.0
	}
	return float64(c.Dropped) / float64(c.Sent)
}

func (p *Parent) String() string {
	return fmt.Sprintf("%s (etx: %.1f, bo: %.3f, rt: %.1f, sink: %v, trust: %.2f, drop: %.2f)",
		p.id, p.metrics.Etx, p.metrics.Bo, p.metrics.RtMetric, p.sink, p.trust, p.DropRate())
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CheckParent rejects parent state that would make ranking meaningless.
func CheckParent(p ParentView) error {
	m := p.Metrics()
	if !finite(m.Etx) || m.Etx < 0 {
		return fmt.Errorf("parent %s: etx %v must be a finite value >= 0: %w", p.Id(), m.Etx, ErrInconsistentState)
	}
	if !finite(m.RtMetric) || m.RtMetric < 0 {
		return fmt.Errorf("parent %s: rtmetric %v must be a finite value >= 0: %w", p.Id(), m.RtMetric, ErrInconsistentState)
	}
	if !finite(m.Bo) || m.Bo < 0 || m.Bo > 1 {
		return fmt.Errorf("parent %s: buffer occupancy %v must be within [0, 1]: %w", p.Id(), m.Bo, ErrInconsistentState)
	}
	if t := p.Trust(); !finite(t) || t < 0 {
		return fmt.Errorf("parent %s: trust %v must be a finite value >= 0: %w", p.Id(), t, ErrInconsistentState)
	}
	c := p.Counters()
	if c.Sent < 0 || c.Delivered < 0 || c.Dropped < 0 {
		return fmt.Errorf("parent %s: negative counters %+v: %w", p.Id(), c, ErrInconsistentState)
	}
	if dr := p.DropRate(); dr < 0 || dr > 1 {
		return fmt.Errorf("parent %s: drop rate %v outside [0, 1]: %w", p.Id(), dr, ErrInconsistentState)
	}
	return nil
}
