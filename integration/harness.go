//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime/pprof"
	"slices"
	"sync"
	"time"

	"github.com/encodeous/edgeflow/core"
	"github.com/encodeous/edgeflow/sim"
	"github.com/encodeous/edgeflow/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// VirtualLink is the radio link to one parent. Loss can be changed while the node is running.
type VirtualLink struct {
	mu         sync.Mutex
	Parent     state.ParentId
	PacketLoss float64
}

func (v *VirtualLink) WithPacketLoss(loss float64) *VirtualLink {
	v.SetPacketLoss(loss)
	return v
}

func (v *VirtualLink) SetPacketLoss(loss float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.PacketLoss = loss
}

func (v *VirtualLink) loss() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.PacketLoss
}

// VirtualNetwork delivers packets over the virtual links of a single node, one fresh window per round
type VirtualNetwork struct {
	mu      sync.Mutex
	Links   []*VirtualLink
	Packets int64
	rng     *rand.Rand
}

func NewVirtualNetwork(seed uint64) *VirtualNetwork {
	return &VirtualNetwork{
		Packets: state.PacketsPerRound,
		rng:     rand.New(rand.NewPCG(seed, seed+1)),
	}
}

func (n *VirtualNetwork) AddLink(parent state.ParentId) *VirtualLink {
	n.mu.Lock()
	defer n.mu.Unlock()
	link := &VirtualLink{Parent: parent}
	n.Links = append(n.Links, link)
	return link
}

func (n *VirtualNetwork) Rounds() int {
	return math.MaxInt
}

func (n *VirtualNetwork) Phase(round int) string {
	return "virtual"
}

func (n *VirtualNetwork) Step(round int, parents []state.TrafficView) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range parents {
		p.ResetCounters()
		idx := slices.IndexFunc(n.Links, func(link *VirtualLink) bool {
			return link.Parent == p.Id()
		})
		if idx == -1 {
			continue // no link, nothing sent
		}
		loss := n.Links[idx].loss()
		var dropped int64
		for range n.Packets {
			if n.rng.Float64() < loss {
				dropped++
			}
		}
		if err := sim.Deliver(p, n.Packets, dropped); err != nil {
			return err
		}
	}
	return nil
}

type VirtualHarness struct {
	Context context.Context
	Cancel  context.CancelCauseFunc
	Local   []state.LocalCfg
	Nets    []*VirtualNetwork
	States  []*state.State
	Reports []chan interface{}
	wg      sync.WaitGroup
}

func (v *VirtualHarness) IndexOf(id state.NodeId) int {
	return slices.IndexFunc(v.Local, func(cfg state.LocalCfg) bool {
		return cfg.Id == id
	})
}

// NewNode adds a node with the demo parents and the stock monitor thresholds. Every parent is
// reachable over a clean link.
func (v *VirtualHarness) NewNode(id state.NodeId) *VirtualNetwork {
	cfg := state.DefaultLocalCfg(id)
	cfg.Monitor = state.DefaultMonitorCfg()
	delay := 2 * time.Millisecond
	cfg.RoundDelay = &delay
	vn := NewVirtualNetwork(uint64(len(v.Local)) + 1)
	for _, p := range cfg.Parents {
		vn.AddLink(p.Id)
	}
	v.Local = append(v.Local, cfg)
	v.Nets = append(v.Nets, vn)
	return vn
}

func (v *VirtualHarness) Link(id state.NodeId, parent state.ParentId) *VirtualLink {
	vn := v.Nets[v.IndexOf(id)]
	for _, link := range vn.Links {
		if link.Parent == parent {
			return link
		}
	}
	panic(fmt.Sprintf("no link from %s to %s", id, parent))
}

func (v *VirtualHarness) Start() chan error {
	ctx, cancel := context.WithCancelCause(context.Background())
	v.Context = ctx
	v.Cancel = cancel
	v.States = make([]*state.State, len(v.Local))
	v.Reports = make([]chan interface{}, len(v.Local))
	errChan := make(chan error, 128) // a large number so we dont get blocked
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for idx, cfg := range v.Local {
		v.Reports[idx] = make(chan interface{}, 4096)
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			labels := pprof.Labels("edgeflow node", string(cfg.Id))
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				err := core.Start(cfg, logger.With("node", cfg.Id), v.Nets[idx], &v.States[idx], v.Reports[idx])
				if err != nil {
					errChan <- err
				}
			})
		}()
	}
	for {
		started := true
		for idx := range v.Local {
			if v.States[idx] == nil || !v.States[idx].Started.Load() {
				started = false
				break
			}
		}
		if started {
			break
		}
		select {
		case <-ctx.Done():
			return errChan
		case <-time.After(time.Millisecond * 10):
		case err := <-errChan:
			errChan <- err
			return errChan
		}
	}
	return errChan
}

// WaitFor reads the reports of node id until match returns true
func (v *VirtualHarness) WaitFor(id state.NodeId, timeout time.Duration, match func(report core.RoundReport) bool) (core.RoundReport, error) {
	reports := v.Reports[v.IndexOf(id)]
	deadline := time.After(timeout)
	for {
		select {
		case m := <-reports:
			report := m.(core.RoundReport)
			if match(report) {
				return report, nil
			}
		case <-deadline:
			return core.RoundReport{}, fmt.Errorf("timed out waiting on %s", id)
		case <-v.Context.Done():
			return core.RoundReport{}, errors.New("harness stopped")
		}
	}
}

func (v *VirtualHarness) Stop() {
	v.Cancel(fmt.Errorf("stopping harness"))
	for idx := range v.Local {
		if v.States[idx] != nil {
			// the main loop stops itself once its context is done
			v.States[idx].Cancel(fmt.Errorf("stopping harness"))
		}
	}
	v.wg.Wait()
}
