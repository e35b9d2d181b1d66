package core

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"

	"github.com/encodeous/edgeflow/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func makeParent(t *testing.T, id state.ParentId, m state.Metrics, trust float64) *state.Parent {
	t.Helper()
	p := state.NewParent(id, m, false)
	require.NoError(t, p.SetTrust(trust))
	return p
}

// observe starts a new window on p with the given delivery counters
func observe(t *testing.T, p *state.Parent, sent, dropped int64) {
	t.Helper()
	p.ResetCounters()
	require.NoError(t, p.RecordSent(sent))
	require.NoError(t, p.RecordDropped(dropped))
	require.NoError(t, p.RecordDelivered(sent-dropped))
}

func newMonitor(t *testing.T) *IntrusionMonitor {
	t.Helper()
	m, err := NewIntrusionMonitor(state.DefaultMonitorCfg())
	require.NoError(t, err)
	return m
}

func assertAlerts(t *testing.T, expected, actual []Alert) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, cmpopts.EquateApprox(0, 1e-9), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected alerts (-want +got):\n%s", diff)
	}
}

// paperParents is the example matrix from the parent selection paper
func paperParents() []*state.Parent {
	return []*state.Parent{
		state.NewParent("P1", state.Metrics{Etx: 699, Bo: 0.5, RtMetric: 2320}, false),
		state.NewParent("P2", state.Metrics{Etx: 768, Bo: 0.625, RtMetric: 2048}, false),
		state.NewParent("P3", state.Metrics{Etx: 640, Bo: 0.375, RtMetric: 1766}, false),
	}
}

func netipAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}
