package core

import (
	"net/netip"

	"github.com/encodeous/edgeflow/state"
	"github.com/gaissmai/bart"
)

// NextHopTable maps destination prefixes to the parent that traffic is forwarded to
type NextHopTable struct {
	table    bart.Table[state.ParentId]
	prefixes []netip.Prefix
}

func NewNextHopTable(prefixes []netip.Prefix) *NextHopTable {
	return &NextHopTable{
		prefixes: prefixes,
	}
}

// Install points every routed prefix at the given parent
func (t *NextHopTable) Install(nh state.ParentId) {
	for _, prefix := range t.prefixes {
		t.table.Insert(prefix, nh)
	}
}

func (t *NextHopTable) Withdraw() {
	for _, prefix := range t.prefixes {
		t.table.Delete(prefix)
	}
}

func (t *NextHopTable) Lookup(addr netip.Addr) (state.ParentId, bool) {
	return t.table.Lookup(addr)
}

func (t *NextHopTable) Get(prefix netip.Prefix) (state.ParentId, bool) {
	return t.table.Get(prefix)
}
