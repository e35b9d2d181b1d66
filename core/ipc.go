package core

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/encodeous/edgeflow/state"
)

const InspectPath = "/debug/inspect"

// IPCGet fetches the inspect output from a node serving debug endpoints on addr
func IPCGet(addr string) (string, error) {
	client := http.Client{Timeout: 5 * time.Second}
	res, err := client.Get("http://" + addr + InspectPath)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("inspect failed with %s: %s", res.Status, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// InspectState renders the parents, monitor history and next hops. Must run on the main goroutine.
func InspectState(s *state.State) string {
	r := Get[*TrustRouter](s)
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Node: %s\nRound: %d\n", s.Id, s.Round))

	sb.WriteString("\nParents:\n")
	for _, p := range s.Parents {
		sb.WriteString(fmt.Sprintf(" - %s\n", p.Id()))
		m := p.Metrics()
		sb.WriteString(fmt.Sprintf("   Metrics: etx=%.1f bo=%.3f rtmetric=%.1f sink=%v\n", m.Etx, m.Bo, m.RtMetric, p.IsSink()))
		c := p.Counters()
		sb.WriteString(fmt.Sprintf("   Counters: sent=%d delivered=%d dropped=%d\n", c.Sent, c.Delivered, c.Dropped))
		rank, err := Rank(p)
		if err != nil {
			sb.WriteString(fmt.Sprintf("   Trust: %.2f, rank: invalid (%s)\n", p.Trust(), err))
		} else {
			sb.WriteString(fmt.Sprintf("   Trust: %.2f, rank: %.1f\n", p.Trust(), rank))
		}
	}

	sb.WriteString("\nMonitor History:\n")
	rt := make([]string, 0)
	for _, p := range s.Parents {
		if prev, ok := r.Monitor.Previous(p.Id()); ok {
			rt = append(rt, fmt.Sprintf(" - %s: previous drop rate %.2f", p.Id(), prev))
		}
	}
	if len(rt) == 0 {
		rt = append(rt, "    (none)")
	}
	slices.Sort(rt)
	sb.WriteString(strings.Join(rt, "\n") + "\n")

	sb.WriteString("\nNext Hops:\n")
	rt = make([]string, 0)
	for _, prefix := range s.Prefixes {
		if nh, ok := r.NextHops.Get(prefix); ok {
			rt = append(rt, fmt.Sprintf(" - %s via %s", prefix, nh))
		} else {
			rt = append(rt, fmt.Sprintf(" - %s unreachable", prefix))
		}
	}
	slices.Sort(rt)
	sb.WriteString(strings.Join(rt, "\n") + "\n")
	return sb.String()
}

// InspectHandler serves InspectState over http
func InspectHandler(s *state.State) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		res, err := s.DispatchWait(func(s *state.State) (any, error) {
			return InspectState(s), nil
		})
		if err != nil {
			if errors.Is(err, s.Context.Err()) {
				http.Error(w, "node is stopping", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, res.(string))
	})
}
