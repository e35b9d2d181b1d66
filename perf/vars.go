package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency       = metric.NewHistogram("1m1s")
	RoundLatency          = metric.NewHistogram("1m1s")
	RoundsPerSecond       = metric.NewCounter("10s1s")
	AlertsPerSecond       = metric.NewCounter("10s1s")
	InfoAlertsPerSecond   = metric.NewCounter("10s1s")
	SuppressedAlerts      = metric.NewCounter("1m1s")
	ParentChanges         = metric.NewCounter("1m1s")
	SelectedTrust         = metric.NewGauge("1m1s")
	MonitorErrorPerSecond = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("edgeflow:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("edgeflow:RoundLatency (µs)", RoundLatency)
	expvar.Publish("edgeflow:Rounds/s", RoundsPerSecond)
	expvar.Publish("edgeflow:Alerts/s", AlertsPerSecond)
	expvar.Publish("edgeflow:InfoAlerts/s", InfoAlertsPerSecond)
	expvar.Publish("edgeflow:SuppressedAlerts", SuppressedAlerts)
	expvar.Publish("edgeflow:ParentChanges", ParentChanges)
	expvar.Publish("edgeflow:SelectedTrust", SelectedTrust)
	expvar.Publish("edgeflow:MonitorErrors/s", MonitorErrorPerSecond)
}
