package core

import (
	"log/slog"
	"time"

	"github.com/encodeous/edgeflow/state"
	"github.com/jellydator/ttlcache/v3"
)

type alertKey struct {
	Parent state.ParentId
	Rule   Rule
}

// AlertLog writes alerts to the log, suppressing repeats of the same rule for the same parent
// within the ttl.
type AlertLog struct {
	log   *slog.Logger
	dedup *ttlcache.Cache[alertKey, struct{}]
}

func NewAlertLog(log *slog.Logger, ttl time.Duration) *AlertLog {
	return &AlertLog{
		log: log,
		dedup: ttlcache.New[alertKey, struct{}](
			ttlcache.WithTTL[alertKey, struct{}](ttl),
			ttlcache.WithDisableTouchOnHit[alertKey, struct{}](),
		),
	}
}

// Emit logs the alerts and returns how many were suppressed
func (a *AlertLog) Emit(alerts []Alert) int {
	suppressed := 0
	for _, alert := range alerts {
		key := alertKey{Parent: alert.Parent, Rule: alert.Rule}
		if a.dedup.Get(key) != nil {
			suppressed++
			continue
		}
		a.dedup.Set(key, struct{}{}, ttlcache.DefaultTTL)
		switch alert.Level {
		case LevelAlert:
			a.log.Warn(alert.String(), alert.LogArgs()...)
		default:
			a.log.Info(alert.String(), alert.LogArgs()...)
		}
	}
	return suppressed
}

func (a *AlertLog) DeleteExpired() {
	a.dedup.DeleteExpired()
}
