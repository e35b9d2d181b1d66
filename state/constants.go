package state

import "time"

// rank weights, calibrated so that buffer occupancy dominates the composite cost
const (
	WeightEtx      = 50.0
	WeightRtMetric = 20.0
	WeightBo       = 4276.0

	TrustPenaltyFactor = 1.0
	// TrustFloor keeps the rank finite for fully distrusted parents
	TrustFloor  = 0.01
	RankEpsilon = 1e-6

	InitialTrust = 1.0
)

var (
	// MinTrustToConsider is the trust a parent needs before its rank is even looked at.
	MinTrustToConsider = 0.4

	// monitor defaults
	DefaultDropRateThreshold       = 0.3
	DefaultSuddenIncreaseThreshold = 0.2
	DefaultTrustDecrement          = 0.25
	DefaultTrustIncrement          = 0.05
	DefaultMinTrust                = 0.0
	DefaultMaxTrust                = 1.0

	RoundDelay      = time.Millisecond * 200
	AlertDedupTTL   = time.Second * 3
	SlowRoundWarn   = time.Millisecond * 4
	TraceBufferSize = 1024

	// traffic layer defaults
	PacketsPerRound   = int64(100)
	HealthyDropMax    = 0.05
	EtxJitter         = 10.0
	BoJitter          = 0.05
	RtMetricJitter    = 50.0
	DefaultAttackDrop = 0.8
)
