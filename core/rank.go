package core

import (
	"github.com/encodeous/edgeflow/state"
)

// Rank computes the trust-adjusted composite routing cost of a parent. Lower is better.
//
//	base = etx*WeightEtx + bo*WeightBo + rtmetric*WeightRtMetric
//	rank = base / (max(trust, TrustFloor)*TrustPenaltyFactor + RankEpsilon)
func Rank(p state.ParentView) (float64, error) {
	if err := state.CheckParent(p); err != nil {
		return 0, err
	}
	base := BaseRank(p.Metrics())
	trustFactor := max(p.Trust(), state.TrustFloor)
	return base / (trustFactor*state.TrustPenaltyFactor + state.RankEpsilon), nil
}

// BaseRank is the cost without the trust adjustment
func BaseRank(m state.Metrics) float64 {
	return m.Etx*state.WeightEtx + m.Bo*state.WeightBo + m.RtMetric*state.WeightRtMetric
}

// Ranks computes the rank of every parent, in order.
func Ranks[P state.ParentView](parents []P) ([]float64, error) {
	ranks := make([]float64, 0, len(parents))
	for _, p := range parents {
		r, err := Rank(p)
		if err != nil {
			return nil, err
		}
		ranks = append(ranks, r)
	}
	return ranks, nil
}
