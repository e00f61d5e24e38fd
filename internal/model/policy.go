package model

import (
	"fmt"
	"time"
)

// Policy holds the tunable thresholds of the engine. It is built once at
// process start and passed to the controller and scoring functions.
// The numbers are placeholders, not validated clinical thresholds.
type Policy struct {
	Tiers           map[Tier]int
	DefaultTier     Tier
	BatchSize       int
	InterleaveRatio int
	Shuffle         bool

	PathwayThreshold float64
	PathwayMinCount  int

	StraightLineRun     int
	MinAvgLatencyMs     float64
	MinVariability      float64
	MinQualityResponses int

	SessionTTL   time.Duration
	Retention    time.Duration
	StoreRetries int
	StoreBackoff time.Duration
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: map[Tier]int{
			TierQuick:    20,
			TierStandard: 45,
			TierDeep:     75,
		},
		DefaultTier:     TierStandard,
		BatchSize:       5,
		InterleaveRatio: 3,
		Shuffle:         true,

		PathwayThreshold: 75,
		PathwayMinCount:  3,

		StraightLineRun:     10,
		MinAvgLatencyMs:     800,
		MinVariability:      0.1,
		MinQualityResponses: 5,

		SessionTTL:   24 * time.Hour,
		Retention:    72 * time.Hour,
		StoreRetries: 3,
		StoreBackoff: 50 * time.Millisecond,
	}
}

// ResolveTier maps a requested tier to a known tier and its budget.
// Unknown tiers fall back to the default tier.
func (p Policy) ResolveTier(t Tier) (Tier, int) {
	if total, ok := p.Tiers[t]; ok {
		return t, total
	}
	return p.DefaultTier, p.Tiers[p.DefaultTier]
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("at least one tier must be configured")
	}
	for tier, total := range p.Tiers {
		if total <= 0 {
			return fmt.Errorf("tier %q must have a positive question total", tier)
		}
	}
	if _, ok := p.Tiers[p.DefaultTier]; !ok {
		return fmt.Errorf("default tier %q is not configured", p.DefaultTier)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0")
	}
	if p.InterleaveRatio <= 0 {
		return fmt.Errorf("interleave ratio must be > 0")
	}
	if p.PathwayThreshold < 0 || p.PathwayThreshold > 100 {
		return fmt.Errorf("pathway threshold must be between 0 and 100")
	}
	if p.PathwayMinCount <= 0 {
		return fmt.Errorf("pathway min count must be > 0")
	}
	if p.StraightLineRun <= 0 {
		return fmt.Errorf("straight-line run must be > 0")
	}
	if p.StoreRetries < 0 {
		return fmt.Errorf("store retries must be >= 0")
	}
	return nil
}
