package review

import "github.com/octobees/leads-generator/resolver/internal/entity"

// DefaultValueThreshold separates standard from high business value.
const DefaultValueThreshold = 50.0

// PriorityPolicy assigns a review tier from the match score and the estimated
// business value.
type PriorityPolicy func(score, value float64) entity.Priority

// ValueEstimator estimates the business value of resolving a candidate.
type ValueEstimator interface {
	Estimate(candidate entity.MatchCandidate) float64
}

// ValueFunc adapts a plain function to ValueEstimator.
type ValueFunc func(candidate entity.MatchCandidate) float64

func (f ValueFunc) Estimate(candidate entity.MatchCandidate) float64 {
	return f(candidate)
}

// ThresholdPolicy is the default tiering. The value threshold is a coarse
// calibration point and is expected to move.
//
//	score < 0.60:        high when value > threshold, else medium
//	0.60 <= score < 0.80: medium
//	score >= 0.80:        low when value < threshold, else medium
func ThresholdPolicy(valueThreshold float64) PriorityPolicy {
	return func(score, value float64) entity.Priority {
		switch {
		case score < 0.60:
			if value > valueThreshold {
				return entity.PriorityHigh
			}
			return entity.PriorityMedium
		case score < 0.80:
			return entity.PriorityMedium
		default:
			if value < valueThreshold {
				return entity.PriorityLow
			}
			return entity.PriorityMedium
		}
	}
}
