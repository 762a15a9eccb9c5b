package answer

import (
	"math"

	"github.com/agenthands/lexgraph/internal/core/model"
)

// Confidence bands: high >= HighConfidence, low < LowConfidence.
const (
	HighConfidence = 0.8
	LowConfidence  = 0.3
)

const (
	exactFloor   = 0.86
	exactCeiling = 0.95
	fuzzyFloor   = 0.80
	fuzzyCeiling = 0.85

	resolvedNegative   = 0.6
	unresolvedNegative = 0.5
	noInformation      = 0.1
	negativeReplyCap   = 0.25
	degradedCap        = 0.7
	clarification      = 0.05

	searchFloor   = LowConfidence
	searchCeiling = 0.95
	// similarity assumed for lexical-only evidence
	keywordOnlySimilarity = 0.5
	fullSupport           = 3
)

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

func BandOf(score float64) Band {
	switch {
	case score >= HighConfidence:
		return BandHigh
	case score >= LowConfidence:
		return BandMedium
	default:
		return BandLow
	}
}

// graphConfidence grows with the number of matches, within the band set by
// how precisely the subject was resolved.
func graphConfidence(res model.Resolution, matches int) float64 {
	floor, ceiling, steps := fuzzyFloor, fuzzyCeiling, 4.0
	if res == model.ResolutionExact {
		floor, ceiling, steps = exactFloor, exactCeiling, 3.0
	}
	extra := math.Min(float64(max(matches-1, 0)), steps)
	return floor + (ceiling-floor)*extra/steps
}

// searchConfidence scores retrieval strength: the best semantic similarity
// among the passages used and how many of them there were. certainty is the
// generator's own estimate, or 0 when the backend exposes none.
func searchConfidence(used []model.SearchHit, extraSupport int, certainty float64) float64 {
	if len(used)+extraSupport == 0 {
		return noInformation
	}
	sim := 0.0
	for _, h := range used {
		sim = math.Max(sim, h.VectorScore)
	}
	if sim == 0 && len(used) > 0 {
		sim = keywordOnlySimilarity
	}
	sim = math.Min(sim, 1)
	support := math.Min(1, float64(len(used)+extraSupport)/fullSupport)

	strength := 0.7*sim + 0.3*support
	conf := searchFloor + (searchCeiling-searchFloor)*strength
	if certainty > 0 {
		conf = 0.7*conf + 0.3*math.Min(certainty, 1)
	}
	return clamp01(conf)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
