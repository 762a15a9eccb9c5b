package fusion

import (
	"github.com/agenthands/lexgraph/internal/core/model"
)

// WeightedStrategy min-max normalises each list to [0,1] and sums the
// normalised scores with the configured weights. A document missing from a
// list contributes 0 for that modality.
type WeightedStrategy struct {
	KeywordWeight float64
	VectorWeight  float64
}

func NewWeightedStrategy(keywordWeight, vectorWeight float64) *WeightedStrategy {
	if keywordWeight < 0 {
		keywordWeight = 0
	}
	if vectorWeight < 0 {
		vectorWeight = 0
	}
	if keywordWeight+vectorWeight == 0 {
		keywordWeight, vectorWeight = 0.5, 0.5
	}
	sum := keywordWeight + vectorWeight
	return &WeightedStrategy{KeywordWeight: keywordWeight / sum, VectorWeight: vectorWeight / sum}
}

func (s *WeightedStrategy) Name() string { return "weighted" }

func (s *WeightedStrategy) Fuse(keyword, vector []model.SearchHit, size int) []model.SearchHit {
	if size <= 0 {
		return []model.SearchHit{}
	}
	byID, order := collect(keyword, vector)

	kn := normalize(keyword)
	vn := normalize(vector)
	for id, c := range byID {
		if v, ok := kn[id]; ok {
			c.score += s.KeywordWeight * v
		}
		if v, ok := vn[id]; ok {
			c.score += s.VectorWeight * v
		}
	}
	return rank(byID, order, size)
}

// normalize maps each id's first score in list to [0,1]. A list whose
// scores are all equal maps to 1.
func normalize(list []model.SearchHit) map[string]float64 {
	out := make(map[string]float64, len(list))
	if len(list) == 0 {
		return out
	}
	lo, hi := list[0].Score, list[0].Score
	for _, h := range list {
		lo = min(lo, h.Score)
		hi = max(hi, h.Score)
	}
	span := hi - lo
	for _, h := range list {
		if _, dup := out[h.ID]; dup {
			continue
		}
		if span > 0 {
			out[h.ID] = (h.Score - lo) / span
		} else {
			out[h.ID] = 1
		}
	}
	return out
}
