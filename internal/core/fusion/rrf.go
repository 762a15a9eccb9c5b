package fusion

import (
	"github.com/agenthands/lexgraph/internal/core/model"
)

// RRFStrategy implements Reciprocal Rank Fusion: score = sum 1/(k+rank+1).
type RRFStrategy struct {
	K int
}

func NewRRFStrategy(k int) *RRFStrategy {
	if k <= 0 {
		k = 60
	}
	return &RRFStrategy{K: k}
}

func (s *RRFStrategy) Name() string { return "rrf" }

func (s *RRFStrategy) Fuse(keyword, vector []model.SearchHit, size int) []model.SearchHit {
	if size <= 0 {
		return []model.SearchHit{}
	}
	byID, order := collect(keyword, vector)
	k := float64(s.K)
	for _, c := range byID {
		if c.keywordRank != absent {
			c.score += 1 / (k + float64(c.keywordRank) + 1)
		}
		if c.vectorRank != absent {
			c.score += 1 / (k + float64(c.vectorRank) + 1)
		}
	}
	return rank(byID, order, size)
}
