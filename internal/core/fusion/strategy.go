// Package fusion merges keyword and vector rankings into one list.
package fusion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/lexgraph/internal/core/model"
)

// Strategy fuses two ranked lists. Implementations must keep documents that
// appear in only one list, order by fused score descending, and return at
// most size hits.
type Strategy interface {
	Fuse(keyword, vector []model.SearchHit, size int) []model.SearchHit
	Name() string
}

func New(name string, keywordWeight, vectorWeight float64, rrfK int) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "weighted":
		return NewWeightedStrategy(keywordWeight, vectorWeight), nil
	case "rrf":
		return NewRRFStrategy(rrfK), nil
	default:
		return nil, fmt.Errorf("unknown fusion strategy %q", name)
	}
}

// candidate accumulates one document across both lists.
type candidate struct {
	hit         model.SearchHit
	score       float64
	keywordRank int
	vectorRank  int
}

const absent = int(^uint(0) >> 1)

func collect(keyword, vector []model.SearchHit) (map[string]*candidate, []string) {
	byID := make(map[string]*candidate, len(keyword)+len(vector))
	var order []string
	for rank, h := range keyword {
		if h.ID == "" {
			continue
		}
		if _, dup := byID[h.ID]; dup {
			continue
		}
		c := &candidate{hit: h, keywordRank: rank, vectorRank: absent}
		c.hit.VectorScore = 0
		byID[h.ID] = c
		order = append(order, h.ID)
	}
	for rank, h := range vector {
		if h.ID == "" {
			continue
		}
		if c, ok := byID[h.ID]; ok {
			if c.vectorRank == absent {
				c.vectorRank = rank
				c.hit.VectorScore = h.VectorScore
			}
			continue
		}
		c := &candidate{hit: h, keywordRank: absent, vectorRank: rank}
		c.hit.KeywordScore = 0
		byID[h.ID] = c
		order = append(order, h.ID)
	}
	return byID, order
}

// rank sorts by fused score, then keyword rank, then vector rank, then ID,
// and truncates to size.
func rank(byID map[string]*candidate, order []string, size int) []model.SearchHit {
	cands := make([]*candidate, 0, len(order))
	for _, id := range order {
		cands = append(cands, byID[id])
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.keywordRank != b.keywordRank {
			return a.keywordRank < b.keywordRank
		}
		if a.vectorRank != b.vectorRank {
			return a.vectorRank < b.vectorRank
		}
		return a.hit.ID < b.hit.ID
	})
	if len(cands) > size {
		cands = cands[:size]
	}
	out := make([]model.SearchHit, len(cands))
	for i, c := range cands {
		out[i] = c.hit
		out[i].Score = c.score
	}
	return out
}
