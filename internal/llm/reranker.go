package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const rerankSnippetRunes = 300

var indexPattern = regexp.MustCompile(`\d+`)

// SimpleLLMReranker orders passages by asking the model for a ranking.
type SimpleLLMReranker struct {
	LLM LLMClient
}

func NewSimpleLLMReranker(client LLMClient) *SimpleLLMReranker {
	return &SimpleLLMReranker{LLM: client}
}

// Rank returns a permutation of document indices, most relevant first.
// Indices the model omits keep their relative order at the end.
func (r *SimpleLLMReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	var docList strings.Builder
	for i, d := range docs {
		content := d
		if r := []rune(content); len(r) > rerankSnippetRunes {
			content = string(r[:rerankSnippetRunes]) + "..."
		}
		fmt.Fprintf(&docList, "[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You rank regulatory passages by relevance to a legal question.
Question: %s

Passages:
%s
Output ONLY the passage indices in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, docList.String())

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return identity(len(docs)), fmt.Errorf("rerank: %w", err)
	}

	return completePermutation(parseIndices(resp), len(docs)), nil
}

func parseIndices(s string) []int {
	var indices []int
	for _, m := range indexPattern.FindAllString(s, -1) {
		if i, err := strconv.Atoi(m); err == nil {
			indices = append(indices, i)
		}
	}
	return indices
}

func completePermutation(ranked []int, n int) []int {
	seen := make([]bool, n)
	out := make([]int, 0, n)
	for _, i := range ranked {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	for i := range n {
		if !seen[i] {
			out = append(out, i)
		}
	}
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
