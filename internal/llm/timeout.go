package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrGenerationTimeout = errors.New("generation timed out")

// GenerateWithin bounds a generation call by timeout. The call runs in its
// own goroutine so a client that ignores its context cannot hold the caller
// past the deadline. Certainty is filled when the client supports it.
func GenerateWithin(ctx context.Context, client LLMClient, timeout time.Duration, prompt string) (Generation, error) {
	if client == nil {
		return Generation{}, errors.New("no generator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		gen Generation
		err error
	}
	done := make(chan result, 1)
	go func() {
		if cg, ok := client.(CertaintyGenerator); ok {
			gen, err := cg.GenerateWithCertainty(ctx, prompt)
			done <- result{gen, err}
			return
		}
		text, err := client.Generate(ctx, prompt)
		done <- result{Generation{Text: text}, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return Generation{}, fmt.Errorf("%w after %s", ErrGenerationTimeout, timeout)
		}
		return r.gen, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Generation{}, fmt.Errorf("%w after %s", ErrGenerationTimeout, timeout)
		}
		return Generation{}, ctx.Err()
	}
}

// RankWithin bounds a rerank call by timeout the same way GenerateWithin
// bounds generation.
func RankWithin(ctx context.Context, r RerankerClient, timeout time.Duration, query string, docs []string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		order []int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		order, err := r.Rank(ctx, query, docs)
		done <- result{order, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("rerank: %w after %s", ErrGenerationTimeout, timeout)
		}
		return res.order, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("rerank: %w after %s", ErrGenerationTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}
