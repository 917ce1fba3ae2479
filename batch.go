package tiktoken

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/openbpe/tiktoken/bpe"
)

// clampWorkers bounds the worker count to the available parallelism,
// substituting it outright when the caller passes a non-positive value.
func clampWorkers(n int) int {
	if p := runtime.GOMAXPROCS(0); n <= 0 || n > p {
		return p
	}
	return n
}

// EncodeBatch encodes every text in texts concurrently, returning results
// in the same order as the input. The first error encountered cancels
// the remaining work and is returned; results for texts whose encode had
// already completed are discarded along with it.
func (e *Encoding) EncodeBatch(ctx context.Context, texts []string, allowed, disallowed bpe.SpecialTokenPolicy, maxWorkers int) ([][]bpe.Rank, error) {
	maxWorkers = clampWorkers(maxWorkers)
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)

	out := make([][]bpe.Rank, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			toks, err := e.core.Encode(text, allowedSet, disallowedSet)
			if err != nil {
				return err
			}
			out[i] = toks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBatch decodes every token slice in batches concurrently,
// returning results in the same order as the input.
func (e *Encoding) DecodeBatch(ctx context.Context, batches [][]bpe.Rank, maxWorkers int) ([]string, error) {
	maxWorkers = clampWorkers(maxWorkers)
	out := make([]string, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, toks := range batches {
		i, toks := i, toks
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = e.core.DecodeString(toks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountBatch returns the token count for every text in texts, computed
// concurrently without materializing any ordinary-piece tokens.
func (e *Encoding) CountBatch(ctx context.Context, texts []string, allowed, disallowed bpe.SpecialTokenPolicy, maxWorkers int) ([]int, error) {
	maxWorkers = clampWorkers(maxWorkers)
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)

	out := make([]int, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := e.core.TokenCount(text, allowedSet, disallowedSet)
			if err != nil {
				return err
			}
			out[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
