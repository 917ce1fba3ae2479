package tiktoken

import (
	"context"
	"errors"
	"testing"

	"github.com/openbpe/tiktoken/bpe"
)

func TestEncodeBatchPreservesOrder(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	texts := []string{"hello", "world", "hello world", "", "xyz"}
	got, err := enc.EncodeBatch(context.Background(), texts, bpe.PolicyNoneValue(), bpe.PolicyNoneValue(), 2)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d results, want %d", len(got), len(texts))
	}
	for i, text := range texts {
		want, err := enc.Encode(text, bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
		if err != nil {
			t.Fatalf("Encode(%q): %v", text, err)
		}
		if len(got[i]) != len(want) {
			t.Fatalf("index %d: EncodeBatch=%v, Encode=%v", i, got[i], want)
		}
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("index %d token %d mismatch: %v vs %v", i, j, got[i], want)
			}
		}
	}
}

func TestEncodeBatchPropagatesFirstError(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	texts := []string{"hello", "<|test|>", "world"}
	_, err = enc.EncodeBatch(context.Background(), texts, bpe.PolicyNoneValue(), bpe.PolicyAllValue(), 4)
	if err == nil {
		t.Fatalf("expected a DisallowedSpecial error from the batch")
	}
	var de *bpe.DisallowedSpecialError
	if !errors.As(err, &de) {
		t.Fatalf("expected *bpe.DisallowedSpecialError, got %T", err)
	}
}

func TestDecodeBatchIsOrderedAndInfallible(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	texts := []string{"hello", "world", "hello world"}
	var batches [][]bpe.Rank
	for _, text := range texts {
		toks, err := enc.Encode(text, bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		batches = append(batches, toks)
	}

	got, err := enc.DecodeBatch(context.Background(), batches, 0)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	for i, text := range texts {
		if got[i] != text {
			t.Fatalf("index %d: got %q, want %q", i, got[i], text)
		}
	}
}

func TestCountBatchMatchesEncodeBatchLengths(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	texts := []string{"hello", "world", "hello world", "abc def"}
	counts, err := enc.CountBatch(context.Background(), texts, bpe.PolicyNoneValue(), bpe.PolicyNoneValue(), 0)
	if err != nil {
		t.Fatalf("CountBatch: %v", err)
	}
	toks, err := enc.EncodeBatch(context.Background(), texts, bpe.PolicyNoneValue(), bpe.PolicyNoneValue(), 0)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	for i := range texts {
		if counts[i] != len(toks[i]) {
			t.Fatalf("index %d: CountBatch=%d, len(EncodeBatch)=%d", i, counts[i], len(toks[i]))
		}
	}
}
