package tiktoken

import (
	"bytes"
	"errors"
	"testing"

	"github.com/openbpe/tiktoken/bpe"
)

// realEncoding resolves a built-in vocabulary against the default
// registry, skipping the test when its rank file cannot be fetched
// (offline CI, no cached copy). These tests pin behavior against the
// real published vocabularies rather than a synthetic byte-level table.
func realEncoding(t *testing.T, name string) *Encoding {
	t.Helper()
	enc, err := GetEncoding(name)
	if err != nil {
		t.Skipf("built-in vocabulary %s unavailable: %v", name, err)
	}
	return enc
}

func assertTokens(t *testing.T, got, want []bpe.Rank) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got, want)
		}
	}
}

func TestGPT2EncodesCJKText(t *testing.T) {
	enc := realEncoding(t, GPT2)
	got, err := enc.Encode("這個算法真的太棒了", bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	assertTokens(t, got, []bpe.Rank{
		34460, 247, 161, 222, 233, 163, 106, 245, 37345, 243,
		40367, 253, 21410, 13783, 103, 162, 96, 240, 12859, 228,
	})
}

func TestCL100kEncodesCJKText(t *testing.T) {
	enc := realEncoding(t, CL100kBase)
	got, err := enc.Encode("這個算法真的太棒了", bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	assertTokens(t, got, []bpe.Rank{
		11589, 247, 20022, 233, 70203, 25333, 89151, 9554, 8192, 103,
		77062, 240, 35287,
	})
}

func TestCL100kAllowedEndOfTextEmitsReservedID(t *testing.T) {
	enc := realEncoding(t, CL100kBase)
	got, err := enc.Encode("<|endoftext|>", bpe.PolicyOnlyValue("<|endoftext|>"), bpe.PolicyAutomaticValue())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	assertTokens(t, got, []bpe.Rank{100257})
}

func TestCL100kAutomaticDisallowedRejectsEndOfText(t *testing.T) {
	enc := realEncoding(t, CL100kBase)
	_, err := enc.Encode("<|endoftext|>", bpe.PolicyNoneValue(), bpe.PolicyAutomaticValue())
	if err == nil {
		t.Fatalf("expected DisallowedSpecial error")
	}
	var de *bpe.DisallowedSpecialError
	if !errors.As(err, &de) {
		t.Fatalf("expected *bpe.DisallowedSpecialError, got %T", err)
	}
	if de.Literal != "<|endoftext|>" {
		t.Fatalf("unexpected literal %q", de.Literal)
	}
}

func TestCL100kDecodeWithOffsetsRoundTripsEmojiText(t *testing.T) {
	enc := realEncoding(t, CL100kBase)
	text := "hello 👋 world"
	toks, err := enc.Encode(text, bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	offsets, decoded := enc.DecodeWithOffsets(toks)
	if decoded != text {
		t.Fatalf("decoded = %q, want %q", decoded, text)
	}
	if len(offsets) != len(toks) {
		t.Fatalf("offsets len = %d, want %d", len(offsets), len(toks))
	}
	if offsets[0] != 0 {
		t.Fatalf("offsets[0] = %d, want 0", offsets[0])
	}
}

func TestCL100kUnstableCompletionsCoverInput(t *testing.T) {
	enc := realEncoding(t, CL100kBase)
	text := "hello fanta"
	stable, completions, err := enc.EncodeWithUnstable(text, bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("EncodeWithUnstable: %v", err)
	}
	if len(completions) == 0 {
		t.Fatalf("expected a non-empty completion set")
	}
	stableBytes := enc.DecodeBytes(stable)
	if !bytes.HasPrefix([]byte(text), stableBytes) {
		t.Fatalf("stable prefix %q is not a prefix of %q", stableBytes, text)
	}
	for _, comp := range completions {
		whole := enc.DecodeBytes(append(append([]bpe.Rank(nil), stable...), comp...))
		if !bytes.HasPrefix(whole, []byte(text)) {
			t.Fatalf("completion %v yields %q, which does not extend %q", comp, whole, text)
		}
	}
}
