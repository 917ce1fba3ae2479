package tiktoken

import (
	"context"

	"github.com/openbpe/tiktoken/bpe"
)

// Encoding is the public handle callers use to encode and decode text
// for one named vocabulary. It wraps a bpe.Core with the policy
// resolution the core package deliberately leaves to its caller.
type Encoding struct {
	Name string
	core *bpe.Core
}

// GetEncoding resolves identifier (an exact encoding name, a model
// alias, or a registered model-name prefix) against the default,
// process-wide registry.
func GetEncoding(identifier string) (*Encoding, error) {
	return defaultRegistry.GetEncoding(identifier)
}

// ListEncodings returns every encoding name currently registered on the
// default, process-wide registry.
func ListEncodings() []string {
	return defaultRegistry.ListEncodings()
}

// GetEncoding resolves identifier against this registry specifically,
// letting callers run fully isolated registries in tests.
func (r *Registry) GetEncoding(identifier string) (*Encoding, error) {
	core, err := r.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	return &Encoding{Name: identifier, core: core}, nil
}

// EncodeOrdinary encodes text with no special tokens recognized at all
// — every special-token literal in text is treated as ordinary text.
func (e *Encoding) EncodeOrdinary(text string) []bpe.Rank {
	toks, _ := e.core.Encode(text, nil, nil)
	return toks
}

// Encode encodes text under the given special-token policies.
func (e *Encoding) Encode(text string, allowed, disallowed bpe.SpecialTokenPolicy) ([]bpe.Rank, error) {
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)
	return e.core.Encode(text, allowedSet, disallowedSet)
}

// CountTokens returns len(Encode(text, ...)) without materializing
// ordinary-piece tokens.
func (e *Encoding) CountTokens(text string, allowed, disallowed bpe.SpecialTokenPolicy) (int, error) {
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)
	return e.core.TokenCount(text, allowedSet, disallowedSet)
}

// EncodeWithUnstable returns the stable token prefix plus every
// plausible token-sequence completion of the unstable suffix.
func (e *Encoding) EncodeWithUnstable(text string, allowed, disallowed bpe.SpecialTokenPolicy) ([]bpe.Rank, [][]bpe.Rank, error) {
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)
	return e.core.EncodeWithUnstable(text, allowedSet, disallowedSet)
}

// EncodeSingleToken resolves a single string to its token ID.
func (e *Encoding) EncodeSingleToken(s string) (bpe.Rank, error) {
	return e.core.EncodeSingleToken(s)
}

// Decode reconstitutes the raw bytes for tokens and lossily renders them
// as a string.
func (e *Encoding) Decode(tokens []bpe.Rank) string {
	return e.core.DecodeString(tokens)
}

// DecodeBytes reconstitutes the raw bytes for tokens.
func (e *Encoding) DecodeBytes(tokens []bpe.Rank) []byte {
	return e.core.DecodeBytes(tokens)
}

// DecodeSingleTokenBytes resolves one token ID to its byte-sequence.
func (e *Encoding) DecodeSingleTokenBytes(id bpe.Rank) ([]byte, error) {
	return e.core.DecodeSingleTokenBytes(id)
}

// DecodeWithOffsets decodes tokens and reports, for each token, the
// character index in the decoded text where it begins.
func (e *Encoding) DecodeWithOffsets(tokens []bpe.Rank) ([]int, string) {
	return e.core.DecodeWithOffsets(tokens)
}

// TokenByteValues returns the raw bytes each token id decodes to.
func (e *Encoding) TokenByteValues(tokens []bpe.Rank) [][]byte {
	return e.core.TokenByteValues(tokens)
}

// AllTokenByteValues enumerates the bytes of every resolvable token id in
// this encoding, ascending; unresolvable ids are omitted.
func (e *Encoding) AllTokenByteValues() [][]byte {
	return e.core.AllTokenByteValues()
}

// MaxTokenValue returns the highest valid token ID for this encoding.
func (e *Encoding) MaxTokenValue() bpe.Rank { return e.core.MaxTokenValue() }

// NVocab returns max_token_id + 1 for this encoding.
func (e *Encoding) NVocab() int { return e.core.NVocab() }

// Stream encodes text incrementally; see bpe.Core.Stream.
func (e *Encoding) Stream(ctx context.Context, text string, allowed, disallowed bpe.SpecialTokenPolicy, chunkSize int) <-chan bpe.StreamResult {
	allowedSet, disallowedSet := bpe.ResolvePolicies(e.core.Specials, allowed, disallowed)
	return e.core.Stream(ctx, text, allowedSet, disallowedSet, chunkSize)
}
