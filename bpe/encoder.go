package bpe

import (
	"context"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Core aggregates the immutable state needed to encode and decode text
// for one encoding: the rank table, the special-token matcher, the
// compiled segmenter, and the derived vocabulary size. It is safe for
// concurrent reads once constructed.
type Core struct {
	Ranks    *RankTable
	Specials *SpecialMatcher
	Seg      *Segmenter

	maxTokenValue Rank
	nVocab        int
}

// NewCore builds a Core from already-resolved ranks, specials and
// segmenter. If explicitNVocab is non-nil, construction fails unless the
// combined rank/special count and max token id exactly match it.
func NewCore(ranks *RankTable, specials *SpecialMatcher, seg *Segmenter, explicitNVocab *int) (*Core, error) {
	max := ranks.MaxRank()
	for _, id := range specialIDs(specials) {
		if id > max {
			max = id
		}
	}
	c := &Core{
		Ranks:         ranks,
		Specials:      specials,
		Seg:           seg,
		maxTokenValue: max,
		nVocab:        int(max) + 1,
	}
	if explicitNVocab != nil {
		total := ranks.Len() + len(specialIDs(specials))
		if total != *explicitNVocab {
			return nil, fmt.Errorf("bpe: explicit n_vocab %d does not match rank+special count %d", *explicitNVocab, total)
		}
		if int(max) != *explicitNVocab-1 {
			return nil, fmt.Errorf("bpe: explicit n_vocab %d does not match max token id %d", *explicitNVocab, max)
		}
	}
	return c, nil
}

func specialIDs(m *SpecialMatcher) []Rank {
	ids := make([]Rank, 0, len(m.ids))
	for _, id := range m.ids {
		ids = append(ids, id)
	}
	return ids
}

// MaxTokenValue returns the highest valid token ID for this encoding.
func (c *Core) MaxTokenValue() Rank { return c.maxTokenValue }

// NVocab returns max_token_id + 1.
func (c *Core) NVocab() int { return c.nVocab }

// encodeAll advances the cursor-based state machine over the whole of
// text. It returns the tokens produced and the running
// last-ordinary-piece-token-length needed by the unstable-completion
// variant.
func (c *Core) encodeAll(text string, allowed, disallowed map[string]struct{}) ([]Rank, int, error) {
	var out []Rank
	lastPieceLen := 0
	cursor := 0
	for cursor < len(text) {
		if lit, id, ok := c.Specials.AnchoredAt(text, cursor); ok {
			if _, bad := disallowed[lit]; bad {
				return nil, 0, &DisallowedSpecialError{Literal: lit}
			}
			if _, good := allowed[lit]; good {
				out = append(out, id)
				cursor += len(lit)
				lastPieceLen = 0
				continue
			}
		}

		nextStart := c.nextSpecialStart(text, cursor)

		if nextStart == cursor {
			// A special literal sits at the cursor but is neither allowed
			// nor disallowed: make progress by treating one character as
			// ordinary text.
			n := nextRuneLen(text, cursor)
			toks, release := EncodePiece(c.Ranks, []byte(text[cursor:cursor+n]))
			out = append(out, toks...)
			lastPieceLen = len(toks)
			release()
			cursor += n
			continue
		}

		pieces, err := c.Seg.Split(text[cursor:nextStart])
		if err != nil {
			return nil, 0, err
		}
		for _, piece := range pieces {
			if r, ok := c.Ranks.LookupString(piece); ok {
				out = append(out, r)
				lastPieceLen = 1
				continue
			}
			toks, release := EncodePiece(c.Ranks, []byte(piece))
			out = append(out, toks...)
			lastPieceLen = len(toks)
			release()
		}
		cursor = nextStart
	}
	return out, lastPieceLen, nil
}

// nextSpecialStart is the byte offset of the earliest special-token
// occurrence at or after from, or len(text) when none remains. The scan
// is policy-blind: every ordinary chunk ends at the next special literal
// regardless of classification, and the anchored check at the top of the
// cursor loop decides what to do with whatever sits at the boundary.
func (c *Core) nextSpecialStart(text string, from int) int {
	if start, _, _, ok := c.Specials.NextOccurrence(text, from); ok {
		return start
	}
	return len(text)
}

func nextRuneLen(s string, i int) int {
	b := s[i]
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// Encode runs the full cursor state machine and returns the
// resulting tokens.
func (c *Core) Encode(text string, allowed, disallowed map[string]struct{}) ([]Rank, error) {
	toks, _, err := c.encodeAll(text, allowed, disallowed)
	return toks, err
}

// TokenCount returns len(Encode(text, ...)) without materializing the
// token slice for ordinary pieces.
func (c *Core) TokenCount(text string, allowed, disallowed map[string]struct{}) (int, error) {
	count := 0
	cursor := 0
	for cursor < len(text) {
		if lit, _, ok := c.Specials.AnchoredAt(text, cursor); ok {
			if _, bad := disallowed[lit]; bad {
				return 0, &DisallowedSpecialError{Literal: lit}
			}
			if _, good := allowed[lit]; good {
				count++
				cursor += len(lit)
				continue
			}
		}
		nextStart := c.nextSpecialStart(text, cursor)
		if nextStart == cursor {
			n := nextRuneLen(text, cursor)
			count += CountPiece(c.Ranks, []byte(text[cursor:cursor+n]))
			cursor += n
			continue
		}
		pieces, err := c.Seg.Split(text[cursor:nextStart])
		if err != nil {
			return 0, err
		}
		for _, piece := range pieces {
			if _, ok := c.Ranks.LookupString(piece); ok {
				count++
				continue
			}
			count += CountPiece(c.Ranks, []byte(piece))
		}
		cursor = nextStart
	}
	return count, nil
}

// EncodeSingleToken resolves a single string to a token ID: the special
// ID if it names a special literal, else its rank if its UTF-8 bytes are
// a known token.
func (c *Core) EncodeSingleToken(s string) (Rank, error) {
	if id, ok := c.Specials.ID(s); ok {
		return id, nil
	}
	if r, ok := c.Ranks.LookupString(s); ok {
		return r, nil
	}
	return 0, &SingleTokenNotFoundError{Value: s}
}

// DecodeSingleTokenBytes resolves a token ID to its byte-sequence via the
// rank table's reverse map or the special-token table.
func (c *Core) DecodeSingleTokenBytes(id Rank) ([]byte, error) {
	if b, ok := c.Ranks.Reverse(id); ok {
		return b, nil
	}
	if lit, ok := c.Specials.Literal(id); ok {
		return []byte(lit), nil
	}
	return nil, &TokenBytesNotFoundError{ID: id}
}

// --- Unstable completions ---

// EncodeWithUnstable runs the cursor state machine and then computes the
// set of plausible token-sequence completions for the unstable trailing
// tokens, sorted lexicographically so the enumeration is deterministic.
func (c *Core) EncodeWithUnstable(text string, allowed, disallowed map[string]struct{}) (stable []Rank, completions [][]Rank, err error) {
	tokens, lastPieceLen, err := c.encodeAll(text, allowed, disallowed)
	if err != nil {
		return nil, nil, err
	}
	if lastPieceLen == 0 {
		return tokens, nil, nil
	}

	// Whitespace extension: if the last ordinary piece is itself an
	// all-whitespace token, keep folding whitespace tokens to its left
	// into the unstable region too.
	start := len(tokens) - lastPieceLen
	if start < len(tokens) && c.isWhitespaceToken(tokens[start]) {
		for start > 0 && c.isWhitespaceToken(tokens[start-1]) {
			start--
		}
	}

	stableTokens := tokens[:start]
	var unstableBytes []byte
	for _, t := range tokens[start:] {
		b, _ := c.Ranks.Reverse(t)
		if b == nil {
			b, _ = c.DecodeSingleTokenBytes(t)
		}
		unstableBytes = append(unstableBytes, b...)
	}

	set := map[string]struct{}{}
	var out [][]Rank

	add := func(seq []Rank) {
		if len(seq) == 0 {
			return
		}
		key := rankSeqKey(seq)
		if _, ok := set[key]; ok {
			return
		}
		set[key] = struct{}{}
		out = append(out, seq)
	}

	for _, m := range c.Ranks.PrefixSearch(unstableBytes) {
		add([]Rank{m.rank})
	}

	for i := 1; i < len(unstableBytes); i++ {
		prefix := unstableBytes[:i]
		suffix := unstableBytes[i:]
		for _, m := range c.Ranks.PrefixSearch(suffix) {
			possibility := append(append([]byte(nil), prefix...), m.bytes...)
			possTokens, perr := c.encodeRawOrSegmented(possibility)
			if perr != nil {
				continue
			}
			accLen := 0
			var acc []Rank
			for _, t := range possTokens {
				b, _ := c.Ranks.Reverse(t)
				if b == nil {
					b, _ = c.DecodeSingleTokenBytes(t)
				}
				acc = append(acc, t)
				accLen += len(b)
				if accLen >= len(unstableBytes) {
					break
				}
			}
			add(acc)
		}
	}

	if endsWithWhitespaceScalar(unstableBytes) {
		lastScalarStart := lastScalarStart(unstableBytes)
		prefix := unstableBytes[:lastScalarStart]
		lastScalar := unstableBytes[lastScalarStart:]
		var combined []Rank
		if len(prefix) > 0 {
			pt, _ := EncodePieceCopy(c.Ranks, prefix)
			combined = append(combined, pt...)
		}
		lt, _ := EncodePieceCopy(c.Ranks, lastScalar)
		combined = append(combined, lt...)
		add(combined)
	}

	sort.Slice(out, func(i, j int) bool {
		return rankSeqLess(out[i], out[j])
	})
	return stableTokens, out, nil
}

// rankSeqKey folds a token sequence into a fixed-width big-endian byte
// string, giving map-key equality and a comparison order that matches
// element-wise lexicographic comparison of the sequence itself.
func rankSeqKey(seq []Rank) string {
	b := make([]byte, 0, len(seq)*4)
	for _, r := range seq {
		b = append(b, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
	}
	return string(b)
}

func rankSeqLess(a, b []Rank) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// encodeRawOrSegmented encodes possibility via regex segmentation + merge
// when it is valid UTF-8, else via a raw merge over the bytes.
func (c *Core) encodeRawOrSegmented(possibility []byte) ([]Rank, error) {
	if utf8.Valid(possibility) {
		pieces, err := c.Seg.Split(string(possibility))
		if err != nil {
			return nil, err
		}
		var out []Rank
		for _, piece := range pieces {
			toks, release := EncodePiece(c.Ranks, []byte(piece))
			out = append(out, toks...)
			release()
		}
		return out, nil
	}
	return EncodePieceCopy(c.Ranks, possibility)
}

// EncodePieceCopy is EncodePiece without pooled-buffer reuse, for callers
// (like unstable-completion enumeration) that must retain the result
// past the call.
func EncodePieceCopy(rt *RankTable, piece []byte) ([]Rank, error) {
	toks, release := EncodePiece(rt, piece)
	out := append([]Rank(nil), toks...)
	release()
	return out, nil
}

func (c *Core) isWhitespaceToken(t Rank) bool {
	b, ok := c.Ranks.Reverse(t)
	if !ok {
		var err error
		b, err = c.DecodeSingleTokenBytes(t)
		if err != nil {
			return false
		}
	}
	if len(b) == 0 {
		return false
	}
	for _, x := range b {
		if x != 0x20 && x != 0x09 && x != 0x0A {
			return false
		}
	}
	return true
}

func lastScalarStart(b []byte) int {
	// Walk backward to the start of the final UTF-8 scalar.
	i := len(b) - 1
	for i > 0 && b[i]&0xC0 == 0x80 {
		i--
	}
	return i
}

func endsWithWhitespaceScalar(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	r, size := utf8.DecodeLastRune(b)
	if r == utf8.RuneError && size <= 1 {
		return false
	}
	return unicode.IsSpace(r)
}

// --- Streaming ---

// StreamProvenance tags a StreamChunk's origin.
type StreamProvenance struct {
	// IsText is set for chunks derived from an ordinary segment; Start/End
	// are the half-open character-offset range in the original input.
	IsText    bool
	Start     int
	End       int
	Special   string // set when IsText is false
	SpecialAt int    // character position of the special token
}

// StreamChunk is one unit emitted by Stream: a non-empty run of token IDs
// plus provenance.
type StreamChunk struct {
	Tokens     []Rank
	Provenance StreamProvenance
}

// StreamResult is delivered on the Stream channel: either a chunk or a
// terminal error.
type StreamResult struct {
	Chunk StreamChunk
	Err   error
}

// Stream encodes text exactly like Encode but emits tokens incrementally:
// each ordinary segment's tokens are sliced into pieces of at most
// chunkSize (clamped to >= 1) tagged with the segment's character range;
// each accepted special token is emitted as its own one-token chunk
// tagged with its literal and character position. The producer runs in
// its own goroutine; cancelling ctx stops it at the next yield point.
func (c *Core) Stream(ctx context.Context, text string, allowed, disallowed map[string]struct{}, chunkSize int) <-chan StreamResult {
	if chunkSize < 1 {
		chunkSize = 1
	}
	out := make(chan StreamResult)
	go func() {
		defer close(out)
		cursor := 0
		charPos := 0
		send := func(r StreamResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for cursor < len(text) {
			if err := ctx.Err(); err != nil {
				return
			}
			if lit, id, ok := c.Specials.AnchoredAt(text, cursor); ok {
				if _, bad := disallowed[lit]; bad {
					send(StreamResult{Err: &DisallowedSpecialError{Literal: lit}})
					return
				}
				if _, good := allowed[lit]; good {
					ok := send(StreamResult{Chunk: StreamChunk{
						Tokens: []Rank{id},
						Provenance: StreamProvenance{
							Special:   lit,
							SpecialAt: charPos,
						},
					}})
					if !ok {
						return
					}
					cursor += len(lit)
					charPos += runeCount(lit)
					continue
				}
			}

			nextStart := c.nextSpecialStart(text, cursor)
			if nextStart == cursor {
				n := nextRuneLen(text, cursor)
				toks, release := EncodePiece(c.Ranks, []byte(text[cursor:cursor+n]))
				tc := append([]Rank(nil), toks...)
				release()
				if len(tc) > 0 {
					if !send(StreamResult{Chunk: StreamChunk{
						Tokens:     tc,
						Provenance: StreamProvenance{IsText: true, Start: charPos, End: charPos + 1},
					}}) {
						return
					}
				}
				cursor += n
				charPos++
				continue
			}

			segText := text[cursor:nextStart]
			pieces, err := c.Seg.Split(segText)
			if err != nil {
				send(StreamResult{Err: err})
				return
			}
			var segTokens []Rank
			for _, piece := range pieces {
				if r, ok := c.Ranks.LookupString(piece); ok {
					segTokens = append(segTokens, r)
					continue
				}
				toks, release := EncodePiece(c.Ranks, []byte(piece))
				segTokens = append(segTokens, toks...)
				release()
			}
			segCharLen := runeCount(segText)
			segStart := charPos
			segEnd := charPos + segCharLen
			for i := 0; i < len(segTokens); i += chunkSize {
				j := i + chunkSize
				if j > len(segTokens) {
					j = len(segTokens)
				}
				if !send(StreamResult{Chunk: StreamChunk{
					Tokens:     append([]Rank(nil), segTokens[i:j]...),
					Provenance: StreamProvenance{IsText: true, Start: segStart, End: segEnd},
				}}) {
					return
				}
			}
			cursor = nextStart
			charPos = segEnd
		}
	}()
	return out
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
