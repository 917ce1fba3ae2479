package bpe

import "unicode/utf8"

// DecodeBytes concatenates the byte sequence for each token id in tokens,
// in order. Unknown ids are skipped rather than erroring, mirroring the
// lenient behavior of DecodeSingleTokenBytes callers that have already
// validated their input elsewhere.
func (c *Core) DecodeBytes(tokens []Rank) []byte {
	var out []byte
	for _, t := range tokens {
		b, err := c.DecodeSingleTokenBytes(t)
		if err != nil {
			continue
		}
		out = append(out, b...)
	}
	return out
}

// DecodeString decodes tokens and lossily re-interprets the result as
// UTF-8, replacing any invalid sequences with the standard replacement
// character. Token boundaries need not fall on rune boundaries; only the
// final concatenated byte stream is required to be valid text.
func (c *Core) DecodeString(tokens []Rank) string {
	b := c.DecodeBytes(tokens)
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}

// TokenByteValues returns, for each token id, the raw bytes it decodes
// to, preserving order and duplicates. An id with no known byte
// representation yields a nil entry at its position.
func (c *Core) TokenByteValues(tokens []Rank) [][]byte {
	out := make([][]byte, len(tokens))
	for i, t := range tokens {
		b, err := c.DecodeSingleTokenBytes(t)
		if err == nil {
			out[i] = b
		}
	}
	return out
}

// AllTokenByteValues enumerates the byte-sequence for every token id in
// [0, MaxTokenValue()], ascending. Ids with no byte representation are
// omitted from the output rather than holding a placeholder slot, so the
// result can be shorter than NVocab() for encodings with gaps in their
// id space.
func (c *Core) AllTokenByteValues() [][]byte {
	out := make([][]byte, 0, c.nVocab)
	for id := Rank(0); ; id++ {
		if b, err := c.DecodeSingleTokenBytes(id); err == nil {
			out = append(out, b)
		}
		if id == c.maxTokenValue {
			break
		}
	}
	return out
}

// isContinuationByte reports whether b matches the UTF-8 continuation
// bitmask 10xxxxxx.
func isContinuationByte(b byte) bool { return b&0xC0 == 0x80 }

// DecodeWithOffsets decodes tokens to text and reports, for each token,
// the character index in the decoded text where it begins. Characters
// are counted as non-continuation bytes; a token whose first byte is
// itself a continuation byte (it begins mid-scalar, split across a
// token boundary) attaches to the preceding scalar instead of starting
// a new one.
func (c *Core) DecodeWithOffsets(tokens []Rank) (offsets []int, text string) {
	allBytes := c.TokenByteValues(tokens)
	offsets = make([]int, len(tokens))

	charLen := 0
	var buf []byte
	for i, b := range allBytes {
		if len(b) > 0 && isContinuationByte(b[0]) {
			offsets[i] = charLen - 1
			if offsets[i] < 0 {
				offsets[i] = 0
			}
		} else {
			offsets[i] = charLen
		}
		for _, bb := range b {
			if !isContinuationByte(bb) {
				charLen++
			}
		}
		buf = append(buf, b...)
	}
	return offsets, string(buf)
}
