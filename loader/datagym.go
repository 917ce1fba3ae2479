package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DataGymLoader parses the original GPT-2 release format: merges.txt
// listing whitespace-separated byte-pair merges in priority order, and
// vocab.json mapping token strings to integer ids. Token strings in both
// files are written in GPT-2's "byte to printable rune" substitution
// alphabet rather than raw bytes, so every token string must be decoded
// back through that alphabet before it becomes a rank key.
//
// Ranks are derived from merges.txt, not vocab.json: the 256 single
// bytes occupy ranks 0..255 by the fixed permutation below, and each
// subsequent merges.txt line assigns rank 256+i to the concatenation of
// its two (decoded) halves. vocab.json is used only to cross-check that
// every non-special entry it defines agrees with the rank merges.txt
// produced, catching a mismatched pair of files.
type DataGymLoader struct {
	Merges io.Reader // merges.txt contents
	Vocab  io.Reader // vocab.json contents; nil skips the cross-check
}

func (l *DataGymLoader) Load() (Ranks, error) {
	order := byteRankOrder()
	decoder := byteToRuneAlphabet().inverse()

	ranks := make(Ranks, 256)
	for rank, b := range order {
		ranks[string([]byte{b})] = uint32(rank)
	}

	next := uint32(256)
	scanner := bufio.NewScanner(l.Merges)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 && strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, &SourceError{Source: "merges.txt", Err: fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(parts))}
		}
		left, err := decodeGymToken(parts[0], decoder)
		if err != nil {
			return nil, &SourceError{Source: "merges.txt", Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		right, err := decodeGymToken(parts[1], decoder)
		if err != nil {
			return nil, &SourceError{Source: "merges.txt", Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		merged := append(append([]byte(nil), left...), right...)
		key := string(merged)
		if _, exists := ranks[key]; exists {
			return nil, &SourceError{Source: "merges.txt", Err: fmt.Errorf("line %d: duplicate merge result", lineNo)}
		}
		ranks[key] = next
		next++
	}
	if err := scanner.Err(); err != nil {
		return nil, &SourceError{Source: "merges.txt", Err: err}
	}

	if l.Vocab != nil {
		if err := crossCheckVocab(l.Vocab, ranks, decoder); err != nil {
			return nil, err
		}
	}

	return ranks, nil
}

// crossCheckVocab decodes every vocab.json entry and confirms it names
// the same rank merges.txt already assigned. Special-token entries (ids
// at or beyond the merge-derived vocabulary size) are outside what
// merges.txt can produce and are skipped.
func crossCheckVocab(r io.Reader, ranks Ranks, decoder map[rune]byte) error {
	var vocab map[string]int
	if err := json.NewDecoder(r).Decode(&vocab); err != nil {
		return &SourceError{Source: "vocab.json", Err: err}
	}
	maxRank := uint32(0)
	for _, rank := range ranks {
		if rank > maxRank {
			maxRank = rank
		}
	}
	for tokenStr, id := range vocab {
		if uint32(id) > maxRank {
			continue // special token, not part of the merge-derived vocabulary
		}
		raw, err := decodeGymToken(tokenStr, decoder)
		if err != nil {
			return &SourceError{Source: "vocab.json", Err: fmt.Errorf("token %q: %w", tokenStr, err)}
		}
		rank, ok := ranks[string(raw)]
		if !ok {
			return &SourceError{Source: "vocab.json", Err: fmt.Errorf("token %q: no matching merge-derived rank", tokenStr)}
		}
		if rank != uint32(id) {
			return &SourceError{Source: "vocab.json", Err: fmt.Errorf("token %q: vocab.json id %d disagrees with merges.txt rank %d", tokenStr, id, rank)}
		}
	}
	return nil
}

func decodeGymToken(s string, decoder map[rune]byte) ([]byte, error) {
	var out []byte
	total := len(s)
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("invalid utf8 at byte offset %d", total-len(s))
		}
		if b, ok := decoder[r]; ok {
			out = append(out, b)
		} else {
			var tmp [utf8.UTFMax]byte
			n := utf8.EncodeRune(tmp[:], r)
			out = append(out, tmp[:n]...)
		}
		s = s[size:]
	}
	return out, nil
}

// byteUnicodeTable is GPT-2's byte<->rune substitution alphabet: the 188
// bytes that are already printable single-byte Latin-1 code points (and
// not whitespace) map to themselves, and the remaining 68 "awkward"
// bytes (control characters, space, and a few others) get assigned
// stand-in runes starting at 256 so every byte value has some single
// printable rune representing it in vocab.json and merges.txt.
type byteUnicodeTable struct {
	byteToRune map[byte]rune
}

// byteRankOrder returns the 256 byte values in the order GPT-2 assigns
// them rank 0..255: printable non-whitespace single-byte code points
// ascending, then every remaining byte value ascending.
func byteRankOrder() []byte {
	var bs []int
	for b := '!'; b <= '~'; b++ {
		bs = append(bs, int(b))
	}
	for b := 0xA1; b <= 0xAC; b++ {
		bs = append(bs, b)
	}
	for b := 0xAE; b <= 0xFF; b++ {
		bs = append(bs, b)
	}

	present := make(map[int]bool, len(bs))
	for _, b := range bs {
		present[b] = true
	}
	for b := 0; b < 256; b++ {
		if !present[b] {
			bs = append(bs, b)
		}
	}

	out := make([]byte, len(bs))
	for i, b := range bs {
		out[i] = byte(b)
	}
	return out
}

func byteToRuneAlphabet() byteUnicodeTable {
	order := byteRankOrder()
	table := byteUnicodeTable{byteToRune: make(map[byte]rune, 256)}
	for i, b := range order {
		if i < 188 {
			table.byteToRune[b] = rune(b)
		} else {
			table.byteToRune[b] = rune(256 + (i - 188))
		}
	}
	return table
}

func (t byteUnicodeTable) inverse() map[rune]byte {
	out := make(map[rune]byte, len(t.byteToRune))
	for b, r := range t.byteToRune {
		out[r] = b
	}
	return out
}
