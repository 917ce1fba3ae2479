package bpe

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Segmenter applies an encoding's Unicode-aware regex pattern to split
// text into ordinary pieces. dlclark/regexp2 is used instead
// of the standard library's RE2-based regexp because the built-in
// patterns rely on Unicode category classes (\p{L}, \p{Lu}, \p{M}, ...),
// case-insensitive groups ((?i:...)), and negative lookahead ((?!\S)),
// none of which Go's regexp package can compile.
type Segmenter struct {
	re *regexp2.Regexp
}

// NewSegmenter compiles pattern as a Unicode-category-aware regex.
func NewSegmenter(pattern string) (*Segmenter, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("bpe: compiling segmenter pattern: %w", err)
	}
	return &Segmenter{re: re}, nil
}

// Split returns the ordered, non-overlapping left-to-right matches of the
// segmenter's pattern over text. Only text actually covered
// by a match is returned; built-in patterns are constructed so that their
// final alternatives (\s+, etc.) cover every remaining character, but a
// custom pattern that leaves gaps will simply skip them, matching the
// semantics of FindNextMatch on the underlying regex engine.
func (s *Segmenter) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	var out []string
	m, err := s.re.FindStringMatch(text)
	if err != nil {
		return nil, fmt.Errorf("bpe: segmenting: %w", err)
	}
	for m != nil {
		out = append(out, m.String())
		m, err = s.re.FindNextMatch(m)
		if err != nil {
			return nil, fmt.Errorf("bpe: segmenting: %w", err)
		}
	}
	return out, nil
}
