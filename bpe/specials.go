package bpe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// SpecialMatcher finds occurrences of literal special-token strings. Its
// pattern is a regexp2 alternation of the (quoted) literals,
// ordered longest-first so that two tokens sharing a prefix resolve to the
// longer one — the same construction lancekrogers-go-token-counter's
// Encoder.specialRegex uses for disallowed-token scanning.
type SpecialMatcher struct {
	ids     map[string]Rank
	byID    map[Rank]string
	pattern *regexp2.Regexp // nil when there are no special tokens at all
}

func invertIDs(ids map[string]Rank) map[Rank]string {
	out := make(map[Rank]string, len(ids))
	for lit, id := range ids {
		out[id] = lit
	}
	return out
}

// NewSpecialMatcher builds a matcher over the given literal->ID mapping.
func NewSpecialMatcher(ids map[string]Rank) (*SpecialMatcher, error) {
	if len(ids) == 0 {
		return &SpecialMatcher{ids: ids, byID: invertIDs(ids)}, nil
	}
	literals := make([]string, 0, len(ids))
	for lit := range ids {
		literals = append(literals, lit)
	}
	sort.Slice(literals, func(i, j int) bool { return len(literals[i]) > len(literals[j]) })
	quoted := make([]string, len(literals))
	for i, lit := range literals {
		quoted[i] = regexp.QuoteMeta(lit)
	}
	re, err := regexp2.Compile(strings.Join(quoted, "|"), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("bpe: compiling special-token pattern: %w", err)
	}
	return &SpecialMatcher{ids: ids, byID: invertIDs(ids), pattern: re}, nil
}

// AnchoredAt reports the special-token literal that starts exactly at
// byte offset at in text, if any.
func (m *SpecialMatcher) AnchoredAt(text string, at int) (literal string, id Rank, ok bool) {
	if m.pattern == nil || at >= len(text) {
		return "", 0, false
	}
	match, err := m.pattern.FindStringMatch(text[at:])
	if err != nil || match == nil || match.Index != 0 {
		return "", 0, false
	}
	lit := match.String()
	return lit, m.ids[lit], true
}

// NextOccurrence returns the earliest occurrence, at or after byte offset
// from, of any special-token literal — ties broken by earliest start
// position. ok is false when
// no special token occurs in text[from:].
func (m *SpecialMatcher) NextOccurrence(text string, from int) (start, end int, literal string, ok bool) {
	if m.pattern == nil || from >= len(text) {
		return 0, 0, "", false
	}
	match, err := m.pattern.FindStringMatch(text[from:])
	if err != nil || match == nil {
		return 0, 0, "", false
	}
	lit := match.String()
	return from + match.Index, from + match.Index + len(lit), lit, true
}

// ID looks up the reserved integer ID for a literal special-token string.
func (m *SpecialMatcher) ID(literal string) (Rank, bool) {
	r, ok := m.ids[literal]
	return r, ok
}

// Literal is the reverse of ID: the literal string reserved for a
// special-token ID.
func (m *SpecialMatcher) Literal(id Rank) (string, bool) {
	lit, ok := m.byID[id]
	return lit, ok
}

// Empty reports whether this matcher has no special tokens registered.
func (m *SpecialMatcher) Empty() bool { return len(m.ids) == 0 }

// PolicyKind is the tag of a SpecialTokenSet policy variant.
type PolicyKind int

const (
	// PolicyNone allows/disallows no special tokens.
	PolicyNone PolicyKind = iota
	// PolicyAll allows/disallows every registered special token.
	PolicyAll
	// PolicyOnly allows/disallows exactly the literals in Set.
	PolicyOnly
	// PolicyAutomatic derives its resolved set from the complementary
	// policy.
	PolicyAutomatic
)

// SpecialTokenPolicy is the tagged union callers use to express which
// special tokens may (allowed) or must not (disallowed) appear in input
// text.
type SpecialTokenPolicy struct {
	Kind PolicyKind
	Set  map[string]struct{} // only meaningful when Kind == PolicyOnly
}

// PolicyNoneValue, PolicyAllValue and PolicyAutomaticValue are convenience
// constructors for the non-parameterized policy variants.
func PolicyNoneValue() SpecialTokenPolicy      { return SpecialTokenPolicy{Kind: PolicyNone} }
func PolicyAllValue() SpecialTokenPolicy       { return SpecialTokenPolicy{Kind: PolicyAll} }
func PolicyAutomaticValue() SpecialTokenPolicy { return SpecialTokenPolicy{Kind: PolicyAutomatic} }

// PolicyOnlyValue builds a PolicyOnly variant over the given literals.
func PolicyOnlyValue(literals ...string) SpecialTokenPolicy {
	set := make(map[string]struct{}, len(literals))
	for _, l := range literals {
		set[l] = struct{}{}
	}
	return SpecialTokenPolicy{Kind: PolicyOnly, Set: set}
}

// ResolvePolicies turns (allowed, disallowed) policies into two concrete
// string sets, following the documented resolution table.
func ResolvePolicies(m *SpecialMatcher, allowed, disallowed SpecialTokenPolicy) (allowedSet, disallowedSet map[string]struct{}) {
	all := func() map[string]struct{} {
		set := make(map[string]struct{}, len(m.ids))
		for lit := range m.ids {
			set[lit] = struct{}{}
		}
		return set
	}

	resolve := func(p SpecialTokenPolicy) map[string]struct{} {
		switch p.Kind {
		case PolicyAll:
			return all()
		case PolicyOnly:
			return p.Set
		default: // PolicyNone, PolicyAutomatic (allowed side defaults to empty)
			return map[string]struct{}{}
		}
	}

	allowedSet = resolve(allowed)
	if disallowed.Kind == PolicyAutomatic {
		disallowedSet = make(map[string]struct{})
		for lit := range m.ids {
			if _, ok := allowedSet[lit]; !ok {
				disallowedSet[lit] = struct{}{}
			}
		}
		return allowedSet, disallowedSet
	}
	disallowedSet = resolve(disallowed)
	return allowedSet, disallowedSet
}
