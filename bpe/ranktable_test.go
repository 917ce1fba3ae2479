package bpe

import "testing"

func TestHeapStoreAppendIntoSmallVocab(t *testing.T) {
	pairs := []rankedBytes{
		{bytes: []byte("hi"), rank: 1},
		{bytes: []byte("bye"), rank: 2},
	}

	store, err := newTokenStore(pairs)
	if err != nil {
		t.Fatalf("newTokenStore: %v", err)
	}
	t.Cleanup(store.Close)

	var dst []byte
	if ok := store.AppendInto(&dst, 1); !ok {
		t.Fatalf("expected id 1 to be present")
	}
	if got := string(dst); got != "hi" {
		t.Fatalf("unexpected bytes after first append: %q", got)
	}
	if ok := store.AppendInto(&dst, 2); !ok {
		t.Fatalf("expected id 2 to be present")
	}
	if got := string(dst); got != "hibye" {
		t.Fatalf("unexpected bytes after second append: %q", got)
	}
	if ok := store.AppendInto(&dst, 3); ok {
		t.Fatalf("unexpected success for missing id")
	}
}

func TestRankTableLookupReverseAndPrefixSearch(t *testing.T) {
	ranks := map[string]Rank{
		"h":   0,
		"e":   1,
		"l":   2,
		"o":   3,
		"he":  4,
		"hel": 5,
		"hi":  6,
	}
	rt, err := NewRankTable(ranks)
	if err != nil {
		t.Fatalf("NewRankTable: %v", err)
	}
	t.Cleanup(rt.Close)

	if r, ok := rt.Lookup([]byte("he")); !ok || r != 4 {
		t.Fatalf("Lookup(he) = %v, %v", r, ok)
	}
	if _, ok := rt.Lookup([]byte("nope")); ok {
		t.Fatalf("Lookup(nope) should miss")
	}
	if b, ok := rt.Reverse(5); !ok || string(b) != "hel" {
		t.Fatalf("Reverse(5) = %q, %v", b, ok)
	}
	if _, ok := rt.Reverse(999); ok {
		t.Fatalf("Reverse(999) should miss")
	}
	if got := rt.MaxRank(); got != 6 {
		t.Fatalf("MaxRank = %d, want 6", got)
	}
	if got := rt.Len(); got != len(ranks) {
		t.Fatalf("Len = %d, want %d", got, len(ranks))
	}

	matches := rt.PrefixSearch([]byte("he"))
	if len(matches) != 2 {
		t.Fatalf("PrefixSearch(he) = %d matches, want 2", len(matches))
	}
	seen := map[string]bool{}
	for _, m := range matches {
		seen[string(m.bytes)] = true
	}
	if !seen["he"] || !seen["hel"] {
		t.Fatalf("PrefixSearch(he) missing expected keys: %+v", matches)
	}

	if got := rt.PrefixSearch([]byte("zzz")); got != nil {
		t.Fatalf("PrefixSearch(zzz) = %v, want nil", got)
	}
}
