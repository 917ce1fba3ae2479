package bpe

import "sync"

// mergePartsPool and mergeTokensPool back the scratch buffers used during
// a single merge call, mirroring the teacher's coreBPE.partsPool /
// tokenPool sync.Pool fields.
var (
	mergePartsPool  = sync.Pool{New: func() any { b := make([]mergePart, 0, 64); return &b }}
	mergeTokensPool = sync.Pool{New: func() any { b := make([]Rank, 0, 32); return &b }}
)

type mergePart struct {
	start int
	rank  Rank
}

const noRank = ^Rank(0)

func acquireParts(capHint int) (*[]mergePart, []mergePart) {
	p := mergePartsPool.Get().(*[]mergePart)
	if cap(*p) < capHint {
		buf := make([]mergePart, 0, capHint)
		p = &buf
	} else {
		*p = (*p)[:0]
	}
	return p, *p
}

func releaseParts(p *[]mergePart) {
	if cap(*p) > 1<<14 {
		return
	}
	*p = (*p)[:0]
	mergePartsPool.Put(p)
}

func acquireTokens(capHint int) (*[]Rank, []Rank) {
	p := mergeTokensPool.Get().(*[]Rank)
	if cap(*p) < capHint {
		buf := make([]Rank, 0, capHint)
		p = &buf
	} else {
		*p = (*p)[:0]
	}
	return p, *p
}

func releaseTokens(p *[]Rank) {
	if cap(*p) > 1<<14 {
		return
	}
	*p = (*p)[:0]
	mergeTokensPool.Put(p)
}

// mergeParts runs the array-based, priority-queue-free BPE merge over
// piece, returning the final parts list. parts[i] holds
// the start offset of token i; the sentinel parts[len(parts)-1].start ==
// len(piece) closes the last token off. The returned slice must be
// released via releaseParts by the caller.
func mergeParts(rt *RankTable, piece []byte) (*[]mergePart, []mergePart) {
	pHolder, parts := acquireParts(len(piece) + 1)
	for i := 0; i <= len(piece); i++ {
		parts = append(parts, mergePart{start: i, rank: noRank})
	}

	rankAt := func(i, skip int) Rank {
		if i+skip+2 < len(parts) {
			if r, ok := rt.Lookup(piece[parts[i].start:parts[i+skip+2].start]); ok {
				return r
			}
		}
		return noRank
	}

	for i := 0; i+1 < len(parts); i++ {
		parts[i].rank = rankAt(i, 0)
	}

	for {
		minRank := noRank
		minIdx := -1
		for i := 0; i+1 < len(parts); i++ {
			if parts[i].rank < minRank {
				minRank = parts[i].rank
				minIdx = i
			}
		}
		if minIdx < 0 {
			break
		}
		parts[minIdx].rank = rankAt(minIdx, 1)
		if minIdx > 0 {
			parts[minIdx-1].rank = rankAt(minIdx-1, 1)
		}
		parts = append(parts[:minIdx+1], parts[minIdx+2:]...)
	}

	*pHolder = parts
	return pHolder, parts
}

// Merge splits piece into the byte subslices chosen by BPE merging,
// returning one []byte per final token.
// It is mainly useful for tests and callers that need the raw subslices;
// EncodePiece below goes straight from parts to ranks without this allocation.
func Merge(rt *RankTable, piece []byte) [][]byte {
	if len(piece) == 1 {
		return [][]byte{piece}
	}
	pHolder, parts := mergeParts(rt, piece)
	defer releaseParts(pHolder)
	out := make([][]byte, 0, len(parts)-1)
	for i := 0; i+1 < len(parts); i++ {
		out = append(out, piece[parts[i].start:parts[i+1].start])
	}
	return out
}

// EncodePiece resolves piece (already free of special tokens) to token
// ranks via BPE merging, falling back to single-byte lookups for any
// final subslice absent from the rank table. The returned slice is owned by the caller;
// release must be invoked when done with it.
func EncodePiece(rt *RankTable, piece []byte) (toks []Rank, release func()) {
	// Fast path: a whole piece that is itself a known token
	// never needs the merge loop, whether or not it is a single byte.
	if r, ok := rt.Lookup(piece); ok {
		tHolder, t := acquireTokens(1)
		t = append(t, r)
		*tHolder = t
		return t, func() { releaseTokens(tHolder) }
	}

	pHolder, parts := mergeParts(rt, piece)
	tHolder, t := acquireTokens(len(parts))
	for i := 0; i+1 < len(parts); i++ {
		sub := piece[parts[i].start:parts[i+1].start]
		if r, ok := rt.Lookup(sub); ok {
			t = append(t, r)
			continue
		}
		// Single-byte fallback: a well-formed built-in rank table always
		// has an entry for every byte value, so this should never fire.
		for _, b := range sub {
			if r, ok := rt.Lookup([]byte{b}); ok {
				t = append(t, r)
			}
		}
	}
	*tHolder = t
	releaseParts(pHolder)
	return t, func() { releaseTokens(tHolder) }
}

// CountPiece is EncodePiece without materializing the token slice, used
// by token_count to avoid allocation on the ordinary path.
func CountPiece(rt *RankTable, piece []byte) int {
	if _, ok := rt.Lookup(piece); ok {
		return 1
	}
	pHolder, parts := mergeParts(rt, piece)
	n := 0
	for i := 0; i+1 < len(parts); i++ {
		sub := piece[parts[i].start:parts[i+1].start]
		if _, ok := rt.Lookup(sub); ok {
			n++
			continue
		}
		// Same single-byte fallback as EncodePiece: unknown bytes add nothing.
		for _, b := range sub {
			if _, ok := rt.Lookup([]byte{b}); ok {
				n++
			}
		}
	}
	releaseParts(pHolder)
	return n
}
