// Package loader produces a finalized byte-sequence-to-rank mapping from
// an abstract source: inline ranks supplied by the caller, a tiktoken
// .tiktoken file (base64 token per line), or a GPT-2 style vocab.json +
// merges.txt pair. The core BPE engine never reads a file itself; it
// only ever consumes the map a Loader hands back.
package loader

import "fmt"

// Ranks is the finalized byte-sequence -> rank mapping a Loader produces.
// Keys are raw byte sequences interpreted as Go strings; this package
// never treats them as text.
type Ranks map[string]uint32

// Loader resolves an abstract vocabulary source into a Ranks map. How the
// bytes backing a particular implementation were obtained — a local
// file, a network fetch, an embedded asset — is that implementation's
// concern. The implementations in this package only read their
// already-resolved source; a Loader defined elsewhere may fetch or cache
// its bytes inside Load.
type Loader interface {
	Load() (Ranks, error)
}

// SourceError wraps a failure to parse or validate a vocabulary source,
// naming the source kind for diagnostics.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
