package tiktoken

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/openbpe/tiktoken/loader"
)

// Loader produces a finalized rank map for one encoding. The bpe package
// never sees this type; only the registry consults it while resolving an
// encoding's vocab descriptor into a usable bpe.RankTable.
type Loader = loader.Loader

// builtinRankFileURL names the canonical public rank-file URL for each
// built-in encoding, the same endpoints the reference tiktoken client
// fetches from. o200k_harmony reuses o200k_base's ranks; the harmony
// extension is special tokens only, not additional merges.
var builtinRankFileURL = map[string]string{
	GPT2:       "https://openaipublic.blob.core.windows.net/gpt-2/encodings/main/vocab.bpe",
	R50kBase:   "https://openaipublic.blob.core.windows.net/encodings/r50k_base.tiktoken",
	P50kBase:   "https://openaipublic.blob.core.windows.net/encodings/p50k_base.tiktoken",
	CL100kBase: "https://openaipublic.blob.core.windows.net/encodings/cl100k_base.tiktoken",
	O200kBase:  "https://openaipublic.blob.core.windows.net/encodings/o200k_base.tiktoken",
}

// cacheDirEnv and offlineEnv name the environment variables that
// configure the loader, following the teacher's resolveCacheDir/
// envOffline convention: a single directory knob and a single boolean
// knob, nothing more elaborate for a library with two knobs.
const (
	cacheDirEnv = "TIKTOKEN_CACHE_DIR"
	offlineEnv  = "TIKTOKEN_OFFLINE"
)

func resolveCacheDir() string {
	if d := os.Getenv(cacheDirEnv); d != "" {
		return d
	}
	return filepath.Join(os.TempDir(), "tiktoken-go-cache")
}

func isOffline() bool {
	v := os.Getenv(offlineEnv)
	return v == "1" || v == "true"
}

// remoteFileLoader fetches a rank file from url, caching the response on
// disk under a name keyed by the SHA-256 of url so repeated process
// starts avoid the network. Concurrent writers of the same cache file
// race benignly: the last writer's bytes win, and readers only ever see
// a fully-written file because the write lands via a temp-file rename.
type remoteFileLoader struct {
	url    string
	client *http.Client
}

func newRemoteFileLoader(url string) *remoteFileLoader {
	return &remoteFileLoader{url: url, client: &http.Client{Timeout: 30 * time.Second}}
}

func (l *remoteFileLoader) Load() (loader.Ranks, error) {
	body, err := l.fetch()
	if err != nil {
		return nil, err
	}
	inner := &loader.TiktokenFileLoader{Reader: body}
	return inner.Load()
}

func (l *remoteFileLoader) fetch() (io.Reader, error) {
	cachePath := l.cachePath()
	if data, err := os.ReadFile(cachePath); err == nil {
		return byteReader(data), nil
	}
	if isOffline() {
		return nil, &FileNotFoundError{Path: cachePath}
	}

	resp, err := l.client.Get(l.url)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: fetching %s: %w", l.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tiktoken: fetching %s: unexpected status %s", l.url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: reading %s: %w", l.url, err)
	}

	if err := l.writeCache(data); err != nil {
		// A cache write failure should not prevent the caller from using
		// the bytes already fetched.
		_ = err
	}
	return byteReader(data), nil
}

func (l *remoteFileLoader) cachePath() string {
	sum := sha256.Sum256([]byte(l.url))
	return filepath.Join(resolveCacheDir(), hex.EncodeToString(sum[:]))
}

func (l *remoteFileLoader) writeCache(data []byte) error {
	dir := resolveCacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tiktoken-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), l.cachePath())
}

func byteReader(b []byte) io.Reader { return &sliceReader{data: b} }

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// newEmbeddedLoader returns the loader for one of the built-in
// encodings' rank files. GPT-2 proper ships a merges.txt rather than a
// .tiktoken file; everything else in the table uses the flat tiktoken
// rank-file format directly.
func newEmbeddedLoader(name string) Loader {
	if name == GPT2 {
		return &gpt2MergesLoader{url: builtinRankFileURL[GPT2]}
	}
	return newRemoteFileLoader(builtinRankFileURL[name])
}

// gpt2MergesLoader fetches GPT-2's original merges.txt format and
// derives ranks from it via loader.DataGymLoader's byte-permutation
// construction, rather than the flat tiktoken rank-file format the other
// six encodings use.
type gpt2MergesLoader struct {
	url string
}

func (l *gpt2MergesLoader) Load() (loader.Ranks, error) {
	fetcher := newRemoteFileLoader(l.url)
	body, err := fetcher.fetch()
	if err != nil {
		return nil, err
	}
	inner := &loader.DataGymLoader{Merges: body}
	return inner.Load()
}
