package tiktoken

import (
	"strings"
	"sync"

	"github.com/openbpe/tiktoken/bpe"
)

// registryEntry pairs a vocab descriptor with the lazily-built Core it
// produces; built once per name, guarded by the registry's lock.
type registryEntry struct {
	descriptor *vocabDescriptor
	core       *bpe.Core // nil until first resolve
}

// Registry is the thread-safe, process-wide holder of named encodings,
// their model aliases and prefix aliases, and loaded plugins. All of its
// maps are guarded by a single mutex; lock hold times never cross a
// loader fetch, matching the double-checked pattern
// lancekrogers-go-token-counter's getEncoding uses for its own package
// scoped cache.
type Registry struct {
	mu sync.RWMutex

	entries map[string]*registryEntry
	aliases map[string]string
	prefix  map[string]string

	builtinNames   map[string]struct{}
	builtinAliases map[string]string
	builtinPrefix  map[string]string

	plugins map[string]*Plugin
}

// NewRegistry builds a registry seeded with the seven built-in encodings
// and the standard model alias/prefix tables.
func NewRegistry() *Registry {
	r := &Registry{
		entries: make(map[string]*registryEntry),
		aliases: make(map[string]string),
		prefix:  make(map[string]string),
		plugins: make(map[string]*Plugin),
	}
	r.seedBuiltins()
	return r
}

func (r *Registry) seedBuiltins() {
	descs := builtinDescriptors()
	r.builtinNames = make(map[string]struct{}, len(descs))
	for name, d := range descs {
		r.entries[name] = &registryEntry{descriptor: d}
		r.builtinNames[name] = struct{}{}
	}

	r.builtinAliases = modelAliases()
	r.builtinPrefix = modelPrefixes()
	r.aliases = make(map[string]string, len(r.builtinAliases))
	for k, v := range r.builtinAliases {
		r.aliases[k] = v
	}
	r.prefix = make(map[string]string, len(r.builtinPrefix))
	for k, v := range r.builtinPrefix {
		r.prefix[k] = v
	}
}

// Register inserts or replaces a named encoding. Replacing the loader of
// a built-in name is rejected; built-ins may only be extended via
// aliases/prefixes. LoadPlugin registers through here, so a plugin cannot
// take a built-in name either.
func (r *Registry) Register(name string, pattern string, specialTokens map[string]bpe.Rank, explicitNVocab *int, l Loader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, builtin := r.builtinNames[name]; builtin {
		return &BuiltinImmutableError{Name: name, Kind: "encoding"}
	}
	r.entries[name] = &registryEntry{descriptor: &vocabDescriptor{
		name:           name,
		pattern:        pattern,
		specialTokens:  specialTokens,
		explicitNVocab: explicitNVocab,
		loader:         l,
	}}
	return nil
}

// Unregister removes a non-built-in named encoding.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, builtin := r.builtinNames[name]; builtin {
		return &BuiltinImmutableError{Name: name, Kind: "encoding"}
	}
	if _, ok := r.entries[name]; !ok {
		return &UnknownEncodingError{Identifier: name}
	}
	delete(r.entries, name)
	return nil
}

// RegisterAlias maps alias to an existing encoding name.
func (r *Registry) RegisterAlias(alias, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return &UnknownEncodingError{Identifier: name}
	}
	r.aliases[alias] = name
	return nil
}

// UnregisterAlias removes a model alias. If alias names a built-in
// mapping, that mapping is restored rather than removed entirely.
func (r *Registry) UnregisterAlias(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if builtinName, ok := r.builtinAliases[alias]; ok {
		r.aliases[alias] = builtinName
		return
	}
	delete(r.aliases, alias)
}

// RegisterPrefix maps a literal model-name prefix to an encoding name.
func (r *Registry) RegisterPrefix(prefix, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; !ok {
		return &UnknownEncodingError{Identifier: name}
	}
	r.prefix[prefix] = name
	return nil
}

// UnregisterPrefix removes a prefix alias, restoring the built-in
// mapping if one existed for that literal prefix.
func (r *Registry) UnregisterPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if builtinName, ok := r.builtinPrefix[prefix]; ok {
		r.prefix[prefix] = builtinName
		return
	}
	delete(r.prefix, prefix)
}

// Reset restores the registry to its built-in-only state and unloads
// every active plugin.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*registryEntry)
	r.plugins = make(map[string]*Plugin)
	r.seedBuiltinsLocked()
}

func (r *Registry) seedBuiltinsLocked() {
	descs := builtinDescriptors()
	for name, d := range descs {
		r.entries[name] = &registryEntry{descriptor: d}
	}
	r.aliases = make(map[string]string, len(r.builtinAliases))
	for k, v := range r.builtinAliases {
		r.aliases[k] = v
	}
	r.prefix = make(map[string]string, len(r.builtinPrefix))
	for k, v := range r.builtinPrefix {
		r.prefix[k] = v
	}
}

// resolveName finds the entry for identifier: exact name match first,
// then alias, then the longest registered prefix literal that starts
// identifier, so the most specific match wins when several prefixes
// could apply.
func (r *Registry) resolveName(identifier string) (string, bool) {
	if _, ok := r.entries[identifier]; ok {
		return identifier, true
	}
	if name, ok := r.aliases[identifier]; ok {
		return name, true
	}
	best := ""
	bestLen := -1
	for prefix, name := range r.prefix {
		if strings.HasPrefix(identifier, prefix) && len(prefix) > bestLen {
			best = name
			bestLen = len(prefix)
		}
	}
	if bestLen >= 0 {
		return best, true
	}
	return "", false
}

// Resolve returns the constructed Core for identifier, building it (via
// the descriptor's loader) on first use and caching it thereafter.
func (r *Registry) Resolve(identifier string) (*bpe.Core, error) {
	r.mu.RLock()
	name, ok := r.resolveName(identifier)
	if !ok {
		r.mu.RUnlock()
		return nil, &UnknownEncodingError{Identifier: identifier}
	}
	entry := r.entries[name]
	core := entry.core
	r.mu.RUnlock()
	if core != nil {
		return core, nil
	}

	// Build outside the lock: loader fetches must never run while the
	// registry lock is held.
	built, err := buildCore(entry.descriptor)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.core == nil {
		entry.core = built
	}
	return entry.core, nil
}

func buildCore(d *vocabDescriptor) (*bpe.Core, error) {
	ranks, err := d.loader.Load()
	if err != nil {
		return nil, &InvalidSourceError{Source: d.name, Err: err}
	}
	rankMap := make(map[string]bpe.Rank, len(ranks))
	for k, v := range ranks {
		rankMap[k] = bpe.Rank(v)
	}
	rt, err := bpe.NewRankTable(rankMap)
	if err != nil {
		return nil, err
	}
	specials, err := bpe.NewSpecialMatcher(d.specialTokens)
	if err != nil {
		return nil, err
	}
	seg, err := bpe.NewSegmenter(d.pattern)
	if err != nil {
		return nil, err
	}
	return bpe.NewCore(rt, specials, seg, d.explicitNVocab)
}

// ListEncodings returns the names of every currently registered
// encoding, built-in or not.
func (r *Registry) ListEncodings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// defaultRegistry is the process-wide singleton most callers use through
// the package-level convenience functions in encoding.go.
var defaultRegistry = NewRegistry()
