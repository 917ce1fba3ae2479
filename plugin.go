package tiktoken

import (
	"github.com/google/uuid"

	"github.com/openbpe/tiktoken/bpe"
)

// Plugin is an active, externally-registered encoding. Its Identifier is
// distinct from the encoding Name it registers (a plugin can expose a
// family of names over its lifetime in a fuller implementation; this one
// registers exactly one). Persisting the set of loaded plugins to disk
// is an external collaborator's job; Registry only tracks the in-memory
// lifecycle.
// The exported fields carry the manifest keys an external persistence
// layer serializes to plugins.json.
type Plugin struct {
	Identifier string `json:"identifier"`
	Version    string `json:"version"`
	Summary    string `json:"summary"`

	encodingName string
}

// NewPlugin mints a fresh plugin identifier if id is empty, otherwise
// uses the caller-supplied one verbatim (useful for deterministic tests).
func NewPlugin(id, version, summary string) *Plugin {
	if id == "" {
		id = uuid.NewString()
	}
	return &Plugin{Identifier: id, Version: version, Summary: summary}
}

// LoadPlugin registers p's encoding with the registry and marks p
// active. Duplicate identifiers are rejected without touching the
// registry's encoding table.
func (r *Registry) LoadPlugin(p *Plugin, name, pattern string, specialTokens map[string]uint32, explicitNVocab *int, l Loader) error {
	r.mu.Lock()
	if _, exists := r.plugins[p.Identifier]; exists {
		r.mu.Unlock()
		return &PluginDuplicateError{ID: p.Identifier}
	}
	r.mu.Unlock()

	if err := r.Register(name, pattern, toRankMap(specialTokens), explicitNVocab, l); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	p.encodingName = name
	r.plugins[p.Identifier] = p
	return nil
}

// UnloadPlugin unregisters the encoding a previously loaded plugin
// introduced and forgets the plugin.
func (r *Registry) UnloadPlugin(id string) error {
	r.mu.Lock()
	p, ok := r.plugins[id]
	if !ok {
		r.mu.Unlock()
		return &PluginUnknownError{ID: id}
	}
	delete(r.plugins, id)
	name := p.encodingName
	r.mu.Unlock()

	return r.Unregister(name)
}

func toRankMap(m map[string]uint32) map[string]bpe.Rank {
	out := make(map[string]bpe.Rank, len(m))
	for k, v := range m {
		out[k] = bpe.Rank(v)
	}
	return out
}

// Plugins returns the identifiers of every currently loaded plugin.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		out = append(out, id)
	}
	return out
}
