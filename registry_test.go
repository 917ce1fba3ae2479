package tiktoken

import (
	"testing"

	"github.com/openbpe/tiktoken/bpe"
	"github.com/openbpe/tiktoken/loader"
)

// testRanks builds a tiny byte-level rank table covering every single
// byte plus a couple of multi-byte merges, enough to exercise the
// registry/encoding plumbing without touching the network.
func testRanks() map[string]bpe.Rank {
	ranks := make(map[string]bpe.Rank, 256+2)
	for b := 0; b < 256; b++ {
		ranks[string([]byte{byte(b)})] = bpe.Rank(b)
	}
	ranks["lo"] = 256
	ranks["hello"] = 257
	return ranks
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	specials := map[string]bpe.Rank{"<|test|>": 10000}
	err := r.Register("test_enc", `\w+|\s+|[^\w\s]+`, specials, nil, &loader.MergeableRanksLoader{Ranks: toLoaderRanks(testRanks())})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return r
}

func toLoaderRanks(m map[string]bpe.Rank) loader.Ranks {
	out := make(loader.Ranks, len(m))
	for k, v := range m {
		out[k] = uint32(v)
	}
	return out
}

func TestRegistryResolveExactNameAliasAndPrefix(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterAlias("my-model", "test_enc"); err != nil {
		t.Fatalf("RegisterAlias: %v", err)
	}
	if err := r.RegisterPrefix("my-model-", "test_enc"); err != nil {
		t.Fatalf("RegisterPrefix: %v", err)
	}

	for _, id := range []string{"test_enc", "my-model", "my-model-v2"} {
		if _, err := r.Resolve(id); err != nil {
			t.Fatalf("Resolve(%q): %v", id, err)
		}
	}
	if _, err := r.Resolve("does-not-exist"); err == nil {
		t.Fatalf("Resolve(does-not-exist) should fail")
	}
}

func TestRegistryPrefixLongestWins(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Register("test_enc2", gpt2Pattern, map[string]bpe.Rank{}, nil, &loader.MergeableRanksLoader{Ranks: toLoaderRanks(testRanks())}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.RegisterPrefix("gpt-", "test_enc"); err != nil {
		t.Fatalf("RegisterPrefix short: %v", err)
	}
	if err := r.RegisterPrefix("gpt-4-", "test_enc2"); err != nil {
		t.Fatalf("RegisterPrefix long: %v", err)
	}
	name, ok := r.resolveName("gpt-4-turbo")
	if !ok {
		t.Fatalf("resolveName should find a match")
	}
	if name != "test_enc2" {
		t.Fatalf("resolveName = %q, want longest-prefix match test_enc2", name)
	}
}

func TestRegistryBuiltinsAreImmutable(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(GPT2, gpt2Pattern, nil, nil, nil); err == nil {
		t.Fatalf("expected Register to reject overwriting a built-in")
	}
	if err := r.Unregister(CL100kBase); err == nil {
		t.Fatalf("expected Unregister to reject a built-in")
	}
}

func TestRegistryUnregisterAliasRestoresBuiltin(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("shadow_enc", gpt2Pattern, map[string]bpe.Rank{}, nil, &loader.MergeableRanksLoader{Ranks: toLoaderRanks(testRanks())}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.RegisterAlias("gpt-4", "shadow_enc"); err != nil {
		t.Fatalf("RegisterAlias: %v", err)
	}
	if name, _ := r.resolveName("gpt-4"); name != "shadow_enc" {
		t.Fatalf("alias override did not take effect, got %q", name)
	}
	r.UnregisterAlias("gpt-4")
	if name, _ := r.resolveName("gpt-4"); name != CL100kBase {
		t.Fatalf("UnregisterAlias should restore built-in mapping, got %q", name)
	}
}

func TestRegistryResetRestoresBuiltinsAndDropsExtras(t *testing.T) {
	r := newTestRegistry(t)
	r.Reset()
	if _, err := r.Resolve("test_enc"); err == nil {
		t.Fatalf("Reset should drop non-builtin registrations")
	}
	if _, err := r.Resolve(GPT2); err != nil {
		t.Fatalf("Reset should keep built-ins resolvable: %v", err)
	}
}

func TestEncodingRoundTripOnTestVocab(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	toks := enc.EncodeOrdinary("hello")
	if len(toks) != 1 || toks[0] != 257 {
		t.Fatalf("EncodeOrdinary(hello) = %v, want [257]", toks)
	}
	if got := enc.Decode(toks); got != "hello" {
		t.Fatalf("Decode round-trip = %q, want hello", got)
	}

	n, err := enc.CountTokens("hello", bpe.PolicyNoneValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n != len(toks) {
		t.Fatalf("CountTokens = %d, want %d", n, len(toks))
	}
}

func TestEncodingSpecialTokenPolicies(t *testing.T) {
	r := newTestRegistry(t)
	enc, err := r.GetEncoding("test_enc")
	if err != nil {
		t.Fatalf("GetEncoding: %v", err)
	}

	toks, err := enc.Encode("<|test|>", bpe.PolicyAllValue(), bpe.PolicyNoneValue())
	if err != nil {
		t.Fatalf("Encode with allowed special: %v", err)
	}
	if len(toks) != 1 || toks[0] != 10000 {
		t.Fatalf("Encode(<|test|>) = %v, want [10000]", toks)
	}

	_, err = enc.Encode("<|test|>", bpe.PolicyNoneValue(), bpe.PolicyAllValue())
	if err == nil {
		t.Fatalf("expected DisallowedSpecial error")
	}
	if _, ok := err.(*bpe.DisallowedSpecialError); !ok {
		t.Fatalf("expected *bpe.DisallowedSpecialError, got %T", err)
	}
}

func TestPluginLoadAndUnload(t *testing.T) {
	r := NewRegistry()
	p := NewPlugin("plugin-1", "v1", "test plugin")
	ranks := map[string]uint32{}
	for b := 0; b < 256; b++ {
		ranks[string([]byte{byte(b)})] = uint32(b)
	}
	noSpecials := map[string]uint32{}
	err := r.LoadPlugin(p, "plugin_enc", gpt2Pattern, noSpecials, nil, &loader.MergeableRanksLoader{Ranks: ranks})
	if err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}
	if err := r.LoadPlugin(p, "plugin_enc2", gpt2Pattern, noSpecials, nil, &loader.MergeableRanksLoader{Ranks: ranks}); err == nil {
		t.Fatalf("expected duplicate plugin ID to be rejected")
	}
	if _, err := r.Resolve("plugin_enc"); err != nil {
		t.Fatalf("Resolve(plugin_enc): %v", err)
	}
	if err := r.UnloadPlugin("plugin-1"); err != nil {
		t.Fatalf("UnloadPlugin: %v", err)
	}
	if err := r.UnloadPlugin("plugin-1"); err == nil {
		t.Fatalf("expected unload of unknown plugin to fail")
	}
	if _, err := r.Resolve("plugin_enc"); err == nil {
		t.Fatalf("Resolve(plugin_enc) should fail after unload")
	}
}
