package tiktoken

import "github.com/openbpe/tiktoken/bpe"

const (
	GPT2         = "gpt2"
	R50kBase     = "r50k_base"
	P50kBase     = "p50k_base"
	P50kEdit     = "p50k_edit"
	CL100kBase   = "cl100k_base"
	O200kBase    = "o200k_base"
	O200kHarmony = "o200k_harmony"
)

const (
	tokEndOfText   = "<|endoftext|>"
	tokFimPrefix   = "<|fim_prefix|>"
	tokFimMiddle   = "<|fim_middle|>"
	tokFimSuffix   = "<|fim_suffix|>"
	tokEndOfPrompt = "<|endofprompt|>"
)

const gpt2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

const cl100kPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

const o200kPattern = `[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]*[\p{Ll}\p{Lm}\p{Lo}\p{M}]+(?i:'s|'t|'re|'ve|'m|'ll|'d)?|[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]+[\p{Ll}\p{Lm}\p{Lo}\p{M}]*(?i:'s|'t|'re|'ve|'m|'ll|'d)?|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n/]*|\s*[\r\n]+|\s+(?!\S)|\s+`

// vocabDescriptor is the immutable seed record for a built-in or
// registered encoding: everything the registry needs besides the actual
// rank map, which its loader produces lazily.
type vocabDescriptor struct {
	name           string
	pattern        string
	specialTokens  map[string]bpe.Rank
	explicitNVocab *int
	loader         Loader
}

func intPtr(v int) *int { return &v }

func o200kHarmonySpecials() map[string]bpe.Rank {
	specials := map[string]bpe.Rank{
		tokEndOfText:      199999,
		tokEndOfPrompt:    200018,
		"<|startoftext|>": 199998,
		"<|return|>":      200002,
		"<|constrain|>":   200003,
		"<|channel|>":     200005,
		"<|start|>":       200006,
		"<|end|>":         200007,
		"<|message|>":     200008,
		"<|call|>":        200012,
	}
	for _, n := range []int{200000, 200001, 200004, 200009, 200010, 200011} {
		specials[reservedLiteral(n)] = bpe.Rank(n)
	}
	for n := 200013; n <= 201087; n++ {
		specials[reservedLiteral(n)] = bpe.Rank(n)
	}
	return specials
}

func reservedLiteral(n int) string {
	return "<|reserved_" + itoa(n) + "|>"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// builtinDescriptors constructs the seven named encodings' vocab
// descriptors. Rank-table construction is deferred to each descriptor's
// loader; builtins are distinguished from user registrations only by the
// registry's separate "built-in names" set.
func builtinDescriptors() map[string]*vocabDescriptor {
	out := make(map[string]*vocabDescriptor)

	out[GPT2] = &vocabDescriptor{
		name:           GPT2,
		pattern:        gpt2Pattern,
		specialTokens:  map[string]bpe.Rank{tokEndOfText: 50256},
		explicitNVocab: intPtr(50257),
		loader:         newEmbeddedLoader(GPT2),
	}
	out[R50kBase] = &vocabDescriptor{
		name:           R50kBase,
		pattern:        gpt2Pattern,
		specialTokens:  map[string]bpe.Rank{tokEndOfText: 50256},
		explicitNVocab: intPtr(50257),
		loader:         newEmbeddedLoader(R50kBase),
	}
	out[P50kBase] = &vocabDescriptor{
		name:           P50kBase,
		pattern:        gpt2Pattern,
		specialTokens:  map[string]bpe.Rank{tokEndOfText: 50256},
		explicitNVocab: intPtr(50281),
		loader:         newEmbeddedLoader(P50kBase),
	}
	out[P50kEdit] = &vocabDescriptor{
		name:    P50kEdit,
		pattern: gpt2Pattern,
		specialTokens: map[string]bpe.Rank{
			tokEndOfText: 50256,
			tokFimPrefix: 50281,
			tokFimMiddle: 50282,
			tokFimSuffix: 50283,
		},
		loader: newEmbeddedLoader(P50kBase),
	}
	out[CL100kBase] = &vocabDescriptor{
		name:    CL100kBase,
		pattern: cl100kPattern,
		specialTokens: map[string]bpe.Rank{
			tokEndOfText:   100257,
			tokFimPrefix:   100258,
			tokFimMiddle:   100259,
			tokFimSuffix:   100260,
			tokEndOfPrompt: 100276,
		},
		loader: newEmbeddedLoader(CL100kBase),
	}
	out[O200kBase] = &vocabDescriptor{
		name:          O200kBase,
		pattern:       o200kPattern,
		specialTokens: map[string]bpe.Rank{tokEndOfText: 199999, tokEndOfPrompt: 200018},
		loader:        newEmbeddedLoader(O200kBase),
	}
	out[O200kHarmony] = &vocabDescriptor{
		name:          O200kHarmony,
		pattern:       o200kPattern,
		specialTokens: o200kHarmonySpecials(),
		loader:        newEmbeddedLoader(O200kBase),
	}
	return out
}
