package tiktoken

// modelAliases returns the built-in exact-model-name -> encoding table,
// recalled from the published OpenAI model-to-encoding table; gaps
// should be filled from the canonical table as models are added.
func modelAliases() map[string]string {
	return map[string]string{
		"gpt2": GPT2,

		"gpt-4o":            O200kBase,
		"gpt-4o-mini":       O200kBase,
		"o1":                O200kBase,
		"o1-mini":           O200kBase,
		"o1-preview":        O200kBase,
		"o3":                O200kBase,
		"o3-mini":           O200kBase,
		"chatgpt-4o-latest": O200kBase,

		"gpt-4":                  CL100kBase,
		"gpt-3.5-turbo":          CL100kBase,
		"gpt-3.5":                CL100kBase,
		"gpt-35-turbo":           CL100kBase,
		"davinci-002":            CL100kBase,
		"babbage-002":            CL100kBase,
		"text-embedding-ada-002": CL100kBase,
		"text-embedding-3-small": CL100kBase,
		"text-embedding-3-large": CL100kBase,

		"code-davinci-002": P50kBase,
		"code-davinci-001": P50kBase,
		"code-cushman-002": P50kBase,
		"code-cushman-001": P50kBase,
		"davinci-codex":    P50kBase,
		"cushman-codex":    P50kBase,
		"text-davinci-003": P50kBase,
		"text-davinci-002": P50kBase,

		"text-davinci-edit-001": P50kEdit,
		"code-davinci-edit-001": P50kEdit,

		"text-davinci-001":            R50kBase,
		"text-curie-001":              R50kBase,
		"text-babbage-001":            R50kBase,
		"text-ada-001":                R50kBase,
		"davinci":                     R50kBase,
		"curie":                       R50kBase,
		"babbage":                     R50kBase,
		"ada":                         R50kBase,
		"text-similarity-davinci-001": R50kBase,
	}
}

// modelPrefixes returns the built-in model-name-prefix -> encoding table.
func modelPrefixes() map[string]string {
	return map[string]string{
		"o1-":         O200kBase,
		"o3-":         O200kBase,
		"gpt-4o-":     O200kBase,
		"chatgpt-4o-": O200kBase,
		"gpt-5.1-":    O200kBase,
		"gpt-oss-":    O200kHarmony,

		"gpt-4-":           CL100kBase,
		"gpt-3.5-turbo-":   CL100kBase,
		"gpt-35-turbo-":    CL100kBase,
		"ft:gpt-4":         CL100kBase,
		"ft:gpt-3.5-turbo": CL100kBase,
		"ft:davinci-002":   CL100kBase,
		"ft:babbage-002":   CL100kBase,
	}
}
