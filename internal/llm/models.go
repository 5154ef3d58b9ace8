package llm

// modelAliases maps friendly names to vendor model IDs, per vendor.
var modelAliases = map[string]map[string]string{
	ProviderAnthropic: {
		"claude-haiku":  "claude-haiku-4-5-20251001",
		"claude-sonnet": "claude-sonnet-4-5-20250929",
		"claude-opus":   "claude-opus-4-1-20250805",
	},
	ProviderOpenAI: {
		"gpt-mini":     "gpt-4.1-mini",
		"gpt-balanced": "gpt-4.1",
		"gpt-nano":     "gpt-4.1-nano",
	},
	ProviderGemini: {
		"gemini-flash": "gemini-2.5-flash",
		"gemini-lite":  "gemini-2.5-flash-lite",
		"gemini-pro":   "gemini-2.5-pro",
	},
}

// ResolveModel maps a friendly alias to the vendor's model ID. Names that
// are not aliases, and every OpenRouter name, pass through unchanged.
func ResolveModel(provider, name string) string {
	if id, ok := modelAliases[provider][name]; ok {
		return id
	}
	return name
}
