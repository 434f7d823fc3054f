package explain

// Config selects and configures the explanation strategy.
type Config struct {
	// Enabled turns on the generative strategy.
	Enabled bool

	// Client configures the completion endpoint.
	Client ClientConfig

	// MaxTokens bounds generated text. Zero uses DefaultMaxTokens.
	MaxTokens int

	// Serialize lets only one generation run at a time.
	Serialize bool

	// Rules overrides DefaultRuleSet when non-nil.
	Rules *RuleSet
}

// Resolve picks the explainer once at startup. When generation is disabled
// or the client cannot be built, the rule-based explainer is returned and a
// warning is logged.
func Resolve(cfg Config, opts ...Option) Explainer {
	if cfg.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(cfg.MaxTokens))
	}
	s := newSettings(opts)

	rules := DefaultRuleSet()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}
	deterministic := NewDeterministic(rules, opts...)

	if !cfg.Enabled {
		s.logger.Debug("generative explanations disabled")
		return deterministic
	}

	client, err := NewCompletionClient(cfg.Client)
	if err != nil {
		s.logger.Warn("generative explanations unavailable, using rules", "error", err)
		return deterministic
	}

	var gen Generator = client
	if cfg.Serialize {
		gen = NewSerialized(client)
	}
	s.logger.Debug("generative explanations enabled",
		"base_url", cfg.Client.BaseURL, "model", client.model, "serialized", cfg.Serialize)
	return NewGenerative(gen, deterministic, opts...)
}
