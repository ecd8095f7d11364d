// Package factory builds the tier-to-provider selector from the
// environment. The fast tier is served by Groq and the creative tier
// by Gemini; when only one backend is configured it serves both tiers.
package factory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/postpilothq/postpilot/llm"
	geminiprov "github.com/postpilothq/postpilot/providers/gemini"
	groqprov "github.com/postpilothq/postpilot/providers/groq"
)

type Selector struct {
	providers map[llm.Tier]llm.Provider
}

func (s *Selector) Provider(tier llm.Tier) (llm.Provider, error) {
	if p, ok := s.providers[tier]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no provider configured for tier %q", tier)
}

// NewSelector wires explicit providers per tier, for tests and embedders
// that construct their own clients.
func NewSelector(fast, creative llm.Provider) (*Selector, error) {
	if fast == nil && creative == nil {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if fast == nil {
		fast = creative
	}
	if creative == nil {
		creative = fast
	}
	return &Selector{providers: map[llm.Tier]llm.Provider{
		llm.TierFast:     fast,
		llm.TierCreative: creative,
	}}, nil
}

func FromEnv(ctx context.Context) (*Selector, error) {
	var fast, creative llm.Provider

	if key := strings.TrimSpace(os.Getenv("GROQ_API_KEY")); key != "" {
		opts := []groqprov.Option{groqprov.WithModel(getenv("GROQ_MODEL", "llama-3.3-70b-versatile"))}
		if baseURL := strings.TrimSpace(os.Getenv("GROQ_BASE_URL")); baseURL != "" {
			opts = append(opts, groqprov.WithBaseURL(baseURL))
		}
		p, err := groqprov.New(key, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to configure groq: %w", err)
		}
		fast = p
	}

	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		p, err := geminiprov.New(ctx, key, geminiprov.WithModel(getenv("GEMINI_MODEL", "gemini-2.5-flash")))
		if err != nil {
			return nil, fmt.Errorf("failed to configure gemini: %w", err)
		}
		creative = p
	}

	if fast == nil && creative == nil {
		return nil, fmt.Errorf("no Brain backend configured (set GROQ_API_KEY and/or GEMINI_API_KEY)")
	}
	return NewSelector(fast, creative)
}

func getenv(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}
