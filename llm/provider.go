package llm

import (
	"context"
	"errors"

	"github.com/postpilothq/postpilot/types"
)

var ErrNotSupported = errors.New("operation not supported by provider")

// Tier names the two Brain backends the workflow can select between.
type Tier string

const (
	TierFast     Tier = "fast"
	TierCreative Tier = "creative"
)

type Capabilities struct {
	Tools            bool
	Streaming        bool
	StructuredOutput bool
}

type Provider interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req types.Request) (types.Response, error)
}

// Selector resolves a tier to a concrete provider. The workflow state carries
// only the tier; the hosting process decides which backend serves it.
type Selector interface {
	Provider(tier Tier) (Provider, error)
}
