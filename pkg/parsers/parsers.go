// Package parsers holds the per-model parser definitions: detection
// heuristics, page paths, capability flags and extraction logic, addressable
// by name and queryable by heuristic match.
package parsers

import (
	"context"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
	"github.com/coaxwatch/coaxwatch/pkg/hnap"
)

// Status tracks how much confidence exists in a parser definition.
type Status string

const (
	StatusInProgress     Status = "in_progress"
	StatusAwaitingVerify Status = "awaiting_verification"
	StatusVerified       Status = "verified"
	StatusUnsupported    Status = "unsupported"
)

// URLPattern is one data-page candidate, tried in Priority order (lower
// first).
type URLPattern struct {
	Path         string
	AuthRequired bool
	Priority     int
}

// RestartKind selects how a restart request is issued.
type RestartKind string

const (
	RestartHNAP RestartKind = "hnap"
	RestartPost RestartKind = "post"
)

// RestartSpec declares a model's restart action. Nil means restart is
// unsupported and must fail closed.
type RestartSpec struct {
	Kind RestartKind

	// HNAP restart: action to set, plus an optional settings action whose
	// current values are substituted into the request so unrelated
	// settings survive the restart.
	HNAPAction     string
	HNAPSettings   string
	HNAPField      string
	HNAPFieldValue string

	// POST restart.
	Path   string
	Fields map[string]string
}

// Env is everything a parser may use during one poll cycle. Fetch is
// provided by the orchestrator and already handles authentication, session
// expiry and diagnostics capture.
type Env struct {
	BaseURL string
	Session *httpclient.Session
	// HNAP is non-nil when the model authenticates over HNAP.
	HNAP *hnap.Client
	// URLToken is non-nil for URL-token-session models; Fetch appends the
	// derived token automatically.
	URLToken *auth.URLTokenSpec
	// PrefetchedHTML is the authenticated page captured during login, if
	// any; parsers may use it to skip one fetch.
	PrefetchedHTML string

	Fetch func(ctx context.Context, path string) (string, error)
}

// Parser extracts the normalized dataset for one modem model.
type Parser interface {
	Parse(ctx context.Context, env *Env) (*docsis.PollResult, error)
}

// Descriptor is the static, immutable definition of one parser. Loaded once
// at registry construction and never mutated at runtime.
type Descriptor struct {
	Name         string
	Manufacturer string
	Models       []string
	Status       Status

	Capabilities docsis.CapabilitySet

	// AuthKind and AuthSpec preconfigure the strategy for this model,
	// bypassing discovery when the parser is known.
	AuthKind auth.StrategyKind
	AuthSpec *auth.StrategyDescriptor

	URLPatterns []URLPattern

	// PreAuthMatch / PostAuthMatch are AND-semantics string sets evaluated
	// against the unauthenticated root page and the page hint
	// respectively.
	PreAuthMatch  []string
	PostAuthMatch []string
	PageHintPath  string

	LogoutPath string
	Restart    *RestartSpec

	// Fallback marks the generic catch-all parser, excluded from all
	// heuristic phases.
	Fallback bool

	New func() Parser
}

// HasCapability reports a declared capability.
func (d *Descriptor) HasCapability(c docsis.Capability) bool {
	return d.Capabilities.Has(c)
}
