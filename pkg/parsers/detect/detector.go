package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/internal/logger"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
)

// Error is a detection failure with a classified kind.
type Error struct {
	Kind    auth.ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Input carries everything one detection run may consult. Fetch is the
// orchestrator's authenticated fetch; it is nil before authentication, in
// which case only public probes run.
type Input struct {
	BaseURL string

	// ParserName short-circuits the pipeline when the operator pinned a
	// parser explicitly.
	ParserName string

	// PreAuthHTML is the unauthenticated root page captured earlier in the
	// cycle, possibly empty.
	PreAuthHTML string

	Fetch func(ctx context.Context, path string) (string, error)
}

// Detector resolves which parser handles a modem, staged from cheapest to
// most invasive. A run is deterministic for identical page content.
type Detector struct {
	registry *parsers.Registry
	session  *httpclient.Session
	log      *logger.Logger
	breaker  *CircuitBreaker
}

func New(registry *parsers.Registry, session *httpclient.Session, log *logger.Logger, breaker *CircuitBreaker) *Detector {
	if breaker == nil {
		breaker = NewCircuitBreaker(0, 0, 0)
	}
	return &Detector{
		registry: registry,
		session:  session,
		log:      log.WithComponent("detect"),
		breaker:  breaker,
	}
}

// Detect runs the pipeline: explicit name, pre-auth heuristics, post-auth
// heuristics on the page hint, candidate intersection, URL-pattern probing,
// and finally the generic fallback.
func (d *Detector) Detect(ctx context.Context, in Input) (*parsers.Descriptor, error) {
	if in.ParserName != "" {
		desc, ok := d.registry.ByName(in.ParserName)
		if !ok {
			return nil, &Error{
				Kind:    auth.KindParserNotFound,
				Message: fmt.Sprintf("no parser named %q", in.ParserName),
			}
		}
		d.log.Debugw("parser pinned by configuration", "parser", desc.Name)
		return desc, nil
	}

	pre := d.registry.MatchPreAuth(in.PreAuthHTML)
	if len(pre) == 1 {
		d.log.Infow("parser matched on pre-auth heuristics", "parser", pre[0].Name)
		return pre[0], nil
	}

	post := d.matchPostAuth(ctx, in, pre)
	switch {
	case len(pre) > 0 && len(post) > 0:
		both := parsers.Intersect(pre, post)
		if len(both) == 0 {
			return nil, &Error{
				Kind:    auth.KindParserNotFound,
				Message: "pre-auth and post-auth heuristics disagree",
			}
		}
		d.log.Infow("parser matched on combined heuristics", "parser", both[0].Name)
		return both[0], nil
	case len(post) > 0:
		d.log.Infow("parser matched on post-auth heuristics", "parser", post[0].Name)
		return post[0], nil
	case len(pre) > 1:
		if desc := d.probeURLPatterns(ctx, in, pre); desc != nil {
			d.log.Infow("ambiguous pre-auth match resolved by URL probing", "parser", desc.Name)
			return desc, nil
		}
		d.log.Infow("ambiguous pre-auth match, taking first", "parser", pre[0].Name)
		return pre[0], nil
	}

	if desc := d.probeURLPatterns(ctx, in, nil); desc != nil {
		d.log.Infow("parser matched on URL probing", "parser", desc.Name)
		return desc, nil
	}
	if d.breaker.Remaining() == 0 {
		return nil, &Error{
			Kind:    auth.KindCircuitBroken,
			Message: "detection probe budget exhausted",
		}
	}

	fb := d.registry.Fallback()
	if fb == nil {
		return nil, &Error{
			Kind:    auth.KindParserNotFound,
			Message: "no parser matched and no fallback registered",
		}
	}
	d.log.Warnw("no parser matched, using fallback", "parser", fb.Name)
	return fb, nil
}

// matchPostAuth fetches the page hint of each candidate (or of every indexed
// parser when there are no pre-auth candidates) and applies post-auth
// patterns. Requires an authenticated Fetch.
func (d *Detector) matchPostAuth(ctx context.Context, in Input, candidates []*parsers.Descriptor) []*parsers.Descriptor {
	if in.Fetch == nil {
		return nil
	}
	pool := candidates
	if len(pool) == 0 {
		pool = d.registry.All()
	}
	seen := make(map[string]bool)
	var out []*parsers.Descriptor
	for _, cand := range pool {
		if cand.Fallback || cand.PageHintPath == "" || seen[cand.PageHintPath] {
			continue
		}
		seen[cand.PageHintPath] = true
		if !d.breaker.Attempt(ctx) {
			break
		}
		body, err := in.Fetch(ctx, cand.PageHintPath)
		if err != nil {
			d.log.Debugw("page hint fetch failed", "path", cand.PageHintPath, "error", err)
			continue
		}
		for _, m := range d.registry.MatchPostAuth(body) {
			if !containsDescriptor(out, m) {
				out = append(out, m)
			}
		}
	}
	return out
}

// probeURLPatterns tries each candidate's data URLs, public patterns before
// authed ones, lowest priority first. The first plausible response wins. A
// nil pool means every indexed parser is a candidate.
func (d *Detector) probeURLPatterns(ctx context.Context, in Input, pool []*parsers.Descriptor) *parsers.Descriptor {
	if pool == nil {
		pool = d.registry.All()
	}
	for _, authed := range []bool{false, true} {
		if authed && in.Fetch == nil {
			continue
		}
		for _, desc := range pool {
			if desc.Fallback {
				continue
			}
			for _, pat := range parsers.SortedPatterns(desc) {
				if pat.AuthRequired != authed {
					continue
				}
				if !d.breaker.Attempt(ctx) {
					return nil
				}
				body, ok := d.probe(ctx, in, pat)
				if ok && plausibleData(body) {
					return desc
				}
			}
		}
	}
	return nil
}

func (d *Detector) probe(ctx context.Context, in Input, pat parsers.URLPattern) (string, bool) {
	if pat.AuthRequired {
		body, err := in.Fetch(ctx, pat.Path)
		if err != nil {
			return "", false
		}
		return body, true
	}
	resp, err := d.session.Get(ctx, in.BaseURL+pat.Path)
	if err != nil {
		return "", false
	}
	defer httpclient.CloseBody(resp)
	if resp.StatusCode != 200 {
		return "", false
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return "", false
	}
	return body, true
}

// plausibleData accepts a probe response that looks like channel data rather
// than an error page or a login form.
func plausibleData(body string) bool {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < 64 {
		return false
	}
	if auth.HasLoginSignature(trimmed) {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range []string{"downstream", "channelid", "channel id", "frequency", "getmotostatus"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func containsDescriptor(list []*parsers.Descriptor, d *parsers.Descriptor) bool {
	for _, x := range list {
		if x.Name == d.Name {
			return true
		}
	}
	return false
}
