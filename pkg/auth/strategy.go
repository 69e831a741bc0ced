package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// Strategy is one authentication protocol implementation. Implementations
// mutate only the session state their own login needs and never panic for
// expected failure modes.
type Strategy interface {
	Kind() StrategyKind
	Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult
}

// ForKind returns the strategy implementation for a kind. The switch is
// exhaustive over StrategyKind; an unknown kind is a configuration bug and
// reported as such.
func ForKind(kind StrategyKind) (Strategy, bool) {
	switch kind {
	case StrategyNone:
		return noAuthStrategy{}, true
	case StrategyBasic:
		return basicStrategy{}, true
	case StrategyFormPlain:
		return formStrategy{base64Password: false}, true
	case StrategyFormBase64:
		return formStrategy{base64Password: true}, true
	case StrategyFormAjax:
		return formAjaxStrategy{}, true
	case StrategyFormDynamic:
		return formDynamicStrategy{}, true
	case StrategyRedirectForm:
		return redirectFormStrategy{}, true
	case StrategyHNAP:
		return hnapStrategy{}, true
	case StrategyURLToken:
		return urlTokenStrategy{}, true
	case StrategyREST:
		return restStrategy{}, true
	}
	return nil, false
}

// Login dispatches through ForKind using the descriptor's kind.
func Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if desc == nil {
		return Fail(KindUnknownAuthPattern, "no auth strategy descriptor")
	}
	strategy, ok := ForKind(desc.Kind)
	if !ok {
		return Fail(KindUnknownAuthPattern, "unknown auth strategy kind "+string(desc.Kind))
	}
	return strategy.Login(ctx, sess, baseURL, creds, desc)
}

// connectionFail maps a transport error to a failed result. Timeouts are
// treated identically to connection errors.
func connectionFail(err error) AuthResult {
	return Fail(KindConnectionFailed, describeNetErr(err))
}

func describeNetErr(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "request timed out"
	default:
		var tlsErr *tls.RecordHeaderError
		if errors.As(err, &tlsErr) {
			return "TLS handshake failed: " + err.Error()
		}
		return err.Error()
	}
}

// resolveAction resolves a possibly-relative form action against the base
// URL, supporting absolute actions verbatim.
func resolveAction(baseURL, action string) string {
	if action == "" {
		return baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}
