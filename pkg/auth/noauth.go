package auth

import (
	"context"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// noAuthStrategy verifies reachability only; open modems need no login.
type noAuthStrategy struct{}

func (noAuthStrategy) Kind() StrategyKind { return StrategyNone }

func (noAuthStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, _ Credentials, _ *StrategyDescriptor) AuthResult {
	resp, err := sess.Get(ctx, baseURL)
	if err != nil {
		return connectionFail(err)
	}
	html, err := httpclient.ReadBody(resp)
	if err != nil {
		return connectionFail(err)
	}
	return OkHTML(html)
}

// restStrategy covers modems whose JSON API needs no authentication; data is
// fetched directly from the endpoints, so login is a no-op.
type restStrategy struct{}

func (restStrategy) Kind() StrategyKind { return StrategyREST }

func (restStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, _ Credentials, _ *StrategyDescriptor) AuthResult {
	return Ok()
}
