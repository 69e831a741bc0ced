package auth

import (
	"context"
	"net/http"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// basicStrategy arms HTTP Basic credentials on the session and verifies with
// a single GET. Success is HTTP 200, not page content.
type basicStrategy struct{}

func (basicStrategy) Kind() StrategyKind { return StrategyBasic }

func (basicStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if creds.Empty() {
		return Fail(KindMissingCredentials, "basic auth requires credentials")
	}

	sess.SetBasicAuth(creds.Username, creds.Password)

	verifyURL := baseURL
	if desc != nil && desc.VerificationURL != "" {
		verifyURL = resolveAction(baseURL, desc.VerificationURL)
	}

	resp, err := sess.Get(ctx, verifyURL)
	if err != nil {
		return connectionFail(err)
	}
	html, err := httpclient.ReadBody(resp)
	if err != nil {
		return connectionFail(err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Fail(KindInvalidCredentials, "modem rejected basic credentials")
	case http.StatusOK:
		return OkHTML(html)
	}
	return FailRetry(KindConnectionFailed, "unexpected status "+resp.Status)
}
