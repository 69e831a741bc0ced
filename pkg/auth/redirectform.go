package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// redirectFormStrategy submits a login form and requires an HTTP redirect to
// a specific path as the success signal. Cross-host redirect targets are
// rejected outright; a non-matching target is a hard failure, not a retry.
type redirectFormStrategy struct{}

func (redirectFormStrategy) Kind() StrategyKind { return StrategyRedirectForm }

func (redirectFormStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if desc == nil || desc.Form == nil {
		return Fail(KindUnknownAuthPattern, "redirect form strategy requires a form spec")
	}
	if creds.Password == "" {
		return Fail(KindMissingCredentials, "form auth requires a password")
	}
	form := desc.Form

	data := url.Values{}
	if form.UsernameField != "" {
		data.Set(form.UsernameField, creds.Username)
	}
	passwordField := form.PasswordField
	if passwordField == "" {
		passwordField = "password"
	}
	data.Set(passwordField, creds.Password)
	for k, v := range form.Hidden {
		data.Set(k, v)
	}

	action := resolveAction(baseURL, form.Action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(data.Encode()))
	if err != nil {
		return Fail(KindUnknownAuthPattern, "bad form action: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := sess.DoNoRedirect(req)
	if err != nil {
		return connectionFail(err)
	}
	httpclient.CloseBody(resp)

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return Fail(KindInvalidCredentials, "login did not redirect (HTTP "+resp.Status+")")
	}

	location := resp.Header.Get("Location")
	target, err := url.Parse(location)
	if err != nil {
		return Fail(KindInvalidCredentials, "unparseable redirect target")
	}

	// Cross-host redirects out of the modem are a security boundary.
	base, _ := url.Parse(baseURL)
	if target.Host != "" && base != nil && !strings.EqualFold(target.Host, base.Host) {
		return Fail(KindInvalidCredentials, "refusing cross-host redirect to "+target.Host)
	}

	expected := form.SuccessRedirect
	if expected != "" && !strings.Contains(target.Path+"?"+target.RawQuery, expected) &&
		!strings.Contains(location, expected) {
		return Fail(KindInvalidCredentials, "redirected to "+location+" instead of "+expected)
	}
	return Ok()
}
