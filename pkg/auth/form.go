package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// formStrategy submits username/password to a configured form action. The
// base64 variant encodes the password the way several Netgear and Technicolor
// firmwares expect.
type formStrategy struct {
	base64Password bool
}

func (s formStrategy) Kind() StrategyKind {
	if s.base64Password {
		return StrategyFormBase64
	}
	return StrategyFormPlain
}

func (s formStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if desc == nil || desc.Form == nil {
		return Fail(KindUnknownAuthPattern, "form strategy requires a form spec")
	}
	if creds.Password == "" {
		return Fail(KindMissingCredentials, "form auth requires a password")
	}

	password := creds.Password
	if s.base64Password {
		password = base64.StdEncoding.EncodeToString([]byte(password))
	}
	return submitLoginForm(ctx, sess, baseURL, desc.Form, creds.Username, password, desc.VerificationURL)
}

// submitLoginForm performs the shared form submit and success evaluation.
func submitLoginForm(ctx context.Context, sess *httpclient.Session, baseURL string, form *FormSpec, username, password, verificationURL string) AuthResult {
	action := resolveAction(baseURL, form.Action)

	data := url.Values{}
	if form.UsernameField != "" {
		data.Set(form.UsernameField, username)
	}
	passwordField := form.PasswordField
	if passwordField == "" {
		passwordField = "password"
	}
	data.Set(passwordField, password)
	for k, v := range form.Hidden {
		data.Set(k, v)
	}

	var resp *http.Response
	var err error
	if strings.EqualFold(form.Method, http.MethodGet) {
		sep := "?"
		if strings.Contains(action, "?") {
			sep = "&"
		}
		resp, err = sess.Get(ctx, action+sep+data.Encode())
	} else {
		resp, err = sess.PostForm(ctx, action, data)
	}
	if err != nil {
		return connectionFail(err)
	}

	finalURL := ""
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	html, err := httpclient.ReadBody(resp)
	if err != nil {
		return connectionFail(err)
	}

	return evaluateFormResponse(ctx, sess, baseURL, form, verificationURL, resp.StatusCode, finalURL, html)
}

// evaluateFormResponse applies the configured success indicator, or falls
// back to login-page-signature absence. A response without an explicit
// indicator that still shows a login form is a failure: many firmwares
// silently redirect failed logins back to the login page with HTTP 200.
func evaluateFormResponse(ctx context.Context, sess *httpclient.Session, baseURL string, form *FormSpec, verificationURL string, status int, finalURL, html string) AuthResult {
	if status == 401 || status == 403 {
		return Fail(KindInvalidCredentials, "modem rejected form credentials")
	}

	if verificationURL != "" {
		verifyResp, err := sess.Get(ctx, resolveAction(baseURL, verificationURL))
		if err != nil {
			return connectionFail(err)
		}
		verifyHTML, err := httpclient.ReadBody(verifyResp)
		if err != nil {
			return connectionFail(err)
		}
		if HasLoginSignature(verifyHTML) {
			return Fail(KindInvalidCredentials, "verification page still shows login form")
		}
		return OkHTML(verifyHTML)
	}

	if form.SuccessRedirect != "" {
		if strings.Contains(finalURL, form.SuccessRedirect) {
			return OkHTML(html)
		}
		return Fail(KindInvalidCredentials, "login did not redirect to "+form.SuccessRedirect)
	}

	if form.MinResponseBytes > 0 {
		if len(html) >= form.MinResponseBytes {
			return OkHTML(html)
		}
		return Fail(KindInvalidCredentials, "login response smaller than success threshold")
	}

	if HasLoginSignature(html) {
		return Fail(KindInvalidCredentials, "response still shows a login form")
	}
	return OkHTML(html)
}
