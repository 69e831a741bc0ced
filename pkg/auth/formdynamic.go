package auth

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// formDynamicStrategy handles firmware whose login form action carries a
// per-session token (e.g. "login.cgi?id=<random>"). The login page is fetched
// first and the live action extracted; any extraction failure falls back to
// the statically configured action and never errors.
type formDynamicStrategy struct{}

func (formDynamicStrategy) Kind() StrategyKind { return StrategyFormDynamic }

func (formDynamicStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if desc == nil || desc.Form == nil {
		return Fail(KindUnknownAuthPattern, "dynamic form strategy requires a form spec")
	}
	if creds.Password == "" {
		return Fail(KindMissingCredentials, "form auth requires a password")
	}

	form := *desc.Form
	if action := extractDynamicAction(ctx, sess, baseURL, &form); action != "" {
		form.Action = action
	}
	return submitLoginForm(ctx, sess, baseURL, &form, creds.Username, creds.Password, desc.VerificationURL)
}

// extractDynamicAction fetches the login page and pulls the form action via
// the configured selector, or the first form found. Returns "" on any
// failure so the caller keeps the static action.
func extractDynamicAction(ctx context.Context, sess *httpclient.Session, baseURL string, form *FormSpec) string {
	resp, err := sess.Get(ctx, baseURL)
	if err != nil {
		return ""
	}
	html, err := httpclient.ReadBody(resp)
	if err != nil {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	selector := form.DynamicSelector
	if selector == "" {
		selector = "form"
	}
	action, exists := doc.Find(selector).First().Attr("action")
	if !exists || strings.TrimSpace(action) == "" {
		return ""
	}
	return resolveAction(baseURL, action)
}
