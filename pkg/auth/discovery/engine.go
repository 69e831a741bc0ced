// Package discovery classifies an unknown modem host's authentication
// pattern from a single probe plus a small bounded number of follow-ups.
package discovery

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/internal/logger"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
)

// DefaultMaxHops caps redirect/meta-refresh following during classification.
const DefaultMaxHops = 4

// Engine probes a host and produces a strategy descriptor. Deterministic:
// the same response sequence always yields an identical descriptor.
type Engine struct {
	logger  *logger.Logger
	session *httpclient.Session
	maxHops int
}

func New(log *logger.Logger, session *httpclient.Session, maxHops int) *Engine {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Engine{
		logger:  log.WithComponent("auth.discovery"),
		session: session,
		maxHops: maxHops,
	}
}

// Result is the typed outcome of one discovery run. Descriptor is nil on
// failure, with Kind explaining why; RawBody carries the unclassifiable
// response for diagnostics.
type Result struct {
	Descriptor *auth.StrategyDescriptor
	Kind       auth.ErrorKind
	Message    string
	RawBody    string
	// PageHTML is the last fetched page, reusable by parser detection.
	PageHTML string
}

func classified(desc *auth.StrategyDescriptor, html string) Result {
	return Result{Descriptor: desc, PageHTML: html}
}

func failed(kind auth.ErrorKind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// Discover classifies baseURL's authentication pattern. A non-nil hint is
// used only for JavaScript-driven logins that cannot be classified
// statically. verificationURL, when non-empty, is carried onto the
// descriptor for post-login re-verification.
func (e *Engine) Discover(ctx context.Context, baseURL string, creds auth.Credentials, hint *auth.StrategyDescriptor, verificationURL string) Result {
	visited := make(map[string]bool)
	current := baseURL

	for hop := 0; hop <= e.maxHops; hop++ {
		if visited[current] {
			return failed(auth.KindCircuitBroken, "redirect loop detected at "+current)
		}
		visited[current] = true

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return failed(auth.KindConnectionFailed, err.Error())
		}
		resp, err := e.session.DoNoRedirect(req)
		if err != nil {
			return failed(auth.KindConnectionFailed, err.Error())
		}
		body, err := httpclient.ReadBody(resp)
		if err != nil {
			return failed(auth.KindConnectionFailed, err.Error())
		}

		e.logger.Debugw("Discovery probe",
			"url", current,
			"status", resp.StatusCode,
			"hop", hop)

		// HTTP-level redirects restart classification at the target.
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			next := e.resolveRedirect(current, resp.Header.Get("Location"))
			if next == "" {
				return failed(auth.KindUnknownAuthPattern, "redirect without location")
			}
			current = next
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			if creds.Empty() {
				return failed(auth.KindMissingCredentials, "modem demands credentials but none were supplied")
			}
			return classified(&auth.StrategyDescriptor{
				Kind:            auth.StrategyBasic,
				VerificationURL: verificationURL,
			}, "")
		}

		if resp.StatusCode != http.StatusOK {
			r := failed(auth.KindUnknownAuthPattern, "unexpected status "+resp.Status)
			r.RawBody = body
			return r
		}

		// 200 with recognizable status data and no login form: open modem.
		if looksLikeStatusData(body) && !auth.HasLoginSignature(body) {
			return classified(&auth.StrategyDescriptor{Kind: auth.StrategyNone}, body)
		}

		if form := e.introspectLoginForm(current, body); form != nil {
			desc := &auth.StrategyDescriptor{Form: form, VerificationURL: verificationURL}
			if isCombinedCredentialForm(form) {
				desc.Kind = auth.StrategyFormAjax
			} else {
				desc.Kind = auth.StrategyFormPlain
			}
			return classified(desc, body)
		}

		if referencesHNAP(body) {
			return classified(&auth.StrategyDescriptor{
				Kind:            auth.StrategyHNAP,
				HNAP:            &auth.HNAPSpec{},
				VerificationURL: verificationURL,
			}, body)
		}

		if next := metaRefreshTarget(current, body); next != "" {
			current = next
			continue
		}

		// JavaScript-driven login with no statically discoverable
		// password field: only a per-model hint can resolve it.
		if looksLikeScriptedLogin(body) {
			if hint != nil {
				return classified(hint, body)
			}
			r := failed(auth.KindUnknownAuthPattern, "scripted login page needs a per-model hint")
			r.RawBody = body
			return r
		}

		r := failed(auth.KindUnknownAuthPattern, "no recognizable authentication pattern")
		r.RawBody = body
		return r
	}

	return failed(auth.KindCircuitBroken, "exceeded redirect hop budget")
}

func (e *Engine) resolveRedirect(current, location string) string {
	if location == "" {
		return ""
	}
	base, err := url.Parse(current)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(location)
	if err != nil {
		return ""
	}
	target := base.ResolveReference(ref)
	// Never follow a redirect off the modem host.
	if target.Host != base.Host {
		return ""
	}
	return target.String()
}

// introspectLoginForm extracts the auth-relevant shape of the first form
// containing a password field: resolved action, method, field names, hidden
// fields required on resubmission.
func (e *Engine) introspectLoginForm(pageURL, html string) *auth.FormSpec {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var spec *auth.FormSpec
	doc.Find("form").EachWithBreak(func(i int, form *goquery.Selection) bool {
		candidate := analyzeForm(pageURL, form)
		if candidate != nil {
			spec = candidate
			return false
		}
		return true
	})
	return spec
}

func analyzeForm(pageURL string, form *goquery.Selection) *auth.FormSpec {
	spec := &auth.FormSpec{Hidden: map[string]string{}}

	action, _ := form.Attr("action")
	method, _ := form.Attr("method")
	if method == "" {
		method = http.MethodPost
	}
	spec.Method = strings.ToUpper(method)
	spec.Action = resolveAgainst(pageURL, action)

	hasPassword := false
	form.Find("input").Each(func(i int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		id, _ := input.Attr("id")
		typ, _ := input.Attr("type")
		value, _ := input.Attr("value")

		switch {
		case strings.EqualFold(typ, "password"):
			hasPassword = true
			if spec.PasswordField == "" {
				spec.PasswordField = firstNonEmpty(name, id)
			}
		case strings.EqualFold(typ, "hidden"):
			if name != "" {
				spec.Hidden[name] = value
			}
		case strings.EqualFold(typ, "submit"), strings.EqualFold(typ, "button"):
			// not credentials
		default:
			if spec.UsernameField == "" && looksLikeUsernameField(name, id) {
				spec.UsernameField = firstNonEmpty(name, id)
			}
		}
	})

	// Fallback: some firmware omits type=password and relies on JS
	// masking; match on name/id patterns instead.
	if !hasPassword {
		form.Find("input").EachWithBreak(func(i int, input *goquery.Selection) bool {
			name, _ := input.Attr("name")
			id, _ := input.Attr("id")
			if looksLikePasswordField(name, id) {
				hasPassword = true
				spec.PasswordField = firstNonEmpty(name, id)
				return false
			}
			return true
		})
	}
	if !hasPassword {
		return nil
	}
	return spec
}

// isCombinedCredentialForm recognizes the combined-credential AJAX pattern:
// a nonce field, an "arguments"-style field, and an action path carrying an
// ajax marker. Mapped to the FormAjax strategy rather than generic form auth.
func isCombinedCredentialForm(spec *auth.FormSpec) bool {
	hasNonce := false
	hasArguments := false
	for name := range spec.Hidden {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "nonce") {
			hasNonce = true
			spec.NonceField = name
		}
		if strings.Contains(lower, "argument") {
			hasArguments = true
			spec.CombinedField = name
		}
	}
	actionLower := strings.ToLower(spec.Action)
	marker := strings.Contains(actionLower, "ajax") || strings.Contains(actionLower, "jsonp")
	return hasNonce && hasArguments && marker
}

var hnapRe = regexp.MustCompile(`(?i)(soapaction|/hnap1|purenetworks\.com/hnap)`)

func referencesHNAP(body string) bool {
	return hnapRe.MatchString(body)
}

var metaRefreshRe = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']?refresh["']?[^>]*content=["'][^"']*url=([^"'>\s]+)`)

func metaRefreshTarget(current, body string) string {
	m := metaRefreshRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return resolveAgainst(current, strings.TrimSpace(m[1]))
}

var statusKeywords = []string{
	"downstream", "upstream", "channel", "frequency", "snr", "docsis", "power level",
}

// looksLikeStatusData heuristically recognizes a page already exposing
// channel data, which open modems serve on their root URL.
func looksLikeStatusData(body string) bool {
	lower := strings.ToLower(body)
	hits := 0
	for _, kw := range statusKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits >= 2
}

// looksLikeScriptedLogin recognizes login pages built entirely in JavaScript:
// password handling present in scripts with no static password input.
func looksLikeScriptedLogin(body string) bool {
	lower := strings.ToLower(body)
	if !strings.Contains(lower, "<script") {
		return false
	}
	return strings.Contains(lower, "password") || strings.Contains(lower, "login")
}

func resolveAgainst(pageURL, ref string) string {
	if ref == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var usernamePatterns = []string{"user", "login", "name", "account", "admin"}
var passwordPatterns = []string{"pass", "pwd", "pw"}

func looksLikeUsernameField(name, id string) bool {
	return matchesAny(name, usernamePatterns) || matchesAny(id, usernamePatterns)
}

func looksLikePasswordField(name, id string) bool {
	return matchesAny(name, passwordPatterns) || matchesAny(id, passwordPatterns)
}

func matchesAny(value string, patterns []string) bool {
	lower := strings.ToLower(value)
	if lower == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
