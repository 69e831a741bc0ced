// Package httpclient provides the per-modem HTTP session owned by one
// orchestrator instance: client, cookie state, TLS mode, cached HNAP key.
package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SessionConfig configures a modem session.
type SessionConfig struct {
	Timeout         time.Duration
	VerifyTLS       bool
	LegacyTLS       bool // mount weak-cipher profile for old firmware
	FollowRedirects bool
	MaxRedirects    int
}

// DefaultConfig returns the configuration used when the caller has no
// opinion: short timeout, no TLS verification (modems ship self-signed
// certificates), bounded redirects.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		Timeout:         10 * time.Second,
		VerifyTLS:       false,
		FollowRedirects: true,
		MaxRedirects:    5,
	}
}

// Session is mutable per-orchestrator HTTP state. It is owned exclusively by
// one orchestrator instance and must not be shared across concurrent polls.
type Session struct {
	Client *http.Client

	config SessionConfig
	jar    *cookiejar.Jar

	basicUser string
	basicPass string
	useBasic  bool

	// hnapKey is the cached HNAP private key, set after a successful
	// challenge-response login and cleared on ClearAuth.
	hnapKey string

	// seenCookies retains raw Set-Cookie values by name so duplicate-name
	// cookies can be resolved with their Path attribute intact (the jar
	// drops it).
	seenCookies map[string][]*http.Cookie
}

// NewSession builds a session with its own cookie jar and transport.
func NewSession(cfg SessionConfig) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, network, addr)
		},
		TLSClientConfig:       tlsConfig(cfg),
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		Jar:       jar,
	}

	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if cfg.MaxRedirects > 0 {
		max := cfg.MaxRedirects
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= max {
				return fmt.Errorf("stopped after %d redirects", max)
			}
			return nil
		}
	}

	return &Session{
		Client:      client,
		config:      cfg,
		jar:         jar,
		seenCookies: make(map[string][]*http.Cookie),
	}, nil
}

func tlsConfig(cfg SessionConfig) *tls.Config {
	tc := &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}
	if cfg.LegacyTLS {
		// Pre-DOCSIS-3.1 firmware frequently speaks TLS 1.0 with RSA key
		// exchange only.
		tc.MinVersion = tls.VersionTLS10
		tc.CipherSuites = []uint16{
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
		}
	}
	return tc
}

// SetBasicAuth arms HTTP Basic credentials for every subsequent request.
func (s *Session) SetBasicAuth(username, password string) {
	s.basicUser = username
	s.basicPass = password
	s.useBasic = true
}

// SetHNAPKey caches the computed HNAP private key for authenticated calls.
func (s *Session) SetHNAPKey(key string) { s.hnapKey = key }

// HNAPKey returns the cached private key, empty if none.
func (s *Session) HNAPKey() string { return s.hnapKey }

// ClearAuth drops all authentication state: cookies, Basic credentials and
// the cached HNAP key. Only the orchestrator calls this, never a strategy.
func (s *Session) ClearAuth() {
	jar, err := cookiejar.New(nil)
	if err == nil {
		s.jar = jar
		s.Client.Jar = jar
	}
	s.basicUser = ""
	s.basicPass = ""
	s.useBasic = false
	s.hnapKey = ""
	s.seenCookies = make(map[string][]*http.Cookie)
}

// Do executes the request, applying armed Basic credentials and recording
// response cookies with their Path attributes.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if s.useBasic {
		req.SetBasicAuth(s.basicUser, s.basicPass)
	}
	resp, err := DoWithContext(req.Context(), s.Client, req)
	if err != nil {
		return nil, err
	}
	for _, c := range resp.Cookies() {
		s.seenCookies[c.Name] = append(s.seenCookies[c.Name], c)
	}
	return resp, nil
}

// DoNoRedirect executes the request without following redirects, sharing the
// session's jar and transport. Used where the redirect itself is the signal.
func (s *Session) DoNoRedirect(req *http.Request) (*http.Response, error) {
	if s.useBasic {
		req.SetBasicAuth(s.basicUser, s.basicPass)
	}
	client := &http.Client{
		Timeout:   s.Client.Timeout,
		Transport: s.Client.Transport,
		Jar:       s.Client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := DoWithContext(req.Context(), client, req)
	if err != nil {
		return nil, err
	}
	for _, c := range resp.Cookies() {
		s.seenCookies[c.Name] = append(s.seenCookies[c.Name], c)
	}
	return resp, nil
}

// Get issues a context-bound GET through the session.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(req)
}

// PostForm issues a context-bound form POST through the session.
func (s *Session) PostForm(ctx context.Context, rawURL string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.Do(req)
}

// CookieValue resolves a cookie by name across everything the session has
// seen. Some firmware re-issues the same cookie name with several Path
// values; the root-path value wins, then the longest declared Path, then the
// first one seen.
func (s *Session) CookieValue(name string) (string, bool) {
	candidates := s.seenCookies[name]
	if len(candidates) == 0 {
		return "", false
	}
	var best *http.Cookie
	for _, c := range candidates {
		if c.Path == "/" || c.Path == "" {
			return c.Value, true
		}
		if best == nil || len(c.Path) > len(best.Path) {
			best = c
		}
	}
	return best.Value, true
}

// CloseBody drains and closes a response body so the underlying connection
// can be reused. Unclosed bodies leak pooled connections.
func CloseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ReadBody fully reads and closes the response body.
func ReadBody(resp *http.Response) (string, error) {
	if resp == nil || resp.Body == nil {
		return "", nil
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DoWithContext performs a request with context enforcement, surfacing
// cancellation distinctly from transport errors.
func DoWithContext(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, err
	}
	return resp, nil
}
