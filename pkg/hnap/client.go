package hnap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

const (
	// DefaultEndpoint is where virtually all HNAP firmware mounts the
	// service.
	DefaultEndpoint = "/HNAP1/"
	// DefaultNamespace is the SOAP action namespace prefix.
	DefaultNamespace = "http://purenetworks.com/HNAP1/"

	loginAction = "Login"
)

// Client issues JSON HNAP calls against one modem through a shared session.
type Client struct {
	session   *httpclient.Session
	baseURL   string
	endpoint  string
	namespace string
	alg       Algorithm

	now func() time.Time
}

// NewClient builds an HNAP client. Empty endpoint/namespace fall back to the
// protocol defaults.
func NewClient(session *httpclient.Session, baseURL, endpoint, namespace string, alg Algorithm) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Client{
		session:   session,
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoint:  endpoint,
		namespace: namespace,
		alg:       alg,
		now:       time.Now,
	}
}

type loginRequest struct {
	Login loginBody `json:"Login"`
}

type loginBody struct {
	Action        string `json:"Action"`
	Username      string `json:"Username"`
	LoginPassword string `json:"LoginPassword"`
	Captcha       string `json:"Captcha"`
	PrivateLogin  string `json:"PrivateLogin"`
}

type loginEnvelope struct {
	LoginResponse loginResponse `json:"LoginResponse"`
}

type loginResponse struct {
	Challenge   string `json:"Challenge"`
	PublicKey   string `json:"PublicKey"`
	Cookie      string `json:"Cookie"`
	LoginResult string `json:"LoginResult"`
}

// Login runs the two-phase challenge-response. On success the computed
// private key is cached on the session for subsequent authenticated calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	// Phase 1: request the challenge.
	challengeRaw, err := c.post(ctx, loginAction, loginRequest{Login: loginBody{
		Action:       "request",
		Username:     username,
		PrivateLogin: "LoginPassword",
	}})
	if err != nil {
		return err
	}
	var challenge loginEnvelope
	if err := json.Unmarshal(challengeRaw, &challenge); err != nil {
		return fmt.Errorf("malformed HNAP challenge: %w", err)
	}
	lr := challenge.LoginResponse
	if lr.Challenge == "" || lr.PublicKey == "" {
		return fmt.Errorf("HNAP challenge missing fields (result %q)", lr.LoginResult)
	}

	privateKey := PrivateKey(c.alg, lr.PublicKey, password, lr.Challenge)
	loginPassword := LoginPassword(c.alg, privateKey, lr.Challenge)

	// The challenge response carries the uid cookie value; some firmware
	// additionally expects the private key echoed as a cookie.
	if lr.Cookie != "" {
		c.setCookie(ctx, "uid", lr.Cookie)
		c.setCookie(ctx, "PrivateKey", privateKey)
	}
	c.session.SetHNAPKey(privateKey)

	// Phase 2: submit the computed password.
	resultRaw, err := c.post(ctx, loginAction, loginRequest{Login: loginBody{
		Action:        "login",
		Username:      username,
		LoginPassword: loginPassword,
		PrivateLogin:  "LoginPassword",
	}})
	if err != nil {
		return err
	}
	var result loginEnvelope
	if err := json.Unmarshal(resultRaw, &result); err != nil {
		return fmt.Errorf("malformed HNAP login result: %w", err)
	}
	switch strings.ToUpper(result.LoginResponse.LoginResult) {
	case "OK", "SUCCESS":
		return nil
	}
	return &LoginRejectedError{Result: result.LoginResponse.LoginResult}
}

// LoginRejectedError reports a completed HNAP exchange whose result was not
// OK/SUCCESS, distinguishing bad credentials from transport failures.
type LoginRejectedError struct {
	Result string
}

func (e *LoginRejectedError) Error() string {
	return fmt.Sprintf("HNAP login rejected: %q", e.Result)
}

// Call performs an authenticated HNAP action and returns the raw JSON reply.
// Login must have succeeded first so the private key is cached.
func (c *Client) Call(ctx context.Context, action string, body interface{}) (json.RawMessage, error) {
	if c.session.HNAPKey() == "" {
		return nil, fmt.Errorf("HNAP call %q before login", action)
	}
	payload := map[string]interface{}{action: body}
	if body == nil {
		payload[action] = map[string]string{}
	}
	return c.post(ctx, action, payload)
}

// CallMultiple issues the GetMultipleHNAPs aggregate used by Motorola/Arris
// firmware to fetch several status blocks in a single round-trip.
func (c *Client) CallMultiple(ctx context.Context, actions ...string) (json.RawMessage, error) {
	body := make(map[string]string, len(actions))
	for _, a := range actions {
		body[a] = ""
	}
	return c.Call(ctx, "GetMultipleHNAPs", body)
}

func (c *Client) post(ctx context.Context, action string, payload interface{}) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode HNAP %s: %w", action, err)
	}

	uri := c.namespace + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SOAPAction", `"`+uri+`"`)
	if key := c.session.HNAPKey(); key != "" {
		req.Header.Set("HNAP_AUTH", AuthToken(c.alg, key, uri, c.now().UnixMilli()))
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HNAP %s returned HTTP %d", action, resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

// setCookie places a cookie on the session jar for the modem host.
func (c *Client) setCookie(ctx context.Context, name, value string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.endpoint, nil)
	if err != nil {
		return
	}
	c.session.Client.Jar.SetCookies(req.URL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}
