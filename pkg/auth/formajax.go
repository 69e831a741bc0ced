package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
)

// formAjaxStrategy implements the combined-credential XHR login used by
// Hitron-style firmware: a random nonce plus a base64-encoded
// "username={u}:password={p}" string, answered in plain text with either
// "Url:<path>" or "Error:<msg>".
type formAjaxStrategy struct{}

func (formAjaxStrategy) Kind() StrategyKind { return StrategyFormAjax }

func (formAjaxStrategy) Login(ctx context.Context, sess *httpclient.Session, baseURL string, creds Credentials, desc *StrategyDescriptor) AuthResult {
	if desc == nil || desc.Form == nil {
		return Fail(KindUnknownAuthPattern, "ajax form strategy requires a form spec")
	}
	if creds.Empty() {
		return Fail(KindMissingCredentials, "ajax form auth requires credentials")
	}
	form := desc.Form

	combined := fmt.Sprintf("username=%s:password=%s", creds.Username, creds.Password)
	encoded := base64.StdEncoding.EncodeToString([]byte(combined))

	combinedField := form.CombinedField
	if combinedField == "" {
		combinedField = "arguments"
	}
	nonceField := form.NonceField
	if nonceField == "" {
		nonceField = "nonce"
	}

	data := url.Values{}
	data.Set(combinedField, encoded)
	data.Set(nonceField, newNonce())
	for k, v := range form.Hidden {
		data.Set(k, v)
	}

	action := resolveAction(baseURL, form.Action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(data.Encode()))
	if err != nil {
		return Fail(KindUnknownAuthPattern, "bad form action: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := sess.Do(req)
	if err != nil {
		return connectionFail(err)
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return connectionFail(err)
	}

	reply := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(reply, "Url:"):
		return Ok()
	case strings.HasPrefix(reply, "Error:"):
		return Fail(KindInvalidCredentials, strings.TrimSpace(strings.TrimPrefix(reply, "Error:")))
	}
	return Fail(KindUnknownAuthPattern, "unrecognized ajax login reply")
}

func newNonce() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is effectively fatal elsewhere; a fixed
		// nonce still yields a valid login attempt.
		return "0000000000000000"
	}
	return hex.EncodeToString(buf)
}
