// Package diagnostics captures fetched and failed URLs for later export.
// Bodies pass through the sanitizer before anything is stored, so nothing
// leaves this boundary unredacted.
package diagnostics

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Sanitizer redacts credentials and PII from captured bodies. The production
// sanitizer lives with the host application; Redactor is the built-in
// default used by the CLI and tests.
type Sanitizer interface {
	Sanitize(body string) string
}

// Capture is one recorded response.
type Capture struct {
	ID      string      `json:"id"`
	URL     string      `json:"url"`
	Status  int         `json:"status"`
	Headers http.Header `json:"headers,omitempty"`
	Body    string      `json:"sanitized_body"`
}

// Recorder accumulates captures for one orchestrator instance. Capturing is
// idempotent per URL: re-recording an already-seen URL is a no-op.
type Recorder struct {
	cycleID   string
	sanitizer Sanitizer
	enabled   bool

	responses map[string]Capture
	failures  map[string]Capture
	order     []string
	failOrder []string
}

func NewRecorder(sanitizer Sanitizer, enabled bool) *Recorder {
	if sanitizer == nil {
		sanitizer = NewRedactor()
	}
	return &Recorder{
		cycleID:   uuid.NewString(),
		sanitizer: sanitizer,
		enabled:   enabled,
		responses: make(map[string]Capture),
		failures:  make(map[string]Capture),
	}
}

// Enabled reports whether capture is active.
func (r *Recorder) Enabled() bool { return r.enabled }

// CycleID identifies this recorder's poll cycle in logs and exports.
func (r *Recorder) CycleID() string { return r.cycleID }

// RecordResponse captures a successfully fetched URL.
func (r *Recorder) RecordResponse(url string, status int, headers http.Header, body string) {
	if !r.enabled {
		return
	}
	if _, seen := r.responses[url]; seen {
		return
	}
	r.responses[url] = Capture{
		ID:      r.cycleID,
		URL:     url,
		Status:  status,
		Headers: headers,
		Body:    r.sanitizer.Sanitize(body),
	}
	r.order = append(r.order, url)
}

// RecordFailure captures a failed URL with whatever body came back.
func (r *Recorder) RecordFailure(url string, status int, body string) {
	if !r.enabled {
		return
	}
	if _, seen := r.failures[url]; seen {
		return
	}
	r.failures[url] = Capture{
		ID:     r.cycleID,
		URL:    url,
		Status: status,
		Body:   r.sanitizer.Sanitize(body),
	}
	r.failOrder = append(r.failOrder, url)
}

// Snapshot returns captures in record order.
func (r *Recorder) Snapshot() (responses, failures []Capture) {
	for _, u := range r.order {
		responses = append(responses, r.responses[u])
	}
	for _, u := range r.failOrder {
		failures = append(failures, r.failures[u])
	}
	return responses, failures
}

// Redactor is the default sanitizer: masks obvious credential and token
// material in bodies.
type Redactor struct {
	patterns []*regexp.Regexp
}

func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Basic credential blobs first: the keyword pattern below
			// would otherwise consume the "Basic" scheme word and leave
			// the base64 payload behind.
			regexp.MustCompile(`(?i)(basic\s+)[a-z0-9+/=]+`),
			regexp.MustCompile(`(?i)("?(?:password|passwd|loginpassword|privatekey|token|authorization)"?\s*[:=]\s*)"?[^"&\s,}]+"?`),
		},
	}
}

func (rd *Redactor) Sanitize(body string) string {
	out := body
	for _, p := range rd.patterns {
		out = p.ReplaceAllString(out, `$1"REDACTED"`)
	}
	return out
}
