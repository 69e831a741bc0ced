// Package orchestrator drives one modem's poll cycle: resolve the protocol,
// authenticate, detect the parser, fetch and normalize the channel data, and
// log out. One orchestrator owns one modem and one HTTP session; instances
// are not safe for concurrent cycles.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/internal/logger"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/auth/discovery"
	"github.com/coaxwatch/coaxwatch/pkg/diagnostics"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
	"github.com/coaxwatch/coaxwatch/pkg/hnap"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
	"github.com/coaxwatch/coaxwatch/pkg/parsers/detect"
)

// Options configures one orchestrator instance.
type Options struct {
	// Host is an IP, hostname, or full URL. A bare host is probed https
	// first, then http; an explicit scheme is honored verbatim.
	Host        string
	Credentials auth.Credentials

	// ParserName pins the parser, skipping detection. Strategy pins the
	// auth mechanism, skipping discovery.
	ParserName string
	Strategy   *auth.StrategyDescriptor

	VerifySSL bool
	LegacySSL bool

	// PreauthHTML seeds detection with a page captured outside this
	// process; Preauthed marks the session as already logged in.
	PreauthHTML string
	Preauthed   bool

	Timeout     time.Duration
	Diagnostics bool
}

// CycleError is a classified poll failure carrying its diagnosis. Retry
// marks transient failures worth one full retry after a cache clear.
type CycleError struct {
	Kind    auth.ErrorKind
	Message string
	Retry   bool
}

func (e *CycleError) Error() string { return e.Message }

// Diagnosis returns the troubleshooting data for the failure kind.
func (e *CycleError) Diagnosis() auth.Diagnosis { return auth.Diagnose(e.Kind) }

func cycleErr(kind auth.ErrorKind, format string, args ...interface{}) *CycleError {
	return &CycleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Orchestrator holds the cached cross-cycle state for one modem: the winning
// protocol, the auth descriptor, the detected parser, and the session.
type Orchestrator struct {
	opts     Options
	log      *logger.Logger
	registry *parsers.Registry
	session  *httpclient.Session
	breaker  *detect.CircuitBreaker
	recorder *diagnostics.Recorder

	mu         sync.Mutex
	baseURL    string
	strategy   *auth.StrategyDescriptor
	parser     *parsers.Descriptor
	authed     bool
	reauthed   bool // one re-auth per cycle on session expiry
	lastStatus docsis.PollStatus
}

// New builds an orchestrator and its session. The registry is shared and
// read-only; everything else is owned by this instance.
func New(log *logger.Logger, registry *parsers.Registry, opts Options) (*Orchestrator, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = httpclient.DefaultConfig().Timeout
	}
	sess, err := httpclient.NewSession(httpclient.SessionConfig{
		Timeout:         opts.Timeout,
		VerifyTLS:       opts.VerifySSL,
		LegacyTLS:       opts.LegacySSL,
		FollowRedirects: true,
		MaxRedirects:    5,
	})
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		opts:     opts,
		log:      log.WithComponent("orchestrator").WithHost(opts.Host),
		registry: registry,
		session:  sess,
		breaker:  detect.NewCircuitBreaker(0, 0, 4),
		recorder: diagnostics.NewRecorder(diagnostics.NewRedactor(), opts.Diagnostics),
		strategy: opts.Strategy,
		authed:   opts.Preauthed,
	}
	if opts.ParserName != "" {
		if desc, ok := registry.ByName(opts.ParserName); ok {
			o.parser = desc
		}
	}
	return o, nil
}

// GetModemData runs one full poll cycle and returns the normalized dataset.
func (o *Orchestrator) GetModemData(ctx context.Context) (*docsis.PollResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.log.StartSpan(ctx, "poll_cycle")
	defer span.End()

	start := time.Now()
	o.reauthed = false
	o.breaker.Reset()

	result, err := o.runCycle(ctx, true)
	if err != nil {
		o.lastStatus = docsis.StatusFailed
		// A failed cycle may have picked the wrong protocol; re-resolve
		// next time.
		o.baseURL = ""
		o.log.LogError(ctx, err, "poll cycle")
		return nil, err
	}
	o.lastStatus = result.Status
	o.log.LogDuration(ctx, "poll cycle", start,
		"parser", result.ParserName,
		"downstream", len(result.Downstream),
		"upstream", len(result.Upstream),
		"status", string(result.Status),
	)
	return result, nil
}

// runCycle is the state machine body. allowRetry permits one full retry
// after a strategy reports requires_retry.
func (o *Orchestrator) runCycle(ctx context.Context, allowRetry bool) (*docsis.PollResult, error) {
	base, err := o.resolveProtocol(ctx)
	if err != nil {
		return nil, err
	}

	if err := o.authenticate(ctx, base); err != nil {
		var ce *CycleError
		if allowRetry && errors.As(err, &ce) && ce.Retry {
			o.log.Warnw("authentication asked for a retry, clearing cached state")
			o.clearForRetry()
			return o.runCycle(ctx, false)
		}
		return nil, err
	}

	desc, err := o.detectParser(ctx, base)
	if err != nil {
		return nil, err
	}

	env := o.buildEnv(base)
	o.log.WithParser(desc.Name).Debugw("fetching modem pages")
	result, err := desc.New().Parse(ctx, env)
	if err != nil {
		return nil, cycleErr(auth.KindParserNotFound, "parser %s failed: %v", desc.Name, err)
	}
	result.ParserName = desc.Name
	result.Status = o.gradeResult(desc, result)

	o.logout(ctx, base, desc)
	return result, nil
}

// resolveProtocol returns the working base URL. The winner is cached until a
// cycle fails outright.
func (o *Orchestrator) resolveProtocol(ctx context.Context) (string, error) {
	if o.baseURL != "" {
		return o.baseURL, nil
	}
	host := strings.TrimSuffix(o.opts.Host, "/")
	if strings.Contains(host, "://") {
		o.baseURL = host
		return host, nil
	}
	for _, scheme := range []string{"https", "http"} {
		candidate := scheme + "://" + host
		resp, err := o.session.Get(ctx, candidate+"/")
		if err != nil {
			o.log.Debugw("protocol probe failed", "url", candidate, "error", err)
			continue
		}
		httpclient.CloseBody(resp)
		o.log.Debugw("protocol resolved", "base_url", candidate)
		o.baseURL = candidate
		return candidate, nil
	}
	return "", cycleErr(auth.KindConnectionFailed, "host %s unreachable over https and http", host)
}

// authenticate ensures the session is logged in. The strategy descriptor is
// resolved from configuration, the pinned parser, or discovery, in that
// order, and cached across cycles.
func (o *Orchestrator) authenticate(ctx context.Context, base string) error {
	if o.authed {
		return nil
	}
	if o.strategy == nil {
		if o.parser != nil && o.parser.AuthSpec != nil {
			o.strategy = o.parser.AuthSpec
		} else {
			engine := discovery.New(o.log, o.session, 0)
			res := engine.Discover(ctx, base, o.opts.Credentials, nil, "")
			if res.Descriptor == nil {
				o.recorder.RecordFailure(base, 0, res.RawBody)
				return cycleErr(res.Kind, "auth discovery failed: %s", res.Message)
			}
			o.strategy = res.Descriptor
			if o.opts.PreauthHTML == "" {
				o.opts.PreauthHTML = res.PageHTML
			}
		}
	}

	// A modem with no credentials configured and no auth requirement polls
	// anonymously.
	if o.strategy.Kind == auth.StrategyNone || o.strategy.Kind == auth.StrategyREST {
		o.authed = true
		return nil
	}
	if o.opts.Credentials.Empty() {
		return cycleErr(auth.KindMissingCredentials, "modem requires %s authentication", o.strategy.Kind)
	}

	res := auth.Login(ctx, o.session, base, o.opts.Credentials, o.strategy)
	if !res.Success {
		ce := cycleErr(res.Kind, "login failed: %s", res.Message)
		ce.Retry = res.RequiresRetry
		return ce
	}
	if res.HTML != "" && o.opts.PreauthHTML == "" {
		o.opts.PreauthHTML = res.HTML
	}
	o.authed = true
	return nil
}

// detectParser resolves and caches the parser descriptor.
func (o *Orchestrator) detectParser(ctx context.Context, base string) (*parsers.Descriptor, error) {
	if o.parser != nil {
		return o.parser, nil
	}
	detector := detect.New(o.registry, o.session, o.log, o.breaker)
	desc, err := detector.Detect(ctx, detect.Input{
		BaseURL:     base,
		ParserName:  o.opts.ParserName,
		PreAuthHTML: o.opts.PreauthHTML,
		Fetch:       o.fetcher(base, nil),
	})
	if err != nil {
		var de *detect.Error
		if errors.As(err, &de) {
			return nil, cycleErr(de.Kind, "parser detection failed: %s", de.Message)
		}
		return nil, err
	}
	o.parser = desc
	return desc, nil
}

// buildEnv assembles the parser's view of the modem for this cycle.
func (o *Orchestrator) buildEnv(base string) *parsers.Env {
	env := &parsers.Env{
		BaseURL:        base,
		Session:        o.session,
		PrefetchedHTML: o.opts.PreauthHTML,
	}
	if o.strategy != nil {
		if o.strategy.Kind == auth.StrategyHNAP {
			spec := o.strategy.HNAP
			if spec == nil {
				spec = &auth.HNAPSpec{}
			}
			alg, err := hnap.ParseAlgorithm(spec.Algorithm)
			if err != nil {
				alg = hnap.MD5
			}
			env.HNAP = hnap.NewClient(o.session, base, spec.Endpoint, spec.Namespace, alg)
		}
		if o.strategy.Kind == auth.StrategyURLToken {
			env.URLToken = o.strategy.URLToken
		}
	}
	env.Fetch = o.fetcher(base, env.URLToken)
	return env
}

// fetcher builds the authenticated fetch with session-expiry handling:
// exactly one re-auth and re-fetch per cycle, then the stale response is
// returned rather than looping.
func (o *Orchestrator) fetcher(base string, token *auth.URLTokenSpec) func(ctx context.Context, path string) (string, error) {
	return func(ctx context.Context, path string) (string, error) {
		body, status, err := o.fetchOnce(ctx, base, path, token)
		if err != nil {
			o.recorder.RecordFailure(base+path, status, "")
			return "", err
		}
		if auth.HasLoginSignature(body) && !o.reauthed {
			o.reauthed = true
			o.log.Infow("session expired, re-authenticating", "path", path)
			o.session.ClearAuth()
			o.authed = false
			if err := o.authenticate(ctx, base); err != nil {
				return "", err
			}
			fresh, _, ferr := o.fetchOnce(ctx, base, path, token)
			if ferr == nil && !auth.HasLoginSignature(fresh) {
				return fresh, nil
			}
			// Stale fallback: the original body is all we have.
		}
		return body, nil
	}
}

func (o *Orchestrator) fetchOnce(ctx context.Context, base, path string, token *auth.URLTokenSpec) (string, int, error) {
	rawURL := base + path
	if token != nil {
		if tokenized, ok := auth.DataURL(o.session, token, rawURL); ok {
			rawURL = tokenized
		}
	}
	resp, err := o.session.Get(ctx, rawURL)
	if err != nil {
		return "", 0, cycleErr(auth.KindConnectionFailed, "fetch %s: %v", path, err)
	}
	defer httpclient.CloseBody(resp)
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return "", resp.StatusCode, cycleErr(auth.KindConnectionFailed, "read %s: %v", path, err)
	}
	if resp.StatusCode >= 400 {
		o.recorder.RecordFailure(rawURL, resp.StatusCode, body)
		return "", resp.StatusCode, cycleErr(auth.KindConnectionFailed, "fetch %s: HTTP %d", path, resp.StatusCode)
	}
	o.recorder.RecordResponse(rawURL, resp.StatusCode, resp.Header, body)
	return body, resp.StatusCode, nil
}

// gradeResult downgrades a structurally valid result that is missing data
// the parser claims to provide.
func (o *Orchestrator) gradeResult(desc *parsers.Descriptor, result *docsis.PollResult) docsis.PollStatus {
	if len(result.Downstream) == 0 && len(result.DownstreamOFDM) == 0 {
		return docsis.StatusFailed
	}
	if desc.HasCapability(docsis.CapATDMAUpstream) && len(result.Upstream) == 0 {
		return docsis.StatusDegraded
	}
	if desc.HasCapability(docsis.CapSoftwareVersion) && result.System == nil {
		return docsis.StatusDegraded
	}
	return docsis.StatusOK
}

// logout is best-effort; failures are logged and swallowed.
func (o *Orchestrator) logout(ctx context.Context, base string, desc *parsers.Descriptor) {
	if desc.LogoutPath == "" {
		return
	}
	resp, err := o.session.Get(ctx, base+desc.LogoutPath)
	if err != nil {
		o.log.Debugw("logout failed", "path", desc.LogoutPath, "error", err)
		return
	}
	httpclient.CloseBody(resp)
	o.authed = false
}

// clearForRetry tears cached auth state down for the single requires_retry
// pass.
func (o *Orchestrator) clearForRetry() {
	o.session.ClearAuth()
	o.authed = false
	if o.opts.Strategy == nil {
		o.strategy = nil
	}
}

// ClearAuthCache invalidates the session and cached descriptors. The parser
// survives unless it was heuristically detected, since a wrong parser guess
// and an expired session are indistinguishable until re-detection.
func (o *Orchestrator) ClearAuthCache() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.ClearAuth()
	o.authed = false
	if o.opts.Strategy == nil {
		o.strategy = nil
	}
	if o.opts.ParserName == "" {
		o.parser = nil
	}
	o.baseURL = ""
}

// DetectionInfo reports the cached detection state without touching the
// network.
func (o *Orchestrator) DetectionInfo() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	info := map[string]interface{}{
		"host":        o.opts.Host,
		"last_status": string(o.lastStatus),
	}
	if o.baseURL != "" {
		info["protocol"] = strings.SplitN(o.baseURL, "://", 2)[0]
	}
	if o.parser != nil {
		info["parser"] = o.parser.Name
		info["logout_path"] = o.parser.LogoutPath
	}
	if o.strategy != nil {
		info["auth_kind"] = string(o.strategy.Kind)
	}
	return info
}

// Diagnostics returns the capture recorder for this orchestrator.
func (o *Orchestrator) Diagnostics() *diagnostics.Recorder { return o.recorder }
