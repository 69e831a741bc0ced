package orchestrator

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/coaxwatch/coaxwatch/internal/httpclient"
	"github.com/coaxwatch/coaxwatch/pkg/auth"
	"github.com/coaxwatch/coaxwatch/pkg/docsis"
	"github.com/coaxwatch/coaxwatch/pkg/parsers"
)

// RestartModem reboots the modem if and only if the detected parser declares
// the restart capability. Unsupported models fail closed without touching
// the device.
func (o *Orchestrator) RestartModem(ctx context.Context, creds auth.Credentials) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.breaker.Reset()
	if !creds.Empty() {
		o.opts.Credentials = creds
	}

	base, err := o.resolveProtocol(ctx)
	if err != nil {
		return false, err
	}
	if err := o.authenticate(ctx, base); err != nil {
		return false, err
	}
	desc, err := o.detectParser(ctx, base)
	if err != nil {
		return false, err
	}
	if desc.Restart == nil || !desc.HasCapability(docsis.CapRestart) {
		return false, cycleErr(auth.KindRestartUnsupported, "parser %s declares no restart support", desc.Name)
	}

	err = o.issueRestart(ctx, base, desc)
	if err != nil && isConnRefused(err) && strings.HasPrefix(base, "https://") {
		// Some firmwares only expose the management actions over plain
		// HTTP even when status pages answer on HTTPS.
		fallback := "http://" + strings.TrimPrefix(base, "https://")
		o.log.Warnw("restart refused over https, retrying over http", "base_url", fallback)
		err = o.issueRestart(ctx, fallback, desc)
	}
	if err != nil {
		return false, err
	}

	// The modem drops all sessions on reboot.
	o.session.ClearAuth()
	o.authed = false
	o.baseURL = ""
	o.log.Infow("restart issued", "parser", desc.Name)
	return true, nil
}

func (o *Orchestrator) issueRestart(ctx context.Context, base string, desc *parsers.Descriptor) error {
	spec := desc.Restart
	switch spec.Kind {
	case parsers.RestartHNAP:
		return o.restartHNAP(ctx, base, spec)
	case parsers.RestartPost:
		form := url.Values{}
		for k, v := range spec.Fields {
			form.Set(k, v)
		}
		resp, err := o.session.PostForm(ctx, base+spec.Path, form)
		if err != nil {
			return cycleErr(auth.KindConnectionFailed, "restart POST: %v", err)
		}
		defer httpclient.CloseBody(resp)
		if resp.StatusCode >= 400 {
			return cycleErr(auth.KindConnectionFailed, "restart POST: HTTP %d", resp.StatusCode)
		}
		return nil
	default:
		return cycleErr(auth.KindRestartUnsupported, "unknown restart kind %q", spec.Kind)
	}
}

// restartHNAP fetches the current settings block first so the restart field
// is flipped without clobbering the rest of the settings.
func (o *Orchestrator) restartHNAP(ctx context.Context, base string, spec *parsers.RestartSpec) error {
	env := o.buildEnv(base)
	if env.HNAP == nil {
		return cycleErr(auth.KindRestartUnsupported, "restart requires an HNAP session")
	}

	payload := map[string]interface{}{}
	if spec.HNAPSettings != "" {
		raw, err := env.HNAP.Call(ctx, spec.HNAPSettings, struct{}{})
		if err != nil {
			return cycleErr(auth.KindConnectionFailed, "fetch %s: %v", spec.HNAPSettings, err)
		}
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err == nil {
			if inner, ok := envelope[spec.HNAPSettings+"Response"]; ok {
				var settings map[string]interface{}
				if err := json.Unmarshal(inner, &settings); err == nil {
					delete(settings, spec.HNAPSettings+"Result")
					payload = settings
				}
			}
		}
	}
	payload[spec.HNAPField] = spec.HNAPFieldValue

	if _, err := env.HNAP.Call(ctx, spec.HNAPAction, payload); err != nil {
		return cycleErr(auth.KindConnectionFailed, "%s: %v", spec.HNAPAction, err)
	}
	return nil
}

func isConnRefused(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}
