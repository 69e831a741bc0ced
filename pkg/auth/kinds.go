// Package auth implements the authentication strategies spoken by cable
// modem management interfaces and the typed results they produce.
package auth

// ErrorKind classifies an expected failure. Strategies return these instead
// of raising; only programming errors propagate as Go errors.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindConnectionFailed   ErrorKind = "connection_failed"
	KindSessionExpired     ErrorKind = "session_expired"
	KindParserNotFound     ErrorKind = "parser_not_found"
	KindUnknownAuthPattern ErrorKind = "unknown_auth_pattern"
	KindCircuitBroken      ErrorKind = "circuit_broken"
	KindRestartUnsupported ErrorKind = "restart_not_supported"
)

// Diagnosis carries the human-readable explanation and troubleshooting steps
// for an error kind. These are data, not display logic, so every caller (UI,
// logs, diagnostics export) surfaces them identically.
type Diagnosis struct {
	Summary string
	Steps   []string
}

var diagnoses = map[ErrorKind]Diagnosis{
	KindMissingCredentials: {
		Summary: "The modem requires a username and password but none were configured",
		Steps: []string{
			"Add the modem's admin credentials to the configuration",
			"Check the label on the modem for factory-default credentials",
		},
	},
	KindInvalidCredentials: {
		Summary: "The modem rejected the configured credentials",
		Steps: []string{
			"Verify the username and password in the modem's own web interface",
			"Some ISPs reset admin passwords during firmware pushes",
		},
	},
	KindConnectionFailed: {
		Summary: "The modem could not be reached",
		Steps: []string{
			"Check the IP address (modems commonly answer on 192.168.100.1)",
			"Confirm the modem is powered and the management interface is enabled",
			"Try both http:// and https:// explicitly",
		},
	},
	KindSessionExpired: {
		Summary: "A previously authenticated session returned the login page",
		Steps: []string{
			"No action usually needed; authentication is retried automatically",
			"If persistent, the modem may only allow one admin session at a time",
		},
	},
	KindParserNotFound: {
		Summary: "No registered parser matched this modem's pages",
		Steps: []string{
			"Set the parser name explicitly if the model is known",
			"The modem may require a firmware update or be an unsupported model",
		},
	},
	KindUnknownAuthPattern: {
		Summary: "The modem's login mechanism could not be classified",
		Steps: []string{
			"Configure the auth strategy explicitly for this model",
			"JavaScript-only login pages need a per-model hint",
		},
	},
	KindCircuitBroken: {
		Summary: "Detection exceeded its attempt or time budget",
		Steps: []string{
			"Check network stability between the poller and the modem",
			"Pin the parser name to skip detection entirely",
		},
	},
	KindRestartUnsupported: {
		Summary: "Restart was requested but this modem declares no restart capability",
		Steps: []string{
			"Restart the modem via its own web interface or by power-cycling",
		},
	},
}

// Diagnose returns the diagnosis for a kind; unknown kinds yield a zero
// Diagnosis.
func Diagnose(kind ErrorKind) Diagnosis {
	return diagnoses[kind]
}

// StrategyKind is the closed set of supported authentication protocols.
// Dispatch over it is exhaustive; adding a protocol is a compile-time change.
type StrategyKind string

const (
	StrategyNone         StrategyKind = "none"
	StrategyBasic        StrategyKind = "basic"
	StrategyFormPlain    StrategyKind = "form_plain"
	StrategyFormBase64   StrategyKind = "form_base64"
	StrategyFormAjax     StrategyKind = "form_ajax"
	StrategyFormDynamic  StrategyKind = "form_dynamic"
	StrategyRedirectForm StrategyKind = "redirect_form"
	StrategyHNAP         StrategyKind = "hnap"
	StrategyURLToken     StrategyKind = "url_token"
	StrategyREST         StrategyKind = "rest"
)

// Kinds lists every strategy kind, in discovery preference order.
func Kinds() []StrategyKind {
	return []StrategyKind{
		StrategyNone, StrategyBasic, StrategyFormPlain, StrategyFormBase64,
		StrategyFormAjax, StrategyFormDynamic, StrategyRedirectForm,
		StrategyHNAP, StrategyURLToken, StrategyREST,
	}
}
