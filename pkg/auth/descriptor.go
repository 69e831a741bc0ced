package auth

// StrategyDescriptor is produced once, by discovery or static configuration,
// and reused across polls until invalidated by session expiry.
type StrategyDescriptor struct {
	Kind StrategyKind

	Form     *FormSpec
	HNAP     *HNAPSpec
	URLToken *URLTokenSpec

	// VerificationURL, when set, is fetched after login and its content
	// decides success instead of the login response itself.
	VerificationURL string
}

// FormSpec parameterizes the form-based strategies.
type FormSpec struct {
	// Action is the submit target, resolved against the base URL.
	Action string
	// Method is "POST" unless the model uses the GET variant.
	Method        string
	UsernameField string
	PasswordField string
	// Hidden fields the login page requires echoed back on submit.
	Hidden map[string]string

	// SuccessRedirect is a path fragment expected in the post-login
	// location. MinResponseBytes is the size-based alternative. When both
	// are zero the absence of a login-page signature decides.
	SuccessRedirect  string
	MinResponseBytes int

	// DynamicSelector locates the form whose per-session action token must
	// be extracted (form_dynamic only). Empty means first form.
	DynamicSelector string

	// NonceField and CombinedField describe the combined-credential AJAX
	// pattern (form_ajax only).
	NonceField    string
	CombinedField string
}

// HNAPSpec parameterizes the HNAP session strategy.
type HNAPSpec struct {
	Endpoint  string // default /HNAP1/
	Namespace string // default http://purenetworks.com/HNAP1/
	Algorithm string // "md5" (default) or "sha256"
}

// URLTokenSpec parameterizes the URL-token session strategy. The HTTP
// contract differs slightly per model (observed from captures, not
// documentation), hence the header toggles.
type URLTokenSpec struct {
	// LoginPath receives the base64 credential token as TokenParam.
	LoginPath  string
	TokenParam string
	// CookieName is the session cookie whose value seeds the follow-up
	// data token.
	CookieName string

	// SendAuthHeader also sends the token as an Authorization header on
	// data requests. SendAjaxHeader marks the login request as XHR.
	SendAuthHeader bool
	SendAjaxHeader bool
}
