package auth

// Credentials are immutable for the duration of one poll cycle. Both fields
// may be empty for no-auth modems.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials were supplied at all.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// AuthResult is the terminal outcome of one login attempt. Strategies never
// panic or return Go errors for expected failures; they return a failed
// AuthResult tagged with an ErrorKind.
type AuthResult struct {
	Success bool
	// HTML is the authenticated page body when the login flow produced
	// one; callers may reuse it to skip a fetch.
	HTML string
	Kind ErrorKind
	// RequiresRetry signals the orchestrator should clear cached session
	// state and re-attempt once.
	RequiresRetry bool
	Message       string
}

// Ok returns a successful result with no captured body.
func Ok() AuthResult {
	return AuthResult{Success: true}
}

// OkHTML returns a successful result carrying the authenticated page body.
func OkHTML(html string) AuthResult {
	return AuthResult{Success: true, HTML: html}
}

// Fail returns a failed result tagged with kind.
func Fail(kind ErrorKind, message string) AuthResult {
	return AuthResult{Kind: kind, Message: message}
}

// FailRetry is Fail plus a retry-once hint for the orchestrator.
func FailRetry(kind ErrorKind, message string) AuthResult {
	return AuthResult{Kind: kind, Message: message, RequiresRetry: true}
}
