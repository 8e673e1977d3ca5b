package auth

import "errors"

// ErrSessionExpired matches errors caused by a device code that expired before the
// operator completed verification, whether reported by the provider or detected locally.
var ErrSessionExpired = errors.New("device code expired")

// AuthError is the single error type returned by the device flow.
// Its message is the provider's description when one was supplied.
type AuthError struct {
	Code        string // provider error code, e.g. "access_denied"; empty for transport failures
	Description string // provider error_description, if any
	Err         error
}

var fallbackMessages = map[string]string{
	"access_denied":                "access denied by user",
	"expired_token":                "device code expired, run kickstart again to restart authentication",
	"incorrect_client_credentials": "the OAuth client id is not valid for this provider",
	"unsupported_grant_type":       "the provider does not support the device flow for this client",
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Err != nil {
		return "authentication failed: " + e.Err.Error()
	}
	if msg, ok := fallbackMessages[e.Code]; ok {
		return "authentication failed: " + msg
	}
	if e.Code != "" {
		return "authentication failed: " + e.Code
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func providerError(code, description string) *AuthError {
	if len(code) > 100 {
		code = code[:100]
	}
	e := &AuthError{Code: code, Description: description}
	if code == "expired_token" {
		e.Err = ErrSessionExpired
	}
	return e
}
