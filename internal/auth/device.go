package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// slowDownIncrement is added to the polling interval every time the provider answers slow_down.
const slowDownIncrement = 5 * time.Second

// defaultInterval applies when the provider omits the interval (RFC 8628 section 3.2).
const defaultInterval = 5 * time.Second

// Session holds the state of a single device authorization attempt.
// It lives only for the duration of one GetToken call and is never persisted.
type Session struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds until the device code expires
	Interval        int // minimum polling interval in seconds
}

// TokenResponse holds the tokens returned after successful OAuth authorization.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
}

// Notifier presents the verification step to the operator.
type Notifier interface {
	ShowVerificationInstructions(uri string, code string)
}

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Endpoints are the provider paths, relative to the base URL, used by the device flow.
type Endpoints struct {
	DeviceCodePath string
	TokenPath      string
}

// DeviceFlow implements the OAuth 2.0 Device Authorization Grant (RFC 8628) against one provider.
type DeviceFlow struct {
	provider  string
	clientID  string
	baseURL   string
	endpoints Endpoints
	client    *http.Client
	notifier  Notifier
	sleep     Sleeper
}

// Option customizes a DeviceFlow.
type Option func(*DeviceFlow)

// WithNotifier replaces the default terminal notifier.
func WithNotifier(n Notifier) Option {
	return func(f *DeviceFlow) { f.notifier = n }
}

// WithSleeper replaces the wait between polls. Tests use it to record intervals without sleeping.
func WithSleeper(s Sleeper) Option {
	return func(f *DeviceFlow) { f.sleep = s }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *DeviceFlow) { f.client = c }
}

func newDeviceFlow(provider, clientID, baseURL string, endpoints Endpoints, opts []Option) *DeviceFlow {
	f := &DeviceFlow{
		provider:  provider,
		clientID:  clientID,
		baseURL:   baseURL,
		endpoints: endpoints,
		client:    &http.Client{Timeout: 15 * time.Second},
		notifier:  NewTerminalNotifier(os.Stderr),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Provider returns the provider name this flow authenticates against.
func (f *DeviceFlow) Provider() string {
	return f.provider
}

// GetToken runs the whole flow: request a session, show the verification step, poll for the token.
// A failure to obtain the session returns before any wait or poll happens.
func (f *DeviceFlow) GetToken(ctx context.Context, scopes []string) (TokenResponse, error) {
	session, err := f.RequestSession(ctx, scopes)
	if err != nil {
		return TokenResponse{}, err
	}
	f.PresentVerification(session)
	return f.PollToken(ctx, session)
}

// RequestSession requests a device code and user code from the provider.
func (f *DeviceFlow) RequestSession(ctx context.Context, scopes []string) (Session, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("scope", strings.Join(scopes, " "))

	endpoint, err := url.JoinPath(f.baseURL, f.endpoints.DeviceCodePath)
	if err != nil {
		return Session{}, &AuthError{Err: fmt.Errorf("building URL: %w", err)}
	}

	resp, err := f.postForm(ctx, endpoint, data)
	if err != nil {
		return Session{}, &AuthError{Err: fmt.Errorf("requesting device code: %w", err)}
	}
	defer resp.Body.Close()

	var raw struct {
		DeviceCode       string `json:"device_code"`
		UserCode         string `json:"user_code"`
		VerificationURI  string `json:"verification_uri"`
		ExpiresIn        int    `json:"expires_in"`
		Interval         int    `json:"interval"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
	if decodeErr == nil && raw.Error != "" {
		return Session{}, providerError(raw.Error, raw.ErrorDescription)
	}
	if !isSuccess(resp.StatusCode) {
		return Session{}, &AuthError{Err: fmt.Errorf("device code endpoint returned %s", resp.Status)}
	}
	if decodeErr != nil {
		return Session{}, &AuthError{Err: fmt.Errorf("decoding device code response: %w", decodeErr)}
	}
	if raw.DeviceCode == "" {
		return Session{}, &AuthError{Err: errors.New("device code missing from response")}
	}

	log.WithFields(log.Fields{
		"provider":   f.provider,
		"expires_in": raw.ExpiresIn,
		"interval":   raw.Interval,
	}).Debug("device session started")

	return Session{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        raw.Interval,
	}, nil
}

// PresentVerification hands the verification URL and user code to the notifier.
func (f *DeviceFlow) PresentVerification(session Session) {
	f.notifier.ShowVerificationInstructions(session.VerificationURI, session.UserCode)
}

// PollToken polls the token endpoint until an access token is granted or a terminal error occurs.
// authorization_pending keeps the interval, slow_down grows it by five seconds for every later wait.
// The loop stops with ErrSessionExpired once the next wait would outlive the session, and with
// the context error when ctx is done.
func (f *DeviceFlow) PollToken(ctx context.Context, session Session) (TokenResponse, error) {
	tokenEndpoint, err := url.JoinPath(f.baseURL, f.endpoints.TokenPath)
	if err != nil {
		return TokenResponse{}, &AuthError{Err: fmt.Errorf("building URL: %w", err)}
	}

	lifetime := time.Duration(session.ExpiresIn) * time.Second
	state := newPollState(session)
	for {
		if state.outlives(lifetime) {
			return TokenResponse{}, &AuthError{Code: "expired_token", Err: ErrSessionExpired}
		}
		if err := f.sleep(ctx, state.interval); err != nil {
			return TokenResponse{}, &AuthError{Err: err}
		}
		state = state.waited()

		payload, err := f.exchange(ctx, tokenEndpoint, session.DeviceCode)
		if err != nil {
			return TokenResponse{}, err
		}

		switch classify(payload) {
		case outcomeGranted:
			log.WithField("provider", f.provider).Debug("device authorization granted")
			return payload.token(), nil
		case outcomePending:
			// keep polling at the same interval
		case outcomeSlowDown:
			state = state.slowedDown()
			log.WithFields(log.Fields{
				"provider": f.provider,
				"interval": state.interval,
			}).Debug("provider asked to slow down")
		default:
			return TokenResponse{}, providerError(payload.Error, payload.ErrorDescription)
		}
	}
}

// RefreshToken exchanges a refresh token for a new token pair.
func (f *DeviceFlow) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	tokenEndpoint, err := url.JoinPath(f.baseURL, f.endpoints.TokenPath)
	if err != nil {
		return TokenResponse{}, &AuthError{Err: fmt.Errorf("building URL: %w", err)}
	}

	conf := &oauth2.Config{
		ClientID: f.clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return TokenResponse{}, providerError(retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
		}
		return TokenResponse{}, &AuthError{Err: fmt.Errorf("refreshing token: %w", err)}
	}
	return TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}, nil
}

func (f *DeviceFlow) exchange(ctx context.Context, endpoint string, deviceCode string) (tokenPayload, error) {
	data := url.Values{}
	data.Set("client_id", f.clientID)
	data.Set("device_code", deviceCode)
	data.Set("grant_type", deviceCodeGrantType)

	resp, err := f.postForm(ctx, endpoint, data)
	if err != nil {
		return tokenPayload{}, &AuthError{Err: fmt.Errorf("polling token: %w", err)}
	}
	defer resp.Body.Close()

	var payload tokenPayload
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	// Providers disagree on the status code of pending responses (GitHub 200, GitLab 400),
	// so a structured error body wins over the status.
	if decodeErr == nil && (payload.Error != "" || payload.AccessToken != "") {
		return payload, nil
	}
	if !isSuccess(resp.StatusCode) {
		return tokenPayload{}, &AuthError{Err: fmt.Errorf("token endpoint returned %s", resp.Status)}
	}
	if decodeErr != nil {
		return tokenPayload{}, &AuthError{Err: fmt.Errorf("decoding token response: %w", decodeErr)}
	}
	return payload, nil
}

func (f *DeviceFlow) postForm(ctx context.Context, endpoint string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.client.Do(req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
