package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/waabox/kickstart/internal/auth"
)

// recordingSleeper records every requested wait and returns immediately.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) seconds() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.waits))
	for i, w := range r.waits {
		out[i] = int(w / time.Second)
	}
	return out
}

type recordingNotifier struct {
	uri   string
	code  string
	calls int
}

func (n *recordingNotifier) ShowVerificationInstructions(uri string, code string) {
	n.uri = uri
	n.code = code
	n.calls++
}

// fakeProvider serves the GitHub device flow endpoints. Token responses are served in order;
// the last one repeats once the list is exhausted.
type fakeProvider struct {
	t            *testing.T
	deviceStatus int
	device       map[string]interface{}
	tokens       []map[string]string
	tokenStatus  int

	mu          sync.Mutex
	deviceCalls int
	tokenCalls  int
	deviceCodes []string
	scopes      []string
}

func (p *fakeProvider) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			p.t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Accept") != "application/json" {
			p.t.Errorf("expected Accept: application/json, got %q", r.Header.Get("Accept"))
		}
		if err := r.ParseForm(); err != nil {
			p.t.Errorf("parsing form: %v", err)
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login/device/code":
			p.deviceCalls++
			p.scopes = append(p.scopes, r.FormValue("scope"))
			if p.deviceStatus != 0 {
				w.WriteHeader(p.deviceStatus)
			}
			body := p.device
			if body == nil {
				body = deviceBody("dc1")
			}
			json.NewEncoder(w).Encode(body)
		case "/login/oauth/access_token":
			if got := r.FormValue("grant_type"); got != "urn:ietf:params:oauth:grant-type:device_code" {
				p.t.Errorf("unexpected grant_type: %s", got)
			}
			if got := r.FormValue("client_id"); got != "test_client_id" {
				p.t.Errorf("unexpected client_id: %s", got)
			}
			p.deviceCodes = append(p.deviceCodes, r.FormValue("device_code"))
			idx := p.tokenCalls
			if idx >= len(p.tokens) {
				idx = len(p.tokens) - 1
			}
			p.tokenCalls++
			if p.tokenStatus != 0 {
				w.WriteHeader(p.tokenStatus)
			}
			json.NewEncoder(w).Encode(p.tokens[idx])
		default:
			p.t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})
}

func deviceBody(deviceCode string) map[string]interface{} {
	return map[string]interface{}{
		"user_code":        "ABCD-1234",
		"verification_uri": "https://example.com/device",
		"interval":         5,
		"device_code":      deviceCode,
		"expires_in":       900,
	}
}

func newFlow(serverURL string, sleeper *recordingSleeper, notifier auth.Notifier) *auth.DeviceFlow {
	return auth.NewGitHubDeviceFlow("test_client_id", serverURL,
		auth.WithSleeper(sleeper.sleep),
		auth.WithNotifier(notifier),
	)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGetToken_PendingThenGranted(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{
		{"error": "authorization_pending"},
		{"access_token": "tok_abc"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	notifier := &recordingNotifier{}
	token, err := newFlow(server.URL, sleeper, notifier).GetToken(context.Background(), auth.GitHubScopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "tok_abc" {
		t.Errorf("token: want 'tok_abc', got '%s'", token.AccessToken)
	}
	if got := sleeper.seconds(); !equalInts(got, []int{5, 5}) {
		t.Errorf("waits: want [5 5], got %v", got)
	}
	if notifier.calls != 1 || notifier.uri != "https://example.com/device" || notifier.code != "ABCD-1234" {
		t.Errorf("unexpected notifier state: %+v", notifier)
	}
	if p.scopes[0] != "repo user" {
		t.Errorf("scope: want 'repo user', got '%s'", p.scopes[0])
	}
	for _, dc := range p.deviceCodes {
		if dc != "dc1" {
			t.Errorf("device_code: want 'dc1', got '%s'", dc)
		}
	}
}

func TestGetToken_ReturnsOnFirstGrantAfterManyPending(t *testing.T) {
	tokens := make([]map[string]string, 0, 8)
	for i := 0; i < 7; i++ {
		tokens = append(tokens, map[string]string{"error": "authorization_pending"})
	}
	tokens = append(tokens, map[string]string{"access_token": "tok_late"})
	p := &fakeProvider{t: t, tokens: tokens}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	token, err := newFlow(server.URL, sleeper, &recordingNotifier{}).GetToken(context.Background(), auth.GitHubScopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "tok_late" {
		t.Errorf("token: want 'tok_late', got '%s'", token.AccessToken)
	}
	if p.tokenCalls != 8 {
		t.Errorf("expected 8 poll calls, got %d", p.tokenCalls)
	}
}

func TestGetToken_SlowDownIncreasesInterval(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{
		{"error": "slow_down"},
		{"access_token": "tok_xyz"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	token, err := newFlow(server.URL, sleeper, &recordingNotifier{}).GetToken(context.Background(), auth.GitHubScopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "tok_xyz" {
		t.Errorf("token: want 'tok_xyz', got '%s'", token.AccessToken)
	}
	if got := sleeper.seconds(); !equalInts(got, []int{5, 10}) {
		t.Errorf("waits: want [5 10], got %v", got)
	}
}

func TestPollToken_SlowDownNeverDecreasesInterval(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{
		{"error": "slow_down"},
		{"error": "authorization_pending"},
		{"error": "slow_down"},
		{"error": "slow_down"},
		{"error": "authorization_pending"},
		{"access_token": "tok_done"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	session := auth.Session{DeviceCode: "dc1", Interval: 5, ExpiresIn: 900}
	_, err := newFlow(server.URL, sleeper, &recordingNotifier{}).PollToken(context.Background(), session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{5, 10, 10, 15, 20, 20}
	if got := sleeper.seconds(); !equalInts(got, want) {
		t.Errorf("waits: want %v, got %v", want, got)
	}
}

func TestGetToken_ExpiredTokenCarriesProviderDescription(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{
		{"error": "expired_token", "error_description": "device code expired"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).GetToken(context.Background(), auth.GitHubScopes)
	if err == nil {
		t.Fatal("expected error for expired_token, got nil")
	}
	if err.Error() != "device code expired" {
		t.Errorf("message: want 'device code expired', got '%s'", err.Error())
	}
	if !errors.Is(err, auth.ErrSessionExpired) {
		t.Error("expected errors.Is(err, ErrSessionExpired)")
	}
}

func TestGetToken_UnknownErrorStopsOnFirstResponse(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{
		{"error": "some_unknown_code"},
		{"access_token": "never_reached"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).GetToken(context.Background(), auth.GitHubScopes)
	if err == nil {
		t.Fatal("expected error for unknown error code, got nil")
	}
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *auth.AuthError, got %T", err)
	}
	if authErr.Code != "some_unknown_code" {
		t.Errorf("code: want 'some_unknown_code', got '%s'", authErr.Code)
	}
	if !strings.Contains(err.Error(), "some_unknown_code") {
		t.Errorf("expected fallback message naming the code, got '%s'", err.Error())
	}
	if p.tokenCalls != 1 {
		t.Errorf("expected 1 poll call, got %d", p.tokenCalls)
	}
}

func TestGetToken_AccessDeniedUsesFallbackMessage(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{{"error": "access_denied"}}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).GetToken(context.Background(), auth.GitHubScopes)
	if err == nil {
		t.Fatal("expected error for access_denied, got nil")
	}
	if err.Error() != "authentication failed: access denied by user" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestGetToken_SessionRequestFailureSkipsPolling(t *testing.T) {
	p := &fakeProvider{
		t:            t,
		deviceStatus: http.StatusBadRequest,
		device:       map[string]interface{}{"error": "invalid_client", "error_description": "client is suspended"},
		tokens:       []map[string]string{{"access_token": "never_reached"}},
	}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	notifier := &recordingNotifier{}
	_, err := newFlow(server.URL, sleeper, notifier).GetToken(context.Background(), auth.GitHubScopes)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "client is suspended" {
		t.Errorf("message: want 'client is suspended', got '%s'", err.Error())
	}
	if len(sleeper.seconds()) != 0 {
		t.Errorf("expected no waits, got %v", sleeper.seconds())
	}
	if p.tokenCalls != 0 {
		t.Errorf("expected no poll calls, got %d", p.tokenCalls)
	}
	if notifier.calls != 0 {
		t.Error("verification must not be presented when the session request fails")
	}
}

func TestRequestSession_NonJSONFailureUsesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).RequestSession(context.Background(), auth.GitHubScopes)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.HasPrefix(err.Error(), "authentication failed: ") || !strings.Contains(err.Error(), "502") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestGetToken_TwoCallsUseIndependentSessions(t *testing.T) {
	var mu sync.Mutex
	sessions := 0
	var polled []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		defer mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/login/device/code" {
			sessions++
			json.NewEncoder(w).Encode(deviceBody("dc" + string(rune('0'+sessions))))
			return
		}
		polled = append(polled, r.FormValue("device_code"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok_" + r.FormValue("device_code")})
	}))
	defer server.Close()

	flow := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{})
	first, err := flow.GetToken(context.Background(), auth.GitHubScopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := flow.GetToken(context.Background(), auth.GitHubScopes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AccessToken != "tok_dc1" || second.AccessToken != "tok_dc2" {
		t.Errorf("unexpected tokens: %s, %s", first.AccessToken, second.AccessToken)
	}
	if len(polled) != 2 || polled[0] == polled[1] {
		t.Errorf("expected two distinct device codes, got %v", polled)
	}
}

func TestPollToken_ExpiresWhenSessionLifetimeElapses(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{{"error": "authorization_pending"}}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	session := auth.Session{DeviceCode: "dc1", Interval: 5, ExpiresIn: 10}
	_, err := newFlow(server.URL, sleeper, &recordingNotifier{}).PollToken(context.Background(), session)
	if !errors.Is(err, auth.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if p.tokenCalls != 2 {
		t.Errorf("expected 2 poll calls within the lifetime, got %d", p.tokenCalls)
	}
}

func TestPollToken_ZeroIntervalDefaultsToFiveSeconds(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{{"access_token": "tok"}}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	_, err := newFlow(server.URL, sleeper, &recordingNotifier{}).PollToken(context.Background(), auth.Session{DeviceCode: "dc1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sleeper.seconds(); !equalInts(got, []int{5}) {
		t.Errorf("waits: want [5], got %v", got)
	}
}

func TestPollToken_CancelledContext(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{{"error": "authorization_pending"}}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	session := auth.Session{DeviceCode: "dc1", Interval: 5}
	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).PollToken(ctx, session)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.tokenCalls != 0 {
		t.Errorf("expected no poll calls, got %d", p.tokenCalls)
	}
}

func TestPollToken_PendingWithErrorStatusKeepsPolling(t *testing.T) {
	// GitLab answers pending with HTTP 400.
	p := &fakeProvider{t: t, tokenStatus: http.StatusBadRequest, tokens: []map[string]string{
		{"error": "authorization_pending"},
		{"error": "access_denied", "error_description": "The resource owner denied the request"},
	}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).PollToken(context.Background(), auth.Session{DeviceCode: "dc1", Interval: 5})
	if err == nil || err.Error() != "The resource owner denied the request" {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.tokenCalls != 2 {
		t.Errorf("expected 2 poll calls, got %d", p.tokenCalls)
	}
}

func TestPollToken_TransportFailureIsFatal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newFlow(server.URL, &recordingSleeper{}, &recordingNotifier{}).PollToken(context.Background(), auth.Session{DeviceCode: "dc1", Interval: 5})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var authErr *auth.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *auth.AuthError, got %T", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestTerminalNotifier_PrintsInstructionsEvenWhenBrowserFails(t *testing.T) {
	var out strings.Builder
	opened := ""
	n := auth.NewTerminalNotifierWithOpener(&out, func(u string) error {
		opened = u
		return errors.New("no display")
	})
	n.ShowVerificationInstructions("https://example.com/device", "ABCD-1234")

	if opened != "https://example.com/device" {
		t.Errorf("expected browser to be asked for the URL, got '%s'", opened)
	}
	if !strings.Contains(out.String(), "https://example.com/device") || !strings.Contains(out.String(), "ABCD-1234") {
		t.Errorf("instructions missing from output:\n%s", out.String())
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestGetToken_UsesInjectedHTTPClient(t *testing.T) {
	p := &fakeProvider{t: t, tokens: []map[string]string{{"access_token": "tok_abc"}}}
	server := httptest.NewServer(p.handler())
	defer server.Close()

	transport := &countingTransport{}
	flow := auth.NewGitHubDeviceFlow("test_client_id", server.URL,
		auth.WithSleeper((&recordingSleeper{}).sleep),
		auth.WithNotifier(&recordingNotifier{}),
		auth.WithHTTPClient(&http.Client{Transport: transport}),
	)
	if flow.Provider() != "github" {
		t.Errorf("provider: want 'github', got '%s'", flow.Provider())
	}
	if _, err := flow.GetToken(context.Background(), auth.GitHubScopes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.calls != 2 {
		t.Errorf("expected 2 requests through the injected client, got %d", transport.calls)
	}
}
