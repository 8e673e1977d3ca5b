package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/waabox/kickstart/internal/domain"
)

const defaultBaseURL = "https://api.github.com"

// PushUsername is the HTTP basic auth user GitHub accepts alongside an OAuth token.
const PushUsername = "x-access-token"

// Adapter implements domain.RepositoryProvisioner for GitHub.
type Adapter struct {
	mu      sync.Mutex
	token   string
	baseURL string
	base    *http.Client
}

// Ensure Adapter fully implements domain.RepositoryProvisioner.
var _ domain.RepositoryProvisioner = (*Adapter)(nil)

// NewAdapter creates a GitHub adapter.
// baseURL is used for testing; pass empty string to use the real GitHub API.
func NewAdapter(token string, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		base:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the access token used for subsequent requests.
func (a *Adapter) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Token returns the current access token.
func (a *Adapter) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// CreateRepository creates an empty repository under the authenticated user,
// or under spec.Namespace when it names an organization.
func (a *Adapter) CreateRepository(ctx context.Context, spec domain.RemoteSpec) (domain.Repository, error) {
	endpoint := a.baseURL + "/user/repos"
	if spec.Namespace != "" {
		endpoint = fmt.Sprintf("%s/orgs/%s/repos", a.baseURL, url.PathEscape(spec.Namespace))
	}
	body := createRepoRequest{
		Name:        spec.Name,
		Description: spec.Description,
		Private:     spec.Private,
		AutoInit:    false,
	}
	var created repoResponse
	if err := a.do(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return domain.Repository{}, err
	}
	log.WithFields(log.Fields{"repo": created.FullName, "private": created.Private}).Debug("github repository created")
	return created.toRepository(), nil
}

// AddCollaborator invites username with push permission.
func (a *Adapter) AddCollaborator(ctx context.Context, repo domain.Repository, username string) error {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/collaborators/%s",
		a.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name), url.PathEscape(username))
	return a.do(ctx, http.MethodPut, endpoint, map[string]string{"permission": "push"}, nil)
}

func (a *Adapter) client(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token()}))
}

func (a *Adapter) do(ctx context.Context, method, endpoint string, payload interface{}, target interface{}) error {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// statusError maps an error response onto the domain sentinels.
func statusError(resp *http.Response) error {
	var apiErr struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	detail := apiErr.Message
	for _, e := range apiErr.Errors {
		if e.Message != "" {
			detail += ": " + e.Message
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("github API error: %s: %w", resp.Status, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("github API error: %s: %w", resp.Status, domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(detail, "already exists"):
		return fmt.Errorf("github API error: %s: %w", detail, domain.ErrAlreadyExists)
	case detail != "":
		return fmt.Errorf("github API error: %s: %s", resp.Status, detail)
	}
	return fmt.Errorf("github API error: %s", resp.Status)
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

// repoResponse is the raw GitHub API response shape for a repository.
type repoResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	CloneURL string `json:"clone_url"`
	HTMLURL  string `json:"html_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (r repoResponse) toRepository() domain.Repository {
	return domain.Repository{
		Owner:     r.Owner.Login,
		Name:      r.Name,
		RemoteURL: r.CloneURL,
		WebURL:    r.HTMLURL,
	}
}
