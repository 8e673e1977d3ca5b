package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/waabox/kickstart/internal/domain"
)

const defaultBaseURL = "https://gitlab.com"

// PushUsername is the HTTP basic auth user GitLab accepts alongside an OAuth token.
const PushUsername = "oauth2"

// developerAccess is GitLab's Developer role.
const developerAccess = 30

// Adapter implements domain.RepositoryProvisioner for GitLab.
type Adapter struct {
	mu      sync.Mutex
	token   string
	baseURL string
	base    *http.Client
}

// Ensure Adapter fully implements domain.RepositoryProvisioner.
var _ domain.RepositoryProvisioner = (*Adapter)(nil)

// NewAdapter creates a GitLab adapter.
// baseURL can be a self-hosted GitLab instance URL; pass empty string for gitlab.com.
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

// CreateRepository creates a project under the authenticated user, or under the
// group named by spec.Namespace.
func (a *Adapter) CreateRepository(ctx context.Context, spec domain.RemoteSpec) (domain.Repository, error) {
	visibility := "public"
	if spec.Private {
		visibility = "private"
	}
	body := createProjectRequest{
		Name:        spec.Name,
		Path:        spec.Name,
		Description: spec.Description,
		Visibility:  visibility,
	}
	if spec.Namespace != "" {
		var ns namespaceResponse
		apiURL := fmt.Sprintf("%s/api/v4/namespaces/%s", a.baseURL, url.PathEscape(spec.Namespace))
		if err := a.do(ctx, http.MethodGet, apiURL, nil, &ns); err != nil {
			return domain.Repository{}, fmt.Errorf("looking up group %s: %w", spec.Namespace, err)
		}
		body.NamespaceID = ns.ID
	}

	var created projectResponse
	if err := a.do(ctx, http.MethodPost, a.baseURL+"/api/v4/projects", body, &created); err != nil {
		return domain.Repository{}, err
	}
	log.WithFields(log.Fields{"project": created.PathWithNamespace, "visibility": visibility}).Debug("gitlab project created")
	return created.toRepository(), nil
}

// AddCollaborator adds username to the project with the Developer role.
// A user who is already a member is not an error.
func (a *Adapter) AddCollaborator(ctx context.Context, repo domain.Repository, username string) error {
	var users []userResponse
	apiURL := fmt.Sprintf("%s/api/v4/users?username=%s", a.baseURL, url.QueryEscape(username))
	if err := a.do(ctx, http.MethodGet, apiURL, nil, &users); err != nil {
		return fmt.Errorf("looking up user %s: %w", username, err)
	}
	if len(users) == 0 {
		return fmt.Errorf("gitlab user %s: %w", username, domain.ErrNotFound)
	}

	projectID := repo.ID
	if projectID == "" {
		projectID = url.PathEscape(repo.Owner + "/" + repo.Name)
	}
	apiURL = fmt.Sprintf("%s/api/v4/projects/%s/members", a.baseURL, projectID)
	err := a.do(ctx, http.MethodPost, apiURL, addMemberRequest{UserID: users[0].ID, AccessLevel: developerAccess}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		log.WithField("user", username).Debug("already a project member")
		return nil
	}
	return err
}

func (a *Adapter) client(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token()}))
}

func (a *Adapter) do(ctx context.Context, method, apiURL string, payload interface{}, target interface{}) error {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
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

// APIError is a non-2xx GitLab response. Err holds the matching domain sentinel, if any.
type APIError struct {
	StatusCode int
	Status     string
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil && e.Detail != "" && errors.Is(e.Err, domain.ErrAlreadyExists):
		return fmt.Sprintf("gitlab API error: %s: %v", e.Detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("gitlab API error: %s: %v", e.Status, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("gitlab API error: %s: %s", e.Status, e.Detail)
	}
	return "gitlab API error: " + e.Status
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// statusError maps an error response onto the domain sentinels. GitLab reports
// validation failures as a message that is either a string or a field map.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := strings.TrimSpace(string(raw))
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case len(body.Message) > 0:
			detail = string(body.Message)
		case body.Error != "":
			detail = body.Error
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Detail: detail}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Err = domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Err = domain.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(detail, "has already been taken"):
		apiErr.Err = domain.ErrAlreadyExists
	}
	return apiErr
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	NamespaceID int64  `json:"namespace_id,omitempty"`
}

type addMemberRequest struct {
	UserID      int64 `json:"user_id"`
	AccessLevel int   `json:"access_level"`
}

type namespaceResponse struct {
	ID       int64  `json:"id"`
	FullPath string `json:"full_path"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// projectResponse is the raw GitLab API response shape for a project.
type projectResponse struct {
	ID                int64  `json:"id"`
	Path              string `json:"path"`
	PathWithNamespace string `json:"path_with_namespace"`
	HTTPURLToRepo     string `json:"http_url_to_repo"`
	WebURL            string `json:"web_url"`
	Namespace         struct {
		FullPath string `json:"full_path"`
	} `json:"namespace"`
}

func (p projectResponse) toRepository() domain.Repository {
	return domain.Repository{
		ID:        strconv.FormatInt(p.ID, 10),
		Owner:     p.Namespace.FullPath,
		Name:      p.Path,
		RemoteURL: p.HTTPURLToRepo,
		WebURL:    p.WebURL,
	}
}
