package domain

// Repository represents a repository on a hosting service.
type Repository struct {
	ID        string // provider-specific identifier (GitLab project id); empty for GitHub
	Owner     string
	Name      string
	RemoteURL string // HTTPS clone URL
	WebURL    string
}

// RemoteSpec describes the repository to create on a hosting service.
type RemoteSpec struct {
	Name        string
	Description string
	Namespace   string // organization (GitHub) or group (GitLab); empty for the authenticated user
	Private     bool
}
