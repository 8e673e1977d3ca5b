package domain

// Project holds the naming values collected from the operator.
type Project struct {
	Name        string
	Slug        string
	Description string
	Author      string
}

// RemoteKind selects where the new repository is provisioned.
type RemoteKind string

const (
	RemoteNone   RemoteKind = "none"
	RemoteGitHub RemoteKind = "github"
	RemoteGitLab RemoteKind = "gitlab"
)

// ParseRemoteKind maps a flag value to a RemoteKind. An empty value means RemoteNone.
func ParseRemoteKind(s string) (RemoteKind, bool) {
	switch RemoteKind(s) {
	case "", RemoteNone:
		return RemoteNone, true
	case RemoteGitHub:
		return RemoteGitHub, true
	case RemoteGitLab:
		return RemoteGitLab, true
	}
	return "", false
}
