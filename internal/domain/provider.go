package domain

import "context"

// RepositoryProvisioner is the port interface that all hosting provider adapters must implement.
// The domain does not know about GitHub, GitLab, or any specific hosting service.
type RepositoryProvisioner interface {
	CreateRepository(ctx context.Context, spec RemoteSpec) (Repository, error)
	AddCollaborator(ctx context.Context, repo Repository, username string) error
}
