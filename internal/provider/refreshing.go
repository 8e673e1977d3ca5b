// internal/provider/refreshing.go
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/waabox/kickstart/internal/domain"
)

// AuthExpiredError is returned when both the access token and refresh token are
// invalid, and interactive re-authentication is required.
type AuthExpiredError struct {
	Provider string
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s session expired: run 'kickstart login %s'", e.Provider, e.Provider)
}

// RefreshingProvisioner wraps a RepositoryProvisioner and transparently handles 401 errors
// by attempting a silent token refresh. If refresh fails, it returns AuthExpiredError.
type RefreshingProvisioner struct {
	inner       domain.RepositoryProvisioner
	provider    string
	refreshFn   func(ctx context.Context) (string, error)
	updateToken func(string)
}

var _ domain.RepositoryProvisioner = (*RefreshingProvisioner)(nil)

// NewRefreshingProvisioner creates a RefreshingProvisioner.
// refreshFn is called on 401 to attempt a silent token refresh; returns new access token.
// updateToken is called after successful refresh to inject the new token into the adapter.
func NewRefreshingProvisioner(
	inner domain.RepositoryProvisioner,
	providerName string,
	refreshFn func(ctx context.Context) (string, error),
	updateToken func(string),
) *RefreshingProvisioner {
	return &RefreshingProvisioner{
		inner:       inner,
		provider:    providerName,
		refreshFn:   refreshFn,
		updateToken: updateToken,
	}
}

func (rp *RefreshingProvisioner) handleUnauthorized(ctx context.Context, retry func() error) error {
	newToken, refreshErr := rp.refreshFn(ctx)
	if refreshErr != nil {
		return &AuthExpiredError{Provider: rp.provider}
	}
	rp.updateToken(newToken)
	return retry()
}

func (rp *RefreshingProvisioner) CreateRepository(ctx context.Context, spec domain.RemoteSpec) (domain.Repository, error) {
	result, err := rp.inner.CreateRepository(ctx, spec)
	if err != nil && errors.Is(err, domain.ErrUnauthorized) {
		var retryResult domain.Repository
		retryErr := rp.handleUnauthorized(ctx, func() error {
			var e error
			retryResult, e = rp.inner.CreateRepository(ctx, spec)
			return e
		})
		if retryErr != nil {
			return domain.Repository{}, retryErr
		}
		return retryResult, nil
	}
	return result, err
}

func (rp *RefreshingProvisioner) AddCollaborator(ctx context.Context, repo domain.Repository, username string) error {
	err := rp.inner.AddCollaborator(ctx, repo, username)
	if err != nil && errors.Is(err, domain.ErrUnauthorized) {
		return rp.handleUnauthorized(ctx, func() error {
			return rp.inner.AddCollaborator(ctx, repo, username)
		})
	}
	return err
}
