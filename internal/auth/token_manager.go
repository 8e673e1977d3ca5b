package auth

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/waabox/kickstart/internal/config"
)

// TokenManager handles silent token refresh and config persistence.
type TokenManager struct {
	cfg              *config.Config
	configPath       string
	fallbackClientID string
	opts             []Option
	mu               sync.Mutex
}

// NewTokenManager creates a TokenManager.
// fallbackClientID is used when the config does not set gitlab.client_id.
func NewTokenManager(cfg *config.Config, configPath string, fallbackClientID string, opts ...Option) *TokenManager {
	return &TokenManager{
		cfg:              cfg,
		configPath:       configPath,
		fallbackClientID: fallbackClientID,
		opts:             opts,
	}
}

// RefreshGitLab attempts to refresh the GitLab access token using the stored refresh token.
// On success, it updates the config in memory and persists it to disk.
// Returns the new access token or an error. A failure to save is logged, not returned.
func (tm *TokenManager) RefreshGitLab(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cfg.GitLab.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token available")
	}

	clientID := tm.cfg.GitLab.ClientID
	if clientID == "" {
		clientID = tm.fallbackClientID
	}

	flow := NewGitLabDeviceFlow(clientID, tm.cfg.GitLabURL(), tm.opts...)
	resp, err := flow.RefreshToken(ctx, tm.cfg.GitLab.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing GitLab token: %w", err)
	}

	tm.cfg.GitLab.Token = resp.AccessToken
	tm.cfg.GitLab.RefreshToken = resp.RefreshToken

	if tm.configPath != "" {
		if saveErr := config.Save(tm.configPath, *tm.cfg); saveErr != nil {
			// the new token is valid for this run even if it cannot be persisted
			log.WithError(saveErr).Warn("GitLab token refreshed but config could not be saved")
		}
	}

	return resp.AccessToken, nil
}
