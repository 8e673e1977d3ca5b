package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waabox/kickstart/internal/auth"
	"github.com/waabox/kickstart/internal/config"
	"github.com/waabox/kickstart/internal/domain"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "login github|gitlab",
		Short:     "Authorize kickstart with a hosting provider using the device flow",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.RemoteGitHub), string(domain.RemoteGitLab)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := domain.ParseRemoteKind(args[0])
			if !ok || kind == domain.RemoteNone {
				return fmt.Errorf("unknown provider %q: use github or gitlab", args[0])
			}
			return a.login(cmd.Context(), kind)
		},
	}
}

// login runs the device flow for kind and persists the resulting token.
// All prompts are written to stderr so stdout remains clean for piping.
func (a *app) login(ctx context.Context, kind domain.RemoteKind) error {
	switch kind {
	case domain.RemoteGitHub:
		clientID := a.cfg.GitHub.ClientID
		if clientID == "" {
			clientID = defaultGitHubClientID
		}
		if clientID == "" {
			return fmt.Errorf("github.client_id is not set in config: add it to %s", a.configPath)
		}
		flow := auth.NewGitHubDeviceFlow(clientID, "")
		fmt.Fprintf(os.Stderr, "Starting %s authentication...\n", flow.Provider())
		resp, err := flow.GetToken(ctx, auth.GitHubScopes)
		if err != nil {
			return fmt.Errorf("%s authentication failed: %w", flow.Provider(), err)
		}
		a.cfg.GitHub.Token = resp.AccessToken
	case domain.RemoteGitLab:
		clientID := a.cfg.GitLab.ClientID
		if clientID == "" {
			clientID = defaultGitLabClientID
		}
		flow := auth.NewGitLabDeviceFlow(clientID, a.cfg.GitLabURL())
		fmt.Fprintf(os.Stderr, "Starting %s authentication...\n", flow.Provider())
		resp, err := flow.GetToken(ctx, auth.GitLabScopes)
		if err != nil {
			return fmt.Errorf("%s authentication failed: %w", flow.Provider(), err)
		}
		a.cfg.GitLab.Token = resp.AccessToken
		a.cfg.GitLab.RefreshToken = resp.RefreshToken
	default:
		return fmt.Errorf("no login for remote %q", kind)
	}

	if err := config.Save(a.configPath, a.cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save token to config: %v (you will need to re-authenticate next run)\n", err)
		return nil
	}
	fmt.Fprintf(os.Stderr, "Authenticated. Token saved to %s\n", a.configPath)
	return nil
}

// hasToken reports whether a token is already available for kind.
func (a *app) hasToken(kind domain.RemoteKind) bool {
	switch kind {
	case domain.RemoteGitHub:
		return a.cfg.GitHubToken() != ""
	case domain.RemoteGitLab:
		return a.cfg.GitLabToken() != ""
	}
	return true
}
