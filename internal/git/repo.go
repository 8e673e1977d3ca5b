package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	log "github.com/sirupsen/logrus"
)

// Signature identifies the author of the initial commit.
type Signature struct {
	Name  string
	Email string
}

// DefaultSignature reads user.name and user.email from the global git config.
// name, when not empty, replaces the configured user name.
func DefaultSignature(name string) Signature {
	sig := Signature{Name: name}
	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		log.Debugf("reading global git config: %v", err)
	} else {
		if sig.Name == "" {
			sig.Name = cfg.User.Name
		}
		sig.Email = cfg.User.Email
	}
	if sig.Name == "" {
		sig.Name = "kickstart"
	}
	return sig
}

// Credentials authenticate HTTPS pushes. A zero value pushes without authentication.
type Credentials struct {
	Username string
	Token    string
}

func (c Credentials) method() transport.AuthMethod {
	if c.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: c.Username, Password: c.Token}
}

// Clone fetches the template at url into dir. Remote clones are shallow.
// ref selects a branch; empty means the remote's default branch.
func Clone(ctx context.Context, url string, dir string, ref string) error {
	opts := &gogit.CloneOptions{
		URL:          url,
		SingleBranch: true,
	}
	if isRemoteURL(url) {
		opts.Depth = 1
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}
	if _, err := gogit.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("cloning %s: %w", url, err)
	}
	return nil
}

// InitAndCommit creates a fresh repository in dir on branch, stages every file and
// records a single commit. It returns the commit hash.
func InitAndCommit(dir string, branch string, message string, author Signature) (string, error) {
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	if err != nil {
		return "", fmt.Errorf("initializing repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging files: %w", err)
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: author.Name, Email: author.Email, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// PushNewRemote registers remoteURL as origin of the repository in dir and pushes branch to it.
func PushNewRemote(ctx context.Context, dir string, remoteURL string, branch string, creds Credentials) error {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	}); err != nil {
		return fmt.Errorf("adding origin: %w", err)
	}
	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       creds.method(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", remoteURL, err)
	}
	return nil
}

func isRemoteURL(url string) bool {
	return strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "ssh://") ||
		strings.HasPrefix(url, "git@")
}
