package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/waabox/kickstart/internal/deps"
	"github.com/waabox/kickstart/internal/domain"
	"github.com/waabox/kickstart/internal/exec"
	"github.com/waabox/kickstart/internal/git"
	"github.com/waabox/kickstart/internal/provider"
	"github.com/waabox/kickstart/internal/template"
)

// CredentialsFunc returns the push credentials for a remote kind.
type CredentialsFunc func(kind domain.RemoteKind) git.Credentials

// Steps is the production Service: real filesystem, git, hosting APIs and processes.
type Steps struct {
	Runner      exec.CommandRunner
	Registry    *provider.Registry
	Credentials CredentialsFunc
	Stdout      io.Writer // install output
	Stderr      io.Writer

	// Stdin and Terminal are handed to the editor so terminal editors can take over the tty.
	Stdin    io.Reader
	Terminal io.Writer
}

var _ Service = (*Steps)(nil)

func (s *Steps) CheckRequirements(ctx context.Context, st *State) error {
	st.Checks = deps.Check(ctx, s.Runner, st.Requirements)
	failed := deps.Failed(st.Checks)
	if len(failed) == 0 {
		return nil
	}
	msgs := make([]string, len(failed))
	for i, r := range failed {
		msgs[i] = r.String()
	}
	return fmt.Errorf("missing requirements: %s", strings.Join(msgs, "; "))
}

func (s *Steps) AcquireTemplate(ctx context.Context, st *State) error {
	return template.Acquire(ctx, st.Template, st.Directory)
}

func (s *Steps) ApplyPlaceholders(_ context.Context, st *State) error {
	st.Values = template.NewValues(st.Project)
	rewritten, err := template.Apply(st.Directory, st.Values)
	if err != nil {
		return err
	}
	st.Rewritten = rewritten
	log.WithField("files", len(rewritten)).Debug("placeholders applied")
	return nil
}

func (s *Steps) InitRepository(_ context.Context, st *State) error {
	message := "Initial commit"
	if st.Template.Name != "" {
		message = fmt.Sprintf("Initial commit from %s", st.Template.Name)
	}
	hash, err := git.InitAndCommit(st.Directory, st.Branch, message, git.DefaultSignature(st.Project.Author))
	if err != nil {
		return err
	}
	st.CommitHash = hash
	return nil
}

func (s *Steps) ProvisionRemote(ctx context.Context, st *State) error {
	p, err := s.provisioner(st.Remote)
	if err != nil {
		return err
	}
	name := st.Values.Slug
	if name == "" {
		name = template.Slugify(st.Project.Name)
	}
	repo, err := p.CreateRepository(ctx, domain.RemoteSpec{
		Name:        name,
		Description: st.Project.Description,
		Namespace:   st.Namespace,
		Private:     st.Private,
	})
	if err != nil {
		return err
	}
	st.Repository = repo
	return nil
}

// InviteCollaborators invites each user independently; a failure only skips that user.
func (s *Steps) InviteCollaborators(ctx context.Context, st *State) error {
	p, err := s.provisioner(st.Remote)
	if err != nil {
		return err
	}
	for _, user := range st.Collaborators {
		if err := p.AddCollaborator(ctx, st.Repository, user); err != nil {
			st.Warn(WarnInviteFailed, "could not invite %s: %v", user, err)
		}
	}
	return nil
}

func (s *Steps) provisioner(kind domain.RemoteKind) (domain.RepositoryProvisioner, error) {
	if s.Registry == nil {
		return nil, errors.New("no hosting providers configured")
	}
	return s.Registry.Detect(string(kind))
}

func (s *Steps) Push(ctx context.Context, st *State) error {
	var creds git.Credentials
	if s.Credentials != nil {
		creds = s.Credentials(st.Remote)
	}
	if err := git.PushNewRemote(ctx, st.Directory, st.Repository.RemoteURL, st.Branch, creds); err != nil {
		return err
	}
	st.Pushed = true
	return nil
}

func (s *Steps) Install(ctx context.Context, st *State) error {
	err := s.runInProject(ctx, st, st.InstallCommand, exec.RunOpts{
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	})
	if err != nil {
		return err
	}
	st.Installed = true
	return nil
}

func (s *Steps) OpenEditor(ctx context.Context, st *State) error {
	err := s.runInProject(ctx, st, st.Editor+" .", exec.RunOpts{
		Stdin:  s.Stdin,
		Stdout: s.Terminal,
		Stderr: s.Stderr,
		Attach: true,
	})
	if err != nil {
		return err
	}
	st.EditorOpened = true
	return nil
}

// runInProject runs command through the platform shell inside the project directory.
func (s *Steps) runInProject(ctx context.Context, st *State, command string, opts exec.RunOpts) error {
	if strings.TrimSpace(command) == "" {
		return errors.New("empty command")
	}
	opts.Dir = st.Directory
	name, args := exec.ShellCommand(command)
	res, err := s.Runner.Run(ctx, name, args, opts)
	if err != nil {
		return fmt.Errorf("running %q: %w", command, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d", command, res.ExitCode)
	}
	return nil
}
