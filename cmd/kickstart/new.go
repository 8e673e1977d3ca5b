package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/waabox/kickstart/internal/auth"
	"github.com/waabox/kickstart/internal/deps"
	"github.com/waabox/kickstart/internal/domain"
	"github.com/waabox/kickstart/internal/exec"
	"github.com/waabox/kickstart/internal/git"
	"github.com/waabox/kickstart/internal/provider"
	githubprovider "github.com/waabox/kickstart/internal/provider/github"
	gitlabprovider "github.com/waabox/kickstart/internal/provider/gitlab"
	"github.com/waabox/kickstart/internal/render"
	"github.com/waabox/kickstart/internal/scaffold"
	"github.com/waabox/kickstart/internal/template"
	"github.com/waabox/kickstart/internal/tui"
)

type newFlags struct {
	template      string
	name          string
	description   string
	author        string
	remote        string
	org           string
	private       bool
	collaborators []string
	noPush        bool
	noInstall     bool
	noEditor      bool
	yes           bool
}

func newNewCmd(a *app) *cobra.Command {
	f := &newFlags{}
	cmd := &cobra.Command{
		Use:   "new [directory]",
		Short: "Create a project from a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return a.runNew(cmd.Context(), f, dir)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.template, "template", "t", "", "template: local directory, git URL or owner/repo[#branch]")
	flags.StringVar(&f.name, "name", "", "project name")
	flags.StringVar(&f.description, "description", "", "project description")
	flags.StringVar(&f.author, "author", "", "author name (defaults to git user.name)")
	flags.StringVar(&f.remote, "remote", "none", "create a remote repository: none, github or gitlab")
	flags.StringVar(&f.org, "org", "", "GitHub organization or GitLab group that owns the repository")
	flags.BoolVar(&f.private, "private", false, "create a private repository")
	flags.StringArrayVar(&f.collaborators, "collaborator", nil, "username to invite (repeatable)")
	flags.BoolVar(&f.noPush, "no-push", false, "create the remote repository without pushing to it")
	flags.BoolVar(&f.noInstall, "no-install", false, "skip the install command")
	flags.BoolVar(&f.noEditor, "no-editor", false, "do not open the editor")
	flags.BoolVarP(&f.yes, "yes", "y", false, "do not prompt; use flags and defaults")
	return cmd
}

func (a *app) runNew(ctx context.Context, f *newFlags, dir string) error {
	kind, ok := domain.ParseRemoteKind(f.remote)
	if !ok {
		return fmt.Errorf("invalid --remote %q: use none, github or gitlab", f.remote)
	}

	rawTemplate := f.template
	if rawTemplate == "" {
		rawTemplate = a.cfg.TemplateOrDefault()
	}
	src, err := git.ParseTemplateSource(rawTemplate)
	if err != nil {
		return err
	}

	project, err := a.collectProject(f, dir)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = project.Slug
	}

	if kind != domain.RemoteNone && !a.hasToken(kind) {
		fmt.Fprintf(os.Stderr, "No %s token found.\n", kind)
		if err := a.login(ctx, kind); err != nil {
			return err
		}
	}

	registry, creds := a.provisioners()
	steps := &scaffold.Steps{
		Runner:      exec.NewRealRunner(),
		Registry:    registry,
		Credentials: creds,
		Stdout:      os.Stderr,
		Stderr:      os.Stderr,
		Stdin:       os.Stdin,
		Terminal:    os.Stdout,
	}
	pipeline := scaffold.NewPipeline(steps)
	pipeline.OnStep(func(step string) {
		fmt.Fprintf(os.Stderr, "%s %s\n", tui.HelpStyle.Render("→"), step)
	})

	st, err := pipeline.Run(ctx, scaffold.Options{
		Directory:      dir,
		Template:       src,
		Project:        project,
		Remote:         kind,
		Namespace:      a.namespace(kind, f.org),
		Private:        f.private,
		Collaborators:  f.collaborators,
		Branch:         a.cfg.DefaultBranchOrDefault(),
		InstallCommand: a.cfg.InstallCommand,
		Editor:         a.cfg.EditorCommand(),
		SkipPush:       f.noPush,
		SkipInstall:    f.noInstall,
		SkipEditor:     f.noEditor,
		Requirements:   deps.FromConfig(a.cfg.Requirements),
	})
	if err != nil {
		var expired *provider.AuthExpiredError
		if errors.As(err, &expired) {
			return fmt.Errorf("%w (project files are kept in %s)", err, dir)
		}
		return err
	}

	summary := render.Summary{
		ProjectName: project.Name,
		Directory:   dir,
		RemoteURL:   st.Repository.RemoteURL,
		WebURL:      st.Repository.WebURL,
	}
	if st.Repository.RemoteURL != "" && !st.Pushed {
		summary.PushCommand = fmt.Sprintf("git remote add origin %s && git push -u origin %s", st.Repository.RemoteURL, st.Branch)
	}
	if !st.Installed {
		summary.InstallCommand = a.cfg.InstallCommand
	}
	if !st.EditorOpened {
		summary.Editor = a.cfg.EditorCommand()
	}
	for _, w := range st.Warnings {
		summary.Warnings = append(summary.Warnings, w.Message)
	}
	return render.NextSteps(os.Stdout, summary)
}

// collectProject fills the project from flags, prompting for the rest unless --yes is set.
func (a *app) collectProject(f *newFlags, dir string) (domain.Project, error) {
	name := f.name
	if name == "" && dir != "" {
		name = filepath.Base(dir)
	}
	author := f.author
	if author == "" {
		author = git.DefaultSignature("").Name
	}
	description := f.description

	if !f.yes {
		answers, err := tui.Ask("New project", []tui.Field{
			{Key: "name", Label: "Project name", Default: name, Required: true},
			{Key: "description", Label: "Description", Default: description},
			{Key: "author", Label: "Author", Default: author},
		}, tea.WithOutput(os.Stderr))
		if err != nil {
			return domain.Project{}, err
		}
		name, description, author = answers["name"], answers["description"], answers["author"]
	}

	if name == "" {
		return domain.Project{}, errors.New("project name is required: pass --name or a directory")
	}
	return domain.Project{
		Name:        name,
		Slug:        template.Slugify(name),
		Description: description,
		Author:      author,
	}, nil
}

func (a *app) namespace(kind domain.RemoteKind, flag string) string {
	if flag != "" {
		return flag
	}
	switch kind {
	case domain.RemoteGitHub:
		return a.cfg.GitHub.Org
	case domain.RemoteGitLab:
		return a.cfg.GitLab.Group
	}
	return ""
}

// provisioners registers the hosting adapters. GitLab requests retry once after a
// silent refresh; the refreshed token is saved and used for the push as well.
func (a *app) provisioners() (*provider.Registry, scaffold.CredentialsFunc) {
	gh := githubprovider.NewAdapter(a.cfg.GitHubToken(), "")
	gl := gitlabprovider.NewAdapter(a.cfg.GitLabToken(), a.cfg.GitLabURL())
	tm := auth.NewTokenManager(&a.cfg, a.configPath, defaultGitLabClientID)

	registry := provider.NewRegistry()
	registry.Register(string(domain.RemoteGitHub), gh)
	registry.Register(string(domain.RemoteGitLab), provider.NewRefreshingProvisioner(gl, "gitlab", tm.RefreshGitLab, gl.SetToken))

	creds := func(kind domain.RemoteKind) git.Credentials {
		switch kind {
		case domain.RemoteGitHub:
			return git.Credentials{Username: githubprovider.PushUsername, Token: gh.Token()}
		case domain.RemoteGitLab:
			return git.Credentials{Username: gitlabprovider.PushUsername, Token: gl.Token()}
		}
		return git.Credentials{}
	}
	return registry, creds
}
