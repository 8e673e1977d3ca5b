// Package scaffold creates a project from a template in a fixed sequence of steps.
// The pipeline short-circuits on the first failing step; a few late steps only
// record warnings because the project already exists when they run.
package scaffold

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/waabox/kickstart/internal/deps"
	"github.com/waabox/kickstart/internal/domain"
	"github.com/waabox/kickstart/internal/git"
	"github.com/waabox/kickstart/internal/template"
)

// Step name constants.
const (
	StepCheckRequirements   = "check-requirements"
	StepAcquireTemplate     = "acquire-template"
	StepApplyPlaceholders   = "apply-placeholders"
	StepInitRepository      = "init-repository"
	StepProvisionRemote     = "provision-remote"
	StepInviteCollaborators = "invite-collaborators"
	StepPush                = "push"
	StepInstall             = "install"
	StepOpenEditor          = "open-editor"
)

// Options contains the inputs for creating a project.
type Options struct {
	Directory      string
	Template       git.TemplateSource
	Project        domain.Project
	Remote         domain.RemoteKind
	Namespace      string // organization or group; empty for the authenticated user
	Private        bool
	Collaborators  []string
	Branch         string
	InstallCommand string
	Editor         string
	SkipPush       bool // create the remote but leave the first push to the operator
	SkipInstall    bool
	SkipEditor     bool
	Requirements   []deps.Requirement
}

// Warning represents a non-fatal problem found while scaffolding.
type Warning struct {
	// Code is a stable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string
}

// Warning codes.
const (
	WarnInviteFailed  = "W_INVITE_FAILED"
	WarnInstallFailed = "W_INSTALL_FAILED"
	WarnEditorFailed  = "W_EDITOR_FAILED"
)

// State accumulates results as steps execute.
type State struct {
	Options

	// Populated by CheckRequirements
	Checks []deps.Result

	// Populated by ApplyPlaceholders
	Values    template.Values
	Rewritten []string

	// Populated by InitRepository
	CommitHash string

	// Populated by ProvisionRemote
	Repository domain.Repository

	// Set by Push, Install and OpenEditor when they succeed
	Pushed       bool
	Installed    bool
	EditorOpened bool

	// Accumulated warnings (non-fatal)
	Warnings []Warning
}

// Warn records a non-fatal warning.
func (st *State) Warn(code, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.WithField("code", code).Warn(msg)
	st.Warnings = append(st.Warnings, Warning{Code: code, Message: msg})
}

// Service defines the step implementations, one method per step.
// Implementations are injected so the pipeline can be tested without git, network or fs.
type Service interface {
	CheckRequirements(ctx context.Context, st *State) error
	AcquireTemplate(ctx context.Context, st *State) error
	ApplyPlaceholders(ctx context.Context, st *State) error
	InitRepository(ctx context.Context, st *State) error
	ProvisionRemote(ctx context.Context, st *State) error
	InviteCollaborators(ctx context.Context, st *State) error
	Push(ctx context.Context, st *State) error
	Install(ctx context.Context, st *State) error
	OpenEditor(ctx context.Context, st *State) error
}

// StepError names the step that stopped the pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type step struct {
	name string
	run  func(context.Context, *State) error
	skip func(*State) bool
	// warnCode, when set, turns a failure into a warning.
	warnCode string
}

// Pipeline orchestrates the execution of scaffold steps in a fixed order.
type Pipeline struct {
	svc      Service
	progress func(step string)
}

// NewPipeline creates a pipeline with the given service implementation.
func NewPipeline(svc Service) *Pipeline {
	return &Pipeline{svc: svc, progress: func(string) {}}
}

// OnStep registers fn to be called before each step that is not skipped.
func (p *Pipeline) OnStep(fn func(step string)) {
	p.progress = fn
}

func (p *Pipeline) steps() []step {
	noRemote := func(st *State) bool { return st.Remote == domain.RemoteNone || st.Remote == "" }
	return []step{
		{name: StepCheckRequirements, run: p.svc.CheckRequirements},
		{name: StepAcquireTemplate, run: p.svc.AcquireTemplate},
		{name: StepApplyPlaceholders, run: p.svc.ApplyPlaceholders},
		{name: StepInitRepository, run: p.svc.InitRepository},
		{name: StepProvisionRemote, run: p.svc.ProvisionRemote, skip: noRemote},
		{
			name:     StepInviteCollaborators,
			run:      p.svc.InviteCollaborators,
			skip:     func(st *State) bool { return noRemote(st) || len(st.Collaborators) == 0 },
			warnCode: WarnInviteFailed,
		},
		{name: StepPush, run: p.svc.Push, skip: func(st *State) bool { return noRemote(st) || st.SkipPush }},
		{
			name:     StepInstall,
			run:      p.svc.Install,
			skip:     func(st *State) bool { return st.SkipInstall || st.InstallCommand == "" },
			warnCode: WarnInstallFailed,
		},
		{
			name:     StepOpenEditor,
			run:      p.svc.OpenEditor,
			skip:     func(st *State) bool { return st.SkipEditor || st.Editor == "" },
			warnCode: WarnEditorFailed,
		},
	}
}

// Run executes the steps in order:
//  1. check-requirements
//  2. acquire-template
//  3. apply-placeholders
//  4. init-repository
//  5. provision-remote      (skipped without a remote)
//  6. invite-collaborators  (skipped without collaborators; failure is a warning)
//  7. push                  (skipped without a remote)
//  8. install               (skipped when disabled; failure is a warning)
//  9. open-editor           (skipped when disabled; failure is a warning)
//
// The returned state is never nil, so callers can report partial progress.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*State, error) {
	st := &State{Options: opts}
	for _, s := range p.steps() {
		if s.skip != nil && s.skip(st) {
			log.WithField("step", s.name).Debug("step skipped")
			continue
		}
		if err := ctx.Err(); err != nil {
			return st, &StepError{Step: s.name, Err: err}
		}
		p.progress(s.name)
		log.WithField("step", s.name).Debug("step started")
		if err := s.run(ctx, st); err != nil {
			if s.warnCode != "" {
				st.Warn(s.warnCode, "%s: %v", s.name, err)
				continue
			}
			return st, &StepError{Step: s.name, Err: err}
		}
	}
	return st, nil
}
