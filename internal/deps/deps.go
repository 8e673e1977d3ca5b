// Package deps verifies that the external tools a scaffold needs are installed
// and recent enough.
package deps

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/waabox/kickstart/internal/config"
	"github.com/waabox/kickstart/internal/exec"
)

// Status is the outcome of checking one requirement.
type Status string

const (
	StatusOK       Status = "ok"
	StatusMissing  Status = "missing"
	StatusOutdated Status = "outdated"
	StatusUnknown  Status = "unknown" // installed, but its version could not be read
)

// Requirement names a binary and the lowest acceptable version.
// An empty MinVersion accepts any installed version.
type Requirement struct {
	Name        string
	MinVersion  string
	VersionArgs []string // defaults to --version
}

// Result reports the check of a single requirement.
type Result struct {
	Requirement Requirement
	Status      Status
	Found       string
}

func (r Result) String() string {
	switch r.Status {
	case StatusOK:
		return fmt.Sprintf("%s %s", r.Requirement.Name, r.Found)
	case StatusMissing:
		return fmt.Sprintf("%s not found", r.Requirement.Name)
	case StatusOutdated:
		return fmt.Sprintf("%s %s is older than %s", r.Requirement.Name, r.Found, r.Requirement.MinVersion)
	}
	return fmt.Sprintf("%s installed, version unknown", r.Requirement.Name)
}

// DefaultRequirements are checked when the configuration lists none.
var DefaultRequirements = []Requirement{
	{Name: "git", MinVersion: "2.28.0"},
}

// FromConfig converts configured requirements, falling back to DefaultRequirements.
func FromConfig(reqs []config.Requirement) []Requirement {
	if len(reqs) == 0 {
		return DefaultRequirements
	}
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = Requirement{Name: r.Name, MinVersion: r.MinVersion}
	}
	return out
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+){0,2}`)

// Check runs each requirement's version command and classifies the result.
func Check(ctx context.Context, runner exec.CommandRunner, reqs []Requirement) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res := check(ctx, runner, req)
		log.WithFields(log.Fields{"name": req.Name, "status": res.Status, "found": res.Found}).Debug("requirement checked")
		results = append(results, res)
	}
	return results
}

func check(ctx context.Context, runner exec.CommandRunner, req Requirement) Result {
	args := req.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, err := runner.Run(ctx, req.Name, args, exec.RunOpts{})
	if err != nil {
		return Result{Requirement: req, Status: StatusMissing}
	}

	found := versionPattern.FindString(out.Stdout + "\n" + out.Stderr)
	if found == "" {
		return Result{Requirement: req, Status: StatusUnknown}
	}
	if req.MinVersion == "" {
		return Result{Requirement: req, Status: StatusOK, Found: found}
	}
	if semver.Compare(canonical(found), canonical(req.MinVersion)) < 0 {
		return Result{Requirement: req, Status: StatusOutdated, Found: found}
	}
	return Result{Requirement: req, Status: StatusOK, Found: found}
}

// canonical turns "2.39" into "v2.39" for semver, which also accepts
// the short major and major.minor forms.
func canonical(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return "v" + v
}

// Failed returns the results that block a scaffold: missing or outdated tools.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Status == StatusMissing || r.Status == StatusOutdated {
			failed = append(failed, r)
		}
	}
	return failed
}
