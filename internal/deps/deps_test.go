package deps_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/kickstart/internal/config"
	"github.com/waabox/kickstart/internal/deps"
	"github.com/waabox/kickstart/internal/exec"
)

// stubRunner answers each binary name with a canned result.
type stubRunner struct {
	outputs map[string]exec.CmdResult
	calls   [][]string
}

func (s *stubRunner) Run(_ context.Context, name string, args []string, _ exec.RunOpts) (exec.CmdResult, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	out, ok := s.outputs[name]
	if !ok {
		return exec.CmdResult{}, errors.New("executable file not found in $PATH")
	}
	return out, nil
}

func TestCheck_ClassifiesResults(t *testing.T) {
	runner := &stubRunner{outputs: map[string]exec.CmdResult{
		"git":   {Stdout: "git version 2.43.0\n"},
		"node":  {Stdout: "v16.20.1\n"},
		"make":  {Stdout: "GNU Make 4.3\n"},
		"weird": {Stdout: "no digits here\n"},
	}}
	reqs := []deps.Requirement{
		{Name: "git", MinVersion: "2.28.0"},
		{Name: "node", MinVersion: "18"},
		{Name: "make"},
		{Name: "weird", MinVersion: "1.0.0"},
		{Name: "docker", MinVersion: "20.10"},
	}

	results := deps.Check(context.Background(), runner, reqs)
	require.Len(t, results, 5)

	assert.Equal(t, deps.StatusOK, results[0].Status)
	assert.Equal(t, "2.43.0", results[0].Found)
	assert.Equal(t, deps.StatusOutdated, results[1].Status)
	assert.Equal(t, "16.20.1", results[1].Found)
	assert.Equal(t, deps.StatusOK, results[2].Status)
	assert.Equal(t, "4.3", results[2].Found)
	assert.Equal(t, deps.StatusUnknown, results[3].Status)
	assert.Equal(t, deps.StatusMissing, results[4].Status)

	assert.Equal(t, []string{"git", "--version"}, runner.calls[0])
}

func TestCheck_VersionFromStderrAndCustomArgs(t *testing.T) {
	runner := &stubRunner{outputs: map[string]exec.CmdResult{
		"java": {Stderr: `openjdk version "21.0.2" 2024-01-16`},
	}}
	results := deps.Check(context.Background(), runner, []deps.Requirement{
		{Name: "java", MinVersion: "17", VersionArgs: []string{"-version"}},
	})

	require.Len(t, results, 1)
	assert.Equal(t, deps.StatusOK, results[0].Status)
	assert.Equal(t, "21.0.2", results[0].Found)
	assert.Equal(t, []string{"java", "-version"}, runner.calls[0])
}

func TestCheck_MinorVersionComparison(t *testing.T) {
	runner := &stubRunner{outputs: map[string]exec.CmdResult{"git": {Stdout: "git version 2.9.5"}}}
	results := deps.Check(context.Background(), runner, []deps.Requirement{{Name: "git", MinVersion: "2.28.0"}})
	assert.Equal(t, deps.StatusOutdated, results[0].Status, "2.9.5 must sort below 2.28.0")
}

func TestFailed_ReturnsMissingAndOutdatedOnly(t *testing.T) {
	results := []deps.Result{
		{Requirement: deps.Requirement{Name: "a"}, Status: deps.StatusOK},
		{Requirement: deps.Requirement{Name: "b"}, Status: deps.StatusMissing},
		{Requirement: deps.Requirement{Name: "c"}, Status: deps.StatusOutdated},
		{Requirement: deps.Requirement{Name: "d"}, Status: deps.StatusUnknown},
	}
	failed := deps.Failed(results)
	require.Len(t, failed, 2)
	assert.Equal(t, "b", failed[0].Requirement.Name)
	assert.Equal(t, "c", failed[1].Requirement.Name)
}

func TestFromConfig_FallsBackToDefaults(t *testing.T) {
	assert.Equal(t, deps.DefaultRequirements, deps.FromConfig(nil))

	got := deps.FromConfig([]config.Requirement{{Name: "node", MinVersion: "18"}})
	assert.Equal(t, []deps.Requirement{{Name: "node", MinVersion: "18"}}, got)
}

func TestResult_String(t *testing.T) {
	req := deps.Requirement{Name: "git", MinVersion: "2.28.0"}
	assert.Equal(t, "git 2.43.0", deps.Result{Requirement: req, Status: deps.StatusOK, Found: "2.43.0"}.String())
	assert.Equal(t, "git not found", deps.Result{Requirement: req, Status: deps.StatusMissing}.String())
	assert.Equal(t, "git 2.9.5 is older than 2.28.0",
		deps.Result{Requirement: req, Status: deps.StatusOutdated, Found: "2.9.5"}.String())
}
