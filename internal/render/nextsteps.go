// Package render prints the summary shown after a project has been created.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/waabox/kickstart/internal/tui"
)

// Summary is what the operator needs to know once scaffolding finishes.
type Summary struct {
	ProjectName    string
	Directory      string
	RemoteURL      string
	WebURL         string
	PushCommand    string // shown as a next step when the first push was skipped
	InstallCommand string // shown as a next step when install was skipped or failed
	Editor         string // shown as a next step when the editor was not opened
	Warnings       []string
}

// NextSteps writes the summary and the commands left to run.
func NextSteps(w io.Writer, s Summary) error {
	var sb strings.Builder

	sb.WriteString(tui.SuccessStyle.Render(fmt.Sprintf("✓ Created %s", s.ProjectName)))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %s %s\n", tui.LabelStyle.Render("Directory:"), s.Directory))
	if s.WebURL != "" {
		sb.WriteString(fmt.Sprintf("  %s %s\n", tui.LabelStyle.Render("Repository:"), s.WebURL))
	} else if s.RemoteURL != "" {
		sb.WriteString(fmt.Sprintf("  %s %s\n", tui.LabelStyle.Render("Repository:"), s.RemoteURL))
	}

	if len(s.Warnings) > 0 {
		sb.WriteString("\n")
		for _, warning := range s.Warnings {
			sb.WriteString(tui.WarningStyle.Render("! "+warning) + "\n")
		}
	}

	sb.WriteString("\n" + tui.LabelStyle.Render("Next steps:") + "\n")
	for _, cmd := range commands(s) {
		sb.WriteString("  " + tui.CommandStyle.Render(cmd) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func commands(s Summary) []string {
	cmds := []string{"cd " + quote(s.Directory)}
	if s.PushCommand != "" {
		cmds = append(cmds, s.PushCommand)
	}
	if s.InstallCommand != "" {
		cmds = append(cmds, s.InstallCommand)
	}
	if s.Editor != "" {
		cmds = append(cmds, s.Editor+" .")
	}
	return cmds
}

func quote(path string) string {
	if strings.ContainsAny(path, " \t'\"") {
		return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
	}
	return path
}
