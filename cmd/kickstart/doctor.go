package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waabox/kickstart/internal/deps"
	"github.com/waabox/kickstart/internal/exec"
	"github.com/waabox/kickstart/internal/tui"
)

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that required tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := deps.Check(cmd.Context(), exec.NewRealRunner(), deps.FromConfig(a.cfg.Requirements))
			out := cmd.OutOrStdout()
			for _, r := range results {
				switch r.Status {
				case deps.StatusOK:
					fmt.Fprintln(out, tui.SuccessStyle.Render("✓"), r.String())
				case deps.StatusUnknown:
					fmt.Fprintln(out, tui.WarningStyle.Render("?"), r.String())
				default:
					fmt.Fprintln(out, tui.ErrorStyle.Render("✗"), r.String())
				}
			}
			if failed := deps.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d requirement(s) not met", len(failed))
			}
			return nil
		},
	}
}
