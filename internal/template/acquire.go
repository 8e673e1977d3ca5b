// Package template fetches a project template and fills in its placeholders.
package template

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"
	log "github.com/sirupsen/logrus"

	"github.com/waabox/kickstart/internal/git"
)

// ErrDestinationNotEmpty is returned when the target directory already has content.
var ErrDestinationNotEmpty = errors.New("destination directory is not empty")

// Acquire places a copy of the template described by src at dest. Git sources
// are cloned; local directories are copied. The template's own history is removed.
func Acquire(ctx context.Context, src git.TemplateSource, dest string) error {
	if err := ensureEmpty(dest); err != nil {
		return err
	}

	switch src.Kind {
	case git.SourceGit:
		log.WithFields(log.Fields{"url": src.Location, "ref": src.Ref}).Debug("cloning template")
		if err := git.Clone(ctx, src.Location, dest, src.Ref); err != nil {
			return err
		}
	case git.SourceLocal:
		log.WithField("path", src.Location).Debug("copying template")
		if err := cp.Copy(src.Location, dest); err != nil {
			return fmt.Errorf("copying template: %w", err)
		}
	default:
		return fmt.Errorf("unknown template source kind: %d", src.Kind)
	}

	if err := os.RemoveAll(filepath.Join(dest, ".git")); err != nil {
		return fmt.Errorf("removing template history: %w", err)
	}
	return nil
}

// ensureEmpty accepts a missing directory or an empty one.
func ensureEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading destination: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s: %w", dir, ErrDestinationNotEmpty)
	}
	return nil
}
