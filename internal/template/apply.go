package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	log "github.com/sirupsen/logrus"
)

// textPatterns selects the files placeholders are replaced in, relative to the project root.
var textPatterns = []string{
	"**.md",
	"**.txt",
	"**.json",
	"**.yml",
	"**.yaml",
	"**.toml",
	"**.go",
	"**.js",
	"**.ts",
	"**.html",
	"**.css",
	"**.env.example",
	"{Makefile,**/Makefile}",
	"{Dockerfile,**/Dockerfile}",
}

var textGlobs = mustCompile(textPatterns)

func mustCompile(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		globs[i] = glob.MustCompile(p, '/')
	}
	return globs
}

func isTextFile(rel string) bool {
	for _, g := range textGlobs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Apply replaces placeholders in every matching file under dir and returns the
// slash-separated paths, relative to dir, of the files it rewrote.
func Apply(dir string, v Values) ([]string, error) {
	r := v.replacer()
	var changed []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !isTextFile(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		replaced := []byte(r.Replace(string(content)))
		if bytes.Equal(content, replaced) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, replaced, info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
		log.WithField("file", rel).Debug("placeholders replaced")
		changed = append(changed, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}
