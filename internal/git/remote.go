package git

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/waabox/kickstart/internal/domain"
)

// ParseRemoteURL parses a git remote URL and returns a Repository.
// Supports HTTPS (https://github.com/owner/repo.git) and SSH (git@github.com:owner/repo.git).
// The RemoteURL field in the returned Repository preserves the original input URL unchanged.
func ParseRemoteURL(rawURL string) (domain.Repository, error) {
	originalURL := rawURL
	normalized := strings.TrimSuffix(rawURL, ".git")

	// SSH format: git@github.com:owner/repo
	if strings.HasPrefix(normalized, "git@") {
		trimmed := strings.TrimPrefix(normalized, "git@")
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		ownerRepo := strings.SplitN(parts[1], "/", 2)
		if len(ownerRepo) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid SSH remote URL path: %s", parts[1])
		}
		return domain.Repository{
			Owner:     ownerRepo[0],
			Name:      ownerRepo[1],
			RemoteURL: originalURL,
		}, nil
	}

	// HTTPS format: https://github.com/owner/repo
	if strings.HasPrefix(normalized, "https://") || strings.HasPrefix(normalized, "http://") {
		withoutScheme := strings.TrimPrefix(normalized, "https://")
		withoutScheme = strings.TrimPrefix(withoutScheme, "http://")
		parts := strings.SplitN(withoutScheme, "/", 3)
		if len(parts) != 3 {
			return domain.Repository{}, fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
		}
		return domain.Repository{
			Owner:     parts[1],
			Name:      parts[2],
			RemoteURL: originalURL,
		}, nil
	}

	return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
}

// SourceKind tells how a template is acquired.
type SourceKind int

const (
	SourceLocal SourceKind = iota // a directory on disk, copied
	SourceGit                     // a git remote, cloned
)

// TemplateSource is a parsed template location.
type TemplateSource struct {
	Kind     SourceKind
	Location string // directory path or clone URL
	Ref      string // optional branch, from a "#ref" suffix
	Name     string // short display name
}

var shorthandPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ParseTemplateSource classifies a template argument. Accepted forms:
//   - an existing local directory, or a file:// URL pointing at one
//   - an HTTPS or SSH git URL
//   - "owner/repo" shorthand, expanded to a GitHub HTTPS URL
//
// Any form may carry a "#branch" suffix selecting the branch to clone.
func ParseTemplateSource(raw string) (TemplateSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TemplateSource{}, errors.New("template source is empty")
	}

	location, ref := raw, ""
	if i := strings.LastIndex(raw, "#"); i > 0 {
		location, ref = raw[:i], raw[i+1:]
	}

	if strings.HasPrefix(location, "file://") {
		location = strings.TrimPrefix(location, "file://")
		if !isDir(location) {
			return TemplateSource{}, fmt.Errorf("template directory not found: %s", location)
		}
		return TemplateSource{Kind: SourceLocal, Location: location, Ref: ref, Name: filepath.Base(location)}, nil
	}

	if isDir(location) {
		return TemplateSource{Kind: SourceLocal, Location: location, Ref: ref, Name: filepath.Base(location)}, nil
	}

	if strings.HasPrefix(location, ".") || filepath.IsAbs(location) {
		return TemplateSource{}, fmt.Errorf("template directory not found: %s", location)
	}

	if strings.HasPrefix(location, "git@") || strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "http://") {
		name := location
		if repo, err := ParseRemoteURL(location); err == nil {
			name = repo.Owner + "/" + repo.Name
		}
		return TemplateSource{Kind: SourceGit, Location: location, Ref: ref, Name: name}, nil
	}

	if shorthandPattern.MatchString(location) {
		return TemplateSource{
			Kind:     SourceGit,
			Location: "https://github.com/" + location + ".git",
			Ref:      ref,
			Name:     location,
		}, nil
	}

	return TemplateSource{}, fmt.Errorf("unsupported template source: %s", raw)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
