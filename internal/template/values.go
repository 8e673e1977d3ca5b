package template

import (
	"strings"

	"github.com/gosimple/slug"

	"github.com/waabox/kickstart/internal/domain"
)

// Placeholder tokens recognized in template files.
const (
	PlaceholderName        = "__PROJECT_NAME__"
	PlaceholderSlug        = "__PROJECT_SLUG__"
	PlaceholderDescription = "__PROJECT_DESCRIPTION__"
	PlaceholderAuthor      = "__AUTHOR_NAME__"
)

// Values holds the text substituted for each placeholder.
type Values struct {
	Name        string
	Slug        string
	Description string
	Author      string
}

// NewValues builds Values from a project. An empty slug is derived from the name.
func NewValues(p domain.Project) Values {
	v := Values{
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Author:      p.Author,
	}
	if v.Slug == "" {
		v.Slug = Slugify(p.Name)
	}
	return v
}

// Slugify turns a display name into a lowercase, dash-separated identifier.
func Slugify(name string) string {
	return slug.Make(name)
}

func (v Values) replacer() *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderName, v.Name,
		PlaceholderSlug, v.Slug,
		PlaceholderDescription, v.Description,
		PlaceholderAuthor, v.Author,
	)
}
