package provider

import (
	"fmt"
	"strings"

	"github.com/waabox/kickstart/internal/domain"
)

// Registry maps host names to RepositoryProvisioner implementations.
type Registry struct {
	entries []entry
}

type entry struct {
	host        string
	provisioner domain.RepositoryProvisioner
}

// NewRegistry creates an empty provisioner registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates a host pattern (e.g., "github.com") with a provisioner.
func (r *Registry) Register(host string, p domain.RepositoryProvisioner) {
	r.entries = append(r.entries, entry{host: host, provisioner: p})
}

// Detect returns the provisioner whose host appears in target, which may be a
// provider name ("github"), a host or a full URL.
// Returns an error if no matching provisioner is registered.
func (r *Registry) Detect(target string) (domain.RepositoryProvisioner, error) {
	for _, e := range r.entries {
		if strings.Contains(target, e.host) {
			return e.provisioner, nil
		}
	}
	return nil, fmt.Errorf("no provisioner found for: %s", target)
}
