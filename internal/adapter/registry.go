package adapter

import (
	"errors"
	"net/url"
	"strings"
)

// Registry resolves the adapter responsible for a URL. Lookup is a
// precision-over-recall cascade: exact domain index, parent-domain climb,
// CanHandle scan over specific adapters, then the mandatory fallback.
type Registry struct {
	byID     map[string]Adapter
	byDomain map[string]Adapter
	ordered  []Adapter
	fallback Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]Adapter),
		byDomain: make(map[string]Adapter),
	}
}

// Register adds a platform-specific adapter and indexes its domains.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.New("adapter is nil")
	}
	id := strings.TrimSpace(a.ID())
	if id == "" {
		return errors.New("adapter id is empty")
	}
	if _, exists := r.byID[id]; exists {
		return errors.New("adapter already registered: " + id)
	}
	r.byID[id] = a
	r.ordered = append(r.ordered, a)
	for _, domain := range a.Domains() {
		normalized := normalizeHost(domain)
		if normalized == "" {
			continue
		}
		r.byDomain[normalized] = a
	}
	return nil
}

// RegisterFallback installs the terminal adapter returned when nothing more
// specific matches. Find never returns nil once a fallback is registered.
func (r *Registry) RegisterFallback(a Adapter) error {
	if a == nil {
		return errors.New("fallback adapter is nil")
	}
	r.fallback = a
	r.byID[a.ID()] = a
	return nil
}

// Find resolves the adapter for rawURL. Specific adapters always win over the
// fallback, even when both would match.
func (r *Registry) Find(rawURL string) Adapter {
	host := hostOf(rawURL)
	if host != "" {
		if a, ok := r.byDomain[host]; ok {
			return a
		}
		// Climb parent domains: a.b.example.com -> b.example.com -> example.com.
		labels := strings.Split(host, ".")
		for len(labels) > 2 {
			labels = labels[1:]
			if a, ok := r.byDomain[strings.Join(labels, ".")]; ok {
				return a
			}
		}
	}

	for _, a := range r.ordered {
		if a.CanHandle(rawURL) {
			return a
		}
	}
	return r.fallback
}

// Get returns the adapter registered under id, nil when absent.
func (r *Registry) Get(id string) Adapter {
	return r.byID[strings.TrimSpace(id)]
}

// IsSupported reports whether an adapter with the given id is registered.
func (r *Registry) IsSupported(id string) bool {
	_, ok := r.byID[strings.TrimSpace(id)]
	return ok
}

// Fallback returns the terminal adapter, nil when none is registered.
func (r *Registry) Fallback() Adapter {
	return r.fallback
}

// Adapters returns the registered platform-specific adapters in registration
// order, excluding the fallback.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return normalizeHost(parsed.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
