// Package registry owns the list of monitored targets: a static YAML file
// layered with a mutable overlay store.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/publicsuffix"
	"gopkg.in/yaml.v3"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

var (
	ErrNotFound        = errors.New("target not found")
	ErrDuplicateTarget = errors.New("target id already exists")
	ErrStaticTarget    = errors.New("target is defined in the static targets file")
	ErrInvalidTarget   = errors.New("invalid target")
)

const defaultTargetType = "website"

// Overlay is the mutable half of the registry.
type Overlay interface {
	List(ctx context.Context) ([]models.Target, error)
	// Insert returns ErrDuplicateTarget when the id is taken.
	Insert(ctx context.Context, t models.Target) error
	// Delete returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Registry merges static and overlay targets. Static entries win on id
// collisions and can never be removed at runtime.
type Registry struct {
	static  []models.Target
	overlay Overlay
}

// New creates a Registry. overlay may be nil for a read-only registry.
func New(static []models.Target, overlay Overlay) *Registry {
	return &Registry{static: static, overlay: overlay}
}

type targetsFile struct {
	Targets []models.Target `yaml:"targets"`
}

// LoadStatic reads the static targets file. A missing file yields an empty
// list.
func LoadStatic(path string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Target{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var f targetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Targets))
	out := make([]models.Target, 0, len(f.Targets))
	for i, t := range f.Targets {
		t, err := normalize(t)
		if err != nil {
			return nil, fmt.Errorf("targets file entry %d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("targets file entry %d: %w: %s", i, ErrDuplicateTarget, t.ID)
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out, nil
}

// List returns static targets in file order followed by overlay targets.
func (r *Registry) List(ctx context.Context) ([]models.RegisteredTarget, error) {
	out := make([]models.RegisteredTarget, 0, len(r.static))
	seen := make(map[string]bool, len(r.static))
	for _, t := range r.static {
		out = append(out, models.RegisteredTarget{Target: t, Source: models.SourceStatic})
		seen[t.ID] = true
	}
	if r.overlay == nil {
		return out, nil
	}

	extra, err := r.overlay.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing overlay targets: %w", err)
	}
	for _, t := range extra {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, models.RegisteredTarget{Target: t, Source: models.SourceOverlay})
	}
	return out, nil
}

// Targets is List without the source annotation.
func (r *Registry) Targets(ctx context.Context) ([]models.Target, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Target, len(list))
	for i, rt := range list {
		out[i] = rt.Target
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, id string) (models.RegisteredTarget, error) {
	list, err := r.List(ctx)
	if err != nil {
		return models.RegisteredTarget{}, err
	}
	for _, rt := range list {
		if rt.ID == id {
			return rt, nil
		}
	}
	return models.RegisteredTarget{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add validates t, derives a missing id from the registrable domain and
// stores it in the overlay.
func (r *Registry) Add(ctx context.Context, t models.Target) (models.RegisteredTarget, error) {
	if r.overlay == nil {
		return models.RegisteredTarget{}, fmt.Errorf("%w: no overlay store configured", ErrInvalidTarget)
	}
	t, err := normalize(t)
	if err != nil {
		return models.RegisteredTarget{}, err
	}
	if r.isStatic(t.ID) {
		return models.RegisteredTarget{}, fmt.Errorf("%w: %s", ErrDuplicateTarget, t.ID)
	}
	if err := r.overlay.Insert(ctx, t); err != nil {
		return models.RegisteredTarget{}, fmt.Errorf("adding target: %w", err)
	}
	return models.RegisteredTarget{Target: t, Source: models.SourceOverlay}, nil
}

// Remove deletes an overlay target.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if r.isStatic(id) {
		return fmt.Errorf("%w: %s", ErrStaticTarget, id)
	}
	if r.overlay == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.overlay.Delete(ctx, id); err != nil {
		return fmt.Errorf("removing target: %w", err)
	}
	return nil
}

// Ping checks the overlay store.
func (r *Registry) Ping(ctx context.Context) error {
	if r.overlay == nil {
		return nil
	}
	return r.overlay.Ping(ctx)
}

func (r *Registry) isStatic(id string) bool {
	for _, t := range r.static {
		if t.ID == id {
			return true
		}
	}
	return false
}

func normalize(t models.Target) (models.Target, error) {
	t.URL = strings.TrimSpace(t.URL)
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return t, fmt.Errorf("%w: url must be an absolute http(s) URL, got %q", ErrInvalidTarget, t.URL)
	}

	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		t.ID = DeriveID(u.Hostname())
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	if t.Type == "" {
		t.Type = defaultTargetType
	}
	return t, nil
}

// DeriveID turns a host into a target id based on its registrable domain,
// e.g. shop.acme.co.uk becomes acme-co-uk. Hosts without a public suffix
// (IPs, localhost) are used as-is.
func DeriveID(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	base := host
	if net.ParseIP(host) == nil {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			base = etld1
		}
	}
	return strings.NewReplacer(".", "-", ":", "-").Replace(base)
}
