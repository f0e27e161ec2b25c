// Package filter decides whether an image contains text by running an
// ordered cascade of preprocessing and detection-criteria strategies
// against an OCR engine.
package filter

import (
	"maps"
	"slices"

	imgutil "panel-filter/internal/image"
)

// Criteria are the thresholds a set of OCR detections must meet.
type Criteria struct {
	MinConfidence  float64
	MinCharsPerBox int
	MinValidBoxes  int
}

// Strategy pairs a preprocessing profile name with a criteria name.
type Strategy struct {
	Preprocessing string
	Criteria      string
}

func (s Strategy) String() string {
	return s.Preprocessing + "/" + s.Criteria
}

// Registry resolves profile and criteria names. It is immutable after
// construction.
type Registry struct {
	profiles map[string]imgutil.Profile
	criteria map[string]Criteria
}

// NewRegistry copies the given tables so later changes by the caller are
// not observed.
func NewRegistry(profiles map[string]imgutil.Profile, criteria map[string]Criteria) *Registry {
	return &Registry{
		profiles: maps.Clone(profiles),
		criteria: maps.Clone(criteria),
	}
}

func (r *Registry) Profile(name string) (imgutil.Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

func (r *Registry) Criteria(name string) (Criteria, bool) {
	c, ok := r.criteria[name]
	return c, ok
}

// ProfileNames returns the registered preprocessing names, sorted.
func (r *Registry) ProfileNames() []string {
	return slices.Sorted(maps.Keys(r.profiles))
}

// CriteriaNames returns the registered criteria names, sorted.
func (r *Registry) CriteriaNames() []string {
	return slices.Sorted(maps.Keys(r.criteria))
}
