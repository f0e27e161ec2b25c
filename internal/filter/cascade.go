package filter

import (
	"context"
	"image"

	imgutil "panel-filter/internal/image"
	"panel-filter/internal/logger"
	"panel-filter/internal/ocr"
)

// NoMatch is reported as the matched strategy when nothing detected text.
const NoMatch = "none"

// Loader reads a source image as grayscale.
type Loader func(path string) (*image.Gray, error)

// Outcome is the state a single strategy attempt ended in.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeNotDetected
	OutcomeDetected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDetected:
		return "detected"
	case OutcomeNotDetected:
		return "not_detected"
	default:
		return "skipped"
	}
}

// Attempt records one strategy run. Err is set only for skipped attempts.
type Attempt struct {
	Strategy   Strategy
	Outcome    Outcome
	Err        *Error
	Criteria   Criteria
	Snippet    string
	image      *image.Gray
	detections []ocr.Detection
}

// Result is the verdict for one image.
type Result struct {
	ContainsText bool
	Snippet      string
	// Matched is nil when no strategy detected text.
	Matched         *Strategy
	MatchedCriteria Criteria
	Attempts        []Attempt

	// Image and Detections come from the last attempt that got as far as
	// preprocessing. They feed the debug overlay only.
	Image      *image.Gray
	Detections []ocr.Detection
}

// MatchedName is the matched strategy as "prep/criteria", or NoMatch.
func (r Result) MatchedName() string {
	if r.Matched == nil {
		return NoMatch
	}
	return r.Matched.String()
}

type Option func(*Classifier)

// WithLoader replaces the grayscale loader. Used by tests.
func WithLoader(load Loader) Option {
	return func(c *Classifier) {
		c.load = load
	}
}

// Classifier runs the strategy cascade. The engine is shared across images
// and is never rebuilt.
type Classifier struct {
	engine   ocr.Engine
	registry *Registry
	load     Loader
}

func NewClassifier(engine ocr.Engine, registry *Registry, opts ...Option) *Classifier {
	c := &Classifier{
		engine:   engine,
		registry: registry,
		load:     imgutil.LoadGrayscale,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify tries strategies in order and stops at the first one that
// detects text. Per-strategy failures are logged and skipped.
func (c *Classifier) Classify(ctx context.Context, path string, strategies []Strategy) Result {
	var res Result

	for _, s := range strategies {
		a := c.attempt(ctx, path, s)
		if a.image != nil {
			res.Image, res.Detections = a.image, a.detections
		}
		a.image, a.detections = nil, nil
		res.Attempts = append(res.Attempts, a)

		if a.Outcome == OutcomeSkipped {
			logger.Warn("strategy skipped", "code", a.Err.Code, "strategy", s, "path", path, "err", a.Err.Cause)
			continue
		}
		if a.Outcome == OutcomeDetected {
			matched := s
			res.ContainsText = true
			res.Snippet = a.Snippet
			res.Matched = &matched
			res.MatchedCriteria = a.Criteria
			return res
		}
	}

	return res
}

func (c *Classifier) attempt(ctx context.Context, path string, s Strategy) Attempt {
	a := Attempt{Strategy: s, Outcome: OutcomeSkipped}

	profile, okProfile := c.registry.Profile(s.Preprocessing)
	criteria, okCriteria := c.registry.Criteria(s.Criteria)
	if !okProfile || !okCriteria {
		a.Err = &Error{Code: ErrorConfiguration, Strategy: s, Path: path, Cause: errUnknownProfile(s, okProfile, okCriteria)}
		return a
	}
	a.Criteria = criteria

	// reloaded per strategy so each preprocessing starts from the stored file
	gray, err := c.load(path)
	if err != nil {
		a.Err = &Error{Code: ErrorImageLoad, Strategy: s, Path: path, Cause: err}
		return a
	}

	a.image = imgutil.Preprocess(gray, profile)

	logger.DebugLog("[classify]: running OCR on %s with %s", path, s)
	detections, err := c.engine.Recognize(ctx, a.image)
	if err != nil {
		a.Err = &Error{Code: ErrorEngine, Strategy: s, Path: path, Cause: err}
		return a
	}
	a.detections = detections

	found, snippet := Evaluate(detections, criteria)
	if !found {
		a.Outcome = OutcomeNotDetected
		return a
	}
	a.Outcome = OutcomeDetected
	a.Snippet = snippet
	return a
}
