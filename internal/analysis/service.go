// Package analysis turns a title or a name into a structured JSON document
// by prompting a chat-completion model and repairing what it sends back.
//
// A Service holds no mutable state and is safe for concurrent use. It makes
// exactly one provider call per accepted request; retrying and caching are
// left to callers, which can classify failures with Retryable and CodeOf.
package analysis

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/validate"
)

// Completion is a single-turn request to a chat-completion provider.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// Model overrides the provider default when non-empty.
	Model string
}

// Completer sends a Completion and returns the assistant text. An empty
// string with a nil error means the provider answered without content.
type Completer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithModel sets the model name forwarded with every completion.
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// WithTimeout bounds each provider call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLimits tightens the cast and filmography caps. Values outside
// 1..MaxCast and 1..MaxFilmography leave the corresponding cap unchanged.
func WithLimits(cast, filmography int) Option {
	return func(s *Service) {
		if cast >= 1 && cast <= MaxCast {
			s.limits.Cast = cast
		}
		if filmography >= 1 && filmography <= MaxFilmography {
			s.limits.Filmography = filmography
		}
	}
}

// WithClock replaces time.Now for year plausibility checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

const defaultTimeout = 90 * time.Second

// Service produces analysis documents.
type Service struct {
	completer Completer
	model     string
	timeout   time.Duration
	limits    Limits
	now       func() time.Time
}

// New creates a Service. A nil completer is allowed: every request then fails
// with CodeConfiguration without any provider call.
func New(completer Completer, opts ...Option) *Service {
	s := &Service{
		completer: completer,
		timeout:   defaultTimeout,
		limits:    DefaultLimits(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a completer is present.
func (s *Service) Configured() bool { return s.completer != nil }

// Analyze validates req, prompts the model once, and returns the normalized
// document. Errors are always *Error.
func (s *Service) Analyze(ctx context.Context, req Request) (Output, error) {
	if isNil(req) {
		return nil, invalid("", "request is required", nil)
	}
	kind := req.Kind()
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if s.completer == nil {
		return nil, &Error{Code: CodeConfiguration, Kind: kind, Msg: "no completion provider configured"}
	}

	p := buildPrompt(req, s.limits)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{"kind": kind, "subject": req.Subject()})
	start := time.Now()
	raw, err := s.completer.Complete(callCtx, Completion{
		System:      p.system,
		User:        p.user,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Model:       s.model,
	})
	if err != nil {
		return nil, &Error{Code: CodeUpstreamUnavailable, Kind: kind, Err: err}
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("completion received")

	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Code: CodeEmptyResponse, Kind: kind, Msg: "provider returned no content"}
	}
	cleaned, err := Sanitize(raw)
	if err != nil {
		return nil, malformed(kind, raw, "sanitize: %w", err)
	}
	d, err := parseObject(cleaned)
	if err != nil {
		return nil, malformed(kind, raw, "%w", err)
	}
	keys := expectedKeys[kind]
	if !d.hasAny(keys) {
		return nil, malformed(kind, raw, "none of the expected keys %v present", keys)
	}
	if gaps := d.missing(keys); len(gaps) > 0 {
		log.WithField("missing", gaps).Debug("document sections defaulted")
	}

	switch kind {
	case KindMovie:
		return normalizeMovie(d, s.limits), nil
	case KindSeries:
		return normalizeSeries(d, s.limits), nil
	default:
		return normalizeActor(d, s.limits), nil
	}
}

// Movie is Analyze for a MovieQuery.
func (s *Service) Movie(ctx context.Context, q MovieQuery) (*MovieAnalysis, error) {
	out, err := s.Analyze(ctx, q)
	if err != nil {
		return nil, err
	}
	return out.(*MovieAnalysis), nil
}

// Series is Analyze for a SeriesQuery.
func (s *Service) Series(ctx context.Context, q SeriesQuery) (*SeriesAnalysis, error) {
	out, err := s.Analyze(ctx, q)
	if err != nil {
		return nil, err
	}
	return out.(*SeriesAnalysis), nil
}

// Actor is Analyze for an ActorQuery.
func (s *Service) Actor(ctx context.Context, q ActorQuery) (*ActorDetails, error) {
	out, err := s.Analyze(ctx, q)
	if err != nil {
		return nil, err
	}
	return out.(*ActorDetails), nil
}

// isNil also catches a nil pointer stored in the interface.
func isNil(req Request) bool {
	if req == nil {
		return true
	}
	v := reflect.ValueOf(req)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (s *Service) validate(req Request) error {
	kind := req.Kind()
	switch q := req.(type) {
	case MovieQuery:
		if err := validate.Required("title", q.Title); err != nil {
			return invalid(kind, "Movie title is required", err)
		}
		return s.validateYear(kind, q.Year)
	case SeriesQuery:
		if err := validate.Required("title", q.Title); err != nil {
			return invalid(kind, "Series title is required", err)
		}
		return s.validateYear(kind, q.Year)
	case ActorQuery:
		if err := validate.Required("name", q.Name); err != nil {
			return invalid(kind, "Actor name is required", err)
		}
		return nil
	}
	return invalid(kind, "unsupported request", errors.New("unknown request type"))
}

func (s *Service) validateYear(kind Kind, year int) error {
	if err := validate.Year("year", year, s.now().Year()); err != nil {
		return invalid(kind, "Invalid year", err)
	}
	return nil
}
