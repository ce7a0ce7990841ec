// analysis.go: Movie, series and actor analysis endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/420btc/KinemaTV/internal/analysis"
	"github.com/420btc/KinemaTV/internal/cache"
	"github.com/420btc/KinemaTV/internal/logger"
	"github.com/420btc/KinemaTV/internal/telemetry"
)

// rawLogLimit caps how much of an unparseable model reply goes into a log line.
const rawLogLimit = 2048

type movieAnalysisRequest struct {
	MovieTitle string    `json:"movieTitle"`
	MovieYear  yearField `json:"movieYear"`
}

type seriesAnalysisRequest struct {
	SeriesTitle string    `json:"seriesTitle"`
	SeriesYear  yearField `json:"seriesYear"`
}

type actorDetailsRequest struct {
	ActorName string `json:"actorName"`
}

// handleMovieAnalysis handles POST /api/movie-analysis.
func (s *Server) handleMovieAnalysis(w http.ResponseWriter, r *http.Request) {
	var body movieAnalysisRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.MovieTitle = strings.TrimSpace(body.MovieTitle)
	if body.MovieTitle == "" {
		writeError(w, http.StatusBadRequest, "Movie title is required")
		return
	}
	year, ok := body.MovieYear.resolve(s.d.Now().Year())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	s.serveAnalysis(w, r, analysis.MovieQuery{Title: body.MovieTitle, Year: year}, year, "Error analyzing movie")
}

// handleSeriesAnalysis handles POST /api/series-analysis.
func (s *Server) handleSeriesAnalysis(w http.ResponseWriter, r *http.Request) {
	var body seriesAnalysisRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.SeriesTitle = strings.TrimSpace(body.SeriesTitle)
	if body.SeriesTitle == "" {
		writeError(w, http.StatusBadRequest, "Series title is required")
		return
	}
	year, ok := body.SeriesYear.resolve(s.d.Now().Year())
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	s.serveAnalysis(w, r, analysis.SeriesQuery{Title: body.SeriesTitle, Year: year}, year, "Error analyzing series")
}

// handleActorDetails handles POST /api/actor-details.
func (s *Server) handleActorDetails(w http.ResponseWriter, r *http.Request) {
	var body actorDetailsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ActorName = strings.TrimSpace(body.ActorName)
	if body.ActorName == "" {
		writeError(w, http.StatusBadRequest, "Actor name is required")
		return
	}
	s.serveAnalysis(w, r, analysis.ActorQuery{Name: body.ActorName}, 0, "Error fetching actor details")
}

// serveAnalysis answers from the cache when possible, otherwise runs the
// analysis once per key no matter how many identical requests are in flight.
func (s *Server) serveAnalysis(w http.ResponseWriter, r *http.Request, req analysis.Request, year int, failMsg string) {
	ctx := r.Context()
	kind := string(req.Kind())
	key := cache.Key(kind, req.Subject(), year)
	log := logger.FromContext(ctx).WithField("kind", kind)

	if s.d.Cache != nil {
		b, hit, err := s.d.Cache.Get(ctx, key)
		switch {
		case err != nil:
			s.d.Metrics.ObserveCache(kind, "error")
			log.WithError(err).Warn("analysis cache read failed")
		case hit:
			s.d.Metrics.ObserveCache(kind, "hit")
			w.Header().Set("X-Cache", "HIT")
			writeRawJSON(w, http.StatusOK, b)
			return
		default:
			s.d.Metrics.ObserveCache(kind, "miss")
		}
		w.Header().Set("X-Cache", "MISS")
	}

	// The shared call ignores caller cancellation; each waiter stops waiting
	// on its own context.
	ch := s.flight.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.d.RequestTimeout)
		defer cancel()
		return s.produce(callCtx, req, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			s.analysisFailed(w, r, res.Err, failMsg)
			return
		}
		if res.Shared {
			log.Debug("analysis shared with a concurrent request")
		}
		writeRawJSON(w, http.StatusOK, res.Val.([]byte))
	case <-ctx.Done():
		log.WithError(ctx.Err()).Info("client left before analysis finished")
	}
}

// produce runs the analysis with the retry policy, encodes it and stores it.
func (s *Server) produce(ctx context.Context, req analysis.Request, key string) ([]byte, error) {
	kind := string(req.Kind())
	start := time.Now()

	var out analysis.Output
	err := s.retrier.Do(ctx, kind, func(ctx context.Context) error {
		o, err := s.d.Analyzer.Analyze(ctx, req)
		if err != nil {
			return err
		}
		out = o
		return nil
	}, analysis.Retryable)

	outcome := "ok"
	if err != nil {
		outcome = string(analysis.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.d.Metrics.ObserveAnalysis(kind, outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if s.d.Cache != nil && s.d.CacheTTL > 0 {
		if err := s.d.Cache.Set(ctx, key, b, s.d.CacheTTL); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("analysis cache write failed")
		}
	}
	return b, nil
}

// analysisFailed maps an analysis error to a response. Only input problems
// reach the client verbatim; everything else is logged and reported.
func (s *Server) analysisFailed(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	var ae *analysis.Error
	if errors.As(err, &ae) && ae.Code == analysis.CodeInvalidRequest {
		writeError(w, http.StatusBadRequest, ae.Msg)
		return
	}

	fields := logrus.Fields{"code": string(analysis.CodeOf(err))}
	if ae != nil && ae.Raw != "" {
		fields["raw"] = logger.Truncate(ae.Raw, rawLogLimit)
	}
	logger.FromContext(r.Context()).WithFields(fields).WithError(err).Error("analysis failed")
	telemetry.CaptureError(err, map[string]string{
		"component": "analysis",
		"code":      string(analysis.CodeOf(err)),
	})
	writeError(w, http.StatusInternalServerError, failMsg)
}
