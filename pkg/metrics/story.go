package metrics

import "time"

// Story holds the story pipeline metrics. A nil *Story records nothing.
type Story struct {
	reg       *Registry
	latency   *Histogram
	docs      *Histogram
	cacheHit  *Counter
	cacheMiss *Counter
	graphErr  *Counter
	running   *Gauge
}

// NewStory registers the story pipeline metrics on r.
func NewStory(r *Registry) *Story {
	return &Story{
		reg:       r,
		latency:   r.Histogram("holocron_story_duration_seconds", "Story generation latency", nil),
		docs:      r.Histogram("holocron_story_context_documents", "Documents retrieved per story", []float64{0, 1, 2, 4, 6, 8, 12, 16, 24}),
		cacheHit:  r.Counter(WithLabels("holocron_story_cache_total", "result", "hit"), "Narrative cache lookups"),
		cacheMiss: r.Counter(WithLabels("holocron_story_cache_total", "result", "miss"), "Narrative cache lookups"),
		graphErr:  r.Counter("holocron_graph_enrich_errors_total", "Failed graph enrichment lookups"),
		running:   r.Gauge("holocron_jobs_running", "Async jobs currently running on this worker"),
	}
}

// Outcome counts one finished story by outcome: ok, invalid, no_context or error.
func (s *Story) Outcome(outcome string, start time.Time) {
	if s == nil {
		return
	}
	s.reg.Counter(WithLabels("holocron_story_requests_total", "outcome", outcome), "Story requests by outcome").Inc()
	s.latency.Since(start)
}

// Retrieved records how many context documents a story used.
func (s *Story) Retrieved(n int) {
	if s == nil {
		return
	}
	s.docs.Observe(float64(n))
}

// Cache counts a narrative cache lookup.
func (s *Story) Cache(hit bool) {
	if s == nil {
		return
	}
	if hit {
		s.cacheHit.Inc()
	} else {
		s.cacheMiss.Inc()
	}
}

// GraphError counts a failed enrichment.
func (s *Story) GraphError() {
	if s == nil {
		return
	}
	s.graphErr.Inc()
}

// Jobs counts async job operations by op (submit, status, run) and outcome.
func (s *Story) Jobs(op, outcome string) {
	if s == nil {
		return
	}
	s.reg.Counter(WithLabels("holocron_jobs_total", "op", op, "outcome", outcome), "Async story job operations").Inc()
}

// JobRunning moves the running job gauge by delta.
func (s *Story) JobRunning(delta int64) {
	if s == nil {
		return
	}
	s.running.Add(delta)
}
