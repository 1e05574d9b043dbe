// Package loadtest fires story requests at the API on a fixed schedule and
// aggregates the outcome.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/pkg/fn"
)

// DefaultResultsFile is where Run's results are written by the CLI.
const DefaultResultsFile = "load_test_results.json"

var ErrInvalidOptions = errors.New("loadtest: invalid options")

// Options describes one run: RPS requests per second for Duration.
type Options struct {
	URL      string
	RPS      int
	Duration time.Duration
	Request  domain.StoryRequest
	Timeout  time.Duration
}

// DefaultRequest is the payload sent when none is given.
var DefaultRequest = domain.StoryRequest{
	Characters: []string{"Luke Skywalker", "Darth Vader"},
	Planets:    []string{"Tatooine"},
	Ships:      []string{"Millennium Falcon"},
}

// Result is one request's outcome. Status is zero and Error set when no
// response arrived.
type Result struct {
	Seq       int       `json:"seq"`
	ID        string    `json:"request_id"`
	Status    int       `json:"status,omitempty"`
	Seconds   float64   `json:"time,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK reports a 2xx response.
func (r Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Runner executes load tests.
type Runner struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// New validates opts. A nil client uses one with opts.Timeout.
func New(opts Options, client *http.Client, logger *slog.Logger) (*Runner, error) {
	if opts.URL == "" || opts.RPS <= 0 || opts.Duration <= 0 {
		return nil, fmt.Errorf("%w: url=%q rps=%d duration=%s", ErrInvalidOptions, opts.URL, opts.RPS, opts.Duration)
	}
	if len(opts.Request.Names()) == 0 {
		opts.Request = DefaultRequest
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{opts: opts, client: client, logger: logger}, nil
}

// Total is the number of requests a run sends.
func (r *Runner) Total() int {
	return r.opts.RPS * int(math.Ceil(r.opts.Duration.Seconds()))
}

// Run dispatches Total requests spaced evenly at RPS and waits for all of
// them. Failed requests are recorded, not returned. Cancelling ctx stops
// dispatching; requests already sent still complete.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	body, err := json.Marshal(r.opts.Request)
	if err != nil {
		return nil, fmt.Errorf("loadtest: encode request: %w", err)
	}
	total := r.Total()
	limiter := rate.NewLimiter(rate.Limit(r.opts.RPS), 1)
	results := make([]Result, 0, total)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	r.logger.Info("loadtest: starting", "url", r.opts.URL, "rps", r.opts.RPS, "total", total)
	for i := range total {
		if err := limiter.Wait(ctx); err != nil {
			r.logger.Warn("loadtest: dispatch stopped", "sent", i, "err", err)
			break
		}
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			res := r.send(context.WithoutCancel(ctx), seq, body)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	slices.SortFunc(results, func(a, b Result) int { return a.Seq - b.Seq })
	return results, nil
}

func (r *Runner) send(ctx context.Context, seq int, body []byte) Result {
	res := Result{Seq: seq, ID: uuid.NewString(), Timestamp: time.Now()}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.URL, bytes.NewReader(body))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	res.Status = resp.StatusCode
	res.Seconds = time.Since(start).Seconds()
	return res
}

// Summary aggregates a run. Latencies cover requests that got a response.
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Avg       time.Duration `json:"avg"`
	P50       time.Duration `json:"p50"`
	P95       time.Duration `json:"p95"`
	Max       time.Duration `json:"max"`
}

// Summarize computes the counts and nearest-rank latency percentiles.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	s.Succeeded = len(fn.Filter(results, Result.OK))
	s.Failed = s.Total - s.Succeeded

	answered := fn.Filter(results, func(r Result) bool { return r.Status != 0 })
	lat := fn.Map(answered, func(r Result) time.Duration {
		return time.Duration(r.Seconds * float64(time.Second))
	})
	if len(lat) == 0 {
		return s
	}
	slices.Sort(lat)
	var sum time.Duration
	for _, d := range lat {
		sum += d
	}
	s.Avg = sum / time.Duration(len(lat))
	s.P50 = percentile(lat, 0.50)
	s.P95 = percentile(lat, 0.95)
	s.Max = lat[len(lat)-1]
	return s
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[max(i, 0)]
}

// WriteResults stores results as indented JSON.
func WriteResults(path string, results []Result) error {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("loadtest: encode results: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("loadtest: write %s: %w", path, err)
	}
	return nil
}
