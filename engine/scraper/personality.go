// Package scraper pulls character personality text from the Star Wars wiki
// and turns it into token-bounded documents ready for ingestion.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/WessleyAI/holocron/engine/domain"
	"golang.org/x/time/rate"
)

// Defaults for the public wiki.
const (
	DefaultBaseURL   = "https://starwars.fandom.com/wiki"
	DefaultSectionID = "Personality_and_traits"
	DefaultDelay     = time.Second
)

var (
	ErrPageNotFound   = errors.New("scraper: page not found")
	ErrSectionMissing = errors.New("scraper: section missing")
)

// Chunker splits section text into embeddable pieces.
type Chunker interface {
	Split(text string) []string
}

// Options configures a PersonalityScraper.
type Options struct {
	BaseURL    string
	SectionID  string
	Delay      time.Duration
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// PersonalityScraper fetches one wiki page per character and extracts a
// named section.
type PersonalityScraper struct {
	opts        Options
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	chunker     Chunker
	logger      *slog.Logger
}

// New creates a scraper. Requests are paced to one per Delay.
func New(opts Options, chunker Chunker, logger *slog.Logger) *PersonalityScraper {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.SectionID == "" {
		opts.SectionID = DefaultSectionID
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "holocron-scraper/1.0"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &PersonalityScraper{
		opts:        opts,
		httpClient:  hc,
		rateLimiter: rate.NewLimiter(rate.Every(opts.Delay), 1),
		chunker:     chunker,
		logger:      logger,
	}
}

// PageURL builds the wiki URL for a character name.
func (s *PersonalityScraper) PageURL(name string) string {
	return s.opts.BaseURL + "/" + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// Scrape fetches the character page and returns one document per chunk of
// the personality section.
func (s *PersonalityScraper) Scrape(ctx context.Context, name string) ([]domain.Document, error) {
	text, err := s.Section(ctx, name)
	if err != nil {
		return nil, err
	}
	chunks := s.chunker.Split(text)
	docs := make([]domain.Document, 0, len(chunks))
	for i, c := range chunks {
		docs = append(docs, domain.Document{
			Content: c,
			Metadata: domain.Metadata{
				Character:  name,
				Section:    domain.PersonalitySection,
				ChunkIndex: domain.ChunkIndex(i),
			},
		})
	}
	return docs, nil
}

// Section returns the cleaned section text for a character.
func (s *PersonalityScraper) Section(ctx context.Context, name string) (string, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}
	page := s.PageURL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scraper: fetch %s: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s (status %d)", ErrPageNotFound, name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("scraper: parse %s: %w", page, err)
	}
	text := StripCitations(ExtractSection(doc, s.opts.SectionID))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrSectionMissing, name)
	}
	return text, nil
}

// Report summarizes a ScrapeAll run.
type Report struct {
	Scraped []string
	Skipped []string
}

// ScrapeAll scrapes every name in order. A character whose page or section
// is unavailable is logged and skipped; only context cancellation stops
// the batch.
func (s *PersonalityScraper) ScrapeAll(ctx context.Context, names []string) ([]domain.Document, Report, error) {
	var docs []domain.Document
	var rep Report
	for _, name := range names {
		got, err := s.Scrape(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return docs, rep, ctx.Err()
			}
			s.logger.Warn("scraper: skipping character", "character", name, "err", err)
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		s.logger.Info("scraper: character scraped", "character", name, "chunks", len(got))
		rep.Scraped = append(rep.Scraped, name)
		docs = append(docs, got...)
	}
	return docs, rep, nil
}
