package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/scraper"
	"github.com/WessleyAI/holocron/engine/swapi"
	"github.com/WessleyAI/holocron/pkg/tokenize"
)

func (c *cli) personalityCmd() *cobra.Command {
	var names []string
	var out string
	cmd := &cobra.Command{
		Use:   "personality",
		Short: "Scrape wiki personality sections and ingest them",
		Long: "Scrapes the personality section of every catalog character (or the names given " +
			"with --name), chunks it by tokens and ingests the chunks. With --out the chunks are " +
			"written to a document artifact instead.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if out == "" {
				if err := c.requireIndex(ctx); err != nil {
					return err
				}
			}
			if len(names) == 0 {
				var err error
				names, err = c.characterNames(ctx, swapi.NewClient(swapi.Options{
					BaseURL:           c.cfg.SWAPI.BaseURL,
					RequestsPerSecond: c.cfg.SWAPI.RequestsPerSecond,
				}, c.logger))
				if err != nil {
					return err
				}
			}
			docs, err := c.scrapePersonalities(ctx, names)
			if err != nil {
				return err
			}
			if out != "" {
				if err := swapi.SaveDocuments(out, docs); err != nil {
					return err
				}
				c.printf("Wrote %d personality chunks to %s\n", len(docs), out)
				return nil
			}
			return c.ingest(ctx, docs)
		},
	}
	cmd.Flags().StringSliceVarP(&names, "name", "n", nil, "character names (default: every catalog character)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write chunks to this artifact instead of ingesting")
	return cmd
}

func (c *cli) characterNames(ctx context.Context, f swapi.Fetcher) ([]string, error) {
	people, err := f.FetchAll(ctx, domain.People)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(people))
	for _, p := range people {
		if n := strings.TrimSpace(swapi.DisplayName(p.Raw)); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

func (c *cli) scrapePersonalities(ctx context.Context, names []string) ([]domain.Document, error) {
	splitter, err := tokenize.New(tokenize.DefaultEncoding, c.cfg.Wiki.MaxTokens)
	if err != nil {
		return nil, err
	}
	s := scraper.New(scraper.Options{
		BaseURL:   c.cfg.Wiki.BaseURL,
		SectionID: c.cfg.Wiki.SectionID,
		Delay:     c.cfg.Wiki.Delay,
	}, splitter, c.logger)
	docs, rep, err := s.ScrapeAll(ctx, names)
	if err != nil {
		return nil, err
	}
	c.printf("Scraped %d characters, skipped %d\n", len(rep.Scraped), len(rep.Skipped))
	return docs, nil
}
