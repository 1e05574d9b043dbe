package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/bootstrap"
	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/ingest"
	"github.com/WessleyAI/holocron/engine/semantic"
	"github.com/WessleyAI/holocron/engine/swapi"
)

func (c *cli) ingestCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the document artifact and upsert it into the vector index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" {
				in = c.cfg.Ingest.Artifact
			}
			docs, err := swapi.LoadDocuments(in)
			if err != nil {
				return err
			}
			return c.ingest(cmd.Context(), docs)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "artifact path (default ingest.artifact)")
	return cmd
}

// requireIndex fails when the configured collection does not exist, so
// long scrapes are not wasted on an ingest that cannot succeed.
func (c *cli) requireIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.withStore(func(s *semantic.VectorStore) error {
		info, err := s.Info(ctx)
		if err != nil {
			return err
		}
		if !info.Exists {
			return fmt.Errorf("%w: %s (run `holocron index create`)", ingest.ErrIndexMissing, info.Name)
		}
		return nil
	})
}

// ingest embeds docs with the configured provider and writes them to the
// configured collection, which must already exist.
func (c *cli) ingest(ctx context.Context, docs []domain.Document) error {
	sec, err := bootstrap.Secrets(ctx, c.cfg)
	if err != nil {
		return err
	}
	embed, err := bootstrap.NewEmbedder(ctx, c.cfg, sec)
	if err != nil {
		return err
	}
	store, err := semantic.New(c.cfg.Qdrant.Addr, c.cfg.Qdrant.Collection)
	if err != nil {
		return err
	}
	defer store.Close()

	in := ingest.New(embed, store, ingest.Options{
		EmbedBatchSize:  c.cfg.Ingest.BatchSize,
		UpsertBatchSize: c.cfg.Ingest.BatchSize,
	}, c.logger)
	rep, err := in.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest into %s: %w", store.Collection(), err)
	}
	c.printf("Ingested %d documents as %d records in %d batches into %s\n",
		rep.Documents, rep.Records, rep.Batches, store.Collection())
	return nil
}
