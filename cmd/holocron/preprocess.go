package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/graph"
	"github.com/WessleyAI/holocron/engine/swapi"
)

func (c *cli) preprocessCmd() *cobra.Command {
	var out string
	var exportGraph bool
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Fetch the catalog, resolve references and write the document artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = c.cfg.Ingest.Artifact
			}
			return c.preprocess(cmd.Context(), out, exportGraph)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact path (default ingest.artifact)")
	cmd.Flags().BoolVar(&exportGraph, "graph", false, "also export the reference graph to neo4j")
	return cmd
}

func (c *cli) preprocess(ctx context.Context, out string, exportGraph bool) error {
	policy, err := swapi.ParseMissingPolicy(c.cfg.Ingest.MissingRefs)
	if err != nil {
		return err
	}
	client := swapi.NewClient(swapi.Options{
		BaseURL:           c.cfg.SWAPI.BaseURL,
		RequestsPerSecond: c.cfg.SWAPI.RequestsPerSecond,
	}, c.logger)

	cache, err := swapi.BuildCache(ctx, client)
	if err != nil {
		return err
	}
	docs, err := swapi.GenerateDocuments(cache, swapi.Resolver{Cache: cache, Policy: policy}, c.logger)
	if err != nil {
		return err
	}
	if err := swapi.SaveDocuments(out, docs); err != nil {
		return err
	}
	c.printf("Wrote %d documents to %s\n", len(docs), out)

	if !exportGraph {
		return nil
	}
	if c.cfg.Neo4j.URL == "" {
		return fmt.Errorf("preprocess: --graph needs neo4j.url")
	}
	store, err := graph.Connect(ctx, c.cfg.Neo4j.URL, c.cfg.Neo4j.User, c.cfg.Neo4j.Password)
	if err != nil {
		return err
	}
	defer store.Close(context.WithoutCancel(ctx))
	nodes, edges := graph.FromCache(cache)
	if err := store.SaveGraph(ctx, nodes, edges); err != nil {
		return err
	}
	c.printf("Exported %d nodes and %d edges to neo4j\n", len(nodes), len(edges))
	return nil
}
