package main

import (
	"context"
	"errors"
	"slices"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/graph"
)

func (c *cli) graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the reference graph",
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count graph nodes by entity type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withGraph(cmd.Context(), func(g *graph.Store) error {
				counts, err := g.NodeCounts(cmd.Context())
				if err != nil {
					return err
				}
				types := make([]string, 0, len(counts))
				for t := range counts {
					types = append(types, t)
				}
				slices.Sort(types)
				for _, t := range types {
					c.printf("%-10s %d\n", t, counts[t])
				}
				return nil
			})
		},
	}
	var limit int
	related := &cobra.Command{
		Use:   "related NAME...",
		Short: "List known relations around the given names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGraph(cmd.Context(), func(g *graph.Store) error {
				facts, err := g.Related(cmd.Context(), args, limit)
				if err != nil {
					return err
				}
				for _, f := range facts {
					c.printf("%s\n", f)
				}
				return nil
			})
		},
	}
	related.Flags().IntVar(&limit, "limit", 20, "max relations")
	cmd.AddCommand(stats, related)
	return cmd
}

func (c *cli) withGraph(ctx context.Context, f func(*graph.Store) error) error {
	if c.cfg.Neo4j.URL == "" {
		return errors.New("graph: neo4j.url is not set")
	}
	g, err := graph.Connect(ctx, c.cfg.Neo4j.URL, c.cfg.Neo4j.User, c.cfg.Neo4j.Password)
	if err != nil {
		return err
	}
	defer g.Close(context.WithoutCancel(ctx))
	return f(g)
}
