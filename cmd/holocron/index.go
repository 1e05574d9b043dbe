package main

import (
	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/semantic"
)

// DefaultDimensions matches text-embedding-ada-002.
const DefaultDimensions = 1536

func (c *cli) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Administer the vector collection",
	}

	var dims int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the collection with cosine distance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(func(s *semantic.VectorStore) error {
				info, err := s.Info(cmd.Context())
				if err != nil {
					return err
				}
				if info.Exists {
					c.printf("Collection %s already exists (size %d)\n", info.Name, info.VectorSize)
					return nil
				}
				if err := s.CreateCollection(cmd.Context(), dims); err != nil {
					return err
				}
				c.printf("Created collection %s (size %d)\n", s.Collection(), dims)
				return nil
			})
		},
	}
	create.Flags().IntVar(&dims, "dims", DefaultDimensions, "vector size; must match the embedding model")

	drop := &cobra.Command{
		Use:   "drop",
		Short: "Delete the collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(func(s *semantic.VectorStore) error {
				if err := s.DeleteCollection(cmd.Context()); err != nil {
					return err
				}
				c.printf("Dropped collection %s\n", s.Collection())
				return nil
			})
		},
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show whether the collection exists and its vector size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(func(s *semantic.VectorStore) error {
				info, err := s.Info(cmd.Context())
				if err != nil {
					return err
				}
				c.printf("collection=%s exists=%t size=%d\n", info.Name, info.Exists, info.VectorSize)
				return nil
			})
		},
	}

	cmd.AddCommand(create, drop, info)
	return cmd
}

func (c *cli) withStore(f func(*semantic.VectorStore) error) error {
	s, err := semantic.New(c.cfg.Qdrant.Addr, c.cfg.Qdrant.Collection)
	if err != nil {
		return err
	}
	defer s.Close()
	return f(s)
}
