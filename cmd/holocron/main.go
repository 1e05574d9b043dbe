// Package main is the holocron toolbox. It covers the offline catalog and
// personality pipelines, index and graph administration, one-off story
// generation, load testing and the async job worker.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/pkg/config"
)

type cli struct {
	configPath string
	verbose    bool
	cfg        config.Config
	logger     *slog.Logger
	out        io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRoot(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRoot(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:          "holocron",
		Short:        "Star Wars story index tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("HOLOCRON_CONFIG"), "config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(
		c.preprocessCmd(),
		c.ingestCmd(),
		c.personalityCmd(),
		c.indexCmd(),
		c.loadtestCmd(),
		c.workerCmd(),
		c.storyCmd(),
		c.graphCmd(),
	)
	return root
}

func (c *cli) setup() error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.logger)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
