package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/bootstrap"
	"github.com/WessleyAI/holocron/engine/jobs"
)

func (c *cli) workerCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run submitted story jobs from NATS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runWorker(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "metrics listen address; empty disables")
	return cmd
}

func (c *cli) runWorker(ctx context.Context, metricsAddr string) error {
	if c.cfg.Jobs.Backend != jobs.BackendNATS {
		return errors.New("worker: jobs.backend must be nats")
	}
	app, err := bootstrap.NewApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer app.Close()

	nc, err := bootstrap.ConnectNATS(c.cfg, "holocron-worker")
	if err != nil {
		return err
	}
	defer nc.Close()
	store, err := bootstrap.NATSJobs(ctx, c.cfg, nc, c.logger)
	if err != nil {
		return err
	}
	cc, err := jobs.NewWorker(store, app.Story, c.cfg.Jobs.Timeout, app.Metrics, c.logger).Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		cc.Drain()
		<-cc.Closed()
	}()

	if metricsAddr != "" {
		go func() {
			if err := app.Registry.ListenAndServe(ctx, metricsAddr); err != nil {
				c.logger.Error("worker: metrics server", "err", err)
			}
		}()
	}
	c.logger.Info("worker: consuming jobs", "subject", store.Subject(), "consumer", jobs.WorkerQueue)
	<-ctx.Done()
	c.logger.Info("worker: shutting down")
	return nil
}
