package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/holocron/engine/domain"
	"github.com/WessleyAI/holocron/engine/loadtest"
)

func (c *cli) loadtestCmd() *cobra.Command {
	var (
		url                        string
		rps                        int
		duration                   time.Duration
		out                        string
		characters, planets, ships []string
	)
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send story requests at a fixed rate and report latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadtest.New(loadtest.Options{
				URL:      url,
				RPS:      rps,
				Duration: duration,
				Request:  domain.StoryRequest{Characters: characters, Planets: planets, Ships: ships},
			}, nil, c.logger)
			if err != nil {
				return err
			}
			c.printf("Load test: %d req/s for %s (%d requests)\n", rps, duration, r.Total())
			results, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			s := loadtest.Summarize(results)
			c.printf("Total: %d\nSucceeded: %d\nFailed: %d\n", s.Total, s.Succeeded, s.Failed)
			c.printf("Avg: %s  p50: %s  p95: %s  max: %s\n",
				s.Avg.Round(time.Millisecond), s.P50.Round(time.Millisecond),
				s.P95.Round(time.Millisecond), s.Max.Round(time.Millisecond))
			if err := loadtest.WriteResults(out, results); err != nil {
				return err
			}
			c.printf("Results written to %s\n", out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&url, "url", "http://localhost:8080/historia", "story endpoint")
	f.IntVar(&rps, "rps", 5, "requests per second")
	f.DurationVar(&duration, "duration", time.Minute, "test length")
	f.StringVarP(&out, "out", "o", loadtest.DefaultResultsFile, "per-request results file")
	f.StringSliceVar(&characters, "personagens", nil, "characters to request")
	f.StringSliceVar(&planets, "planetas", nil, "planets to request")
	f.StringSliceVar(&ships, "naves", nil, "ships to request")
	return cmd
}
