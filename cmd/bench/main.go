package bench

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/netrixframework/smtkit/cmd/driver"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/workload"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary of the check latencies of a benchmark, in milliseconds
type Summary struct {
	Runs   int
	Mean   float64
	StdDev float64
	Median float64
	P95    float64
	Max    float64
}

// Summarize computes a Summary. xs is sorted in place.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Summary{
		Runs:   len(xs),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, xs, nil),
		Max:    floats.Max(xs),
	}
}

func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "runs=%d mean=%.2fms stddev=%.2fms median=%.2fms p95=%.2fms max=%.2fms\n",
		s.Runs, s.Mean, s.StdDev, s.Median, s.P95, s.Max)
}

// BenchCmd returns the command that times the pending-event workload
func BenchCmd() *cobra.Command {
	var (
		runs int
		dist string
		c    = workload.DefaultConfig()
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time which-event-first checks on generated scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, d, err := driver.Setup()
			if err != nil {
				return err
			}
			defer log.Destroy()
			c.Delay, err = workload.NewDistribution(dist)
			if err != nil {
				return err
			}

			log.With(log.LogParams{
				"backend":  d.Name,
				"runs":     runs,
				"replicas": c.Replicas,
				"dist":     dist,
			}).Info("Starting benchmark")
			if runs <= 0 {
				log.Warn("No runs requested")
			}
			seed := c.Seed
			times := make([]float64, 0, runs)
			candidates := 0
			for i := 0; i < runs; i++ {
				c.Seed = seed + uint64(i)
				sc := workload.Generate(c)
				start := time.Now()
				minimal, err := d.Minimal(ctx, sc)
				if err != nil {
					log.With(log.LogParams{"run": i, "error": err.Error()}).Error("Run failed")
					return fmt.Errorf("run %d: %w", i, err)
				}
				times = append(times, float64(time.Since(start).Microseconds())/1000)
				candidates += len(minimal)
				ctx.Logger.With(log.LogParams{
					"run":     i,
					"minimal": minimal,
				}).Debug("Finished run")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend=%s replicas=%d steps=%d dist=%s\n", d.Name, c.Replicas, c.Steps, dist)
			Summarize(times).Write(out)
			if runs > 0 {
				fmt.Fprintf(out, "minimal events per run: %.2f\n", float64(candidates)/float64(runs))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 20, "Number of scenarios")
	cmd.Flags().IntVar(&c.Replicas, "replicas", c.Replicas, "Replicas per scenario")
	cmd.Flags().IntVar(&c.Steps, "steps", c.Steps, "Observed events per replica")
	cmd.Flags().IntVar(&c.Timeout, "timeout", c.Timeout, "Pending timeout duration, 0 disables timeouts")
	cmd.Flags().Uint64Var(&c.Seed, "seed", c.Seed, "Seed of the first scenario")
	cmd.Flags().StringVar(&dist, "dist", "exp", "Delay distribution, one of pareto|weibull|exp")
	return cmd
}
