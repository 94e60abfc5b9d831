package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/replay/go-slab/internal/bench"
)

// newRootCmd builds the slabbench command. cfg holds the defaults read from
// the environment, flags override them.
func newRootCmd(cfg bench.Config) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "slabbench",
		Short: "Benchmark the slab allocator against heap allocations",
		Long: `slabbench replays the same randomized allocate/free traffic against
plain heap allocations and against a slab allocator, once per unit size, and
prints the timings of both.

Defaults can be set with SLABBENCH_* environment variables, for example
SLABBENCH_OPS or SLABBENCH_MAX_LIVE.

Example:
  slabbench --sizes 16,64,256 --ops 1000000
  slabbench --source mmap --reserved 8 --stats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return errors.Wrap(err, "invalid log level")
			}

			logger := logrus.New()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(level)

			runner, err := bench.NewRunner(cfg, logger.WithField("prefix", "slabbench"), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			results, err := runner.Run()
			if err != nil {
				return err
			}

			bench.WriteReport(cmd.OutOrStdout(), results)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntSliceVar(&cfg.Sizes, "sizes", cfg.Sizes, "Unit sizes to benchmark")
	flags.IntVar(&cfg.Ops, "ops", cfg.Ops, "Operations per unit size")
	flags.IntVar(&cfg.MaxLive, "max-live", cfg.MaxLive, "Maximum number of outstanding allocations")
	flags.IntVar(&cfg.Reserved, "reserved", cfg.Reserved, "Empty blocks retained by the allocator")
	flags.StringVar(&cfg.Source, "source", cfg.Source, "Memory source for blocks (heap or mmap)")
	flags.IntVar(&cfg.LimitBytes, "limit-bytes", cfg.LimitBytes, "Cap on block memory in bytes, 0 for none")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Traffic seed, 0 picks one from the clock")
	flags.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print allocator stats after every slab run")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}
