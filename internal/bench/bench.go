// Package bench drives an allocator with randomized allocate/free traffic and
// compares it against plain heap allocations of the same size.
package bench

import (
	"fmt"
	"io"
	"strconv"
	"time"
	"unsafe"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	slab "github.com/replay/go-slab"
)

// Result holds the timings of one unit size
type Result struct {
	Size     int
	Ops      int
	Baseline time.Duration
	Slab     time.Duration
	Blocks   int // live blocks at the end of the slab run
	Reserved int // empty blocks at the end of the slab run
	Failures int // allocations refused by the memory source
	Rejected int // deallocations refused by the allocator
}

// perMop returns milliseconds per million operations
func perMop(d time.Duration, ops int) float64 {
	return d.Seconds() * 1e3 / (float64(ops) / 1e6)
}

// Runner executes benchmark runs
type Runner struct {
	cfg   Config
	log   logrus.FieldLogger
	stats io.Writer
}

// NewRunner returns a runner for cfg. When cfg.Stats is set, the allocator
// state after every slab run is dumped to stats.
func NewRunner(cfg Config, log logrus.FieldLogger, stats io.Writer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, log: log, stats: stats}, nil
}

// Run benchmarks every configured unit size
func (r *Runner) Run() ([]Result, error) {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	results := make([]Result, 0, len(r.cfg.Sizes))
	for _, size := range r.cfg.Sizes {
		res, err := r.RunSize(size, seed)
		if err != nil {
			return results, err
		}
		r.log.WithFields(logrus.Fields{
			"size":     size,
			"baseline": res.Baseline,
			"slab":     res.Slab,
		}).Info("finished unit size")
		results = append(results, res)
	}
	return results, nil
}

// RunSize runs the baseline and the slab allocator with the same traffic
func (r *Runner) RunSize(size int, seed uint64) (res Result, err error) {
	res = Result{Size: size, Ops: r.cfg.Ops}
	rng := NewXorshift64(seed)

	res.Baseline = r.runBaseline(size, rng)

	rng.Reseed(seed)
	a, err := r.newAllocator(size)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close allocator")
		}
	}()

	res.Slab, res.Failures, res.Rejected = r.runSlab(a, rng)
	res.Blocks = a.TotalBlocks()
	res.Reserved = a.ReservedBlocks()

	if res.Rejected > 0 {
		r.log.WithFields(logrus.Fields{
			"size":     size,
			"rejected": res.Rejected,
		}).Warn("allocator refused deallocations")
	}

	if r.cfg.Stats && r.stats != nil {
		if err := a.PrintStats(r.stats); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *Runner) newAllocator(size int) (*slab.Allocator, error) {
	cfg := slab.NewConfig(size)
	cfg.ReservedLimit = r.cfg.Reserved
	cfg.Logger = r.log

	if r.cfg.Source == "mmap" {
		cfg.Source = slab.MmapSource{}
	}
	if r.cfg.LimitBytes > 0 {
		cfg.Source = slab.NewLimitSource(cfg.Source, r.cfg.LimitBytes)
	}

	return slab.NewWithConfig(cfg)
}

// allocStep decides whether the next operation allocates. Both runs use it so
// they see the same sequence of operations.
func (r *Runner) allocStep(rng *Xorshift64, live int) bool {
	return (rng.Next()%2 == 0 || live == 0) && live < r.cfg.MaxLive
}

func (r *Runner) runBaseline(size int, rng *Xorshift64) time.Duration {
	live := make([][]byte, 0, r.cfg.MaxLive)

	start := time.Now()
	for i := 0; i < r.cfg.Ops; i++ {
		if r.allocStep(rng, len(live)) {
			live = append(live, make([]byte, size))
		} else if len(live) > 0 {
			idx := int(rng.Next() % uint64(len(live)))
			live[idx] = live[len(live)-1]
			live[len(live)-1] = nil
			live = live[:len(live)-1]
		}
	}
	return time.Since(start)
}

// runSlab returns the elapsed time, the number of failed allocations and the
// number of rejected deallocations
func (r *Runner) runSlab(a *slab.Allocator, rng *Xorshift64) (time.Duration, int, int) {
	live := make([]unsafe.Pointer, 0, r.cfg.MaxLive)
	failures, rejected := 0, 0

	start := time.Now()
	for i := 0; i < r.cfg.Ops; i++ {
		if r.allocStep(rng, len(live)) {
			p, err := a.Allocate()
			if err != nil {
				failures++
				continue
			}
			live = append(live, p)
		} else if len(live) > 0 {
			idx := int(rng.Next() % uint64(len(live)))
			if err := a.Deallocate(live[idx]); err != nil {
				rejected++
			}
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	return time.Since(start), failures, rejected
}

// WriteReport renders results as a table
func WriteReport(w io.Writer, results []Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Size", "Heap ms", "Heap ms/Mops", "Slab ms", "Slab ms/Mops", "Blocks", "Reserved", "Failures", "Rejected"})
	for _, res := range results {
		table.Append([]string{
			strconv.Itoa(res.Size),
			strconv.FormatInt(res.Baseline.Milliseconds(), 10),
			fmt.Sprintf("%.2f", perMop(res.Baseline, res.Ops)),
			strconv.FormatInt(res.Slab.Milliseconds(), 10),
			fmt.Sprintf("%.2f", perMop(res.Slab, res.Ops)),
			strconv.Itoa(res.Blocks),
			strconv.Itoa(res.Reserved),
			strconv.Itoa(res.Failures),
			strconv.Itoa(res.Rejected),
		})
	}
	table.Render()
}
