package main

import (
	"fmt"
	"os"

	"github.com/replay/go-slab/internal/bench"
)

func main() {
	cfg, err := bench.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
