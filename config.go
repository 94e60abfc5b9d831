package slab

import "github.com/sirupsen/logrus"

const (
	// MaxUnitSize is the largest unit size an allocator accepts
	MaxUnitSize = 4096

	// DefaultReservedLimit is the number of empty blocks kept around before
	// one gets handed back to the memory source
	DefaultReservedLimit = 4

	// DefaultPromoteThreshold is the number of full blocks a list scan may
	// step over before the block it finds gets moved to the front of the list
	DefaultPromoteThreshold = 4
)

// Config is used when creating a new allocator. Use NewConfig to get one with
// default settings and adjust from there.
type Config struct {
	// UnitSize is the payload size of every unit, it gets rounded up to a
	// multiple of 8
	UnitSize int

	// ReservedLimit is the number of empty blocks retained before evicting one.
	// Values below 1 are raised to 1.
	ReservedLimit int

	// PromoteThreshold controls the move-to-front heuristic of Allocate.
	// Values below 1 use DefaultPromoteThreshold.
	PromoteThreshold int

	// Source provides the memory for blocks. Nil means HeapSource.
	Source Source

	// Logger receives misuse reports and block lifecycle events. Nil means
	// the logrus standard logger.
	Logger logrus.FieldLogger
}

// NewConfig returns a configuration for the given unit size with default settings
func NewConfig(unitSize int) Config {
	return Config{
		UnitSize:         unitSize,
		ReservedLimit:    DefaultReservedLimit,
		PromoteThreshold: DefaultPromoteThreshold,
		Source:           HeapSource{},
		Logger:           defaultLogger(),
	}
}

// normalize fills in defaults and clamps the values that have a lower bound.
// The unit size is validated by the allocator.
func (c Config) normalize() Config {
	if c.ReservedLimit < 1 {
		c.ReservedLimit = 1
	}
	if c.PromoteThreshold < 1 {
		c.PromoteThreshold = DefaultPromoteThreshold
	}
	if c.Source == nil {
		c.Source = HeapSource{}
	}
	if c.Logger == nil {
		c.Logger = defaultLogger()
	}
	return c
}

func defaultLogger() logrus.FieldLogger {
	return logrus.StandardLogger().WithField("prefix", "slab")
}
