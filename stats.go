package slab

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// BlockStats describes the occupancy of one block
type BlockStats struct {
	Position int    // position in the block list, 0 is the head
	Used     int    // units handed out
	FreeMask uint64 // bit i set means unit i is free
	Cached   bool   // block is the allocator's cache
}

// Stats is a snapshot of an allocator's bookkeeping
type Stats struct {
	UnitSize       int
	Stride         int
	TotalBlocks    int
	ReservedBlocks int
	ReservedLimit  int
	InUse          int
	Blocks         []BlockStats
}

// Stats returns a snapshot of the allocator with one entry per block in list order
func (a *Allocator) Stats() Stats {
	s := Stats{
		UnitSize:       int(a.unitSize),
		Stride:         int(a.stride),
		TotalBlocks:    a.total,
		ReservedBlocks: a.reserved,
		ReservedLimit:  a.reservedLimit,
		InUse:          a.inUse,
	}

	pos := 0
	for current := a.head; current != nilIndex; current = a.blocks[current].next {
		b := &a.blocks[current]
		s.Blocks = append(s.Blocks, BlockStats{
			Position: pos,
			Used:     b.used(),
			FreeMask: uint64(b.free),
			Cached:   current == a.cache,
		})
		pos++
	}

	return s
}

// PrintStats writes a human readable dump of every block's occupancy to w.
// The format is meant for people and may change at any time.
func (a *Allocator) PrintStats(w io.Writer) error {
	s := a.Stats()

	_, err := fmt.Fprintf(w, "unit size: %d, stride: %d, blocks: %d, reserved: %d/%d, units in use: %d\n",
		s.UnitSize, s.Stride, s.TotalBlocks, s.ReservedBlocks, s.ReservedLimit, s.InUse)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Used", "Cache", "Occupancy"})
	table.SetAutoWrapText(false)
	for _, b := range s.Blocks {
		cache := ""
		if b.Cached {
			cache = "*"
		}
		table.Append([]string{
			strconv.Itoa(b.Position),
			fmt.Sprintf("%d / %d", b.Used, UnitsPerBlock),
			cache,
			occupancyMap(b.FreeMask, "\n"),
		})
	}
	table.Render()

	return nil
}

// occupancyMap renders a free mask as 4 rows of 16 units, '#' for a used unit
// and '_' for a free one, unit 0 first
func occupancyMap(mask uint64, sep string) string {
	var b strings.Builder
	for i := 0; i < UnitsPerBlock; i++ {
		if i > 0 && i%16 == 0 {
			b.WriteString(sep)
		}
		if mask&(1<<uint(i)) != 0 {
			b.WriteByte('_')
		} else {
			b.WriteByte('#')
		}
	}
	return b.String()
}
