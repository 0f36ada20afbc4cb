package registry

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rana718/datamock/internal/schema"
	"github.com/Rana718/datamock/internal/types"
)

// DefaultEntryCount is the row count every table starts with after a parse.
const DefaultEntryCount = 10

// EntryCounts maps a table name to the number of rows to generate for it.
type EntryCounts map[string]int

// NewEntryCounts seeds one entry per table name in the structure. Tables
// that share a name across databases share one entry.
func NewEntryCounts(s types.DatabaseStructure, defaultCount int) EntryCounts {
	if defaultCount < 0 {
		defaultCount = 0
	}
	counts := make(EntryCounts)
	for _, name := range schema.ListTableNames(s) {
		counts[name] = defaultCount
	}
	return counts
}

// Set stores the parsed value of raw for a known table and returns what was
// stored. Unknown tables are ignored and reported with ok=false.
func (c EntryCounts) Set(table, raw string) (value int, ok bool) {
	if _, exists := c[table]; !exists {
		return 0, false
	}
	value = ParseCount(raw)
	c[table] = value
	return value, true
}

func (c EntryCounts) Clone() EntryCounts {
	out := make(EntryCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total is the number of rows the generator will be asked for.
func (c EntryCounts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// ParseCount reads the leading integer of raw. Blank, non-numeric and
// negative input all yield 0; values past the int range clamp to MaxInt32.
func ParseCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || negative {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
