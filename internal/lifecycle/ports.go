package lifecycle

import (
	"github.com/kildhq/kild/internal/kilderr"
	"github.com/kildhq/kild/internal/session"
)

// AllocatePortRange scans existing sessions and returns the lowest
// contiguous free block of size count, starting no lower than base
// (spec.md §4.7 step 2). Fails with PortsExhausted if no such block
// exists below the configured ceiling.
func AllocatePortRange(existing []*session.Session, base, ceiling, count int) (start, end int, err error) {
	used := make([]bool, ceiling-base+1)
	for _, s := range existing {
		if s.PortRangeStart == 0 && s.PortRangeEnd == 0 {
			continue
		}
		for p := s.PortRangeStart; p <= s.PortRangeEnd; p++ {
			if p >= base && p <= ceiling {
				used[p-base] = true
			}
		}
	}

	run := 0
	for p := base; p <= ceiling; p++ {
		if used[p-base] {
			run = 0
			continue
		}
		run++
		if run == count {
			return p - count + 1, p, nil
		}
	}
	return 0, 0, kilderr.PortsExhausted(count)
}
