// Package region partitions a logical-character range into contiguous
// regions of constant highlight membership.
package region

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for highlight contract violations. A bad record fails
// the whole resolution; dropping it silently could mis-render adjacent
// correct highlights.
var (
	ErrInvalidSpan   = errors.New("invalid highlight span")
	ErrDuplicateSpan = errors.New("duplicate highlight index")
)

// Span is one highlight's range in logical-character coordinates.
// Index is the input-order position of the record, which later drives
// stacking order.
type Span struct {
	Index int
	Start int // inclusive
	End   int // exclusive
}

// Region is a maximal contiguous range over which the set of active
// highlights is constant. Active holds highlight indices in ascending
// order; it is empty for unhighlighted stretches, which are still
// reported so regions always cover the whole document.
type Region struct {
	Start  int
	End    int
	Active []int
}

// Resolve partitions [0, length) into ordered, disjoint, contiguous
// regions via an interval sweep. Boundary events at the same position
// apply ends before starts, so a highlight ending exactly where another
// begins never produces a spurious overlap. Zero-width regions are
// dropped.
func Resolve(length int, spans []Span) ([]Region, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative document length %d", ErrInvalidSpan, length)
	}
	if err := validate(length, spans); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}

	type event struct {
		pos   int
		start bool
		index int
	}
	events := make([]event, 0, len(spans)*2)
	for _, s := range spans {
		events = append(events, event{pos: s.Start, start: true, index: s.Index})
		events = append(events, event{pos: s.End, start: false, index: s.Index})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return !events[i].start && events[j].start
	})

	var regions []Region
	active := make(map[int]bool, len(spans))
	prev := 0
	for i := 0; i < len(events); {
		pos := events[i].pos
		if pos > prev {
			regions = append(regions, Region{Start: prev, End: pos, Active: sortedIndices(active)})
			prev = pos
		}
		for i < len(events) && events[i].pos == pos {
			if events[i].start {
				active[events[i].index] = true
			} else {
				delete(active, events[i].index)
			}
			i++
		}
	}
	if prev < length {
		regions = append(regions, Region{Start: prev, End: length, Active: sortedIndices(active)})
	}
	return regions, nil
}

func validate(length int, spans []Span) error {
	seen := make(map[int]bool, len(spans))
	for _, s := range spans {
		if seen[s.Index] {
			return fmt.Errorf("%w: %d", ErrDuplicateSpan, s.Index)
		}
		seen[s.Index] = true
		if s.Start >= s.End {
			return fmt.Errorf("%w: highlight %d has start %d >= end %d", ErrInvalidSpan, s.Index, s.Start, s.End)
		}
		if s.Start < 0 || s.End > length {
			return fmt.Errorf("%w: highlight %d range [%d,%d) outside document [0,%d)", ErrInvalidSpan, s.Index, s.Start, s.End, length)
		}
	}
	return nil
}

func sortedIndices(active map[int]bool) []int {
	if len(active) == 0 {
		return nil
	}
	out := make([]int, 0, len(active))
	for idx := range active {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
