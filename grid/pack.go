package grid

import (
	"math"
	"sort"

	"github.com/go-sif/spatial"
)

// Slice is one vertical strip of a packing
type Slice struct {
	Groups [][]int // Groups holds indices into the packed records, ordered by center y-coordinate
}

// Pack splits rects into the given number of groups using Sort-Tile-Recursive
// packing: rects are sorted by center x and cut into ceil(sqrt(groups))
// vertical slices, then each slice is sorted by center y and cut into groups.
// Group sizes differ by at most one, so when groups = ceil(len(rects)/d) every
// group holds between ceil(d/2) and d rects.
func Pack(rects []spatial.Rect, groups int) []Slice {
	if len(rects) == 0 || groups < 1 {
		return nil
	}
	if groups > len(rects) {
		groups = len(rects)
	}
	cx := make([]float64, len(rects))
	cy := make([]float64, len(rects))
	idx := make([]int, len(rects))
	for i, r := range rects {
		cx[i], cy[i] = r.Center()
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cx[idx[a]] < cx[idx[b]] })

	sizes := evenSizes(len(rects), groups)
	numSlices := int(math.Ceil(math.Sqrt(float64(groups))))
	perSlice := evenSizes(groups, numSlices)

	slices := make([]Slice, 0, numSlices)
	nextGroup, nextRecord := 0, 0
	for _, n := range perSlice {
		count := 0
		for _, size := range sizes[nextGroup : nextGroup+n] {
			count += size
		}
		members := idx[nextRecord : nextRecord+count]
		slice := Slice{Groups: make([][]int, 0, n)}
		sort.SliceStable(members, func(a, b int) bool { return cy[members[a]] < cy[members[b]] })
		offset := 0
		for _, size := range sizes[nextGroup : nextGroup+n] {
			slice.Groups = append(slice.Groups, members[offset:offset+size:offset+size])
			offset += size
		}
		slices = append(slices, slice)
		nextGroup += n
		nextRecord += count
	}
	return slices
}

// evenSizes distributes total items into n parts whose sizes differ by at most one
func evenSizes(total, n int) []int {
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = total / n
		if i < total%n {
			sizes[i]++
		}
	}
	return sizes
}

// splitRuns cuts idx, which is sorted by key, into at most n contiguous
// ranges of near-equal size. A boundary never falls between two equal keys:
// it moves to whichever end of the run of equal keys is closer, so a long
// run of ties ends up in a single range.
func splitRuns(idx []int, key []float64, n int) [][2]int {
	var ranges [][2]int
	start := 0
	for k := 1; k <= n && start < len(idx); k++ {
		end := len(idx) * k / n
		if end <= start {
			continue
		}
		if end < len(idx) && key[idx[end-1]] == key[idx[end]] {
			v := key[idx[end]]
			lo, hi := end, end
			for lo > start && key[idx[lo-1]] == v {
				lo--
			}
			for hi < len(idx) && key[idx[hi]] == v {
				hi++
			}
			if lo > start && end-lo <= hi-end {
				end = lo
			} else {
				end = hi
			}
		}
		ranges = append(ranges, [2]int{start, end})
		start = end
	}
	return ranges
}

// apportion divides total cells between ranges in proportion to the number
// of records in each. Ranges which would receive no cell are merged into a
// neighbour, so every returned range has at least one cell and at least as
// many records as cells.
func apportion(ranges [][2]int, records, total int) ([][2]int, []int) {
	var merged [][2]int
	var counts []int
	done := 0
	pending := -1
	for _, r := range ranges {
		target := int(math.Round(float64(total) * float64(r[1]) / float64(records)))
		n := target - done
		done = target
		if pending < 0 {
			pending = r[0]
		}
		if n == 0 {
			continue
		}
		merged = append(merged, [2]int{pending, r[1]})
		counts = append(counts, n)
		pending = -1
	}
	if pending >= 0 && len(merged) > 0 {
		merged[len(merged)-1][1] = ranges[len(ranges)-1][1]
	}
	return merged, counts
}
