// Package join computes every intersecting pair between two collections of
// Shapes with a plane sweep along the x axis.
package join

import (
	"sort"

	"github.com/go-sif/spatial"
	iutil "github.com/go-sif/spatial/internal/util"
)

// Join sorts copies of R and S by the lower x-coordinate of their bounding
// rectangles and reports every pair (r, s) which exactly intersects to sink.
// sink may be nil, in which case pairs are only counted. The number of
// intersecting pairs found so far is returned alongside any error from sink.
func Join(R []spatial.Shape, S []spatial.Shape, sink spatial.PairSink) (int, error) {
	return JoinSorted(sortedCopy(R), sortedCopy(S), sink)
}

func sortedCopy(shapes []spatial.Shape) []spatial.Shape {
	sorted := make([]spatial.Shape, len(shapes))
	copy(sorted, shapes)
	sort.SliceStable(sorted, func(i, j int) bool { return spatial.LessX(sorted[i], sorted[j]) })
	return sorted
}

// JoinSorted is Join for inputs which are already sorted by spatial.LessX.
// Unsorted input produces an incomplete result rather than an error; builds
// tagged spatialdebug panic on it instead.
func JoinSorted(R []spatial.Shape, S []spatial.Shape, sink spatial.PairSink) (int, error) {
	assertSorted(R)
	assertSorted(S)
	sink = iutil.SafePairSink(sink)
	count := 0
	i, j := 0, 0
	for i < len(R) && j < len(S) {
		r, s := R[i].MBR(), S[j].MBR()
		if r.X1 < s.X1 {
			for k := j; k < len(S) && S[k].MBR().X1 <= r.X2; k++ {
				if R[i].Intersects(S[k]) {
					count++
					if sink != nil {
						if err := sink(R[i], S[k]); err != nil {
							return count, err
						}
					}
				}
			}
			i++
		} else {
			for k := i; k < len(R) && R[k].MBR().X1 <= s.X2; k++ {
				if R[k].Intersects(S[j]) {
					count++
					if sink != nil {
						if err := sink(R[k], S[j]); err != nil {
							return count, err
						}
					}
				}
			}
			j++
		}
	}
	return count, nil
}
