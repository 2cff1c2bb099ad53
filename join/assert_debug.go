//go:build spatialdebug
// +build spatialdebug

package join

import (
	"fmt"

	"github.com/go-sif/spatial"
)

func assertSorted(shapes []spatial.Shape) {
	for i := 1; i < len(shapes); i++ {
		if spatial.LessX(shapes[i], shapes[i-1]) {
			panic(fmt.Errorf("join input is not sorted by lower x at position %d", i))
		}
	}
}
