//go:build !spatialdebug
// +build !spatialdebug

package join

import "github.com/go-sif/spatial"

func assertSorted(shapes []spatial.Shape) {}
