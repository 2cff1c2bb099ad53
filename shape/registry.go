package shape

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
)

// Kind enumerates the closed set of shape variants
type Kind int

const (
	// PointKind identifies Point records
	PointKind Kind = iota
	// RectangleKind identifies Rectangle records
	RectangleKind
	// PolygonKind identifies Polygon records
	PolygonKind
	// CustomKind identifies records of a registered custom type
	CustomKind
)

// KindOf returns the variant of a Shape
func KindOf(s spatial.Shape) Kind {
	switch s.(type) {
	case Point:
		return PointKind
	case Rectangle:
		return RectangleKind
	case *Polygon:
		return PolygonKind
	default:
		return CustomKind
	}
}

// Parser converts the text form of a record into a Shape
type Parser func(text []byte) (spatial.Shape, error)

var (
	registryLock sync.RWMutex
	registry     = map[string]Parser{
		"point":     ParsePoint,
		"rectangle": ParseRectangle,
		"rect":      ParseRectangle,
		"polygon":   ParsePolygon,
	}
)

// Register makes a custom shape type available under a configuration name.
// Registering an existing name replaces its Parser.
func Register(name string, parser Parser) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[strings.ToLower(name)] = parser
}

// Lookup returns the Parser registered under a configuration name
func Lookup(name string) (Parser, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	parser, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, errors.UnknownShapeError{Name: name}
	}
	return parser, nil
}

// Text returns the serialized form of a Shape, without a trailing newline
func Text(s spatial.Shape) []byte {
	return s.AppendText(nil)
}

// parseCoords parses exactly n comma-separated floating point values
func parseCoords(text []byte, n int) ([]float64, error) {
	parts := bytes.Split(bytes.TrimSpace(text), []byte{','})
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d in %q", n, len(parts), text)
	}
	coords := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(string(bytes.TrimSpace(part)), 64)
		if err != nil {
			return nil, err
		}
		coords[i] = v
	}
	return coords, nil
}
