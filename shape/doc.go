// Package shape provides the concrete record types understood by the engine: points, rectangles
// and polygons, plus a registry mapping a configured type name to a text parser so that
// additional custom shapes can be plugged in without reflection.
package shape
