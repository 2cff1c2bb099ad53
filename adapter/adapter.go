// Package adapter exposes a CellWriter through the record writer contract
// which the job framework's reduce tasks emit their output to.
package adapter

import (
	"context"
	"fmt"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/grid"
	"github.com/go-sif/spatial/writer"
)

// RecordWriter receives the (cell, record) pairs emitted by a reduce task.
// A nil record marks the end of a cell.
type RecordWriter interface {
	Write(ctx context.Context, key spatial.CellID, value spatial.Shape) error
	Close(ctx context.Context) error
}

// GridRecordWriter is a RecordWriter which delegates to a CellWriter
type GridRecordWriter struct {
	cells  *writer.CellWriter
	layout *grid.Grid
	buf    []byte
}

// NewGridRecordWriter wraps a CellWriter. layout is only needed by WriteShape, and may be nil.
func NewGridRecordWriter(cells *writer.CellWriter, layout *grid.Grid) *GridRecordWriter {
	return &GridRecordWriter{cells: cells, layout: layout}
}

// Write appends the text of value to a cell, or closes the cell if value is nil
func (g *GridRecordWriter) Write(ctx context.Context, key spatial.CellID, value spatial.Shape) error {
	if value == nil {
		return g.cells.Close(ctx, key)
	}
	g.buf = value.AppendText(g.buf[:0])
	return g.cells.Write(ctx, key, g.buf)
}

// WriteText appends a serialized record to a cell. Empty text closes the cell.
func (g *GridRecordWriter) WriteText(ctx context.Context, key spatial.CellID, text []byte) error {
	return g.cells.Write(ctx, key, text)
}

// WriteShape appends value to every cell of the layout which it overlaps
func (g *GridRecordWriter) WriteShape(ctx context.Context, value spatial.Shape) error {
	if g.layout == nil {
		return fmt.Errorf("no grid layout was provided to route records")
	}
	ids, err := grid.OverlappingCells(g.layout, value.MBR())
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := g.Write(ctx, id, value); err != nil {
			return err
		}
	}
	return nil
}

// Close finalizes every cell
func (g *GridRecordWriter) Close(ctx context.Context) error {
	return g.cells.CloseAll(ctx)
}

// Files returns the cell files written so far
func (g *GridRecordWriter) Files() []writer.CellFile {
	return g.cells.Files()
}
