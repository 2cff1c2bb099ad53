// Package spatial contains the core vocabulary of a spatial partitioning and indexing engine.
// Large collections of 2-D records are divided into block-sized cells, each cell is optionally
// indexed with a packed R-tree, and the resulting files are laid out so that every cell occupies
// whole storage blocks. This root package defines the types shared by every stage of that
// pipeline: rectangles, shapes, cells and build configuration.
package spatial
