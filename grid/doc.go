// Package grid decides how a dataset is split into Cells: it computes uniform
// or load-packed grid layouts over a global bounding box, routes each record
// to the Cells it overlaps, and sizes the number of Cells a dataset needs.
package grid
