/*
Package rtree bulk loads buffers of newline-terminated records into packed,
read-only R-trees, and reads them back.

A packed block is laid out as follows, with every integer big-endian:

	signature      8 bytes   0x5254726565000001
	header        24 bytes   indexSize, height, degree, recordCount, nodeCount, dataSize (uint32)
	nodes         40 bytes   x1, y1, x2, y2 (float64), first, count (uint32)
	leaf entries   8 bytes   offset, length (uint32)
	data                     the raw records, in their original order

Nodes are stored breadth-first, root first, so that every leaf follows every
internal node. The first field of an internal node indexes the node table,
and the first field of a leaf indexes the leaf entry table. indexSize is the
combined length of the header, nodes and leaf entries.
*/
package rtree
