package join

import (
	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/cellfile"
	"github.com/go-sif/spatial/shape"
)

// Cells joins the records of two cell files
func Cells(r *cellfile.Reader, s *cellfile.Reader, parse shape.Parser, sink spatial.PairSink) (int, error) {
	R, err := r.Shapes(parse)
	if err != nil {
		return 0, err
	}
	S, err := s.Shapes(parse)
	if err != nil {
		return 0, err
	}
	return Join(R, S, sink)
}
