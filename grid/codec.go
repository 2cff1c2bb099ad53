package grid

import (
	"encoding/json"
	"fmt"

	"github.com/go-sif/spatial"
	"github.com/tidwall/gjson"
)

var cellFields = [...]string{"id", "x1", "y1", "x2", "y2"}

type encodedCell struct {
	ID int64   `json:"id"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// EncodeCells serializes a list of Cells as JSON, so that it can be carried
// inside a job configuration
func EncodeCells(cells []spatial.Cell) (string, error) {
	encoded := make([]encodedCell, len(cells))
	for i, c := range cells {
		encoded[i] = encodedCell{ID: int64(c.ID), X1: c.Rect.X1, Y1: c.Rect.Y1, X2: c.Rect.X2, Y2: c.Rect.Y2}
	}
	buf, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// DecodeCells parses a list of Cells produced by EncodeCells. Decoded Cells
// carry the provided blockSize.
func DecodeCells(encoded string, blockSize int64) ([]spatial.Cell, error) {
	if !gjson.Valid(encoded) {
		return nil, fmt.Errorf("cell list is not valid JSON")
	}
	parsed := gjson.Parse(encoded)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("cell list must be a JSON array")
	}
	var cells []spatial.Cell
	var err error
	parsed.ForEach(func(_, value gjson.Result) bool {
		var fields [5]float64
		for i, name := range cellFields {
			f := value.Get(name)
			if f.Type != gjson.Number {
				err = fmt.Errorf("cell %d has no numeric %q: %s", len(cells)+1, name, value.Raw)
				return false
			}
			fields[i] = f.Float()
		}
		cells = append(cells, spatial.Cell{
			ID:        spatial.CellID(fields[0]),
			Rect:      spatial.Rect{X1: fields[1], Y1: fields[2], X2: fields[3], Y2: fields[4]},
			BlockSize: blockSize,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return cells, nil
}
