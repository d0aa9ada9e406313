package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/medforge/casgen/internal/types"
)

// JSONArrayEncoder writes the cohort as a single JSON array without
// holding it in memory: bracket on Begin, comma-separated elements, and
// the closing bracket on End. An empty cohort serializes as [].
type JSONArrayEncoder struct {
	w     *bufio.Writer
	wrote bool
}

// NewJSONArrayEncoder creates a JSON array encoder over w.
func NewJSONArrayEncoder(w io.Writer) *JSONArrayEncoder {
	return &JSONArrayEncoder{w: bufio.NewWriterSize(w, 64<<10)}
}

func (e *JSONArrayEncoder) Begin() error {
	return e.w.WriteByte('[')
}

func (e *JSONArrayEncoder) Encode(p *types.Patient) error {
	if e.wrote {
		if err := e.w.WriteByte(','); err != nil {
			return err
		}
	}
	e.wrote = true
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

func (e *JSONArrayEncoder) End() error {
	if err := e.w.WriteByte(']'); err != nil {
		return err
	}
	return e.w.Flush()
}
