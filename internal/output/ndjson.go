package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/medforge/casgen/internal/types"
)

// NDJSONEncoder writes one JSON object per line. This is the default
// format: it streams with O(1) memory and is trivially resumable by
// line count.
type NDJSONEncoder struct {
	w *bufio.Writer
}

// NewNDJSONEncoder creates an NDJSON encoder over w.
func NewNDJSONEncoder(w io.Writer) *NDJSONEncoder {
	return &NDJSONEncoder{w: bufio.NewWriterSize(w, 64<<10)}
}

func (e *NDJSONEncoder) Begin() error { return nil }

func (e *NDJSONEncoder) Encode(p *types.Patient) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

func (e *NDJSONEncoder) End() error {
	return e.w.Flush()
}
