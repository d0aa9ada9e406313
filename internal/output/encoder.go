// Package output serializes generated cohorts to the configured formats,
// draining worker chunks in event order so output bytes are independent
// of worker count.
package output

import (
	"github.com/medforge/casgen/internal/types"
)

// Encoder writes patients in one output format. Encoders are
// single-writer; the serializer owns them.
type Encoder interface {
	// Begin writes any format preamble.
	Begin() error

	// Encode appends one patient record.
	Encode(p *types.Patient) error

	// End writes the format epilogue. It does not close the underlying
	// writer chain.
	End() error
}
