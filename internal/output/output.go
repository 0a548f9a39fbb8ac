// Package output provides formatters that render scan results in different formats.
package output

import (
	"io"

	"github.com/ancients-collective/vitals/internal/types"
)

// Formatter writes a scan result to the given writer.
type Formatter interface {
	Write(w io.Writer, result *types.ScanResult) error
}
