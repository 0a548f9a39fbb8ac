package output

import (
	"encoding/json"
	"io"

	"github.com/ancients-collective/vitals/internal/types"
)

// JSONFormatter writes a scan result as a single JSON object.
type JSONFormatter struct{}

// Write renders the full result as pretty-printed JSON.
func (f *JSONFormatter) Write(w io.Writer, result *types.ScanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
