package output

import (
	"encoding/json"
	"io"
)

// WriteJSON writes v as indented JSON to w. Used for port results, range
// results and threat reports alike.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
