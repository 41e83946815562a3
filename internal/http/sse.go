package httpx

import (
	"encoding/json"
	"fmt"
	"io"
)

// writeSSEData writes one server-sent-event data frame containing v as JSON.
func writeSSEData(w io.Writer, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		// Snapshots are plain structs; marshalling cannot realistically fail.
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
