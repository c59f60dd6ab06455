package api

import "encoding/json"

// encodeSSEPayload marshals v for an SSE "data:" line. Marshaling a value
// this package itself constructed is never expected to fail; falling back
// to an empty object keeps streamInit from panicking mid-response if it
// ever does.
func encodeSSEPayload(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
