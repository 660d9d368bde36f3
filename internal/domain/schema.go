package domain

import "encoding/json"

// OutputFormat describes the structured shape a backend must return.
type OutputFormat struct {
	Name   string
	Schema json.RawMessage
}
