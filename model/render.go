package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/coopdesk/core"
)

// RenderToolResult flattens a tool result into the text form providers expect.
// Failures are prefixed with "Error: " so the model can tell them apart.
func RenderToolResult(fr core.FunctionResponse) string {
	if fr.Error != "" {
		return "Error: " + fr.Error
	}

	switch v := fr.Response.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response)
	}

	return string(b)
}
