package engineerr

import (
	"encoding/json"
	"fmt"
)

// FormatForCLI formats an error for CLI output — a concise format
// suitable for terminal display, printed to stderr before exit.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ee, ok := err.(*EngineError)
	if !ok {
		ee = New(ErrCodeInternalInvariant, err.Error(), err)
	}

	return fmt.Sprintf("Error: %s\n  Code: %s\n", ee.Message, ee.Code)
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Details  map[string]string `json:"details,omitempty"`
	Cause    string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error, suitable for
// machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ee, ok := err.(*EngineError)
	if !ok {
		ee = New(ErrCodeInternalInvariant, err.Error(), err)
	}

	je := jsonError{
		Code:     ee.Code,
		Message:  ee.Message,
		Category: string(ee.Category),
		Severity: string(ee.Severity),
		Details:  ee.Details,
	}
	if ee.Cause != nil {
		je.Cause = ee.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error as key-value pairs suitable for slog
// attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ee, ok := err.(*EngineError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": ee.Code,
		"message":    ee.Message,
		"category":   string(ee.Category),
		"severity":   string(ee.Severity),
	}
	if ee.Cause != nil {
		result["cause"] = ee.Cause.Error()
	}
	for k, v := range ee.Details {
		result["detail_"+k] = v
	}
	return result
}
