package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/hostpulse/hostpulse/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine
// parsing. All --json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts an error to a JSON error response. Structured
// errors keep their code and suggestion; anything else maps to UNKNOWN.
func WriteJSONFromError(w io.Writer, err error) error {
	jsonErr := &JSONError{Code: "UNKNOWN", Message: err.Error()}

	var hpErr *errors.Error
	if stderrors.As(err, &hpErr) {
		jsonErr.Code = hpErr.Code
		jsonErr.Message = hpErr.Message
		jsonErr.Suggestion = hpErr.Suggestion
	}

	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: jsonErr})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
