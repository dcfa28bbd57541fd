package apiclient

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// GenericMessage is shown when the server gives nothing usable.
const GenericMessage = "Ocorreu um erro inesperado"

// ExtractMessage picks the human-readable part of an error body.
//
// JSON bodies are searched for error_description, then error, then message;
// the first non-empty string wins. A non-JSON body is used as text. HTML
// entities are decoded in every case. An empty body yields "HTTP <status>".
func ExtractMessage(body []byte, status int) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("HTTP %d", status)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return html.UnescapeString(trimmed)
	}

	for _, key := range []string{"error_description", "error", "message"} {
		if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
			return html.UnescapeString(s)
		}
	}
	return GenericMessage
}
