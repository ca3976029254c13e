// File: backend/services/impersonation-service/internal/utils/sanitize/sanitize.go
package sanitize

import (
	"encoding/json"
	"strings"
)

// RedactionMarker replaces every sensitive value in sanitized output.
const RedactionMarker = "[REDACTED]"

// sensitiveFields are matched case-insensitively as substrings of field names,
// at any nesting depth.
var sensitiveFields = []string{
	"password",
	"password_hash",
	"token",
	"accesstoken",
	"refreshtoken",
	"secret",
	"mfa_secret",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// Body sanitizes a raw JSON request body for audit storage. Values of fields
// whose names match the sensitive list are replaced with the redaction marker,
// recursively through nested objects and arrays. Bodies that are not valid
// JSON objects or arrays are replaced wholesale so raw content never reaches
// the audit store. Empty bodies sanitize to nil.
func Body(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fallback, _ := json.Marshal(map[string]string{"_body": RedactionMarker})
		return fallback
	}

	sanitized := Value(decoded)
	out, err := json.Marshal(sanitized)
	if err != nil {
		fallback, _ := json.Marshal(map[string]string{"_body": RedactionMarker})
		return fallback
	}
	return out
}

// Value sanitizes an already-decoded JSON value.
func Value(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, val := range typed {
			if isSensitiveKey(key) {
				out[key] = RedactionMarker
				continue
			}
			out[key] = Value(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, val := range typed {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}
