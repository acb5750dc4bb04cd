package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// sanitize copies details with credentials redacted and user ids hashed.
func sanitize(details map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		key := strings.ToLower(strings.TrimSpace(k))
		switch {
		case isRedactKey(key):
			out[k] = "[REDACTED]"
		case isHashKey(key):
			out[k] = hashValue(v)
		default:
			if nested, ok := v.(map[string]interface{}); ok {
				out[k] = sanitize(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func isRedactKey(key string) bool {
	for _, marker := range []string{"token", "authorization", "password", "secret", "api_key", "apikey", "cookie"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func isHashKey(key string) bool {
	return strings.Contains(key, "user_id")
}

func hashValue(v interface{}) string {
	raw := strings.TrimSpace(fmt.Sprint(v))
	if raw == "" || v == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}
