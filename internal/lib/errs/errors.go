package errs

import (
	"fmt"
	"sort"
	"strings"
)

// NewError wraps an error with additional context fields for structured error reporting.
//
//   - errType: The base error to wrap. errors.Is matches it on the result.
//   - kv: A map of key-value pairs providing additional context.
//
// Detail fields are rendered in key order so the message is stable across calls.
func NewError(errType error, kv map[string]interface{}) error {
	if len(kv) == 0 {
		return fmt.Errorf("[ttlcache error], [%w]", errType)
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var details strings.Builder
	for _, k := range keys {
		switch val := kv[k].(type) {
		case error:
			fmt.Fprintf(&details, "%s: %v; ", k, val.Error())
		default:
			fmt.Fprintf(&details, "%s: %v; ", k, val)
		}
	}
	return fmt.Errorf("[ttlcache error], [%w], details: [%s]", errType, details.String())
}
