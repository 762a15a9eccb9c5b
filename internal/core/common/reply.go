// Package common holds helpers shared by the pipeline packages.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoObject = errors.New("no JSON object found in model reply")

// ParseJSON decodes the first JSON object in a model reply into T. Prose,
// markdown fences and trailing text around the object are ignored.
func ParseJSON[T any](reply string) (T, error) {
	var zero T
	rest := reply
	var lastErr error
	for {
		i := strings.IndexByte(rest, '{')
		if i < 0 {
			break
		}
		rest = rest[i:]
		var out T
		err := json.NewDecoder(strings.NewReader(rest)).Decode(&out)
		if err == nil {
			return out, nil
		}
		lastErr = err
		rest = rest[1:]
	}
	if lastErr != nil {
		return zero, fmt.Errorf("failed to unmarshal model reply: %w", lastErr)
	}
	return zero, errNoObject
}
