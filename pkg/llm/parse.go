package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripCodeFences removes a single leading/trailing markdown code fence
// (``` or ```json) from model output before JSON parsing.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if matches := codeFenceRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return content
}

// ParseJSON strips code fences and strictly unmarshals the result into dest.
// It returns ErrModelInvalidOutput, wrapping the underlying parse error, on
// failure rather than the raw json error so callers can match on it.
func ParseJSON(content string, dest any) error {
	cleaned := StripCodeFences(content)
	if err := json.Unmarshal([]byte(cleaned), dest); err != nil {
		return appErrors.Wrap(err, ErrModelInvalidOutput.Code, ErrModelInvalidOutput.Status, ErrModelInvalidOutput.Message)
	}
	return nil
}

// ExtractField tolerantly reads a single field from otherwise malformed
// model output using gjson, for the narrow set of callers that can recover
// from a partially broken response instead of failing the whole call.
func ExtractField(content, path string) (gjson.Result, bool) {
	cleaned := StripCodeFences(content)
	result := gjson.Get(cleaned, path)
	return result, result.Exists()
}

