package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

func TestStripCodeFencesRemovesJSONFence(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, StripCodeFences(in))
}

func TestStripCodeFencesRemovesBareFence(t *testing.T) {
	in := "```\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, StripCodeFences(in))
}

func TestStripCodeFencesLeavesUnfencedContentAlone(t *testing.T) {
	in := `{"a":1}`
	assert.Equal(t, in, StripCodeFences(in))
}

func TestParseJSONUnmarshalsFencedContent(t *testing.T) {
	var dest struct {
		A int `json:"a"`
	}
	err := ParseJSON("```json\n{\"a\":7}\n```", &dest)
	require.NoError(t, err)
	assert.Equal(t, 7, dest.A)
}

func TestParseJSONWrapsMalformedOutput(t *testing.T) {
	var dest struct{ A int }
	err := ParseJSON("not json", &dest)
	require.Error(t, err)
	assert.Equal(t, ErrModelInvalidOutput.Code, appErrors.FromError(err).Code)
}

func TestExtractFieldFindsPathInMalformedOutput(t *testing.T) {
	result, ok := ExtractField(`{"topics":[{"title":"Sorting"}]`, "topics.0.title")
	require.True(t, ok)
	assert.Equal(t, "Sorting", result.String())
}

func TestExtractFieldMissingPathReturnsFalse(t *testing.T) {
	_, ok := ExtractField(`{"topics":[]}`, "topics.0.title")
	assert.False(t, ok)
}
