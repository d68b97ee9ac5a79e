package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJSON_BasicError(t *testing.T) {
	err := DimensionMismatchErr(768, 512)

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeDimensionMismatch, result["code"])
	assert.Equal(t, string(CategoryValidation), result["category"])
	assert.Equal(t, string(SeverityFatal), result["severity"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "768", details["expected"])
}

func TestFormatJSON_StageError(t *testing.T) {
	err := StageErr(StageEmbed, errors.New("dimension config mismatch"))

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "embed", result["stage"])
	assert.Equal(t, "dimension config mismatch", result["cause"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeInternal, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatForCLI_IncludesCodeAndStage(t *testing.T) {
	err := StageErr(StageDistill, errors.New("distillation provider unavailable"))

	result := FormatForCLI(err)

	assert.Contains(t, result, "distillation provider unavailable")
	assert.Contains(t, result, "ERR_201_STAGE_DISTILL")
	assert.Contains(t, result, "distill")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := NotFoundErr("folder")

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "should be concise")
}

func TestFormatForLog_IncludesDomainFields(t *testing.T) {
	err := ProviderErr(ProviderKindTimeout, "embed timed out", nil)

	fields := FormatForLog(err)

	assert.Equal(t, ErrCodeProviderTimeout, fields["error_code"])
	assert.Equal(t, "timeout", fields["provider_kind"])
	assert.Equal(t, true, fields["retryable"])
}
