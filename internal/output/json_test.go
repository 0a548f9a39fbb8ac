package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_RoundTrips(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, (&JSONFormatter{}).Write(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "scan-1", decoded["scan_id"])
	scores := decoded["scores"].(map[string]any)
	assert.Equal(t, float64(60), scores["health"])
	assert.Equal(t, float64(-20), scores["health_delta"])
	assert.Len(t, decoded["issues"], 2)
}

func TestJSONFormatter_NoHTMLEscaping(t *testing.T) {
	r := sampleResult()
	r.Issues[0].Description = "a < b && c > d"
	var buf bytes.Buffer

	require.NoError(t, (&JSONFormatter{}).Write(&buf, r))

	assert.Contains(t, buf.String(), "a < b && c > d")
}
