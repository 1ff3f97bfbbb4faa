package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObject_ToleratesFencesAndProse(t *testing.T) {
	var out struct {
		Found bool `json:"found"`
	}

	err := decodeJSONObject("Here you go:\n```json\n{\"found\": true}\n```", &out)
	require.NoError(t, err)
	assert.True(t, out.Found)
}

func TestDecodeJSONObject_NoObject(t *testing.T) {
	var out map[string]any
	assert.ErrorIs(t, decodeJSONObject("no json here", &out), errNoJSONObject)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$25,000.00", 25000, true},
		{"1,850 sq ft", 1850, true},
		{"5 years", 5, true},
		{"CAD 12.5 per square foot", 12.5, true},
		{"none", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestJSONNumber(t *testing.T) {
	v, err := jsonNumber(json.RawMessage(`"$4,500"`))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 4500.0, *v)

	v, err = jsonNumber(json.RawMessage(`12`))
	require.NoError(t, err)
	assert.Equal(t, 12.0, *v)

	v, err = jsonNumber(json.RawMessage(`"N/A"`))
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = jsonNumber(json.RawMessage(`"about a dozen"`))
	assert.Error(t, err)
}

func TestJSONDate(t *testing.T) {
	want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{`"2024-03-01"`, `"March 1, 2024"`, `"1 March 2024"`, `"03/01/2024"`, `"March 1st, 2024"`} {
		t.Run(in, func(t *testing.T) {
			got, err := jsonDate(json.RawMessage(in))
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, want.Equal(*got), got)
		})
	}

	got, err := jsonDate(json.RawMessage(`"unknown"`))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = jsonDate(json.RawMessage(`"sometime next spring"`))
	assert.Error(t, err)
}

func TestJSONString_Nullish(t *testing.T) {
	for _, in := range []string{`null`, `""`, `"N/A"`, `"Not found"`, `"none"`} {
		got, err := jsonString(json.RawMessage(in))
		require.NoError(t, err)
		assert.Nil(t, got, in)
	}

	got, err := jsonString(json.RawMessage(`" Acme Ltd. "`))
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd.", *got)
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, []string{"a", "b"}, stringList(json.RawMessage(`"a, b"`)))
	assert.Equal(t, []string{"$10,000", "on signing"}, stringList(json.RawMessage(`["$10,000", "on signing"]`)))
	assert.Equal(t, []string{"$10,000", "on signing"}, stringList(json.RawMessage(`"$10,000, on signing"`)))
	assert.Nil(t, stringList(nil))
}

func TestTruncateBytes_RuneSafe(t *testing.T) {
	s := "ab€cd" // € is three bytes
	assert.Equal(t, "ab", truncateBytes(s, 3))
	assert.Equal(t, "ab", truncateBytes(s, 4))
	assert.Equal(t, "ab€", truncateBytes(s, 5))
	assert.Equal(t, s, truncateBytes(s, 100))
}
