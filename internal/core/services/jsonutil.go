package services

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

var errNoJSONObject = errors.New("no JSON object in response")

// decodeJSONObject parses the first JSON object in an LLM response.
// Code fences and surrounding prose are tolerated.
func decodeJSONObject(raw string, out any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(s[start:end+1]), out)
}

// nullish reports whether a model-provided string means "no value".
func nullish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "na", "not found", "not stated", "not specified", "none", "null", "unknown", "-":
		return true
	default:
		return false
	}
}

// jsonString converts a raw JSON value into an optional string.
// Numbers are formatted; null and nullish strings yield nil.
func jsonString(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, errors.New("not a string")
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	s = strings.TrimSpace(s)
	if nullish(s) {
		return nil, nil
	}
	return &s, nil
}

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?|-?\.\d+`)

// parseAmount extracts the first number from text such as "$25,000.00",
// "1,850 sq ft" or "5 years".
func parseAmount(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// jsonNumber converts a raw JSON number or numeric string into an optional float.
func jsonNumber(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("not a number")
	}
	if nullish(s) {
		return nil, nil
	}
	v, ok := parseAmount(s)
	if !ok {
		return nil, errors.New("not a number")
	}
	return &v, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// jsonDate converts a raw JSON string into an optional date.
func jsonDate(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("not a date string")
	}
	s = strings.TrimSpace(s)
	if nullish(s) {
		return nil, nil
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("unrecognised date format")
}

var ordinalSuffix = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)

// stringList accepts a JSON array of strings or a comma-separated string.
// Array items are kept whole.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.SplitKeyTerms(s)
	}
	return nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
